package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/companyhub/internal/security/audit"
	"github.com/aryan0dhankhar/companyhub/internal/security/middleware"
	"github.com/aryan0dhankhar/companyhub/internal/security/ratelimit"
	"github.com/aryan0dhankhar/companyhub/internal/service"
)

// Services are the operations the routes are bound to
type Services struct {
	Companies *service.CompanyService
	Users     *service.UserService
	Auth      *service.AuthService
	Batch     *service.BatchService
	Store     Pinger
}

// NewRouter registers every API route. Middleware shared by all routes
// (request id, CORS, metrics, tracing) is applied by the caller.
func NewRouter(svc Services, limiter *ratelimit.Limiter, auditLog *audit.Logger, logger *slog.Logger) *http.ServeMux {
	companies := NewCompanyHandler(svc.Companies, logger)
	users := NewUserHandler(svc.Users, logger)
	authH := NewAuthHandler(svc.Auth, auditLog, logger)
	health := NewHealthHandler(svc.Store, logger)

	optional := middleware.OptionalUser(svc.Auth, logger)
	required := middleware.RequireUser(svc.Auth, auditLog, logger)
	jsonOnly := middleware.ValidateContentType(logger)

	entity := func(resource string, h http.HandlerFunc, auth func(http.Handler) http.Handler) http.Handler {
		return middleware.Chain(h, auth, jsonOnly, middleware.Audit(auditLog, resource))
	}

	mux := http.NewServeMux()

	mux.Handle("POST /api/v1/companies", entity("company", companies.Create, optional))
	mux.Handle("GET /api/v1/companies", entity("company", companies.List, optional))
	mux.Handle("GET /api/v1/companies/{id}", entity("company", companies.Get, optional))
	mux.Handle("PUT /api/v1/companies/{id}", entity("company", companies.Update, optional))
	mux.Handle("DELETE /api/v1/companies/{id}", entity("company", companies.Delete, optional))

	mux.Handle("POST /api/v1/users", entity("user", users.Create, optional))
	mux.Handle("GET /api/v1/users", entity("user", users.List, required))
	mux.Handle("GET /api/v1/users/{id}", entity("user", users.Get, optional))
	mux.Handle("PUT /api/v1/users/{id}", entity("user", users.Update, optional))
	mux.Handle("DELETE /api/v1/users/{id}", entity("user", users.Delete, optional))

	mux.Handle("POST /api/v1/auth/token", middleware.Chain(http.HandlerFunc(authH.Login),
		middleware.LoginRateLimit(limiter, logger),
		middleware.ValidateContentType(logger, "application/json", "application/x-www-form-urlencoded"),
	))
	mux.Handle("GET /api/v1/auth/me", required(http.HandlerFunc(authH.Me)))

	mux.Handle("POST /api/process-json", NewBatchHandler(svc.Batch, logger))

	mux.HandleFunc("GET /healthz", health.Health)
	mux.HandleFunc("GET /readyz", health.Ready)

	return mux
}
