package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/companyhub/internal/domain"
	"github.com/aryan0dhankhar/companyhub/internal/security/audit"
	"github.com/aryan0dhankhar/companyhub/internal/security/auth"
	"github.com/aryan0dhankhar/companyhub/internal/security/ratelimit"
)

// Authenticator resolves a bearer token to its active user
type Authenticator interface {
	ResolveCurrentUser(ctx context.Context, token string) (*domain.User, error)
}

type userContextKey struct{}

// WithUser stores the authenticated user in ctx
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext returns the user set by RequireUser or OptionalUser
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(userContextKey{}).(*domain.User)
	return user, ok && user != nil
}

// RequireUser rejects requests without a bearer token resolving to an active user
func RequireUser(authn Authenticator, auditLog *audit.Logger, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.ExtractToken(r.Header.Get("Authorization"))
			if err != nil {
				auditLog.LogDenied(r.Context(), "", err.Error())
				unauthorized(w)
				return
			}

			user, err := authn.ResolveCurrentUser(r.Context(), token)
			if errors.Is(err, domain.ErrStorageUnavailable) {
				log.Error("failed to resolve bearer token", slog.String("error", err.Error()))
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			if err != nil {
				auditLog.LogDenied(r.Context(), "", err.Error())
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// OptionalUser attaches the caller when a valid bearer token is present and
// lets every request through otherwise
func OptionalUser(authn Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.ExtractToken(r.Header.Get("Authorization"))
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			user, err := authn.ResolveCurrentUser(r.Context(), token)
			if err != nil {
				log.Debug("ignoring unusable bearer token", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// LoginRateLimit limits requests per client address
func LoginRateLimit(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr := ClientAddr(r)
			if !limiter.Allow(addr) {
				log.Warn("login rate limit exceeded", slog.String("client", addr))
				w.Header().Set("Retry-After", strconv.Itoa(int(limiter.RetryAfter().Seconds())))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientAddr is the host part of the request's remote address
func ClientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RequestID tags every request with an id, echoed in X-Request-ID, and logs its completion
func RequestID(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", reqID)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(rec, r.WithContext(audit.WithRequestID(r.Context(), reqID)))

			log.Info("request completed",
				slog.String("request_id", reqID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// Audit records mutating requests on resource once they complete
func Audit(auditLog *audit.Logger, resource string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			action, mutating := actions[r.Method]
			if !mutating {
				next.ServeHTTP(w, r)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			actorID := ""
			if user, ok := UserFromContext(r.Context()); ok {
				actorID = user.ID
			}
			status := "success"
			if rec.status >= http.StatusBadRequest {
				status = "failure"
			}
			auditLog.LogAction(r.Context(), actorID, action, resource, r.PathValue("id"), status, http.StatusText(rec.status))
		})
	}
}

var actions = map[string]string{
	http.MethodPost:   "create",
	http.MethodPut:    "update",
	http.MethodPatch:  "update",
	http.MethodDelete: "delete",
}

// CORS honours the configured origins; "*" allows any
func CORS(allowed []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if originAllowed(allowed, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			} else if len(allowed) > 0 {
				w.Header().Set("Access-Control-Allow-Origin", allowed[0])
			}
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization, X-Request-ID")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Chain applies middlewares so the first one listed is outermost
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, domain.ErrUnauthorized.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
