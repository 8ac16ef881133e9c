package handler

import (
	"log/slog"
	"mime"
	"net/http"

	"github.com/aryan0dhankhar/companyhub/internal/domain"
	"github.com/aryan0dhankhar/companyhub/internal/security/audit"
	"github.com/aryan0dhankhar/companyhub/internal/security/middleware"
	"github.com/aryan0dhankhar/companyhub/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
	auditLog    *audit.Logger
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, auditLog *audit.Logger, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		authService: authService,
		auditLog:    auditLog,
		logger:      logger,
	}
}

// LoginRequest carries the credentials, as a form or as JSON
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /api/v1/auth/token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := parseLogin(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, h.logger, domain.NewValidationError("username and password are required"))
		return
	}

	result, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.auditLog.LogLogin(r.Context(), "", req.Username, "failure")
		writeError(w, h.logger, err)
		return
	}
	h.auditLog.LogLogin(r.Context(), result.UserID, req.Username, "success")

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, result)
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, domain.ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func parseLogin(r *http.Request) (LoginRequest, error) {
	var req LoginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		err := decodeJSON(r, &req)
		return req, err
	}
	if err := r.ParseForm(); err != nil {
		return req, domain.NewValidationError("invalid form: " + err.Error())
	}
	req.Username = r.PostForm.Get("username")
	req.Password = r.PostForm.Get("password")
	return req, nil
}
