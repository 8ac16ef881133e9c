// Package handler exposes the company, user, auth and batch operations over HTTP
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/companyhub/internal/domain"
	"github.com/aryan0dhankhar/companyhub/internal/security/middleware"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes. Storage failures and
// anything unexpected are logged and reported without detail.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: verr.Msg})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not found"})
	case errors.Is(err, domain.ErrAuthFailed):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: domain.ErrAuthFailed.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: domain.ErrUnauthorized.Error()})
	default:
		logger.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

// decodeJSON reads the request body into v; a malformed body is a validation error
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.NewValidationError("invalid request body: " + err.Error())
	}
	return nil
}

// actor is the authenticated caller's id, or the value of the named query
// parameter for unauthenticated requests, or nil
func actor(r *http.Request, param string) *string {
	if user, ok := middleware.UserFromContext(r.Context()); ok {
		id := user.ID
		return &id
	}
	if v := r.URL.Query().Get(param); v != "" {
		return &v
	}
	return nil
}
