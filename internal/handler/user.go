package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/companyhub/internal/domain"
	"github.com/aryan0dhankhar/companyhub/internal/service"
)

// UserHandler serves /api/v1/users
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{users: users, logger: logger}
}

// Create handles POST /api/v1/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var fields domain.UserFields
	if err := decodeJSON(r, &fields); err != nil {
		writeError(w, h.logger, err)
		return
	}
	user, err := h.users.Create(r.Context(), fields, actor(r, "created_by"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// List handles GET /api/v1/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListActive(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// Get handles GET /api/v1/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Update handles PUT /api/v1/users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var update domain.UserUpdate
	if err := decodeJSON(r, &update); err != nil {
		writeError(w, h.logger, err)
		return
	}
	user, err := h.users.Update(r.Context(), r.PathValue("id"), update, actor(r, "updated_by"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Delete handles DELETE /api/v1/users/{id}; the user is marked inactive
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.SoftDelete(r.Context(), r.PathValue("id"), actor(r, "updated_by"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
