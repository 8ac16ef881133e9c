package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/companyhub/internal/domain"
	"github.com/aryan0dhankhar/companyhub/internal/service"
)

// CompanyHandler serves /api/v1/companies
type CompanyHandler struct {
	companies *service.CompanyService
	logger    *slog.Logger
}

// NewCompanyHandler creates a new company handler
func NewCompanyHandler(companies *service.CompanyService, logger *slog.Logger) *CompanyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompanyHandler{companies: companies, logger: logger}
}

// Create handles POST /api/v1/companies
func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var fields domain.CompanyFields
	if err := decodeJSON(r, &fields); err != nil {
		writeError(w, h.logger, err)
		return
	}
	company, err := h.companies.Create(r.Context(), fields, actor(r, "created_by"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, company)
}

// List handles GET /api/v1/companies
func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	companies, err := h.companies.ListActive(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, companies)
}

// Get handles GET /api/v1/companies/{id}
func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	company, err := h.companies.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

// Update handles PUT /api/v1/companies/{id}
func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var update domain.CompanyUpdate
	if err := decodeJSON(r, &update); err != nil {
		writeError(w, h.logger, err)
		return
	}
	company, err := h.companies.Update(r.Context(), r.PathValue("id"), update, actor(r, "updated_by"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

// Delete handles DELETE /api/v1/companies/{id}; the company is marked inactive
func (h *CompanyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	company, err := h.companies.SoftDelete(r.Context(), r.PathValue("id"), actor(r, "updated_by"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}
