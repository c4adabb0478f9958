package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zentexa/wabot-platform/internal/tenant"
	"github.com/zentexa/wabot-platform/pkg/logging"
)

// TenantsHandler is the admin CRUD surface for tenants.
type TenantsHandler struct {
	repo   tenant.Repository
	logger *logging.Logger
}

func NewTenantsHandler(repo tenant.Repository, logger *logging.Logger) *TenantsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &TenantsHandler{repo: repo, logger: logger}
}

func (h *TenantsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req tenant.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("tenant create failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not create tenant")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(t)
}

func (h *TenantsHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			writeError(w, http.StatusNotFound, "tenant not found")
			return
		}
		h.logger.Error("tenant get failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load tenant")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(t)
}

func (h *TenantsHandler) List(w http.ResponseWriter, r *http.Request) {
	ts, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("tenant list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list tenants")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ts)
}

// Update patches bot mode, business data or contact fields.
func (h *TenantsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req tenant.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.repo.Update(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		switch {
		case errors.Is(err, tenant.ErrNotFound):
			writeError(w, http.StatusNotFound, "tenant not found")
		case isValidationError(err):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("tenant update failed", "error", err)
			writeError(w, http.StatusInternalServerError, "could not update tenant")
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(t)
}

func isValidationError(err error) bool {
	return errors.Is(err, tenant.ErrMissingName) ||
		errors.Is(err, tenant.ErrMissingOwner) ||
		errors.Is(err, tenant.ErrInvalidBotMode)
}
