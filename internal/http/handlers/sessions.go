package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zentexa/wabot-platform/internal/session"
	"github.com/zentexa/wabot-platform/internal/tenant"
	"github.com/zentexa/wabot-platform/internal/transport"
	"github.com/zentexa/wabot-platform/pkg/logging"
)

// SessionsHandler exposes the session manager over HTTP.
type SessionsHandler struct {
	manager *session.Manager
	logger  *logging.Logger
}

func NewSessionsHandler(manager *session.Manager, logger *logging.Logger) *SessionsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &SessionsHandler{manager: manager, logger: logger}
}

type createSessionRequest struct {
	TenantID string `json:"tenantId"`
}

type createSessionResponse struct {
	SessionID string        `json:"sessionId"`
	State     session.State `json:"state"`
}

// Create starts a session. 202: the transport link is still being
// established when the response goes out.
func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TenantID == "" {
		writeError(w, http.StatusBadRequest, "tenantId is required")
		return
	}

	s, err := h.manager.Create(r.Context(), req.TenantID)
	switch {
	case errors.Is(err, session.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "session already exists for this tenant")
		return
	case errors.Is(err, tenant.ErrNotFound):
		writeError(w, http.StatusNotFound, "tenant not found")
		return
	case errors.Is(err, session.ErrTenantInactive):
		writeError(w, http.StatusUnprocessableEntity, "tenant is inactive")
		return
	case err != nil:
		h.logger.Error("session create failed", "tenant_id", req.TenantID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(createSessionResponse{SessionID: s.ID, State: s.State()})
}

// Get reports session status. Unknown ids still answer 200 with
// exists=false so dashboards can poll without special-casing 404.
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, ok := h.manager.Get(id)
	w.Header().Set("Content-Type", "application/json")
	if !ok {
		json.NewEncoder(w).Encode(session.Status{ID: id})
		return
	}
	json.NewEncoder(w).Encode(s.Snapshot())
}

// List returns a snapshot of every registered session.
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.manager.List())
}

// QR returns the pending pairing code rendered as a data URL.
func (h *SessionsHandler) QR(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, ok := h.manager.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	code := s.QR()
	if code == "" {
		writeError(w, http.StatusNotFound, "no pairing code pending")
		return
	}
	dataURL, err := transport.QRDataURL(code)
	if err != nil {
		h.logger.Error("qr render failed", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not render qr")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"code": code, "dataUrl": dataURL})
}

// Stop tears the session down.
func (h *SessionsHandler) Stop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.manager.Stop(id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		h.logger.Error("session stop failed", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not stop session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clear stops the session and deletes its link credentials.
func (h *SessionsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.manager.Clear(r.Context(), id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		h.logger.Error("session clear failed", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not clear session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
