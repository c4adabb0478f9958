package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/zentexa/wabot-platform/internal/media"
	"github.com/zentexa/wabot-platform/pkg/logging"
)

const maxCatalogUpload = 16 << 20

// CatalogHandler manages the tenant file library: documents the bot can
// resend when a customer asks for them by label.
type CatalogHandler struct {
	relay   *media.Relay
	library *media.Library
	logger  *logging.Logger
}

func NewCatalogHandler(relay *media.Relay, library *media.Library, logger *logging.Logger) *CatalogHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &CatalogHandler{relay: relay, library: library, logger: logger}
}

// Upload accepts a multipart form with a "file" part and a "label" field.
func (h *CatalogHandler) Upload(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "id")

	if err := r.ParseMultipartForm(maxCatalogUpload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	label := r.FormValue("label")
	if label == "" {
		writeError(w, http.StatusBadRequest, "label is required")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file part is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxCatalogUpload+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read file")
		return
	}

	info, err := h.relay.Store(r.Context(), tenantID, header.Filename,
		header.Header.Get("Content-Type"), data)
	if err != nil {
		if errors.Is(err, media.ErrTooLarge) || errors.Is(err, media.ErrEmptyPayload) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("catalog upload store failed", "tenant_id", tenantID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not store file")
		return
	}

	f := &media.CatalogFile{
		ID:       uuid.NewString(),
		TenantID: tenantID,
		Label:    label,
		Location: info.StoredName,
		MimeType: info.MimeType,
	}
	if err := h.library.Add(r.Context(), f); err != nil {
		h.logger.Error("catalog register failed", "tenant_id", tenantID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not register file")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(f)
}

func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	files, err := h.library.ListByTenant(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("catalog list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list files")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(files)
}

func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "id")
	fileID := chi.URLParam(r, "fileID")
	if err := h.library.Delete(r.Context(), tenantID, fileID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "file not found")
			return
		}
		h.logger.Error("catalog delete failed", "file_id", fileID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not delete file")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
