package export

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mlane/campaignlens/internal/auth"
)

// Handler exposes import data as CSV downloads.
type Handler struct {
	service *Service
}

// NewHandler wraps the export service with HTTP endpoints.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the export endpoint next to the import routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/spreadsheets/imports/{importID}/export", h.HandleExportImport)
}

// HandleExportImport streams an import's rows back as a sanitized CSV file.
func (h *Handler) HandleExportImport(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	importID, err := uuid.Parse(chi.URLParam(r, "importID"))
	if err != nil {
		http.Error(w, "invalid import id", http.StatusBadRequest)
		return
	}

	record, err := h.service.Lookup(r.Context(), user, importID)
	if err != nil {
		if errors.Is(err, ErrExportNotFound) {
			http.Error(w, "import not found", http.StatusNotFound)
			return
		}
		log.Printf("[Export] Error: %v", err)
		http.Error(w, "failed to export import", http.StatusInternalServerError)
		return
	}

	filename := h.service.Filename(record)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	rows, err := h.service.WriteCSV(record, w)
	if err != nil {
		// Headers are already out; all we can do is log.
		log.Printf("[Export] Error streaming import %s after %d rows: %v", importID, rows, err)
		return
	}
	log.Printf("[Export] Streamed %d rows for import %s", rows, importID)
}
