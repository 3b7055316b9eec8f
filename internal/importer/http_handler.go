package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mlane/campaignlens/internal/auth"
	"github.com/mlane/campaignlens/internal/domain"
	"github.com/mlane/campaignlens/internal/spreadsheet"
)

// Handler exposes the ingestion pipeline over REST.
type Handler struct {
	service        *Service
	maxUploadBytes int64
}

// NewHandler wraps the service with HTTP endpoints.
func NewHandler(service *Service, maxUploadBytes int64) *Handler {
	return &Handler{service: service, maxUploadBytes: maxUploadBytes}
}

// RegisterRoutes mounts the spreadsheet endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/spreadsheets", func(r chi.Router) {
		r.Post("/upload", h.HandleUpload)
		r.Route("/imports", func(r chi.Router) {
			r.Get("/", h.HandleListImports)
			r.Route("/{importID}", func(r chi.Router) {
				r.Get("/", h.HandleGetImport)
				r.Get("/status", h.HandleGetImportStatus)
				r.Post("/confirm", h.HandleConfirmMapping)
				r.Delete("/", h.HandleDeleteImport)
			})
		})
	})
}

var allowedExtensions = map[string]bool{".csv": true, ".xlsx": true, ".xls": true}

// HandleUpload accepts a multipart spreadsheet, parses it, and answers with
// suggested column mappings plus a preview. The size cap and the extension
// filter both run before the parser ever sees a byte.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid form data: %v", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		writeError(w, http.StatusBadRequest, "invalid file type, only CSV and Excel files are allowed")
		return
	}

	payload, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read file: %v", err))
		return
	}

	result, err := h.service.Upload(r.Context(), user, header.Filename, header.Size, payload)
	if err != nil {
		var parseErr *spreadsheet.ParseError
		if errors.As(err, &parseErr) {
			writeError(w, http.StatusBadRequest, parseErr.Error())
			return
		}
		log.Printf("[Upload] Error: %v", err)
		writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type confirmRequest struct {
	Mappings []domain.ColumnMapping `json:"mappings"`
	// ColumnMappings is accepted as an alias for older clients.
	ColumnMappings []domain.ColumnMapping `json:"columnMappings"`
}

// HandleConfirmMapping validates the import with the confirmed mappings and
// reconciles the results into campaigns, events, and metric facts.
func (h *Handler) HandleConfirmMapping(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	importID, err := uuid.Parse(chi.URLParam(r, "importID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid import id")
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	mappings := req.Mappings
	if len(mappings) == 0 {
		mappings = req.ColumnMappings
	}

	result, err := h.service.Confirm(r.Context(), user, importID, mappings)
	if err != nil {
		switch {
		case errors.Is(err, ErrImportNotFound):
			writeError(w, http.StatusNotFound, "import not found")
		case errors.Is(err, ErrImportAlreadyProcessed):
			writeError(w, http.StatusConflict, "import already processed")
		case errors.Is(err, ErrMappingsRequired), errors.Is(err, ErrNoData):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("[Confirm] Error: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to confirm import")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleListImports returns the user's import records, newest first.
func (h *Handler) HandleListImports(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	imports, err := h.service.Imports(r.Context(), user)
	if err != nil {
		log.Printf("[Imports] Error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get imports")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"imports": imports})
}

// HandleGetImport returns one import record.
func (h *Handler) HandleGetImport(w http.ResponseWriter, r *http.Request) {
	record, ok := h.loadImport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"import": record})
}

// HandleGetImportStatus returns the processing state of one import.
func (h *Handler) HandleGetImportStatus(w http.ResponseWriter, r *http.Request) {
	record, ok := h.loadImport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":               record.ID,
		"status":           record.Status,
		"validRowCount":    record.ValidRowCount,
		"validationErrors": record.ValidationErrors,
		"errorSummary":     record.ErrorSummary,
	})
}

// HandleDeleteImport removes one import record.
func (h *Handler) HandleDeleteImport(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	importID, err := uuid.Parse(chi.URLParam(r, "importID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid import id")
		return
	}

	if err := h.service.DeleteImport(r.Context(), user, importID); err != nil {
		if errors.Is(err, ErrImportNotFound) {
			writeError(w, http.StatusNotFound, "import not found")
			return
		}
		log.Printf("[Delete Import] Error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to delete import")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

func (h *Handler) loadImport(w http.ResponseWriter, r *http.Request) (domain.SpreadsheetImport, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return domain.SpreadsheetImport{}, false
	}

	importID, err := uuid.Parse(chi.URLParam(r, "importID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid import id")
		return domain.SpreadsheetImport{}, false
	}

	record, err := h.service.Import(r.Context(), user, importID)
	if err != nil {
		if errors.Is(err, ErrImportNotFound) {
			writeError(w, http.StatusNotFound, "import not found")
			return domain.SpreadsheetImport{}, false
		}
		log.Printf("[Get Import] Error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get import")
		return domain.SpreadsheetImport{}, false
	}
	return record, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
