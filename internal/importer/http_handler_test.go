package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mlane/campaignlens/internal/auth"
	"github.com/mlane/campaignlens/internal/storage"
)

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	handler := NewHandler(NewService(storage.NewMemoryStorage()), 50<<20)

	r := chi.NewRouter()
	r.Use(auth.Middleware(&auth.MockProvider{}))
	handler.RegisterRoutes(r)
	return r
}

func multipartUpload(t *testing.T, filename string, payload []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/spreadsheets/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHandleUploadAndConfirm(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartUpload(t, "report.csv", campaignCSV))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var upload UploadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &upload))
	require.NotEqual(t, uuid.Nil, upload.ImportID)
	require.Len(t, upload.SuggestedMappings, 4)

	confirmBody, err := json.Marshal(map[string]any{"mappings": upload.SuggestedMappings})
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/spreadsheets/imports/%s/confirm", upload.ImportID), bytes.NewReader(confirmBody))
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var confirm ConfirmResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &confirm))
	require.Equal(t, 1, confirm.ValidRows)

	// Confirming again is refused.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/spreadsheets/imports/%s/confirm", upload.ImportID), bytes.NewReader(confirmBody))
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func TestHandleUploadRejectsUnsupportedExtension(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartUpload(t, "notes.txt", []byte("hello")))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleUploadRequiresFile(t *testing.T) {
	router := newTestRouter(t)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("note", "no file here"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/spreadsheets/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetImportNotFound(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/spreadsheets/imports/"+uuid.NewString(), nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/spreadsheets/imports/not-a-uuid", nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleImportStatusAndList(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartUpload(t, "report.csv", campaignCSV))
	require.Equal(t, http.StatusOK, rec.Code)

	var upload UploadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &upload))

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/spreadsheets/imports/%s/status", upload.ImportID), nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var status struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Equal(t, "mapping_required", status.Status)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/spreadsheets/imports/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Imports []json.RawMessage `json:"imports"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Imports, 1)
}
