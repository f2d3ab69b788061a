package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/echo-labs/support-platform/internal/middleware"
	"github.com/echo-labs/support-platform/internal/model"
	"github.com/echo-labs/support-platform/internal/service"
	"github.com/echo-labs/support-platform/pkg/logger"
)

// maxUploadBytes caps uploads at 20MB.
const maxUploadBytes = 20 << 20

// FilesHandler handles the dashboard knowledge-base file endpoints.
type FilesHandler struct {
	service *service.FileService
	logger  *logger.Logger
}

// NewFilesHandler creates a new files handler.
func NewFilesHandler(svc *service.FileService, log *logger.Logger) *FilesHandler {
	return &FilesHandler{
		service: svc,
		logger:  log,
	}
}

// Create handles POST /api/v1/files. Accepts either a multipart upload with
// a "file" part or a JSON body with base64 bytes.
func (h *FilesHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	organizationID := middleware.GetOrganizationID(ctx)

	req, err := h.parseUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.AddFile(ctx, organizationID, req)
	if err != nil {
		h.logger.Error("failed to add file",
			zap.String("organization_id", organizationID), zap.Error(err))
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (h *FilesHandler) parseUpload(r *http.Request) (*model.AddFileRequest, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, err
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, err
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return nil, err
		}
		return &model.AddFileRequest{
			Filename: header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Bytes:    data,
			Category: r.FormValue("category"),
		}, nil
	}

	var req model.AddFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

// List handles GET /api/v1/files
func (h *FilesHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	organizationID := middleware.GetOrganizationID(ctx)

	resp, err := h.service.ListFiles(ctx, organizationID,
		r.URL.Query().Get("category"),
		r.URL.Query().Get("cursor"),
		queryInt(r, "page_size", 20))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Delete handles DELETE /api/v1/files/{id}
func (h *FilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	organizationID := middleware.GetOrganizationID(ctx)
	entryID := chi.URLParam(r, "id")

	if err := h.service.DeleteFile(ctx, organizationID, entryID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
