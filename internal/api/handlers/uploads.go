package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hugh/toga/internal/api/dto"
	"github.com/hugh/toga/internal/storage"
)

type UploadHandler struct {
	uploader storage.Uploader
	logger   *slog.Logger
}

func NewUploadHandler(uploader storage.Uploader, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{uploader: uploader, logger: logger}
}

type PresignRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

func (r PresignRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Filename == "" {
		errors["filename"] = "Filename is required"
	}
	if !strings.HasPrefix(r.ContentType, "image/") {
		errors["content_type"] = "Content type must be an image"
	}
	return errors
}

// Presign handles POST /api/uploads/presign: a short-lived PUT URL the
// client uploads an image to directly.
func (h *UploadHandler) Presign(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		writeJSON(w, http.StatusServiceUnavailable, dto.ErrorResponse{Error: "Uploads are not configured"})
		return
	}

	var req PresignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	upload, err := h.uploader.PresignUpload(r.Context(), req.Filename, req.ContentType)
	if err != nil {
		h.logger.Error("presigning upload failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to presign upload"})
		return
	}

	writeJSON(w, http.StatusOK, upload)
}
