// src/handlers/upload_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/logger"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/models"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/parsers"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/processors"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/security/validation"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/services"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/utils"
)

// multipart framing allowance on top of the file size limit
const multipartOverhead = 64 * 1024

type UploadHandler struct {
	uploadService  services.UploadService
	maxUploadBytes int64
	defaultFormat  models.FormatHint
}

func NewUploadHandler(service services.UploadService, maxUploadBytes int64, defaultFormat string) *UploadHandler {
	return &UploadHandler{
		uploadService:  service,
		maxUploadBytes: maxUploadBytes,
		defaultFormat:  models.ParseFormatHint(defaultFormat),
	}
}

func (h *UploadHandler) formatHint(raw string) (models.FormatHint, error) {
	if err := validation.ValidateFormatHint(raw); err != nil {
		return "", err
	}
	if strings.TrimSpace(raw) == "" {
		return h.defaultFormat, nil
	}
	return models.ParseFormatHint(raw), nil
}

// sendServiceError maps pipeline and service errors onto HTTP statuses.
func sendServiceError(w http.ResponseWriter, r *http.Request, err error) {
	ctxLogger := logger.FromContext(r.Context())
	var fe *parsers.FormatError

	switch {
	case errors.Is(err, validation.ErrValidationFailed):
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &fe):
		utils.SendJSONError(w, fe.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, processors.ErrEmptyResult):
		utils.SendJSONError(w, processors.ErrEmptyResult.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, processors.ErrValueOutOfRange):
		utils.SendJSONError(w, processors.ErrValueOutOfRange.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, services.ErrSummaryNotFound):
		utils.SendJSONError(w, "summary not found", http.StatusNotFound)
	default:
		ctxLogger.Error("Request failed", "path", r.URL.Path, "error", err)
		msg := "internal server error"
		if id, ok := RequestIDFromContext(r.Context()); ok {
			msg = fmt.Sprintf("%s (request %s)", msg, id)
		}
		utils.SendJSONError(w, msg, http.StatusInternalServerError)
	}
}

func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		ctxLogger.Warn("Failed to parse multipart form or request too large", "error", err, "limit", h.maxUploadBytes)
		utils.SendJSONError(w, fmt.Sprintf("failed to read upload or file too large (max %d bytes)", h.maxUploadBytes), http.StatusBadRequest)
		return
	}

	hint, err := h.formatHint(r.FormValue("format"))
	if err != nil {
		sendServiceError(w, r, err)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		ctxLogger.Warn("Failed to retrieve file from request", "error", err)
		utils.SendJSONError(w, "failed to retrieve file from request, ensure the 'file' field is used", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if fileHeader.Size > h.maxUploadBytes {
		ctxLogger.Warn("Uploaded file header reports size too large", "fileSize", fileHeader.Size, "limit", h.maxUploadBytes)
		utils.SendJSONError(w, fmt.Sprintf("file too large (max %d bytes)", h.maxUploadBytes), http.StatusBadRequest)
		return
	}

	if err := validation.ValidateClientContentType(fileHeader.Header.Get("Content-Type")); err != nil {
		sendServiceError(w, r, err)
		return
	}

	fileName, err := validation.ValidateFileName(fileHeader.Filename)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}

	// Empty files skip sniffing and fail in the pipeline as empty input.
	if fileHeader.Size > 0 {
		detected, err := validation.ValidateTextContent(file)
		if err != nil {
			sendServiceError(w, r, err)
			return
		}
		ctxLogger.Info("File content validated", "fileName", fileName, "detectedType", detected, "format", hint)
	}

	content, err := io.ReadAll(file)
	if err != nil {
		ctxLogger.Error("Failed to read uploaded file", "error", err)
		utils.SendJSONError(w, "failed to read uploaded file", http.StatusBadRequest)
		return
	}

	result, err := h.uploadService.ProcessUpload(r.Context(), content, fileName, hint)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}

	status := http.StatusCreated
	if !result.Stored {
		status = http.StatusOK
	}
	utils.SendJSON(w, result, status)
}

// PreviewRequest is the body of POST /api/trades/preview.
type PreviewRequest struct {
	Text       string `json:"text"`
	Format     string `json:"format"`
	SourceName string `json:"sourceName"`
}

// HandlePreview processes inline text without storing anything.
func (h *UploadHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(validation.MaxSourceTextBytes)+multipartOverhead)

	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.FromContext(r.Context()).Warn("Invalid preview request body", "error", err)
		utils.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateSourceText(req.Text); err != nil {
		sendServiceError(w, r, err)
		return
	}
	hint, err := h.formatHint(req.Format)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}

	sourceName := "inline"
	if strings.TrimSpace(req.SourceName) != "" {
		if sourceName, err = validation.ValidateFileName(req.SourceName); err != nil {
			sendServiceError(w, r, err)
			return
		}
	}

	bundle, err := h.uploadService.Preview(r.Context(), req.Text, sourceName, hint)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, bundle, http.StatusOK)
}
