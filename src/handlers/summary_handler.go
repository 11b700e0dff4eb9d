package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/export"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/logger"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/model"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/security/validation"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/services"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/utils"
	"github.com/go-chi/chi/v5"
)

const maxListLimit = 500

type SummaryHandler struct {
	uploadService services.UploadService
	now           func() time.Time
}

func NewSummaryHandler(service services.UploadService) *SummaryHandler {
	return &SummaryHandler{uploadService: service, now: time.Now}
}

// loadSummary resolves the {id} URL parameter, writing the error response itself.
func (h *SummaryHandler) loadSummary(w http.ResponseWriter, r *http.Request) (*model.StoredSummary, bool) {
	id := chi.URLParam(r, "id")
	if err := validation.ValidateSummaryID(id); err != nil {
		sendServiceError(w, r, err)
		return nil, false
	}
	stored, err := h.uploadService.GetSummary(r.Context(), id)
	if err != nil {
		sendServiceError(w, r, err)
		return nil, false
	}
	return stored, true
}

func (h *SummaryHandler) HandleListSummaries(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > maxListLimit {
			utils.SendJSONError(w, fmt.Sprintf("limit must be an integer between 0 and %d", maxListLimit), http.StatusBadRequest)
			return
		}
		limit = n
	}

	summaries, err := h.uploadService.ListSummaries(r.Context(), limit)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, summaries, http.StatusOK)
}

// HandleGetSummary returns one stored summary with ETag support.
func (h *SummaryHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	stored, ok := h.loadSummary(w, r)
	if !ok {
		return
	}
	ctxLogger := logger.FromContext(r.Context())

	w.Header().Set("Cache-Control", "no-cache, private")
	currentETag, etagErr := utils.GenerateETag(stored)
	if etagErr != nil {
		ctxLogger.Warn("Proceeding without ETag check", "id", stored.ID, "error", etagErr)
	} else {
		quotedETag := fmt.Sprintf("\"%s\"", currentETag)
		w.Header().Set("ETag", quotedETag)
		for _, cETag := range strings.Split(r.Header.Get("If-None-Match"), ",") {
			if strings.TrimSpace(cETag) == quotedETag {
				ctxLogger.Debug("ETag match for summary", "id", stored.ID)
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	}

	utils.SendJSON(w, stored, http.StatusOK)
}

// HandleDownloadBundle sends the processed bundle as a JSON attachment.
func (h *SummaryHandler) HandleDownloadBundle(w http.ResponseWriter, r *http.Request) {
	stored, ok := h.loadSummary(w, r)
	if !ok {
		return
	}

	data, err := export.MarshalBundle(stored.Bundle)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": export.DownloadFileName(h.now())}))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// HandleSummaryCSV sends the per-symbol summary as CSV.
func (h *SummaryHandler) HandleSummaryCSV(w http.ResponseWriter, r *http.Request) {
	stored, ok := h.loadSummary(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteSummaryCSV(&buf, stored.Summary); err != nil {
		sendServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": "summary-" + stored.ID + ".csv"}))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *SummaryHandler) HandleDeleteSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := validation.ValidateSummaryID(id); err != nil {
		sendServiceError(w, r, err)
		return
	}
	if err := h.uploadService.DeleteSummary(r.Context(), id); err != nil {
		sendServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetFile serves a stored raw upload.
func (h *SummaryHandler) HandleGetFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	f, err := h.uploadService.OpenFile(name)
	if err != nil {
		if errors.Is(err, services.ErrInvalidStoredName) || errors.Is(err, fs.ErrNotExist) {
			utils.SendJSONError(w, "file not found", http.StatusNotFound)
			return
		}
		sendServiceError(w, r, err)
		return
	}
	defer f.Close()

	original := name
	if _, after, found := strings.Cut(name, "__"); found {
		original = after
	}
	contentType := "text/csv; charset=utf-8"
	if strings.EqualFold(path.Ext(original), ".json") {
		contentType = "application/json"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": original}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f); err != nil {
		logger.FromContext(r.Context()).Error("Failed to stream stored file", "file", name, "error", err)
	}
}
