// src/services/upload_service.go
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/logger"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/model"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/models"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/processors"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/spf13/afero"
)

const (
	ckSummary              = "summary_%s"
	ckSummaryList          = "summary_list"
	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

type uploadServiceImpl struct {
	db          *sql.DB
	files       *FileStore
	processor   *processors.TradeProcessor
	reportCache *cache.Cache
}

func NewUploadService(db *sql.DB, files *FileStore, processor *processors.TradeProcessor, reportCache *cache.Cache) UploadService {
	return &uploadServiceImpl{
		db:          db,
		files:       files,
		processor:   processor,
		reportCache: reportCache,
	}
}

// decodeText turns raw bytes into text, replacing invalid UTF-8 sequences.
func decodeText(content []byte) string {
	if utf8.Valid(content) {
		return string(content)
	}
	return strings.ToValidUTF8(string(content), "\uFFFD")
}

func (s *uploadServiceImpl) process(ctx context.Context, text, fileName string, hint models.FormatHint) (*processors.TradeResult, models.ProcessedBundle, error) {
	res, err := s.processor.Process(ctx, text, hint)
	if err != nil {
		return nil, models.ProcessedBundle{}, fmt.Errorf("%w: %w", ErrParsingFailed, err)
	}
	return res, s.processor.Bundle(fileName, res), nil
}

func (s *uploadServiceImpl) ProcessUpload(ctx context.Context, content []byte, fileName string, hint models.FormatHint) (*UploadResult, error) {
	log := logger.FromContext(ctx)
	start := time.Now()
	logger.InfoFromContext(ctx, "ProcessUpload START", "fileName", fileName, "format", hint, "size", len(content))

	res, bundle, err := s.process(ctx, decodeText(content), fileName, hint)
	if err != nil {
		return nil, err
	}

	result := &UploadResult{
		FileHash:        processors.FileHash(content),
		TotalTrades:     len(res.Trades),
		RejectedRecords: res.Rejected,
		Bundle:          bundle,
	}

	prev, err := model.FindSummaryByHash(s.db, result.FileHash)
	switch {
	case err == nil:
		result.DuplicateOf = prev.ID
		log.Info("Upload matches a previously processed file", "previousID", prev.ID)
	case !errors.Is(err, sql.ErrNoRows):
		log.Warn("Duplicate check failed", "fileHash", result.FileHash, "error", err)
	}

	if err := s.persist(ctx, content, hint, result); err != nil {
		logger.ErrorFromContext(ctx, "Processed trades could not be stored", "fileName", fileName, "error", err)
		result.StorageError = err.Error()
	}

	log.Info("ProcessUpload END", "fileName", fileName, "trades", result.TotalTrades,
		"symbols", len(bundle.Summary), "stored", result.Stored, "duration", time.Since(start))
	return result, nil
}

// persist stores the raw file and the summary row. The computed result is
// kept by the caller whatever happens here.
func (s *uploadServiceImpl) persist(ctx context.Context, content []byte, hint models.FormatHint, result *UploadResult) error {
	stored, err := s.files.Save(result.Bundle.FileName, content)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageFailed, err)
	}

	rec := &model.StoredSummary{
		SummaryRecord: model.SummaryRecord{
			ID:          uuid.New().String(),
			FileName:    result.Bundle.FileName,
			FileURL:     stored.URL,
			FileHash:    result.FileHash,
			Format:      string(hint),
			ProcessedAt: result.Bundle.ProcessedAt,
			TotalTrades: result.TotalTrades,
			Summary:     result.Bundle.Summary,
		},
		Bundle: result.Bundle,
	}
	if err := model.InsertSummary(s.db, rec); err != nil {
		if rmErr := s.files.Remove(stored.Name); rmErr != nil {
			logger.FromContext(ctx).Warn("Could not remove orphaned upload", "file", stored.Name, "error", rmErr)
		}
		return fmt.Errorf("%w: %w", ErrStorageFailed, err)
	}

	result.ID = rec.ID
	result.FileURL = rec.FileURL
	result.Stored = true

	s.reportCache.Set(fmt.Sprintf(ckSummary, rec.ID), rec, cache.DefaultExpiration)
	s.reportCache.Delete(ckSummaryList)
	return nil
}

func (s *uploadServiceImpl) Preview(ctx context.Context, text, sourceName string, hint models.FormatHint) (*models.ProcessedBundle, error) {
	_, bundle, err := s.process(ctx, text, sourceName, hint)
	if err != nil {
		return nil, err
	}
	return &bundle, nil
}

func (s *uploadServiceImpl) ListSummaries(ctx context.Context, limit int) ([]model.SummaryRecord, error) {
	var all []model.SummaryRecord
	if cached, found := s.reportCache.Get(ckSummaryList); found {
		all = cached.([]model.SummaryRecord)
	} else {
		records, err := model.ListSummaries(s.db, 0)
		if err != nil {
			return nil, err
		}
		all = records
		s.reportCache.Set(ckSummaryList, all, cache.DefaultExpiration)
	}

	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	out := make([]model.SummaryRecord, len(all))
	copy(out, all)
	return out, nil
}

func (s *uploadServiceImpl) GetSummary(ctx context.Context, id string) (*model.StoredSummary, error) {
	cacheKey := fmt.Sprintf(ckSummary, id)
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.(*model.StoredSummary), nil
	}

	stored, err := model.GetSummaryByID(s.db, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSummaryNotFound, id)
		}
		return nil, err
	}
	s.reportCache.Set(cacheKey, stored, cache.DefaultExpiration)
	return stored, nil
}

func (s *uploadServiceImpl) DeleteSummary(ctx context.Context, id string) error {
	stored, err := s.GetSummary(ctx, id)
	if err != nil {
		return err
	}
	if err := model.DeleteSummaryByID(s.db, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrSummaryNotFound, id)
		}
		return err
	}

	s.reportCache.Delete(fmt.Sprintf(ckSummary, id))
	s.reportCache.Delete(ckSummaryList)

	if name, ok := NameFromURL(stored.FileURL); ok {
		if err := s.files.Remove(name); err != nil {
			logger.FromContext(ctx).Warn("Stored upload could not be removed", "file", name, "error", err)
		}
	}
	logger.FromContext(ctx).Info("Summary deleted", "id", id)
	return nil
}

func (s *uploadServiceImpl) OpenFile(name string) (afero.File, error) {
	return s.files.Open(name)
}
