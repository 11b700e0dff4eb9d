// src/services/interfaces.go
package services

import (
	"context"
	"errors"

	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/model"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/models"
	"github.com/spf13/afero"
)

// UploadResult is returned for a processed upload. The bundle is always
// present; Stored reports whether persistence succeeded.
type UploadResult struct {
	ID              string                 `json:"id,omitempty"`
	FileURL         string                 `json:"fileURL,omitempty"`
	FileHash        string                 `json:"fileHash"`
	TotalTrades     int                    `json:"totalTrades"`
	RejectedRecords int                    `json:"rejectedRecords"`
	Bundle          models.ProcessedBundle `json:"bundle"`
	Stored          bool                   `json:"stored"`
	StorageError    string                 `json:"storageError,omitempty"`
	DuplicateOf     string                 `json:"duplicateOf,omitempty"`
}

var (
	ErrParsingFailed   = errors.New("trade file parsing failed")
	ErrStorageFailed   = errors.New("storing processed trades failed")
	ErrSummaryNotFound = errors.New("summary not found")
)

// UploadService processes trade files and manages stored summaries.
type UploadService interface {
	ProcessUpload(ctx context.Context, content []byte, fileName string, hint models.FormatHint) (*UploadResult, error)
	Preview(ctx context.Context, text, sourceName string, hint models.FormatHint) (*models.ProcessedBundle, error)
	ListSummaries(ctx context.Context, limit int) ([]model.SummaryRecord, error)
	GetSummary(ctx context.Context, id string) (*model.StoredSummary, error)
	DeleteSummary(ctx context.Context, id string) error
	OpenFile(name string) (afero.File, error)
}
