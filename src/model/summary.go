package model

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/export"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/models"
)

// SummaryRecord is a row of the trading_summaries table.
type SummaryRecord struct {
	ID          string                 `json:"id"`
	FileName    string                 `json:"fileName"`
	FileURL     string                 `json:"fileURL"`
	FileHash    string                 `json:"fileHash"`
	Format      string                 `json:"format"`
	ProcessedAt string                 `json:"processedAt"`
	TotalTrades int                    `json:"totalTrades"`
	Summary     []models.SymbolSummary `json:"summary"`
}

// StoredSummary is a SummaryRecord together with its full processed bundle.
type StoredSummary struct {
	SummaryRecord
	Bundle models.ProcessedBundle `json:"bundle"`
}

const summaryColumns = `id, file_name, file_url, file_hash, format, processed_at, total_trades, summary_json`

// InsertSummary stores a processed upload.
func InsertSummary(db *sql.DB, s *StoredSummary) error {
	summaryJSON, err := json.Marshal(s.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	bundleJSON, err := json.Marshal(s.Bundle)
	if err != nil {
		return fmt.Errorf("failed to marshal bundle: %w", err)
	}

	_, err = db.Exec(`INSERT INTO trading_summaries
		(id, file_name, file_url, file_hash, format, processed_at, total_trades, summary_json, bundle_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.FileName, s.FileURL, s.FileHash, s.Format, s.ProcessedAt, s.TotalTrades, string(summaryJSON), string(bundleJSON))
	if err != nil {
		return fmt.Errorf("failed to insert summary %s: %w", s.ID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummaryRecord(row rowScanner, extra ...any) (*SummaryRecord, error) {
	var rec SummaryRecord
	var summaryJSON string
	dest := append([]any{
		&rec.ID, &rec.FileName, &rec.FileURL, &rec.FileHash, &rec.Format,
		&rec.ProcessedAt, &rec.TotalTrades, &summaryJSON,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(summaryJSON), &rec.Summary); err != nil {
		return nil, fmt.Errorf("failed to decode summary for %s: %w", rec.ID, err)
	}
	return &rec, nil
}

// ListSummaries returns stored summaries, newest first. A limit <= 0 means no limit.
func ListSummaries(db *sql.DB, limit int) ([]SummaryRecord, error) {
	query := `SELECT ` + summaryColumns + ` FROM trading_summaries ORDER BY processed_at DESC, created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	records := []SummaryRecord{}
	for rows.Next() {
		rec, err := scanSummaryRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// GetSummaryByID returns sql.ErrNoRows when no summary has the id.
func GetSummaryByID(db *sql.DB, id string) (*StoredSummary, error) {
	var bundleJSON string
	row := db.QueryRow(`SELECT `+summaryColumns+`, bundle_json FROM trading_summaries WHERE id = ?`, id)
	rec, err := scanSummaryRecord(row, &bundleJSON)
	if err != nil {
		return nil, err
	}

	bundle, err := export.ReadBundle(strings.NewReader(bundleJSON))
	if err != nil {
		return nil, fmt.Errorf("summary %s: %w", id, err)
	}
	return &StoredSummary{SummaryRecord: *rec, Bundle: bundle}, nil
}

// FindSummaryByHash returns the newest summary for an identical upload, or sql.ErrNoRows.
func FindSummaryByHash(db *sql.DB, fileHash string) (*SummaryRecord, error) {
	row := db.QueryRow(`SELECT `+summaryColumns+` FROM trading_summaries WHERE file_hash = ? ORDER BY processed_at DESC LIMIT 1`, fileHash)
	return scanSummaryRecord(row)
}

// DeleteSummaryByID returns sql.ErrNoRows when nothing was deleted.
func DeleteSummaryByID(db *sql.DB, id string) error {
	res, err := db.Exec(`DELETE FROM trading_summaries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete summary %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
