// src/export/bundle.go
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/models"
)

// DownloadFileName names a bundle download after the moment it was produced.
func DownloadFileName(at time.Time) string {
	return fmt.Sprintf("processed-trades-%d.json", at.UnixMilli())
}

// MarshalBundle renders a bundle as JSON indented with two spaces.
func MarshalBundle(b models.ProcessedBundle) ([]byte, error) {
	if b.Trades == nil {
		b.Trades = []models.CanonicalTrade{}
	}
	if b.Summary == nil {
		b.Summary = []models.SymbolSummary{}
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal processed bundle: %w", err)
	}
	return data, nil
}

// WriteBundle writes the indented bundle JSON to w.
func WriteBundle(w io.Writer, b models.ProcessedBundle) error {
	data, err := MarshalBundle(b)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write processed bundle: %w", err)
	}
	return nil
}

// ReadBundle decodes a bundle previously written by WriteBundle.
func ReadBundle(r io.Reader) (models.ProcessedBundle, error) {
	var b models.ProcessedBundle
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return b, fmt.Errorf("failed to decode processed bundle: %w", err)
	}
	return b, nil
}
