// src/processors/trade_processor.go
package processors

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/logger"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/models"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/parsers"
)

// ErrEmptyResult is returned when no record survives normalization.
var ErrEmptyResult = parsers.ErrEmptyResult

// ErrValueOutOfRange is returned when a summary total does not fit a float64.
var ErrValueOutOfRange = errors.New("trade values exceed the supported numeric range")

// TradeResult is the outcome of processing one input.
type TradeResult struct {
	Trades   []models.CanonicalTrade
	Summary  []models.SymbolSummary
	Records  int
	Rejected int
}

// TradeProcessor runs the parse, normalize and aggregate stages over one input.
type TradeProcessor struct {
	now func() time.Time
}

func NewTradeProcessor() *TradeProcessor { return &TradeProcessor{now: time.Now} }

// Process turns raw file text into canonical trades and their summary.
func (p *TradeProcessor) Process(ctx context.Context, text string, hint models.FormatHint) (*TradeResult, error) {
	log := logger.FromContext(ctx)

	records, err := parsers.ParseRecords(text, hint)
	if err != nil {
		log.Warn("Trade input could not be parsed", "hint", hint, "error", err)
		return nil, err
	}

	trades, rejected := parsers.NormalizeRecords(records)
	if rejected > 0 {
		log.Debug("Dropped records without a symbol", "rejected", rejected, "records", len(records))
	}
	if len(trades) == 0 {
		return nil, ErrEmptyResult
	}

	summary := Aggregate(trades)
	if err := checkFinite(summary); err != nil {
		log.Warn("Trade totals overflowed", "error", err)
		return nil, err
	}

	return &TradeResult{
		Trades:   trades,
		Summary:  summary,
		Records:  len(records),
		Rejected: rejected,
	}, nil
}

func checkFinite(summary []models.SymbolSummary) error {
	for _, s := range summary {
		values := []float64{s.TotalBoughtQty, s.TotalBoughtValue, s.TotalSoldQty, s.TotalSoldValue, s.NetQty, s.NetValue}
		for _, avg := range []*float64{s.AvgBuyPrice, s.AvgSellPrice} {
			if avg != nil {
				values = append(values, *avg)
			}
		}
		for _, v := range values {
			if math.IsInf(v, 0) || math.IsNaN(v) {
				return fmt.Errorf("%w: symbol %q", ErrValueOutOfRange, s.Symbol)
			}
		}
	}
	return nil
}

// Bundle wraps a result for export, stamped with the current time.
func (p *TradeProcessor) Bundle(fileName string, res *TradeResult) models.ProcessedBundle {
	return models.ProcessedBundle{
		FileName:    fileName,
		Trades:      res.Trades,
		Summary:     res.Summary,
		ProcessedAt: p.now().UTC().Format(models.ISOMillis),
	}
}

// FileHash returns the hex sha256 of the raw upload.
func FileHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}
