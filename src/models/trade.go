// src/models/trade.go
package models

import "strings"

// Side is the direction of a trade. Values other than SideBuy and SideSell
// are passed through from the source unchanged.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// FormatHint tells the router how to interpret an input.
type FormatHint string

const (
	FormatCSV  FormatHint = "csv"
	FormatJSON FormatHint = "json"
	FormatAuto FormatHint = "auto"
)

// ParseFormatHint maps user input to a hint. Unknown values become FormatAuto.
func ParseFormatHint(s string) FormatHint {
	switch FormatHint(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV
	case FormatJSON:
		return FormatJSON
	default:
		return FormatAuto
	}
}

// CanonicalTrade is the unified representation produced by the normalizer.
type CanonicalTrade struct {
	Symbol   string  `json:"symbol"`
	Side     Side    `json:"side"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Date     string  `json:"date"`
}

// SymbolSummary holds the aggregated statistics for one symbol.
// Average prices are nil when there was no volume on that side.
type SymbolSummary struct {
	Symbol           string   `json:"symbol"`
	TotalBoughtQty   float64  `json:"totalBoughtQty"`
	AvgBuyPrice      *float64 `json:"avgBuyPrice"`
	TotalBoughtValue float64  `json:"totalBoughtValue"`
	TotalSoldQty     float64  `json:"totalSoldQty"`
	AvgSellPrice     *float64 `json:"avgSellPrice"`
	TotalSoldValue   float64  `json:"totalSoldValue"`
	NetQty           float64  `json:"netQty"`
	NetValue         float64  `json:"netValue"`
	TradesCount      int      `json:"tradesCount"`
}

// ProcessedBundle is what gets exported and persisted for one processed file.
type ProcessedBundle struct {
	FileName    string           `json:"fileName"`
	Trades      []CanonicalTrade `json:"trades"`
	Summary     []SymbolSummary  `json:"summary"`
	ProcessedAt string           `json:"processedAt"`
}

// ISOMillis is the timestamp layout used for ProcessedAt.
const ISOMillis = "2006-01-02T15:04:05.000Z07:00"
