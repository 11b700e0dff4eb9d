// src/parsers/normalizer.go
package parsers

import (
	"math"
	"strconv"
	"strings"

	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/models"
)

// Accepted source names per canonical attribute, in priority order.
var (
	SymbolFields   = []string{"symbol", "ticker", "instrument"}
	SideFields     = []string{"type", "side", "action"}
	QuantityFields = []string{"qty", "quantity", "shares", "amount"}
	PriceFields    = []string{"price", "tradeprice", "rate"}
	DateFields     = []string{"date", "timestamp", "trade_date"}
)

// fieldResolver looks names up in a record, first by exact name and then
// case-insensitively.
type fieldResolver struct {
	rec   models.RawRecord
	lower map[string]models.RawField
}

func newFieldResolver(rec models.RawRecord) fieldResolver {
	lower := make(map[string]models.RawField, rec.Len())
	for _, f := range rec.Fields() {
		lower[strings.ToLower(f.Name)] = f
	}
	return fieldResolver{rec: rec, lower: lower}
}

func (r fieldResolver) find(names []string) (models.RawField, bool) {
	for _, name := range names {
		if f, ok := r.rec.Lookup(name); ok {
			return f, true
		}
		if f, ok := r.lower[strings.ToLower(name)]; ok {
			return f, true
		}
	}
	return models.RawField{}, false
}

// lookup returns the first value found for names, or "".
func (r fieldResolver) lookup(names []string) string {
	f, _ := r.find(names)
	return f.Value
}

// lookupText is lookup without blanking: a structured 0 or false reads as
// its source text.
func (r fieldResolver) lookupText(names []string) string {
	f, _ := r.find(names)
	return f.Text()
}

// NormalizeRecord maps a raw record onto a CanonicalTrade. The boolean is false
// when the record has no usable symbol and must be dropped.
func NormalizeRecord(rec models.RawRecord) (models.CanonicalTrade, bool) {
	fields := newFieldResolver(rec)

	symbol := strings.TrimSpace(fields.lookupText(SymbolFields))
	if symbol == "" {
		return models.CanonicalTrade{}, false
	}

	side := strings.ToLower(fields.lookup(SideFields))
	switch side {
	case "b":
		side = string(models.SideBuy)
	case "s":
		side = string(models.SideSell)
	}

	qty := ParseNumberOrDefault(fields.lookup(QuantityFields))
	price := ParseNumberOrDefault(fields.lookup(PriceFields))
	date := strings.TrimSpace(fields.lookup(DateFields))

	if side == "" {
		if qty < 0 {
			side = string(models.SideSell)
		} else {
			side = string(models.SideBuy)
		}
	}

	return models.CanonicalTrade{
		Symbol:   symbol,
		Side:     models.Side(side),
		Quantity: math.Abs(qty),
		Price:    price,
		Date:     date,
	}, true
}

// NormalizeRecords normalizes every record and returns the accepted trades
// together with the number of rejected records.
func NormalizeRecords(recs []models.RawRecord) ([]models.CanonicalTrade, int) {
	trades := make([]models.CanonicalTrade, 0, len(recs))
	rejected := 0
	for _, rec := range recs {
		t, ok := NormalizeRecord(rec)
		if !ok {
			rejected++
			continue
		}
		trades = append(trades, t)
	}
	return trades, rejected
}

// ParseNumberOrDefault parses s as a number and returns 0 for anything
// unparseable or non-finite. Decimal and exponent forms with an optional sign
// are accepted, as are unsigned 0x, 0o and 0b integer literals.
func ParseNumberOrDefault(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	if len(s) > 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X', 'o', 'O', 'b', 'B':
			n, err := strconv.ParseUint(s, 0, 64)
			if err != nil || strings.Contains(s, "_") {
				return 0
			}
			return float64(n)
		}
	}

	if strings.Contains(s, "_") {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return f
}
