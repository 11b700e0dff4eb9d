// src/processors/summary_processor.go
package processors

import (
	"sort"

	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/models"
	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const (
	quantityPlaces = 2
	valuePlaces    = 2
	pricePlaces    = 4
)

type symbolTotals struct {
	boughtQty   decimal.Decimal
	boughtValue decimal.Decimal
	soldQty     decimal.Decimal
	soldValue   decimal.Decimal
	trades      int
}

// Aggregate folds trades into one summary per symbol, ordered by symbol.
// Only the exact side "sell" counts as a sale; every other side is a buy.
func Aggregate(trades []models.CanonicalTrade) []models.SymbolSummary {
	totals := make(map[string]*symbolTotals)
	order := make([]string, 0)

	for _, t := range trades {
		acc, ok := totals[t.Symbol]
		if !ok {
			acc = &symbolTotals{}
			totals[t.Symbol] = acc
			order = append(order, t.Symbol)
		}

		qty := decimal.NewFromFloat(t.Quantity)
		value := qty.Mul(decimal.NewFromFloat(t.Price))
		if t.Side == models.SideSell {
			acc.soldQty = acc.soldQty.Add(qty)
			acc.soldValue = acc.soldValue.Add(value)
		} else {
			acc.boughtQty = acc.boughtQty.Add(qty)
			acc.boughtValue = acc.boughtValue.Add(value)
		}
		acc.trades++
	}

	summaries := make([]models.SymbolSummary, 0, len(order))
	for _, symbol := range order {
		summaries = append(summaries, summarize(symbol, totals[symbol]))
	}
	sortBySymbol(summaries)
	return summaries
}

func summarize(symbol string, acc *symbolTotals) models.SymbolSummary {
	boughtQty := acc.boughtQty.Round(quantityPlaces)
	boughtValue := acc.boughtValue.Round(valuePlaces)
	soldQty := acc.soldQty.Round(quantityPlaces)
	soldValue := acc.soldValue.Round(valuePlaces)

	return models.SymbolSummary{
		Symbol:           symbol,
		TotalBoughtQty:   boughtQty.InexactFloat64(),
		AvgBuyPrice:      averagePrice(acc.boughtValue, acc.boughtQty),
		TotalBoughtValue: boughtValue.InexactFloat64(),
		TotalSoldQty:     soldQty.InexactFloat64(),
		AvgSellPrice:     averagePrice(acc.soldValue, acc.soldQty),
		TotalSoldValue:   soldValue.InexactFloat64(),
		NetQty:           boughtQty.Sub(soldQty).InexactFloat64(),
		NetValue:         boughtValue.Sub(soldValue).InexactFloat64(),
		TradesCount:      acc.trades,
	}
}

// averagePrice is the volume-weighted price, or nil without volume.
func averagePrice(value, qty decimal.Decimal) *float64 {
	if qty.IsZero() {
		return nil
	}
	avg := value.Div(qty).Round(pricePlaces).InexactFloat64()
	return &avg
}

func sortBySymbol(summaries []models.SymbolSummary) {
	col := collate.New(language.English)
	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i].Symbol, summaries[j].Symbol
		if c := col.CompareString(a, b); c != 0 {
			return c < 0
		}
		return a < b
	})
}
