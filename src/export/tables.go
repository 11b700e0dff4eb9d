package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/models"
	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/security/validation"
)

// Placeholder shown for an average price that does not exist.
const Placeholder = "-"

var (
	SummaryHeaders = []string{
		"Symbol", "Bought Qty", "Avg Buy Price", "Bought Value",
		"Sold Qty", "Avg Sell Price", "Sold Value", "Net Qty", "Net Value", "Trades",
	}
	TradeHeaders = []string{"Symbol", "Side", "Quantity", "Price", "Date"}
)

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatAverage(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return formatNumber(*v)
}

func summaryRow(s models.SymbolSummary) []string {
	return []string{
		s.Symbol,
		formatNumber(s.TotalBoughtQty),
		formatAverage(s.AvgBuyPrice),
		formatNumber(s.TotalBoughtValue),
		formatNumber(s.TotalSoldQty),
		formatAverage(s.AvgSellPrice),
		formatNumber(s.TotalSoldValue),
		formatNumber(s.NetQty),
		formatNumber(s.NetValue),
		strconv.Itoa(s.TradesCount),
	}
}

// WriteSummaryCSV writes the summary as CSV. Text cells are guarded against
// spreadsheet formula injection; numeric cells are written as-is.
func WriteSummaryCSV(w io.Writer, summary []models.SymbolSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SummaryHeaders); err != nil {
		return fmt.Errorf("failed to write summary csv header: %w", err)
	}
	for _, s := range summary {
		row := summaryRow(s)
		row[0] = validation.SanitizeForFormulaInjection(row[0])
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write summary csv row for %s: %w", s.Symbol, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaryTable renders the summary as an aligned text table.
func WriteSummaryTable(w io.Writer, summary []models.SymbolSummary) error {
	rows := make([][]string, 0, len(summary))
	for _, s := range summary {
		rows = append(rows, summaryRow(s))
	}
	return writeTable(w, SummaryHeaders, rows)
}

// WriteTradeTable renders the normalized trades as an aligned text table.
func WriteTradeTable(w io.Writer, trades []models.CanonicalTrade) error {
	rows := make([][]string, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, []string{t.Symbol, string(t.Side), formatNumber(t.Quantity), formatNumber(t.Price), t.Date})
	}
	return writeTable(w, TradeHeaders, rows)
}

func writeTable(w io.Writer, headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	writeRow(tw, headers)
	for _, r := range rows {
		writeRow(tw, r)
	}
	return tw.Flush()
}

func writeRow(w io.Writer, cells []string) {
	for i, c := range cells {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, c)
	}
	fmt.Fprintln(w)
}
