// src/parsers/router.go
package parsers

import (
	"fmt"
	"strings"

	"github.com/Banoth-Vidyalaxmi/FOREX-TRADE-BOT/src/models"
	"github.com/tidwall/gjson"
)

const utf8BOM = "\uFEFF"

// ParseRecords decides whether text is a JSON document or delimited text and
// returns the raw records it contains. Unknown hints behave like FormatAuto.
func ParseRecords(text string, hint models.FormatHint) ([]models.RawRecord, error) {
	text = strings.TrimPrefix(text, utf8BOM)

	if hint == models.FormatJSON || (hint != models.FormatCSV && LooksLikeJSON(text)) {
		return parseJSONRecords(text)
	}
	return parseDelimitedRecords(text, DefaultDelimiter)
}

// LooksLikeJSON reports whether the trimmed text opens an object or array.
func LooksLikeJSON(text string) bool {
	t := strings.TrimSpace(text)
	return strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[")
}

func parseJSONRecords(text string) ([]models.RawRecord, error) {
	if !gjson.Valid(text) {
		return nil, newFormatError(ReasonInvalidSyntax, fmt.Errorf("document is not valid JSON"))
	}

	doc := gjson.Parse(text)
	arr := doc
	if !doc.IsArray() {
		arr = gjson.Result{}
		if doc.IsObject() {
			doc.ForEach(func(_, value gjson.Result) bool {
				if value.IsArray() {
					arr = value
					return false
				}
				return true
			})
		}
		if !arr.IsArray() {
			return nil, newFormatError(ReasonNoTradeArray, nil)
		}
	}

	records := make([]models.RawRecord, 0, len(arr.Array()))
	arr.ForEach(func(_, elem gjson.Result) bool {
		rec := models.NewRawRecord(8)
		if elem.IsObject() {
			elem.ForEach(func(key, value gjson.Result) bool {
				setJSONField(&rec, key.String(), value)
				return true
			})
		}
		records = append(records, rec)
		return true
	})
	return records, nil
}

// setJSONField stores a JSON value the way field values are read downstream:
// null, false and numeric zero read as absent, with false and zero keeping
// their text for symbol resolution.
func setJSONField(rec *models.RawRecord, name string, v gjson.Result) {
	switch v.Type {
	case gjson.Null:
		rec.SetBlank(name, "")
	case gjson.False:
		rec.SetBlank(name, "false")
	case gjson.True:
		rec.Set(name, "true")
	case gjson.String:
		rec.Set(name, v.Str)
	case gjson.Number:
		if v.Num == 0 {
			rec.SetBlank(name, "0")
			return
		}
		rec.Set(name, v.Raw)
	default:
		rec.Set(name, v.Raw)
	}
}

func parseDelimitedRecords(text string, delim byte) ([]models.RawRecord, error) {
	lines := nonBlankLines(text)
	if len(lines) == 0 {
		return nil, newFormatError(ReasonEmptyInput, ErrEmptyResult)
	}

	header := TokenizeLine(lines[0], delim)
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	records := make([]models.RawRecord, 0, len(lines)-1)
	for _, line := range lines[1:] {
		tokens := TokenizeLine(line, delim)
		if allBlank(tokens) {
			continue
		}

		width := len(header)
		if len(tokens) > width {
			width = len(tokens)
		}
		rec := models.NewRawRecord(width)
		for j := 0; j < width; j++ {
			name := ""
			if j < len(header) {
				name = header[j]
			}
			if name == "" {
				name = fmt.Sprintf("col%d", j)
			}
			value := ""
			if j < len(tokens) {
				value = tokens[j]
			}
			rec.Set(name, value)
		}
		records = append(records, rec)
	}
	return records, nil
}

func nonBlankLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := raw[:0]
	for _, l := range raw {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func allBlank(tokens []string) bool {
	for _, t := range tokens {
		if strings.TrimSpace(t) != "" {
			return false
		}
	}
	return true
}
