// src/parsers/tokenizer.go
package parsers

import "strings"

// DefaultDelimiter separates fields in delimited trade files.
const DefaultDelimiter = ','

const quote = '"'

// TokenizeLine splits a single line into fields.
//
// Double quotes toggle a quoted region in which the delimiter is literal text,
// and a doubled quote inside a quoted region yields one '"'. Quote characters
// themselves are never emitted otherwise. Malformed quoting never fails: an
// unterminated region just runs to the end of the line. The delimiter must be
// a single ASCII byte, which keeps multi-byte UTF-8 text intact.
func TokenizeLine(line string, delim byte) []string {
	fields := make([]string, 0, strings.Count(line, string(delim))+1)
	var cur strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == quote:
			if inQuotes && i+1 < len(line) && line[i+1] == quote {
				cur.WriteByte(quote)
				i++
			} else {
				inQuotes = !inQuotes
			}
		case c == delim && !inQuotes:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(fields, cur.String())
}
