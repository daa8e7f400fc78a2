package query

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Format selects the wire serialization for a query result.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// MediaType returns the response content type for the format.
func (f Format) MediaType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv"
}

// Filename returns the suggested attachment filename for the format.
func (f Format) Filename() string {
	if f == FormatJSON {
		return "query_result.json"
	}
	return "query_result.csv"
}

// Request is one validated query request. Immutable once built.
type Request struct {
	SQL       string
	Delimiter rune
	Format    Format
}

// ParseRequest validates the raw inbound fields and builds a Request.
// Only SELECT statements are accepted; delimiter must be a single character;
// format must be "csv" or "json" (default "csv").
func ParseRequest(sqlText, delimiter, format string) (Request, error) {
	if !isSelect(sqlText) {
		return Request{}, ErrInvalidQuery("only SELECT queries are allowed")
	}

	delim := ','
	if delimiter != "" {
		runes := []rune(delimiter)
		if len(runes) != 1 {
			return Request{}, ErrInvalidQuery("delimiter must be a single character")
		}
		if !validDelimiter(runes[0]) {
			return Request{}, ErrInvalidQuery("delimiter cannot be a quote, newline, or NUL character")
		}
		delim = runes[0]
	}

	f := FormatCSV
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "csv":
	case "json":
		f = FormatJSON
	default:
		return Request{}, ErrInvalidQuery("format must be one of: csv, json")
	}

	return Request{SQL: sqlText, Delimiter: delim, Format: f}, nil
}

// validDelimiter reports whether r can serve as a CSV field delimiter.
// Mirrors encoding/csv's rules: quote, CR, LF, NUL, and invalid runes would
// make every encode fail, so they are rejected up front as client errors.
func validDelimiter(r rune) bool {
	return r != 0 && r != '"' && r != '\r' && r != '\n' && utf8.ValidRune(r) && r != utf8.RuneError
}

// isSelect reports whether the statement begins with the SELECT token,
// ignoring leading/trailing whitespace and case.
func isSelect(sqlText string) bool {
	trimmed := strings.TrimSpace(sqlText)
	if len(trimmed) < len("SELECT") {
		return false
	}
	if !strings.EqualFold(trimmed[:len("SELECT")], "SELECT") {
		return false
	}
	// Must be a full token: "SELECTED ..." is not a SELECT statement.
	rest := []rune(trimmed[len("SELECT"):])
	if len(rest) == 0 {
		return false
	}
	return !unicode.IsLetter(rest[0]) && !unicode.IsDigit(rest[0]) && rest[0] != '_'
}
