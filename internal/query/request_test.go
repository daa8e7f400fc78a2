package query

import (
	"testing"
)

func TestParseRequestSelectOnly(t *testing.T) {
	valid := []string{
		"SELECT * FROM users",
		"select id from users",
		"  SeLeCt 1  ",
		"\n\tSELECT\nname FROM users",
		"SELECT*FROM users",
	}
	for _, sqlText := range valid {
		if _, err := ParseRequest(sqlText, "", ""); err != nil {
			t.Errorf("ParseRequest(%q) rejected a valid SELECT: %v", sqlText, err)
		}
	}

	invalid := []string{
		"DELETE FROM users",
		"delete from users",
		"  UPDATE users SET name = 'x'",
		"INSERT INTO users VALUES (1, 'a')",
		"DROP TABLE users",
		"PRAGMA journal_mode",
		"SELECTED something",
		"",
		"   ",
	}
	for _, sqlText := range invalid {
		_, err := ParseRequest(sqlText, "", "")
		if err == nil {
			t.Errorf("ParseRequest(%q) accepted a non-SELECT statement", sqlText)
			continue
		}
		if KindOf(err) != KindInvalidQuery {
			t.Errorf("ParseRequest(%q) kind = %s, want %s", sqlText, KindOf(err), KindInvalidQuery)
		}
	}
}

func TestParseRequestFormat(t *testing.T) {
	cases := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"", FormatCSV, true},
		{"csv", FormatCSV, true},
		{"CSV", FormatCSV, true},
		{" json ", FormatJSON, true},
		{"JSON", FormatJSON, true},
		{"xml", "", false},
		{"yaml", "", false},
	}
	for _, tc := range cases {
		req, err := ParseRequest("SELECT 1", "", tc.in)
		if tc.ok {
			if err != nil {
				t.Errorf("format %q rejected: %v", tc.in, err)
				continue
			}
			if req.Format != tc.want {
				t.Errorf("format %q = %s, want %s", tc.in, req.Format, tc.want)
			}
		} else if err == nil || KindOf(err) != KindInvalidQuery {
			t.Errorf("format %q should be InvalidQuery, got %v", tc.in, err)
		}
	}
}

func TestParseRequestDelimiter(t *testing.T) {
	req, err := ParseRequest("SELECT 1", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Delimiter != ',' {
		t.Errorf("default delimiter = %q, want ','", req.Delimiter)
	}

	req, err = ParseRequest("SELECT 1", ";", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Delimiter != ';' {
		t.Errorf("delimiter = %q, want ';'", req.Delimiter)
	}

	if _, err := ParseRequest("SELECT 1", ",,", ""); err == nil {
		t.Error("multi-character delimiter should be rejected")
	}

	// Delimiters encoding/csv cannot write with must fail validation, not
	// surface after the response has begun.
	for _, delim := range []string{`"`, "\r", "\n", "\x00"} {
		_, err := ParseRequest("SELECT 1", delim, "")
		if err == nil {
			t.Errorf("delimiter %q accepted", delim)
			continue
		}
		if KindOf(err) != KindInvalidQuery {
			t.Errorf("delimiter %q kind = %s, want %s", delim, KindOf(err), KindInvalidQuery)
		}
	}
}

func TestFormatMetadata(t *testing.T) {
	if FormatCSV.MediaType() != "text/csv" || FormatCSV.Filename() != "query_result.csv" {
		t.Errorf("csv metadata = %s / %s", FormatCSV.MediaType(), FormatCSV.Filename())
	}
	if FormatJSON.MediaType() != "application/json" || FormatJSON.Filename() != "query_result.json" {
		t.Errorf("json metadata = %s / %s", FormatJSON.MediaType(), FormatJSON.Filename())
	}
}
