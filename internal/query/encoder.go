package query

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// encoder turns column metadata plus a sequence of row batches into serialized
// byte chunks. Stateless with respect to the number of batches: it never
// assumes how many rows or batches are coming.
type encoder interface {
	// header is emitted once, before any batch.
	header() ([]byte, error)
	// encodeBatch serializes one batch. May return an empty chunk.
	encodeBatch(batch []Row) ([]byte, error)
	// footer is emitted once, after the last batch.
	footer() ([]byte, error)
}

func newEncoder(format Format, columns []string, delimiter rune) encoder {
	if format == FormatJSON {
		return &jsonEncoder{columns: columns}
	}
	return &csvEncoder{columns: columns, delimiter: delimiter}
}

// csvEncoder emits a header record followed by one record per row, with
// standard CSV quoting. NULL serializes as an empty field.
type csvEncoder struct {
	columns   []string
	delimiter rune
}

func (e *csvEncoder) write(records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = e.delimiter
	w.UseCRLF = true
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *csvEncoder) header() ([]byte, error) {
	return e.write([][]string{e.columns})
}

func (e *csvEncoder) encodeBatch(batch []Row) ([]byte, error) {
	records := make([][]string, len(batch))
	for i, row := range batch {
		fields := make([]string, len(row))
		for j, v := range row {
			fields[j] = fieldString(v)
		}
		records[i] = fields
	}
	return e.write(records)
}

func (e *csvEncoder) footer() ([]byte, error) {
	return nil, nil
}

// fieldString renders one scalar value as a CSV field.
func fieldString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// jsonEncoder emits a single well-formed JSON array of column-to-value
// objects, produced incrementally. Separator placement is tracked across
// batch boundaries so the concatenated chunks always parse as one array.
type jsonEncoder struct {
	columns []string
	started bool
}

func (e *jsonEncoder) header() ([]byte, error) {
	return []byte("["), nil
}

func (e *jsonEncoder) encodeBatch(batch []Row) ([]byte, error) {
	var buf bytes.Buffer
	for _, row := range batch {
		if e.started {
			buf.WriteString(",\n")
		}
		e.started = true
		if err := writeRecord(&buf, e.columns, row); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (e *jsonEncoder) footer() ([]byte, error) {
	return []byte("]"), nil
}

// writeRecord writes one row as a JSON object, preserving column order.
func writeRecord(buf *bytes.Buffer, columns []string, row Row) error {
	buf.WriteByte('{')
	for i, col := range columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return fmt.Errorf("failed to encode column name: %w", err)
		}
		buf.Write(key)
		buf.WriteByte(':')

		var v any
		if i < len(row) {
			v = jsonValue(row[i])
		}
		val, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode value for column %q: %w", col, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return nil
}

// jsonValue normalizes driver scalars for JSON encoding. BLOB values are
// rendered as strings rather than base64 so text stored in BLOB columns stays
// readable.
func jsonValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
