package query

import (
	"context"
	"fmt"
)

// Row is one result row, positionally aligned with the cursor's columns.
type Row []any

// batchFetcher pulls rows from an open cursor in bounded batches. Single-pass:
// once exhausted (or failed) it has closed the cursor and released the
// connection, so streaming to the client no longer holds database resources.
type batchFetcher struct {
	cur       *cursor
	batchSize int
	release   func()
	done      bool
}

func newBatchFetcher(cur *cursor, batchSize int, release func()) *batchFetcher {
	return &batchFetcher{cur: cur, batchSize: batchSize, release: release}
}

// next returns the next batch of up to batchSize rows. The final batch may be
// shorter; a nil batch with a nil error means the result set is exhausted.
// Values are copied out of driver-owned buffers before the cursor advances.
func (f *batchFetcher) next(ctx context.Context) ([]Row, error) {
	if f.done {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		f.finish()
		return nil, fmt.Errorf("fetch aborted: %w", err)
	}

	numCols := len(f.cur.columns)
	batch := make([]Row, 0, f.batchSize)

	for len(batch) < f.batchSize && f.cur.rows.Next() {
		values := make(Row, numCols)
		dest := make([]any, numCols)
		for i := range values {
			dest[i] = &values[i]
		}
		if err := f.cur.rows.Scan(dest...); err != nil {
			f.finish()
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = append([]byte(nil), b...)
			}
		}
		batch = append(batch, values)
	}

	if len(batch) < f.batchSize {
		// Cursor exhausted: capture any iteration error, then release the
		// connection right away so encoding and transmission continue
		// without holding it.
		err := f.cur.rows.Err()
		timedOut := f.cur.timedOut.Load()
		f.finish()
		if err != nil {
			if timedOut {
				return nil, ErrTimeout(err)
			}
			return nil, fmt.Errorf("failed to fetch rows: %w", err)
		}
	}

	if len(batch) == 0 {
		return nil, nil
	}
	return batch, nil
}

// finish closes the cursor and releases the connection. Idempotent.
func (f *batchFetcher) finish() {
	if f.done {
		return
	}
	f.done = true
	f.cur.close()
	if f.release != nil {
		f.release()
	}
}
