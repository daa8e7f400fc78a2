package query

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/malemalice/karang-sqlite-http/internal/database"
)

// newNumsDB creates a database file with n sequential rows.
func newNumsDB(t *testing.T, n int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nums.db")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec("CREATE TABLE nums (n INTEGER)"); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	for i := 1; i <= n; i++ {
		if _, err := db.Exec("INSERT INTO nums VALUES (?)", i); err != nil {
			t.Fatalf("failed to insert: %v", err)
		}
	}
	return path
}

func TestBatchFetcherPartitionsResultSet(t *testing.T) {
	cases := []struct {
		rows        int
		batchSize   int
		wantBatches int
	}{
		{25, 10, 3}, // 10, 10, 5
		{20, 10, 2}, // exact multiple
		{3, 10, 1},
		{0, 10, 0},
		{10, 1, 10},
	}

	for _, tc := range cases {
		path := newNumsDB(t, tc.rows)
		prov := database.NewProvisioner(path)

		conn, err := prov.Open(context.Background())
		if err != nil {
			t.Fatalf("open failed: %v", err)
		}

		cur, err := execute(context.Background(), conn, "SELECT n FROM nums ORDER BY n", time.Minute)
		if err != nil {
			conn.Close()
			t.Fatalf("execute failed: %v", err)
		}

		released := false
		f := newBatchFetcher(cur, tc.batchSize, func() {
			released = true
			conn.Close()
		})

		var got []int64
		batches := 0
		for {
			batch, err := f.next(context.Background())
			if err != nil {
				t.Fatalf("fetch failed: %v", err)
			}
			if batch == nil {
				break
			}
			batches++
			if len(batch) > tc.batchSize {
				t.Errorf("batch of %d rows exceeds cap %d", len(batch), tc.batchSize)
			}
			for _, row := range batch {
				got = append(got, row[0].(int64))
			}
		}

		if batches != tc.wantBatches {
			t.Errorf("rows=%d batch=%d: got %d batches, want %d", tc.rows, tc.batchSize, batches, tc.wantBatches)
		}
		if len(got) != tc.rows {
			t.Errorf("rows=%d batch=%d: fetched %d rows", tc.rows, tc.batchSize, len(got))
		}
		for i, v := range got {
			if v != int64(i+1) {
				t.Errorf("row %d = %d, out of order", i, v)
				break
			}
		}
		if !released {
			t.Errorf("rows=%d batch=%d: connection not released after exhaustion", tc.rows, tc.batchSize)
		}

		// Single-pass: further calls stay exhausted.
		if batch, err := f.next(context.Background()); batch != nil || err != nil {
			t.Errorf("fetcher yielded again after exhaustion: %v, %v", batch, err)
		}
	}
}

func TestBatchFetcherCopiesDriverValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blobs.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if _, err := db.Exec("CREATE TABLE blobs (data BLOB)"); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := db.Exec("INSERT INTO blobs VALUES (?)", []byte(fmt.Sprintf("payload-%d", i))); err != nil {
			t.Fatalf("failed to insert: %v", err)
		}
	}
	db.Close()

	prov := database.NewProvisioner(path)
	conn, err := prov.Open(context.Background())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	cur, err := execute(context.Background(), conn, "SELECT data FROM blobs ORDER BY rowid", time.Minute)
	if err != nil {
		conn.Close()
		t.Fatalf("execute failed: %v", err)
	}
	f := newBatchFetcher(cur, 2, func() { conn.Close() })

	// Collect all batches first, then check values: if the fetcher aliased
	// driver buffers, earlier rows would be clobbered by later cursor steps.
	var all []Row
	for {
		batch, err := f.next(context.Background())
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		if batch == nil {
			break
		}
		all = append(all, batch...)
	}

	for i, row := range all {
		want := fmt.Sprintf("payload-%d", i)
		got := string(row[0].([]byte))
		if got != want {
			t.Errorf("row %d = %q, want %q", i, got, want)
		}
	}
}
