package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when the database file does not exist at open time.
var ErrNotFound = errors.New("database file not found")

// Tuning pragmas applied to every connection: 64MB page cache, in-memory temp
// storage, a 256MB memory-mapped window, relaxed durability, no foreign-key
// enforcement. Performance defaults for a read-heavy workload; not
// configurable per request.
var openPragmas = []string{
	"PRAGMA cache_size = -65536",
	"PRAGMA temp_store = MEMORY",
	"PRAGMA mmap_size = 268435456",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA foreign_keys = OFF",
}

// Conn is an exclusive handle to the database file for the duration of one
// query. It is never shared across concurrent queries and is closed exactly
// once, whichever code path ends the request.
type Conn struct {
	db        *sql.DB
	closeOnce sync.Once
	closeErr  error
}

// QueryContext executes a query on the underlying connection.
func (c *Conn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, query, args...)
}

// Close releases the connection. Safe to call from multiple cleanup paths;
// only the first call closes the handle.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.db.Close()
	})
	return c.closeErr
}

// Provisioner opens tuned connections to a single SQLite database file.
type Provisioner struct {
	path string
}

// NewProvisioner creates a provisioner for the given database file path.
func NewProvisioner(path string) *Provisioner {
	return &Provisioner{path: path}
}

// Path returns the configured database file path.
func (p *Provisioner) Path() string {
	return p.path
}

// Open opens a new connection to the database file with the tuning pragmas
// applied. Returns ErrNotFound if the file does not exist at call time; any
// other open failure is wrapped and surfaced as-is. The caller owns the
// returned connection and must release it.
func (p *Provisioner) Open(ctx context.Context) (*Conn, error) {
	if _, err := os.Stat(p.path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p.path)
		}
		return nil, fmt.Errorf("failed to stat database file: %w", err)
	}

	db, err := sql.Open("sqlite3", p.path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One request, one connection; the pool must never hand out a second
	// handle behind our back.
	db.SetMaxOpenConns(1)

	for _, pragma := range openPragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return &Conn{db: db}, nil
}

// Health performs a minimal round trip against the database and reports the
// elapsed time. Used by the health endpoint.
func (p *Provisioner) Health(ctx context.Context) (time.Duration, error) {
	start := time.Now()

	conn, err := p.Open(ctx)
	if err != nil {
		return time.Since(start), err
	}
	defer conn.Close()

	var one int
	rows, err := conn.QueryContext(ctx, "SELECT 1")
	if err != nil {
		return time.Since(start), fmt.Errorf("health query failed: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&one); err != nil {
			return time.Since(start), fmt.Errorf("health scan failed: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return time.Since(start), fmt.Errorf("health query failed: %w", err)
	}

	return time.Since(start), nil
}
