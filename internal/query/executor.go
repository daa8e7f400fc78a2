package query

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/malemalice/karang-sqlite-http/internal/database"
)

// cursor is an executing query: the open rows handle, its column metadata,
// and the cancellation plumbing that enforces the execution deadline.
type cursor struct {
	rows    *sql.Rows
	columns []string

	cancel   context.CancelFunc
	timer    *time.Timer
	timedOut *atomic.Bool
}

// disarm stops deadline enforcement. Called once the execution phase has
// produced its first batch; fetch and encode are not subject to the timeout.
func (c *cursor) disarm() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// close releases the cursor's resources. Idempotent.
func (c *cursor) close() {
	c.disarm()
	if c.rows != nil {
		c.rows.Close()
	}
	c.cancel()
}

// execute compiles and starts the statement on conn under a wall-clock
// deadline. The deadline is enforced through context cancellation, which the
// driver honors via sqlite3_interrupt, so enforcement does not depend on any
// platform signal facility. The returned cursor stays armed: the caller must
// fetch the first batch (which is where SQLite does the real work) and then
// disarm it.
func execute(ctx context.Context, conn *database.Conn, sqlText string, timeout time.Duration) (*cursor, error) {
	execCtx, cancel := context.WithCancel(ctx)

	timedOut := &atomic.Bool{}
	timer := time.AfterFunc(timeout, func() {
		timedOut.Store(true)
		cancel()
	})

	rows, err := conn.QueryContext(execCtx, sqlText)
	if err != nil {
		timer.Stop()
		cancel()
		if timedOut.Load() {
			return nil, ErrTimeout(err)
		}
		if ctx.Err() != nil {
			// Caller gave up, not a query fault; keep the context error
			// visible to errors.Is so it is never reported as a client error.
			return nil, fmt.Errorf("execution aborted: %w", ctx.Err())
		}
		return nil, ErrExecution(err)
	}

	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		timer.Stop()
		cancel()
		return nil, ErrExecution(err)
	}
	if len(columns) == 0 {
		rows.Close()
		timer.Stop()
		cancel()
		return nil, ErrNoColumns()
	}

	return &cursor{
		rows:     rows,
		columns:  columns,
		cancel:   cancel,
		timer:    timer,
		timedOut: timedOut,
	}, nil
}
