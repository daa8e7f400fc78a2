package query

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/malemalice/karang-sqlite-http/internal/config"
	"github.com/malemalice/karang-sqlite-http/internal/database"
)

// Pipeline runs validated query requests against the database and turns the
// results into streaming responses. Safe for concurrent use; every run
// provisions its own connection.
type Pipeline struct {
	provisioner *database.Provisioner
	timeout     time.Duration
	batchSize   int
}

// NewPipeline builds a pipeline over the given provisioner with the
// configured execution limits.
func NewPipeline(provisioner *database.Provisioner, cfg config.QueryConfig) *Pipeline {
	return &Pipeline{
		provisioner: provisioner,
		timeout:     cfg.Timeout(),
		batchSize:   cfg.BatchSize,
	}
}

// Run validates the request, provisions a connection, executes the statement
// under the deadline, and returns a Stream over the encoded result. All
// failures up to and including the first batch fetch are reported here with a
// classified kind, before any response bytes exist; the connection is released
// on every failure path.
//
// On success the caller owns the Stream and must drain or Close it.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Stream, error) {
	start := time.Now()

	// Revalidated here so the invariant holds no matter how the Request was
	// built: a non-SELECT statement never reaches a connection.
	if !isSelect(req.SQL) {
		return nil, ErrInvalidQuery("only SELECT queries are allowed")
	}
	if req.Delimiter == 0 {
		req.Delimiter = ','
	}
	if !validDelimiter(req.Delimiter) {
		return nil, ErrInvalidQuery("delimiter cannot be a quote, newline, or NUL character")
	}

	conn, err := p.provisioner.Open(ctx)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound(err)
		}
		return nil, ErrConnectionFailure(err)
	}

	cur, err := execute(ctx, conn, req.SQL, p.timeout)
	if err != nil {
		conn.Close()
		return nil, err
	}

	fetcher := newBatchFetcher(cur, p.batchSize, func() { conn.Close() })

	// The first batch is pulled while the deadline is still armed: SQLite
	// does the real execution work on the first cursor step, so this is
	// where a runaway query shows up. Everything after it is plain fetch
	// and encode, outside the execution budget.
	first, err := fetcher.next(ctx)
	if err != nil {
		fetcher.finish()
		if kind := KindOf(err); kind != "" {
			return nil, err
		}
		if ctx.Err() != nil {
			// Client gone before any response byte: not a query fault and
			// not worth a client-error response.
			return nil, err
		}
		return nil, ErrExecution(err)
	}
	cur.disarm()

	return &Stream{
		format:       req.Format,
		enc:          newEncoder(req.Format, cur.columns, req.Delimiter),
		fetcher:      fetcher,
		pending:      first,
		hasPending:   true,
		ExecDuration: time.Since(start),
	}, nil
}

// Stream is a lazy, single-pass sequence of serialized byte chunks plus the
// response metadata the transport layer attaches out of band. The next batch
// is fetched only after the previous chunk has been handed to the consumer,
// so peak memory is bounded by one batch.
type Stream struct {
	format  Format
	enc     encoder
	fetcher *batchFetcher

	pending    []Row
	hasPending bool

	state streamState

	// ExecDuration is the wall-clock time spent provisioning and executing
	// the statement, reported to clients as a diagnostic header.
	ExecDuration time.Duration

	// Rows counts rows emitted so far.
	Rows int64
}

type streamState int

const (
	stateHeader streamState = iota
	stateBody
	stateFooter
	stateDone
)

// MediaType returns the response content type.
func (s *Stream) MediaType() string { return s.format.MediaType() }

// Filename returns the suggested attachment filename.
func (s *Stream) Filename() string { return s.format.Filename() }

// Next returns the next non-empty chunk, or io.EOF once the final chunk has
// been emitted. Any other error is a mid-stream fault: the connection has
// already been released and the stream must be abandoned.
func (s *Stream) Next(ctx context.Context) ([]byte, error) {
	for {
		switch s.state {
		case stateHeader:
			s.state = stateBody
			chunk, err := s.enc.header()
			if err != nil {
				s.abort()
				return nil, ErrStreaming(err)
			}
			if len(chunk) > 0 {
				return chunk, nil
			}

		case stateBody:
			batch := s.pending
			if s.hasPending {
				s.pending = nil
				s.hasPending = false
			} else {
				var err error
				batch, err = s.fetcher.next(ctx)
				if err != nil {
					s.abort()
					return nil, ErrStreaming(err)
				}
			}
			if batch == nil {
				s.state = stateFooter
				continue
			}
			chunk, err := s.enc.encodeBatch(batch)
			if err != nil {
				s.abort()
				return nil, ErrStreaming(err)
			}
			s.Rows += int64(len(batch))
			if len(chunk) > 0 {
				return chunk, nil
			}

		case stateFooter:
			s.state = stateDone
			chunk, err := s.enc.footer()
			if err != nil {
				return nil, ErrStreaming(err)
			}
			if len(chunk) > 0 {
				return chunk, nil
			}

		case stateDone:
			return nil, io.EOF
		}
	}
}

// Close releases any database resources still held, for abandonment before
// the stream is drained. Idempotent.
func (s *Stream) Close() error {
	s.abort()
	return nil
}

func (s *Stream) abort() {
	s.state = stateDone
	s.pending = nil
	s.hasPending = false
	s.fetcher.finish()
}
