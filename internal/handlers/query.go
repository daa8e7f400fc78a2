package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/malemalice/karang-sqlite-http/internal/metrics"
	"github.com/malemalice/karang-sqlite-http/internal/query"
	"github.com/malemalice/karang-sqlite-http/pkg/logger"
)

// QueryHandler serves ad-hoc read-only queries as streaming responses.
type QueryHandler struct {
	pipeline *query.Pipeline
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(pipeline *query.Pipeline) *QueryHandler {
	return &QueryHandler{pipeline: pipeline}
}

// QueryRequest is the body for POST /query.
type QueryRequest struct {
	SQL       string `json:"sql" binding:"required"`
	Delimiter string `json:"delimiter"`
	Format    string `json:"format"`
}

// Query executes a SELECT statement and streams the result in the requested
// format. POST /query
func (h *QueryHandler) Query(c *gin.Context) {
	start := time.Now()
	queryID := uuid.NewString()
	log := logger.WithQueryID(logger.Get(), queryID)

	var body QueryRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: sql is required"})
		metrics.ObserveQuery("unknown", string(query.KindInvalidQuery), time.Since(start))
		return
	}

	req, err := query.ParseRequest(body.SQL, body.Delimiter, body.Format)
	if err != nil {
		h.fail(c, log, err, body.Format, start)
		return
	}

	stream, err := h.pipeline.Run(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, context.Canceled) || c.Request.Context().Err() != nil {
			// Client disconnected before any response byte; nobody is
			// listening for an error body.
			log.Warn("client disconnected before response", "error", err)
			metrics.ObserveQuery(string(req.Format), "client_disconnect", time.Since(start))
			c.Abort()
			return
		}
		h.fail(c, log, err, string(req.Format), start)
		return
	}
	defer stream.Close()

	c.Header("Content-Type", stream.MediaType())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", stream.Filename()))
	c.Header("X-Query-ID", queryID)
	c.Header("X-Query-Duration-Ms", strconv.FormatInt(stream.ExecDuration.Milliseconds(), 10))
	c.Header("X-Total-Duration-Ms", strconv.FormatInt(time.Since(start).Milliseconds(), 10))
	c.Status(http.StatusOK)

	flusher, canFlush := c.Writer.(http.Flusher)

	status := "ok"
	for {
		select {
		case <-c.Request.Context().Done():
			// Client went away; stop fetching and release the connection.
			log.Warn("client disconnected mid-stream", "rows", stream.Rows)
			status = "client_disconnect"
		default:
		}
		if status != "ok" {
			break
		}

		chunk, err := stream.Next(c.Request.Context())
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			// Headers are already sent; the status cannot change. Terminate
			// the stream abruptly and log the fault.
			log.Error("streaming fault after response began", "error", err, "rows", stream.Rows)
			status = string(query.KindStreamingFault)
			break
		}
		if _, err := c.Writer.Write(chunk); err != nil {
			log.Warn("failed to write chunk to client", "error", err, "rows", stream.Rows)
			status = "client_disconnect"
			break
		}
		if canFlush {
			flusher.Flush()
		}
	}

	log.Info("query finished",
		"format", string(req.Format),
		"status", status,
		"rows", stream.Rows,
		"exec_ms", stream.ExecDuration.Milliseconds(),
		"total_ms", time.Since(start).Milliseconds(),
	)
	metrics.ObserveQuery(string(req.Format), status, time.Since(start))
	metrics.AddRowsStreamed(stream.Rows)
}

// fail maps a pipeline failure to a JSON error response.
func (h *QueryHandler) fail(c *gin.Context, log *slog.Logger, err error, format string, start time.Time) {
	var qerr *query.Error
	if !errors.As(err, &qerr) {
		qerr = query.ErrExecution(err)
	}
	log.Warn("query rejected", "kind", string(qerr.Kind), "error", qerr.Error())
	c.JSON(qerr.HTTPStatus(), gin.H{"error": qerr.Error(), "kind": string(qerr.Kind)})

	// Bounded label values only.
	if format != string(query.FormatCSV) && format != string(query.FormatJSON) {
		format = "unknown"
	}
	metrics.ObserveQuery(format, string(qerr.Kind), time.Since(start))
}
