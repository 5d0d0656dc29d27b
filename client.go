// Package logtide is the Go SDK for the LogTide ingestion service. A Client
// buffers structured log records in memory and ships them in batches to the
// ingestion endpoint, with retries, a circuit breaker, and delivery metrics.
//
// Delivery is best-effort: records may be dropped on buffer overflow, on
// exhausted retries, or while the breaker is open. All non-delivery is
// visible through Metrics; the background pipeline never surfaces send
// failures to producers.
package logtide

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/logtide-dev/logtide-go/breaker"
	"github.com/logtide-dev/logtide-go/internal/buffer"
)

// maxConcurrentFlushes caps the flush goroutines spawned by the batch-size
// trigger. A trigger that finds every slot busy is skipped; the running
// flushes and the periodic loop drain the buffer anyway.
const maxConcurrentFlushes = 4

// Client ships structured log records to a LogTide ingestion endpoint.
// All methods are safe for concurrent use.
type Client struct {
	cfg     Config
	httpc   *http.Client
	logger  *slog.Logger
	brk     *breaker.Breaker
	metrics *metricsRegister
	trace   traceContext
	buf     *buffer.Buffer[Record]

	flushes errgroup.Group
	stop    chan struct{}
	done    chan struct{}

	closed    atomic.Bool
	closeOnce sync.Once
}

// New validates cfg, applies defaults, and starts the background flush loop.
// Callers must Close the client to stop the loop and deliver what is still
// buffered.
func New(cfg Config) (*Client, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		if cfg.Debug {
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		} else {
			logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		}
	}

	c := &Client{
		cfg:     cfg,
		httpc:   &http.Client{Timeout: cfg.HTTPTimeout},
		logger:  logger.With("component", "logtide_client"),
		brk:     breaker.New(cfg.BreakerThreshold, cfg.BreakerReset),
		metrics: newMetricsRegister(!cfg.DisableMetrics, cfg.Registerer),
		buf:     buffer.New[Record](cfg.MaxBufferSize),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	c.flushes.SetLimit(maxConcurrentFlushes)

	go c.runFlushLoop()
	c.logger.Debug("client started", "endpoint", cfg.Endpoint, "batch_size", cfg.BatchSize, "flush_interval", cfg.FlushInterval)
	return c, nil
}

// Log enriches rec and queues it for delivery. It returns ErrBufferFull when
// the buffer is at capacity (the record is dropped and counted), ErrClosed
// after Close, and ErrEmptyService for a record without a service name.
//
// A missing trace ID is filled from the client's trace context, then from a
// valid OpenTelemetry span in ctx, then generated when AutoTraceID is set.
// Global metadata keys are merged in without overwriting the record's own.
func (c *Client) Log(ctx context.Context, rec Record) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if rec.Service == "" {
		return ErrEmptyService
	}

	if rec.Time.IsZero() {
		rec.Time = time.Now().UTC()
	}
	if rec.TraceID == "" {
		if id := c.trace.get(); id != "" {
			rec.TraceID = id
		} else if id := traceIDFromContext(ctx); id != "" {
			rec.TraceID = id
		} else if c.cfg.AutoTraceID {
			rec.TraceID = NewTraceID()
		}
	}
	if len(c.cfg.GlobalMetadata) > 0 {
		if rec.Metadata == nil {
			rec.Metadata = make(map[string]any, len(c.cfg.GlobalMetadata))
		}
		for k, v := range c.cfg.GlobalMetadata {
			if _, ok := rec.Metadata[k]; !ok {
				rec.Metadata[k] = v
			}
		}
	}

	size, ok := c.buf.Append(rec)
	if !ok {
		c.metrics.addDropped(1)
		c.logger.Debug("buffer full, dropping record", "service", rec.Service)
		return ErrBufferFull
	}
	if size >= c.cfg.BatchSize {
		c.asyncFlush()
	}
	return nil
}

// Debug queues a debug-level record.
func (c *Client) Debug(ctx context.Context, service, message string, metadata ...map[string]any) error {
	return c.Log(ctx, Record{Service: service, Level: LevelDebug, Message: message, Metadata: firstMetadata(metadata)})
}

// Info queues an info-level record.
func (c *Client) Info(ctx context.Context, service, message string, metadata ...map[string]any) error {
	return c.Log(ctx, Record{Service: service, Level: LevelInfo, Message: message, Metadata: firstMetadata(metadata)})
}

// Warn queues a warn-level record.
func (c *Client) Warn(ctx context.Context, service, message string, metadata ...map[string]any) error {
	return c.Log(ctx, Record{Service: service, Level: LevelWarn, Message: message, Metadata: firstMetadata(metadata)})
}

// Error queues an error-level record.
func (c *Client) Error(ctx context.Context, service, message string, metadata ...map[string]any) error {
	return c.Log(ctx, Record{Service: service, Level: LevelError, Message: message, Metadata: firstMetadata(metadata)})
}

// Critical queues a critical-level record.
func (c *Client) Critical(ctx context.Context, service, message string, metadata ...map[string]any) error {
	return c.Log(ctx, Record{Service: service, Level: LevelCritical, Message: message, Metadata: firstMetadata(metadata)})
}

// ErrorWithError queues an error-level record carrying err, serialized with
// its cause chain under the "error" metadata key.
func (c *Client) ErrorWithError(ctx context.Context, service, message string, err error) error {
	return c.Log(ctx, Record{
		Service:  service,
		Level:    LevelError,
		Message:  message,
		Metadata: map[string]any{"error": NewErrorDetail(err)},
	})
}

// CriticalWithError queues a critical-level record carrying err, serialized
// with its cause chain under the "error" metadata key.
func (c *Client) CriticalWithError(ctx context.Context, service, message string, err error) error {
	return c.Log(ctx, Record{
		Service:  service,
		Level:    LevelCritical,
		Message:  message,
		Metadata: map[string]any{"error": NewErrorDetail(err)},
	})
}

// Metrics returns an independent copy of the client's delivery counters.
func (c *Client) Metrics() Metrics {
	return c.metrics.snapshot()
}

// ResetMetrics zeroes the counters and clears the latency window.
func (c *Client) ResetMetrics() {
	c.metrics.reset()
}

// Flush synchronously drains the buffer once and attempts delivery of the
// snapshot. Only cancellation of ctx surfaces as an error; send failures are
// visible through Metrics. A cancelled flush does not restore the drained
// records.
func (c *Client) Flush(ctx context.Context) error {
	return c.flushOnce(ctx)
}

// Close stops the background flush loop, waits for in-flight size-triggered
// flushes, and performs one final synchronous flush. After Close, Log
// returns ErrClosed. Close is idempotent.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.stop)
		<-c.done
		_ = c.flushes.Wait()
		_ = c.flushOnce(context.Background())
		c.httpc.CloseIdleConnections()
		c.logger.Debug("client closed")
	})
	return nil
}

// asyncFlush runs one flush on a background goroutine, skipping it when
// every flush slot is already busy.
func (c *Client) asyncFlush() {
	started := c.flushes.TryGo(func() error {
		_ = c.flushOnce(context.Background())
		return nil
	})
	if !started {
		c.logger.Debug("flush slots busy, size trigger skipped")
	}
}

func firstMetadata(metadata []map[string]any) map[string]any {
	if len(metadata) == 0 {
		return nil
	}
	return metadata[0]
}
