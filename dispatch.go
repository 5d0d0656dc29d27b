package logtide

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/logtide-dev/logtide-go/breaker"
)

// maxErrorBodyBytes caps how much of a failure response is read into the
// error message.
const maxErrorBodyBytes = 4 << 10

// runFlushLoop drains the buffer every FlushInterval until Close.
func (c *Client) runFlushLoop() {
	defer close(c.done)
	ticker := time.NewTicker(c.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.flushOnce(context.Background())
		case <-c.stop:
			return
		}
	}
}

// flushOnce snapshots the buffer and runs the retry loop for the snapshot.
// The buffer mutex is released before any I/O; concurrent flushes each
// operate on their own snapshot.
func (c *Client) flushOnce(ctx context.Context) error {
	batch := c.buf.TakeAll()
	if len(batch) == 0 {
		return nil
	}
	return c.sendBatch(ctx, batch)
}

// sendBatch attempts delivery of batch with exponential backoff, consulting
// the breaker before every attempt. Records that cannot be delivered are
// dropped and accounted in the metrics register; the only error sendBatch
// returns is cancellation of ctx.
//
// The breaker-trip counter increments both when an open breaker
// short-circuits a batch and when exhausted retries leave the breaker open,
// so one logical outage can count more than once.
func (c *Client) sendBatch(ctx context.Context, batch []Record) error {
	delay := c.cfg.RetryDelay

	for attempt := 0; ; attempt++ {
		if !c.brk.CanAttempt() {
			c.metrics.addDropped(len(batch))
			c.metrics.addTrip()
			c.logger.Warn("breaker open, dropping batch", "count", len(batch))
			return nil
		}

		start := time.Now()
		err := c.postBatch(ctx, batch)
		if err == nil {
			c.metrics.observeLatency(time.Since(start))
			c.brk.RecordSuccess()
			c.metrics.addSent(len(batch))
			c.logger.Debug("batch delivered", "count", len(batch), "attempt", attempt+1)
			return nil
		}
		if ctx.Err() != nil {
			c.metrics.addDropped(len(batch))
			return ctx.Err()
		}

		c.brk.RecordFailure()
		c.metrics.addError()
		c.logger.Warn("batch send failed", "attempt", attempt+1, "count", len(batch), "error", err)

		if attempt >= c.cfg.MaxRetries {
			break
		}
		c.metrics.addRetry()
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			c.metrics.addDropped(len(batch))
			return ctx.Err()
		}
		delay *= 2
	}

	c.metrics.addDropped(len(batch))
	if c.brk.State() == breaker.Open {
		c.metrics.addTrip()
	}
	c.logger.Error("batch dropped after retries", "count", len(batch))
	return nil
}

// postBatch performs one HTTP POST of the serialized batch.
func (c *Client) postBatch(ctx context.Context, batch []Record) error {
	payload, err := json.Marshal(ingestPayload{Logs: batch})
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	body := payload
	if c.cfg.Compress {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(payload); err != nil {
			return fmt.Errorf("compress batch: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("compress batch: %w", err)
		}
		body = buf.Bytes()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/api/v1/ingest", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build ingest request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.cfg.APIKey)
	if c.cfg.Compress {
		req.Header.Set("Content-Encoding", "gzip")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("post batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &APIError{Status: resp.StatusCode, Body: string(b)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
