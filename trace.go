package logtide

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// traceContext holds the client's current trace identifier. It is scoped to
// the client, not to a goroutine: concurrent callers share it, and
// interleaved scoped overrides observe each other. Callers that need
// per-request isolation should carry the trace through a context.Context
// instead (see Log).
type traceContext struct {
	mu sync.Mutex
	id string
}

func (t *traceContext) get() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.id
}

func (t *traceContext) set(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.id = id
}

// NewTraceID returns a random 128-bit identifier in UUID form.
func NewTraceID() string {
	return uuid.NewString()
}

// TraceID returns the client's current trace identifier, or "" when none is
// set.
func (c *Client) TraceID() string {
	return c.trace.get()
}

// SetTraceID sets the client's current trace identifier. An empty string
// clears it.
func (c *Client) SetTraceID(id string) {
	c.trace.set(id)
}

// WithTraceID runs fn with the client's trace identifier set to id, then
// restores the previous value, even when fn panics.
func (c *Client) WithTraceID(id string, fn func()) {
	prev := c.trace.get()
	c.trace.set(id)
	defer c.trace.set(prev)
	fn()
}

// WithNewTraceID generates a fresh trace identifier and runs fn under it,
// restoring the previous value afterwards.
func (c *Client) WithNewTraceID(fn func()) {
	c.WithTraceID(NewTraceID(), fn)
}

// traceIDFromContext returns the trace ID of a valid OpenTelemetry span
// carried in ctx, or "".
func traceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}
