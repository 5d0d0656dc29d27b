package logtide

import (
	"errors"
	"fmt"
	"time"
)

// Record is one structured log entry. Service is required; the client stamps
// a zero Time and fills a missing TraceID when it has a trace source (see
// Client.Log).
type Record struct {
	Service  string         `json:"service"`
	Level    Level          `json:"level"`
	Message  string         `json:"message"`
	Time     time.Time      `json:"time"`
	Metadata map[string]any `json:"metadata,omitempty"`
	TraceID  string         `json:"trace_id,omitempty"`
}

// ingestPayload is the body of POST /api/v1/ingest.
type ingestPayload struct {
	Logs []Record `json:"logs"`
}

// ErrorDetail is the serialized form of an error attached to a record under
// the "error" metadata key. Cause follows the error's Unwrap chain.
type ErrorDetail struct {
	Name    string       `json:"name"`
	Message string       `json:"message"`
	Stack   string       `json:"stack,omitempty"`
	Cause   *ErrorDetail `json:"cause,omitempty"`
}

// maxCauseDepth bounds the Unwrap chain so a cyclic error cannot recurse
// forever.
const maxCauseDepth = 32

// NewErrorDetail serializes err and its cause chain. It returns nil for a
// nil error.
func NewErrorDetail(err error) *ErrorDetail {
	return newErrorDetail(err, maxCauseDepth)
}

func newErrorDetail(err error, depth int) *ErrorDetail {
	if err == nil || depth <= 0 {
		return nil
	}

	d := &ErrorDetail{
		Name:    fmt.Sprintf("%T", err),
		Message: err.Error(),
	}

	var pe *panicError
	if errors.As(err, &pe) {
		d.Name = "panic"
		d.Stack = string(pe.stack)
		return d
	}

	if cause := errors.Unwrap(err); cause != nil {
		d.Cause = newErrorDetail(cause, depth-1)
	}
	return d
}

// panicError carries a recovered panic value and the stack captured at the
// recovery site, so the middleware can report it like any other error.
type panicError struct {
	value any
	stack []byte
}

func (p *panicError) Error() string {
	return fmt.Sprintf("%v", p.value)
}
