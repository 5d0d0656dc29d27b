package logtide

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingEndpoint is returned by New when the config has no endpoint.
	ErrMissingEndpoint = errors.New("logtide: endpoint is required")
	// ErrMissingAPIKey is returned by New when the config has no API key.
	ErrMissingAPIKey = errors.New("logtide: api key is required")
	// ErrEmptyService is returned by Log for a record without a service name.
	ErrEmptyService = errors.New("logtide: record service is empty")
	// ErrBufferFull is returned by Log when the buffer is at capacity.
	// The offending record is dropped and counted in Metrics.LogsDropped.
	ErrBufferFull = errors.New("logtide: buffer full")
	// ErrClosed is returned by Log after Close.
	ErrClosed = errors.New("logtide: client closed")
)

// APIError reports a non-2xx response, or a response body the client could
// not decode, from the ingestion server.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("logtide: api error: status %d: %s", e.Status, e.Body)
}
