package logtide

import (
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Defaults applied by New for zero-valued optional Config fields.
const (
	DefaultBatchSize        = 100
	DefaultFlushInterval    = 5 * time.Second
	DefaultMaxBufferSize    = 10000
	DefaultMaxRetries       = 3
	DefaultRetryDelay       = time.Second
	DefaultBreakerThreshold = 5
	DefaultBreakerReset     = 30 * time.Second
	DefaultHTTPTimeout      = 30 * time.Second
)

// Config controls a Client. Endpoint and APIKey are required; every other
// zero-valued field is replaced with its default at construction. A Config
// is copied by New and never read again, so mutating it afterwards has no
// effect on the client.
type Config struct {
	// Endpoint is the base URL of the ingestion server. A trailing slash is
	// stripped.
	Endpoint string
	// APIKey is sent as X-API-Key on every outbound request.
	APIKey string

	// BatchSize is the buffer length that triggers an immediate flush.
	BatchSize int
	// FlushInterval is the period of the background flush loop.
	FlushInterval time.Duration
	// MaxBufferSize caps the number of buffered records; further Log calls
	// fail with ErrBufferFull until a flush drains the buffer.
	MaxBufferSize int
	// MaxRetries is the number of additional delivery attempts per batch.
	// Zero means the default; a negative value disables retries.
	MaxRetries int
	// RetryDelay is the initial backoff between attempts; it doubles after
	// every failure.
	RetryDelay time.Duration
	// BreakerThreshold is the consecutive failure count that opens the
	// circuit breaker.
	BreakerThreshold int
	// BreakerReset is how long the breaker stays open before admitting a
	// trial request.
	BreakerReset time.Duration
	// HTTPTimeout bounds every outbound HTTP request.
	HTTPTimeout time.Duration

	// GlobalMetadata is merged into every record's metadata; keys the caller
	// already set win.
	GlobalMetadata map[string]any
	// AutoTraceID generates a fresh trace ID for records that have none and
	// for which neither the client's trace context nor the call's context
	// supplies one.
	AutoTraceID bool
	// Compress gzips the ingest payload and sets Content-Encoding: gzip.
	Compress bool
	// DisableMetrics turns off the metrics register; snapshots then read
	// all-zero.
	DisableMetrics bool
	// Debug enables diagnostic logging to stderr when no Logger is given.
	Debug bool

	// Logger receives the client's own diagnostics. When nil, diagnostics go
	// to stderr if Debug is set and are discarded otherwise.
	Logger *slog.Logger
	// Registerer, when set, mirrors the client metrics as Prometheus
	// collectors registered against it.
	Registerer prometheus.Registerer
}

// withDefaults validates cfg and returns a copy with defaults applied.
func (cfg Config) withDefaults() (Config, error) {
	if cfg.Endpoint == "" {
		return Config{}, ErrMissingEndpoint
	}
	if cfg.APIKey == "" {
		return Config{}, ErrMissingAPIKey
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if cfg.GlobalMetadata != nil {
		md := make(map[string]any, len(cfg.GlobalMetadata))
		for k, v := range cfg.GlobalMetadata {
			md[k] = v
		}
		cfg.GlobalMetadata = md
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.MaxBufferSize < 1 {
		cfg.MaxBufferSize = DefaultMaxBufferSize
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	} else if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.BreakerThreshold < 1 {
		cfg.BreakerThreshold = DefaultBreakerThreshold
	}
	if cfg.BreakerReset <= 0 {
		cfg.BreakerReset = DefaultBreakerReset
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = DefaultHTTPTimeout
	}
	return cfg, nil
}
