package logtide

import (
	"testing"
	"time"
)

func TestConfigDefaults(t *testing.T) {
	cfg, err := Config{Endpoint: "http://localhost:8080", APIKey: "k"}.withDefaults()
	if err != nil {
		t.Fatalf("withDefaults failed: %v", err)
	}

	if cfg.BatchSize != DefaultBatchSize {
		t.Errorf("BatchSize = %d, want %d", cfg.BatchSize, DefaultBatchSize)
	}
	if cfg.FlushInterval != DefaultFlushInterval {
		t.Errorf("FlushInterval = %v, want %v", cfg.FlushInterval, DefaultFlushInterval)
	}
	if cfg.MaxBufferSize != DefaultMaxBufferSize {
		t.Errorf("MaxBufferSize = %d, want %d", cfg.MaxBufferSize, DefaultMaxBufferSize)
	}
	if cfg.MaxRetries != DefaultMaxRetries {
		t.Errorf("MaxRetries = %d, want %d", cfg.MaxRetries, DefaultMaxRetries)
	}
	if cfg.RetryDelay != DefaultRetryDelay {
		t.Errorf("RetryDelay = %v, want %v", cfg.RetryDelay, DefaultRetryDelay)
	}
	if cfg.BreakerThreshold != DefaultBreakerThreshold {
		t.Errorf("BreakerThreshold = %d, want %d", cfg.BreakerThreshold, DefaultBreakerThreshold)
	}
	if cfg.BreakerReset != DefaultBreakerReset {
		t.Errorf("BreakerReset = %v, want %v", cfg.BreakerReset, DefaultBreakerReset)
	}
	if cfg.HTTPTimeout != DefaultHTTPTimeout {
		t.Errorf("HTTPTimeout = %v, want %v", cfg.HTTPTimeout, DefaultHTTPTimeout)
	}
	if cfg.DisableMetrics || cfg.AutoTraceID || cfg.Compress || cfg.Debug {
		t.Errorf("unexpected flag defaults: %+v", cfg)
	}
}

func TestConfigOverrides(t *testing.T) {
	in := Config{
		Endpoint:         "http://localhost:8080/",
		APIKey:           "k",
		BatchSize:        7,
		FlushInterval:    time.Second,
		MaxBufferSize:    50,
		MaxRetries:       -1,
		RetryDelay:       5 * time.Millisecond,
		BreakerThreshold: 2,
		BreakerReset:     time.Minute,
		HTTPTimeout:      3 * time.Second,
	}
	cfg, err := in.withDefaults()
	if err != nil {
		t.Fatalf("withDefaults failed: %v", err)
	}

	if cfg.Endpoint != "http://localhost:8080" {
		t.Errorf("Endpoint = %q, want trailing slash stripped", cfg.Endpoint)
	}
	if cfg.BatchSize != 7 || cfg.MaxBufferSize != 50 || cfg.BreakerThreshold != 2 {
		t.Errorf("overrides not preserved: %+v", cfg)
	}
	if cfg.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want negative mapped to 0", cfg.MaxRetries)
	}
}
