package logtide

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// envConfig mirrors the Config fields that make sense as environment
// variables.
type envConfig struct {
	Endpoint         string        `env:"LOGTIDE_ENDPOINT,required"`
	APIKey           string        `env:"LOGTIDE_API_KEY,required"`
	BatchSize        int           `env:"LOGTIDE_BATCH_SIZE" envDefault:"100"`
	FlushInterval    time.Duration `env:"LOGTIDE_FLUSH_INTERVAL" envDefault:"5s"`
	MaxBufferSize    int           `env:"LOGTIDE_MAX_BUFFER_SIZE" envDefault:"10000"`
	MaxRetries       int           `env:"LOGTIDE_MAX_RETRIES" envDefault:"3"`
	RetryDelay       time.Duration `env:"LOGTIDE_RETRY_DELAY" envDefault:"1s"`
	BreakerThreshold int           `env:"LOGTIDE_BREAKER_THRESHOLD" envDefault:"5"`
	BreakerReset     time.Duration `env:"LOGTIDE_BREAKER_RESET" envDefault:"30s"`
	HTTPTimeout      time.Duration `env:"LOGTIDE_HTTP_TIMEOUT" envDefault:"30s"`
	AutoTraceID      bool          `env:"LOGTIDE_AUTO_TRACE_ID" envDefault:"false"`
	Compress         bool          `env:"LOGTIDE_COMPRESS" envDefault:"false"`
	EnableMetrics    bool          `env:"LOGTIDE_ENABLE_METRICS" envDefault:"true"`
	Debug            bool          `env:"LOGTIDE_DEBUG" envDefault:"false"`
}

// ConfigFromEnv builds a Config from LOGTIDE_* environment variables. A
// local .env file, when present, is loaded first for development use.
func ConfigFromEnv() (Config, error) {
	_ = godotenv.Load()

	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		return Config{}, fmt.Errorf("logtide: parse environment: %w", err)
	}

	return Config{
		Endpoint:         ec.Endpoint,
		APIKey:           ec.APIKey,
		BatchSize:        ec.BatchSize,
		FlushInterval:    ec.FlushInterval,
		MaxBufferSize:    ec.MaxBufferSize,
		MaxRetries:       ec.MaxRetries,
		RetryDelay:       ec.RetryDelay,
		BreakerThreshold: ec.BreakerThreshold,
		BreakerReset:     ec.BreakerReset,
		HTTPTimeout:      ec.HTTPTimeout,
		AutoTraceID:      ec.AutoTraceID,
		Compress:         ec.Compress,
		DisableMetrics:   !ec.EnableMetrics,
		Debug:            ec.Debug,
	}, nil
}
