// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full runtime configuration for both binaries.
type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	HealthPort  int    `env:"HEALTH_PORT" envDefault:"8080"`

	// Feed ingestion
	FeedURLs       []string      `env:"FEED_URLS" envSeparator:","`
	IngestInterval time.Duration `env:"INGEST_INTERVAL" envDefault:"15m"`
	IngestRPS      float64       `env:"INGEST_RPS" envDefault:"2"`
	FetchContent   bool          `env:"FETCH_CONTENT" envDefault:"true"`
	UserAgent      string        `env:"USER_AGENT"`

	// Article analysis
	NLPModel       string        `env:"NLP_MODEL" envDefault:"en_core_web_sm"`
	BatchInterval  time.Duration `env:"BATCH_INTERVAL" envDefault:"1m"`
	BatchSize      int           `env:"BATCH_SIZE" envDefault:"10"`
	ContextWindow  int           `env:"CONTEXT_WINDOW" envDefault:"2"`
	StuckThreshold time.Duration `env:"STUCK_THRESHOLD" envDefault:"30m"`

	// Entity resolution
	SimilarityThreshold float64 `env:"SIMILARITY_THRESHOLD" envDefault:"0.85"`

	// Trend detection
	TrendInterval         time.Duration `env:"TREND_INTERVAL" envDefault:"1h"`
	TrendLookbackDays     int           `env:"TREND_LOOKBACK_DAYS" envDefault:"7"`
	TrendBaselineDays     int           `env:"TREND_BASELINE_DAYS" envDefault:"30"`
	SignificanceThreshold float64       `env:"SIGNIFICANCE_THRESHOLD" envDefault:"1.5"`
	MinMentions           int           `env:"MIN_MENTIONS" envDefault:"3"`
	MaxTrends             int           `env:"MAX_TRENDS" envDefault:"10"`
	TrendExpiry           time.Duration `env:"TREND_EXPIRY" envDefault:"168h"`

	// Sentiment shift detection
	ShiftThreshold float64 `env:"SHIFT_THRESHOLD" envDefault:"0.3"`
}

// Load reads configuration from the environment. A missing .env file is not
// an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
