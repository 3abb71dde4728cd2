package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string `env:"KASTLE_HTTP_ADDR" envDefault:":5000"`
	// GRPCAddr serves grpc.health.v1; empty disables it.
	GRPCAddr string `env:"KASTLE_GRPC_ADDR"`

	Env      string `env:"KASTLE_ENV" envDefault:"dev"` // "dev" | "prod"
	LogLevel string `env:"KASTLE_LOG_LEVEL" envDefault:"info"`

	DBPath    string `env:"KASTLE_DB_PATH" envDefault:"./data/kastle.db"`
	OutputDir string `env:"KASTLE_OUTPUT_DIR" envDefault:"./uploads"`

	MaxUploadMB        int `env:"KASTLE_MAX_UPLOAD_MB" envDefault:"32"`
	MaxParallelFiles   int `env:"KASTLE_MAX_PARALLEL_FILES" envDefault:"4"`
	RunRetentionDays   int `env:"KASTLE_RUN_RETENTION_DAYS" envDefault:"90"` // 0 = keep forever
	PruneIntervalHours int `env:"KASTLE_PRUNE_INTERVAL_HOURS" envDefault:"6"`

	// ColumnsFile optionally replaces the embedded header alias table.
	ColumnsFile string `env:"KASTLE_COLUMNS_FILE"`
}

// FromEnv parses KASTLE_* variables.  Out-of-range values fall back to their
// defaults rather than failing startup.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.Env != "dev" && c.Env != "prod" {
		c.Env = "dev"
	}
	if c.MaxUploadMB <= 0 {
		c.MaxUploadMB = 32
	}
	if c.MaxParallelFiles <= 0 {
		c.MaxParallelFiles = 4
	}
	if c.RunRetentionDays < 0 {
		c.RunRetentionDays = 90
	}
	if c.PruneIntervalHours <= 0 {
		c.PruneIntervalHours = 6
	}
}

// MaxUploadBytes is the request body cap for uploads.
func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}
