package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ListenAddr     string
	MaxPagesLimit  int
	MaxConcurrency int
	OutputDir      string
	RequestTimeout time.Duration
	RetryAttempts  int
	RateLimit      int
	MaxBodyMB      int
	ScanTimeout    time.Duration
	Ports          []int
	SqlmapBin      string
	SqlmapTimeout  time.Duration
	UseSqlmap      bool
}

// Load reads settings from the environment with sane defaults. Every knob
// can be overridden, none is required.
func Load() Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("LISTEN_ADDR", ":8000")
	v.SetDefault("MAX_PAGES_LIMIT", 50)
	v.SetDefault("MAX_CONCURRENCY", 5)
	v.SetDefault("OUTPUT_DIR", "/tmp/scan_reports")
	v.SetDefault("REQUEST_TIMEOUT", "10s")
	v.SetDefault("RETRY_ATTEMPTS", 2)
	v.SetDefault("RATE_LIMIT", 0)
	v.SetDefault("MAX_BODY_MB", 10)
	v.SetDefault("SCAN_TIMEOUT", "300s")
	v.SetDefault("SQLMAP_BIN", "sqlmap")
	v.SetDefault("SQLMAP_TIMEOUT", "600s")
	v.SetDefault("USE_SQLMAP", true)

	return Config{
		ListenAddr:     v.GetString("LISTEN_ADDR"),
		MaxPagesLimit:  v.GetInt("MAX_PAGES_LIMIT"),
		MaxConcurrency: v.GetInt("MAX_CONCURRENCY"),
		OutputDir:      v.GetString("OUTPUT_DIR"),
		RequestTimeout: v.GetDuration("REQUEST_TIMEOUT"),
		RetryAttempts:  v.GetInt("RETRY_ATTEMPTS"),
		RateLimit:      v.GetInt("RATE_LIMIT"),
		MaxBodyMB:      v.GetInt("MAX_BODY_MB"),
		ScanTimeout:    v.GetDuration("SCAN_TIMEOUT"),
		Ports:          v.GetIntSlice("PORTS"),
		SqlmapBin:      v.GetString("SQLMAP_BIN"),
		SqlmapTimeout:  v.GetDuration("SQLMAP_TIMEOUT"),
		UseSqlmap:      v.GetBool("USE_SQLMAP"),
	}
}
