package config

import (
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	AppEnv            string
	LogFile           string
	LogFileMode       fs.FileMode
	TimeZone          string
	TrustProxyHeaders bool
	MetricsEnabled    bool
	LogLevel          string
	LogFormat         string
	ReportDatabaseURL string
}

func Load() *Config {
	_ = godotenv.Load() // Ignore error if .env not found (e.g. prod)

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		AppEnv:            getEnv("APP_ENV", "local"),
		LogFile:           getEnv("BEACON_LOG_FILE", "tracking.log"),
		LogFileMode:       getFileMode("BEACON_LOG_FILE_MODE", 0o644),
		TimeZone:          getEnv("BEACON_TIMEZONE", "Local"),
		TrustProxyHeaders: getBool("TRUST_PROXY_HEADERS", false),
		MetricsEnabled:    getBool("METRICS_ENABLED", true),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		ReportDatabaseURL: getEnv("REPORT_DATABASE_URL", "file:beacon-report?mode=memory&cache=shared"),
	}

	// Production logs are shipped, so they default to JSON.
	defaultFormat := "console"
	if cfg.IsProduction() {
		defaultFormat = "json"
	}
	cfg.LogFormat = getEnv("LOG_FORMAT", defaultFormat)

	return cfg
}

// Validate checks the values the server cannot start without.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	if c.LogFile == "" {
		return fmt.Errorf("BEACON_LOG_FILE must not be empty")
	}
	if c.LogFileMode == 0 || c.LogFileMode&^fs.ModePerm != 0 {
		return fmt.Errorf("invalid log file mode %o", c.LogFileMode)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves TimeZone. "Local" and "" mean the process zone.
func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" || c.TimeZone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}

// getFileMode parses an octal permission string such as "0640". Invalid
// values yield 0 so Validate can reject them.
func getFileMode(key string, fallback fs.FileMode) fs.FileMode {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	mode, err := strconv.ParseUint(value, 8, 32)
	if err != nil {
		return 0
	}
	return fs.FileMode(mode)
}
