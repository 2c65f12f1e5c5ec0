package config

import (
	"io/fs"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	unsetAll(t, "PORT", "APP_ENV", "LOG_FORMAT", "BEACON_LOG_FILE", "BEACON_LOG_FILE_MODE", "TRUST_PROXY_HEADERS", "METRICS_ENABLED", "BEACON_TIMEZONE")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "tracking.log", cfg.LogFile)
	assert.Equal(t, fs.FileMode(0o644), cfg.LogFileMode)
	assert.False(t, cfg.TrustProxyHeaders)
	assert.True(t, cfg.MetricsEnabled)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "console", cfg.LogFormat)
	assert.NoError(t, cfg.Validate())
}

func TestLoadProductionLogFormat(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	t.Run("defaults to json", func(t *testing.T) {
		unsetAll(t, "LOG_FORMAT")
		cfg := Load()
		assert.True(t, cfg.IsProduction())
		assert.Equal(t, "json", cfg.LogFormat)
	})

	t.Run("explicit format wins", func(t *testing.T) {
		t.Setenv("LOG_FORMAT", "console")
		assert.Equal(t, "console", Load().LogFormat)
	})
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("BEACON_LOG_FILE", "/var/log/beacon/visits.log")
	t.Setenv("BEACON_LOG_FILE_MODE", "0640")
	t.Setenv("TRUST_PROXY_HEADERS", "true")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("BEACON_TIMEZONE", "UTC")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "/var/log/beacon/visits.log", cfg.LogFile)
	assert.Equal(t, fs.FileMode(0o640), cfg.LogFileMode)
	assert.True(t, cfg.TrustProxyHeaders)
	assert.False(t, cfg.MetricsEnabled)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestValidate(t *testing.T) {
	valid := Config{Port: "8080", LogFile: "tracking.log", LogFileMode: 0o644, TimeZone: "Local"}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"port not a number", func(c *Config) { c.Port = "abc" }, "invalid port"},
		{"port too high", func(c *Config) { c.Port = "70000" }, "invalid port"},
		{"port zero", func(c *Config) { c.Port = "0" }, "invalid port"},
		{"empty log file", func(c *Config) { c.LogFile = "" }, "BEACON_LOG_FILE"},
		{"zero mode", func(c *Config) { c.LogFileMode = 0 }, "invalid log file mode"},
		{"mode with type bits", func(c *Config) { c.LogFileMode = fs.ModeDir | 0o644 }, "invalid log file mode"},
		{"bad timezone", func(c *Config) { c.TimeZone = "Mars/Olympus" }, "invalid timezone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetFileModeInvalid(t *testing.T) {
	t.Setenv("BEACON_LOG_FILE_MODE", "rw-r--r--")
	assert.Equal(t, fs.FileMode(0), getFileMode("BEACON_LOG_FILE_MODE", 0o644))
}

func TestGetBoolInvalidFallsBack(t *testing.T) {
	t.Setenv("METRICS_ENABLED", "maybe")
	assert.True(t, getBool("METRICS_ENABLED", true))
}

// unsetAll removes keys for the duration of the test.
func unsetAll(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "") // registers the restore
		os.Unsetenv(key)
	}
}
