package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SCANCORE_EXECUTOR_URL", "http://127.0.0.1:5000/")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:5000", cfg.ExecutorURL)
	assert.Equal(t, "127.0.0.1:9001", cfg.ListenAddr)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, 10*time.Second, cfg.StatusTimeout)
	assert.Equal(t, 30*time.Second, cfg.ResultsTimeout)
	assert.Equal(t, 10*time.Second, cfg.CancelTimeout)
	assert.Equal(t, 5*time.Minute, cfg.DNSCacheTTL)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SCANCORE_EXECUTOR_URL", "https://executor.internal")
	t.Setenv("SCANCORE_EXECUTOR_API_KEY", "secret")
	t.Setenv("SCANCORE_STATUS_TIMEOUT", "3s")
	t.Setenv("SCANCORE_LOG_LEVEL", "debug")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.ExecutorAPIKey)
	assert.Equal(t, 3*time.Second, cfg.StatusTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadFlagsWinOverEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SCANCORE_EXECUTOR_URL", "http://from-env:5000")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("executor-url", "", "")
	fs.String("listen-addr", "", "")
	require.NoError(t, fs.Parse([]string{"--executor-url", "http://from-flag:5000", "--listen-addr", ":8080"}))

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, "http://from-flag:5000", cfg.ExecutorURL)
	assert.Equal(t, ":8080", cfg.ListenAddr)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			ListenAddr:     ":9001",
			DataDir:        "/tmp",
			ExecutorURL:    "http://executor:5000",
			StatusTimeout:  time.Second,
			ResultsTimeout: time.Second,
			CancelTimeout:  time.Second,
			EnqueueTimeout: time.Second,
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing executor url", func(c *Config) { c.ExecutorURL = "" }},
		{"bad scheme", func(c *Config) { c.ExecutorURL = "ftp://executor" }},
		{"no host", func(c *Config) { c.ExecutorURL = "http://" }},
		{"empty listen addr", func(c *Config) { c.ListenAddr = "" }},
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"zero status timeout", func(c *Config) { c.StatusTimeout = 0 }},
		{"negative cancel timeout", func(c *Config) { c.CancelTimeout = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
