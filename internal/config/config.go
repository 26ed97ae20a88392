package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "SCANCORE"

// Config holds runtime settings for the scan-core service.
type Config struct {
	ListenAddr     string
	DataDir        string
	ExecutorURL    string
	ExecutorAPIKey string

	StatusTimeout  time.Duration
	ResultsTimeout time.Duration
	CancelTimeout  time.Duration
	EnqueueTimeout time.Duration
	DNSCacheTTL    time.Duration

	LogLevel  string
	LogFormat string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", "127.0.0.1:9001")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("executor_url", "")
	v.SetDefault("executor_api_key", "")
	v.SetDefault("status_timeout", 10*time.Second)
	v.SetDefault("results_timeout", 30*time.Second)
	v.SetDefault("cancel_timeout", 10*time.Second)
	v.SetDefault("enqueue_timeout", 30*time.Second)
	v.SetDefault("dns_cache_ttl", 5*time.Minute)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "auto")
}

// Load reads configuration from an optional .env file, SCANCORE_* environment
// variables and any flags bound from flags. Flags win over the environment.
func Load(flags *pflag.FlagSet) (*Config, error) {
	// Best-effort .env loading (not required)
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = fmt.Errorf("bind flag %s: %w", f.Name, err)
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	cfg := &Config{
		ListenAddr:     strings.TrimSpace(v.GetString("listen_addr")),
		DataDir:        strings.TrimSpace(v.GetString("data_dir")),
		ExecutorURL:    strings.TrimRight(strings.TrimSpace(v.GetString("executor_url")), "/"),
		ExecutorAPIKey: strings.TrimSpace(v.GetString("executor_api_key")),
		StatusTimeout:  v.GetDuration("status_timeout"),
		ResultsTimeout: v.GetDuration("results_timeout"),
		CancelTimeout:  v.GetDuration("cancel_timeout"),
		EnqueueTimeout: v.GetDuration("enqueue_timeout"),
		DNSCacheTTL:    v.GetDuration("dns_cache_ttl"),
		LogLevel:       v.GetString("log_level"),
		LogFormat:      v.GetString("log_format"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks required settings and value ranges.
func (c *Config) Validate() error {
	if c.ExecutorURL == "" {
		return fmt.Errorf("missing required environment variable: %s_EXECUTOR_URL", envPrefix)
	}
	parsed, err := url.Parse(c.ExecutorURL)
	if err != nil {
		return fmt.Errorf("executor_url must be a valid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("executor_url must use http or https scheme")
	}
	if parsed.Host == "" {
		return fmt.Errorf("executor_url must include a host")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}

	timeouts := map[string]time.Duration{
		"status_timeout":  c.StatusTimeout,
		"results_timeout": c.ResultsTimeout,
		"cancel_timeout":  c.CancelTimeout,
		"enqueue_timeout": c.EnqueueTimeout,
	}
	for name, d := range timeouts {
		if d <= 0 {
			return fmt.Errorf("%s must be greater than 0, got %s", name, d)
		}
	}
	return nil
}
