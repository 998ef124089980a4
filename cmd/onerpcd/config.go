package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// ListenConfig defines listener addresses. An empty address disables
// that listener.
type ListenConfig struct {
	HTTP string `toml:"http"`
	TCP  string `toml:"tcp"`
}

// CodecConfig selects structural codecs for the pipeline.
type CodecConfig struct {
	Buffer bool `toml:"buffer"`
}

// AuthConfig defines OIDC bearer-token settings. Auth is off when the
// issuer is empty.
type AuthConfig struct {
	Issuer   string `toml:"issuer"`
	ClientID string `toml:"clientID"`
}

// RateLimitConfig defines the request rate budget. Zero rps disables
// limiting.
type RateLimitConfig struct {
	RPS   float64 `toml:"rps"`
	Burst int     `toml:"burst"`
}

// LogConfig defines the call journal. An empty path disables it.
type LogConfig struct {
	SQLitePath string `toml:"sqlitePath"`
}

// MetricsConfig defines Prometheus exposure.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// DiscoveryConfig defines etcd registration. Registration is off when
// no endpoints are listed.
type DiscoveryConfig struct {
	Endpoints []string `toml:"endpoints"`
	Prefix    string   `toml:"prefix"`
	TTL       int64    `toml:"ttl"`
}

// Config aggregates daemon configuration.
type Config struct {
	ServiceName string          `toml:"serviceName"`
	Listen      ListenConfig    `toml:"listen"`
	Codec       CodecConfig     `toml:"codec"`
	Auth        AuthConfig      `toml:"auth"`
	RateLimit   RateLimitConfig `toml:"rateLimit"`
	Log         LogConfig       `toml:"log"`
	Metrics     MetricsConfig   `toml:"metrics"`
	Discovery   DiscoveryConfig `toml:"discovery"`
}

// loadConfig reads a TOML config file. An empty path yields the
// built-in defaults.
func loadConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "onerpc"
	}
	if cfg.Listen.HTTP == "" && cfg.Listen.TCP == "" {
		cfg.Listen.HTTP = ":8080"
	}
	if cfg.Auth.Issuer != "" && cfg.Auth.ClientID == "" {
		return fmt.Errorf("auth.clientID required when auth.issuer is set")
	}
	if cfg.RateLimit.RPS < 0 {
		return fmt.Errorf("rateLimit.rps must not be negative")
	}
	if cfg.RateLimit.RPS > 0 && cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = int(cfg.RateLimit.RPS)
		if cfg.RateLimit.Burst < 1 {
			cfg.RateLimit.Burst = 1
		}
	}
	if len(cfg.Discovery.Endpoints) > 0 && cfg.Discovery.TTL <= 0 {
		cfg.Discovery.TTL = 10
	}
	return nil
}
