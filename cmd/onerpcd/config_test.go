package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServiceName != "onerpc" {
		t.Errorf("got service name %q, want %q", cfg.ServiceName, "onerpc")
	}
	if cfg.Listen.HTTP != ":8080" {
		t.Errorf("got http addr %q, want %q", cfg.Listen.HTTP, ":8080")
	}
	if cfg.Listen.TCP != "" {
		t.Errorf("got tcp addr %q, want none", cfg.Listen.TCP)
	}
}

func TestLoadConfigFile(t *testing.T) {
	raw := `
serviceName = "calc"

[listen]
http = ":9000"
tcp = ":9001"

[codec]
buffer = true

[auth]
issuer = "https://issuer.example.com"
clientID = "calc-api"

[rateLimit]
rps = 50.0
burst = 100

[log]
sqlitePath = "/tmp/calls.db"

[metrics]
enabled = true

[discovery]
endpoints = ["localhost:2379"]
prefix = "/svc"
ttl = 15
`
	path := filepath.Join(t.TempDir(), "onerpcd.toml")
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServiceName != "calc" {
		t.Errorf("got service name %q, want %q", cfg.ServiceName, "calc")
	}
	if cfg.Listen.HTTP != ":9000" || cfg.Listen.TCP != ":9001" {
		t.Errorf("got listen %+v", cfg.Listen)
	}
	if !cfg.Codec.Buffer {
		t.Error("buffer codec not enabled")
	}
	if cfg.Auth.Issuer != "https://issuer.example.com" || cfg.Auth.ClientID != "calc-api" {
		t.Errorf("got auth %+v", cfg.Auth)
	}
	if cfg.RateLimit.RPS != 50.0 || cfg.RateLimit.Burst != 100 {
		t.Errorf("got rate limit %+v", cfg.RateLimit)
	}
	if cfg.Log.SQLitePath != "/tmp/calls.db" {
		t.Errorf("got log path %q", cfg.Log.SQLitePath)
	}
	if !cfg.Metrics.Enabled {
		t.Error("metrics not enabled")
	}
	want := DiscoveryConfig{Endpoints: []string{"localhost:2379"}, Prefix: "/svc", TTL: 15}
	if !reflect.DeepEqual(cfg.Discovery, want) {
		t.Errorf("got discovery %+v, want %+v", cfg.Discovery, want)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name:    "issuer without client id",
			cfg:     Config{Auth: AuthConfig{Issuer: "https://issuer.example.com"}},
			wantErr: true,
		},
		{
			name:    "negative rps",
			cfg:     Config{RateLimit: RateLimitConfig{RPS: -1}},
			wantErr: true,
		},
		{
			name: "burst derived from rps",
			cfg:  Config{RateLimit: RateLimitConfig{RPS: 25}},
			check: func(t *testing.T, cfg *Config) {
				if cfg.RateLimit.Burst != 25 {
					t.Errorf("got burst %d, want 25", cfg.RateLimit.Burst)
				}
			},
		},
		{
			name: "fractional rps keeps burst of one",
			cfg:  Config{RateLimit: RateLimitConfig{RPS: 0.5}},
			check: func(t *testing.T, cfg *Config) {
				if cfg.RateLimit.Burst != 1 {
					t.Errorf("got burst %d, want 1", cfg.RateLimit.Burst)
				}
			},
		},
		{
			name: "discovery ttl defaulted",
			cfg:  Config{Discovery: DiscoveryConfig{Endpoints: []string{"localhost:2379"}}},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Discovery.TTL != 10 {
					t.Errorf("got ttl %d, want 10", cfg.Discovery.TTL)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("validate: %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, &tt.cfg)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
