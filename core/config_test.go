package core

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Port, DefaultPort)
	}
	if cfg.MaxBatchSize != DefaultMaxBatchSize {
		t.Errorf("MaxBatchSize = %d, want %d", cfg.MaxBatchSize, DefaultMaxBatchSize)
	}
	if cfg.WorkerCount != DefaultWorkerCount {
		t.Errorf("WorkerCount = %d, want %d", cfg.WorkerCount, DefaultWorkerCount)
	}
	if cfg.RateLimitWindow != time.Duration(DefaultRateWindowSeconds)*time.Second {
		t.Errorf("RateLimitWindow = %v, want 1h", cfg.RateLimitWindow)
	}
	if cfg.BackendKind != "stub" {
		t.Errorf("BackendKind = %q, want stub", cfg.BackendKind)
	}
	if cfg.StaticPrefix != "/static" {
		t.Errorf("StaticPrefix = %q, want /static", cfg.StaticPrefix)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("MAX_CONCURRENT", "4")
	t.Setenv("RATE_LIMIT_COUNT", "10")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("WorkerCount = %d, want 4", cfg.WorkerCount)
	}
	if cfg.RateLimitCount != 10 {
		t.Errorf("RateLimitCount = %d, want 10", cfg.RateLimitCount)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Port = 0 }},
		{"min above max size", func(c *Config) { c.MinImageSize = 4096 }},
		{"default size out of bounds", func(c *Config) { c.DefaultImageSize = 64 }},
		{"zero batch", func(c *Config) { c.MaxBatchSize = 0 }},
		{"zero workers", func(c *Config) { c.WorkerCount = 0 }},
		{"zero rate window", func(c *Config) { c.RateLimitWindow = 0 }},
		{"unknown backend", func(c *Config) { c.BackendKind = "diffusers" }},
		{"openai without endpoint", func(c *Config) { c.BackendKind = "openai" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}

	t.Run("openai backend with credentials", func(t *testing.T) {
		cfg := valid()
		cfg.BackendKind = "openai"
		cfg.RemoteBaseURL = "https://inference.example.com/v1"
		cfg.RemoteAPIKey = "key"
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() = %v, want nil", err)
		}
	})
}

func TestListenAddr(t *testing.T) {
	cfg := &Config{Host: "127.0.0.1", Port: 8000}
	if got := cfg.ListenAddr(); got != "127.0.0.1:8000" {
		t.Errorf("ListenAddr() = %q, want 127.0.0.1:8000", got)
	}
}
