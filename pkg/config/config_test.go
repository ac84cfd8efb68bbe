package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
service_name = "pricing-test"

[http]
port = 9000

[pricing]
default_steps = 800
cache_ttl = 60
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServiceName != "pricing-test" || cfg.HTTP.Port != 9000 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Pricing.DefaultSteps != 800 || cfg.Pricing.CacheTTLDuration() != time.Minute {
		t.Fatalf("pricing section: %+v", cfg.Pricing)
	}
	// 未设置的键回落到默认值
	if cfg.GRPC.Port != 50051 || cfg.Pricing.MonteCarloSeed != 12317 || cfg.Pricing.MonteCarloPartitions != 4 {
		t.Fatalf("defaults missing: grpc=%d pricing=%+v", cfg.GRPC.Port, cfg.Pricing)
	}
	if cfg.Pricing.MaxLatticeSteps != 20000 || cfg.Pricing.MaxResolution != 2000000 {
		t.Fatalf("resolution limits: %+v", cfg.Pricing)
	}
	if cfg.Kafka.Topic != "pricing.events" || cfg.RateLimit.Backend != "local" {
		t.Fatalf("defaults missing: kafka=%+v rate=%+v", cfg.Kafka, cfg.RateLimit)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "service_name = \"pricing\"\n")
	t.Setenv("APP_HTTP_PORT", "9100")
	t.Setenv("APP_PRICING_BATCH_CONCURRENCY", "2")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Port != 9100 || cfg.Pricing.BatchConcurrency != 2 {
		t.Fatalf("env override not applied: http=%d batch=%d", cfg.HTTP.Port, cfg.Pricing.BatchConcurrency)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServiceName != "pricing" || cfg.HTTP.Addr() != "0.0.0.0:8080" {
		t.Fatalf("defaults: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	path := writeConfig(t, `
service_name = "pricing"
[pricing]
max_resolution = 10
`)
	if _, err := Load(path); err == nil {
		t.Fatal("max_resolution below defaults should fail")
	}

	path = writeConfig(t, `
service_name = "pricing"
[pricing]
default_steps = 500
max_lattice_steps = 100
`)
	if _, err := Load(path); err == nil {
		t.Fatal("max_lattice_steps below default_steps should fail")
	}

	path = writeConfig(t, `
service_name = "pricing"
[database]
driver = "sqlite"
dsn = "file::memory:"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("unsupported driver should fail")
	}

	path = writeConfig(t, `
service_name = "pricing"
[rate_limit]
enabled = true
qps = 0
`)
	if _, err := Load(path); err == nil {
		t.Fatal("enabled rate limit without qps should fail")
	}
}
