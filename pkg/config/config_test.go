package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoadDefaults checks that an empty path yields the built-in defaults.
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Hunt.Power != 2 || cfg.Hunt.Mode != "auto" {
		t.Errorf("default hunt config = %+v", cfg.Hunt)
	}
	if cfg.Hunt.EngineSaveEvery != 100_000_000 {
		t.Errorf("EngineSaveEvery = %d, want 100000000", cfg.Hunt.EngineSaveEvery)
	}
	if cfg.Kafka.Topics.SolutionFound != "squares.solution-found" {
		t.Errorf("solution topic = %q", cfg.Kafka.Topics.SolutionFound)
	}
}

// TestLoadFileAndEnvOverride checks YAML values load and SH_* variables win
// over the file.
func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
hunt:
  power: 3
  mode: brute
  processes: 4
output:
  mode: f
  directory: /tmp/squares
logging:
  level: debug
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SH_HUNT_MODE", "auto")
	t.Setenv("SH_LOGGING_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Hunt.Power != 3 || cfg.Hunt.Processes != 4 {
		t.Errorf("file values not applied: %+v", cfg.Hunt)
	}
	if cfg.Hunt.Mode != "auto" {
		t.Errorf("env override lost: mode = %q", cfg.Hunt.Mode)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("env override lost: level = %q", cfg.Logging.Level)
	}
	if cfg.Output.Directory != "/tmp/squares" {
		t.Errorf("output directory = %q", cfg.Output.Directory)
	}
}

// TestValidateRejections exercises the validation failures.
func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero power", func(c *Config) { c.Hunt.Power = 0 }},
		{"unknown mode", func(c *Config) { c.Hunt.Mode = "magic" }},
		{"dual with wrong power", func(c *Config) { c.Hunt.Mode = "dual"; c.Hunt.Power = 3 }},
		{"zero processes", func(c *Config) { c.Hunt.Processes = 0 }},
		{"bad output mode", func(c *Config) { c.Output.Mode = "x" }},
		{"bad checkpoint backend", func(c *Config) { c.Checkpoint.Backend = "s3" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("Validate accepted an invalid config")
			}
		})
	}
}

// TestPostgresDSN checks the lib/pq connection string shape.
func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{
		Host: "db", Port: 5432, User: "hunt", Password: "pw",
		Database: "squares", SSLMode: "disable",
	}
	want := "host=db port=5432 user=hunt password=pw dbname=squares sslmode=disable"
	if got := p.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
