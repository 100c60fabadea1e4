// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Hunt, Output, Checkpoint, Kafka, Postgres, Redis, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Hunt       HuntConfig       `yaml:"hunt"`
	Output     OutputConfig     `yaml:"output"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// HuntConfig controls the search itself: which plan family to use, how many
// workers run concurrently, and the engine's structural limits.
type HuntConfig struct {
	// Power is the exponent applied to grid values. 1 searches plain magic
	// squares, 2 searches magic squares of squares, and so on.
	Power int `yaml:"power"`
	// Mode selects the plan family: "auto" (optimized plan for the power),
	// "brute" (exhaustive, no symmetry breaking), or "dual" (dual-squares
	// enumeration, power 2 only).
	Mode string `yaml:"mode"`
	// Exhaustive keeps searching after the first solution.
	Exhaustive bool `yaml:"exhaustive"`
	// Processes bounds the worker pool. 1 runs everything inline.
	Processes int `yaml:"processes"`
	// MaxTableEntries caps the value-table size; a magic number whose table
	// would exceed it fails with a resource error instead of thrashing.
	MaxTableEntries int `yaml:"maxTableEntries"`
	// EngineSaveEvery is the number of engine loop iterations between
	// checkpoint flushes.
	EngineSaveEvery uint64 `yaml:"engineSaveEvery"`
	// WalkerSaveEvery is the number of candidate magic numbers between
	// range-checkpoint flushes.
	WalkerSaveEvery uint64 `yaml:"walkerSaveEvery"`
}

// OutputConfig controls where found squares and search logs are written.
type OutputConfig struct {
	// Directory for per-number output files. Empty means "<cwd>/parker".
	Directory string `yaml:"directory"`
	// Mode is "f" (file), "s" (screen) or "b" (both).
	Mode string `yaml:"mode"`
	// Verbose enables the per-number start/end log lines.
	Verbose bool `yaml:"verbose"`
}

// CheckpointConfig controls durable search-state snapshots.
type CheckpointConfig struct {
	Enabled bool `yaml:"enabled"`
	// Backend is "file" or "redis".
	Backend string `yaml:"backend"`
	// Directory for the file backend. Empty means the output directory.
	Directory string `yaml:"directory"`
}

// PostgresConfig holds PostgreSQL connection parameters for the solution
// archive.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings for result events.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	SolutionFound string `yaml:"solutionFound"`
	SearchOutcome string `yaml:"searchOutcome"`
}

// RedisConfig holds Redis connection parameters for the redis checkpoint
// backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"poolSize"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Hunt.Power < 1 {
		return fmt.Errorf("hunt.power must be >= 1, got %d", c.Hunt.Power)
	}
	switch c.Hunt.Mode {
	case "auto", "brute", "dual":
	default:
		return fmt.Errorf("hunt.mode must be auto, brute or dual, got %q", c.Hunt.Mode)
	}
	if c.Hunt.Mode == "dual" && c.Hunt.Power != 2 {
		return fmt.Errorf("hunt.mode dual requires power 2, got %d", c.Hunt.Power)
	}
	if c.Hunt.Processes < 1 {
		return fmt.Errorf("hunt.processes must be >= 1, got %d", c.Hunt.Processes)
	}
	switch c.Output.Mode {
	case "f", "s", "b":
	default:
		return fmt.Errorf("output.mode must be f, s or b, got %q", c.Output.Mode)
	}
	switch c.Checkpoint.Backend {
	case "file", "redis":
	default:
		return fmt.Errorf("checkpoint.backend must be file or redis, got %q", c.Checkpoint.Backend)
	}
	return nil
}

// defaultConfig returns the built-in defaults used when no file or
// environment override applies.
func defaultConfig() *Config {
	return &Config{
		Hunt: HuntConfig{
			Power:           2,
			Mode:            "auto",
			Exhaustive:      false,
			Processes:       1,
			MaxTableEntries: 200_000_000,
			EngineSaveEvery: 100_000_000,
			WalkerSaveEvery: 10_000_000,
		},
		Output: OutputConfig{
			Directory: "",
			Mode:      "s",
			Verbose:   true,
		},
		Checkpoint: CheckpointConfig{
			Enabled: false,
			Backend: "file",
		},
		Postgres: PostgresConfig{
			Enabled:         false,
			Host:            "localhost",
			Port:            5432,
			Database:        "squarehunt",
			User:            "squarehunt",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Enabled:       false,
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "squarehunt-group",
			Topics: KafkaTopics{
				SolutionFound: "squares.solution-found",
				SearchOutcome: "squares.search-outcome",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads SH_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SH_HUNT_POWER"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Hunt.Power = p
		}
	}
	if v := os.Getenv("SH_HUNT_MODE"); v != "" {
		cfg.Hunt.Mode = v
	}
	if v := os.Getenv("SH_HUNT_PROCESSES"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Hunt.Processes = p
		}
	}
	if v := os.Getenv("SH_OUTPUT_DIRECTORY"); v != "" {
		cfg.Output.Directory = v
	}
	if v := os.Getenv("SH_OUTPUT_MODE"); v != "" {
		cfg.Output.Mode = v
	}
	if v := os.Getenv("SH_CHECKPOINT_ENABLED"); v != "" {
		cfg.Checkpoint.Enabled = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("SH_CHECKPOINT_BACKEND"); v != "" {
		cfg.Checkpoint.Backend = v
	}
	if v := os.Getenv("SH_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SH_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("SH_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("SH_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("SH_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("SH_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SH_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SH_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SH_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SH_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("SH_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}
