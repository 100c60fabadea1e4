// Command hunter searches for 3x3 magic squares whose cells are perfect
// powers, most famously squares (the Parker square problem).
//
// Magic numbers to search are given as positional arguments: a plain number
// searches that single target, a "from-to" pair walks the whole range. A
// single range is split across the worker pool.
//
// Usage:
//
//	go run ./cmd/hunter [-config configs/development.yaml] 21609 3000-4000
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/numbermill/squarehunt/internal/checkpoint"
	"github.com/numbermill/squarehunt/internal/hunt"
	"github.com/numbermill/squarehunt/internal/results"
	"github.com/numbermill/squarehunt/pkg/config"
	"github.com/numbermill/squarehunt/pkg/health"
	"github.com/numbermill/squarehunt/pkg/logger"
	"github.com/numbermill/squarehunt/pkg/metrics"
	"github.com/numbermill/squarehunt/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	power := flag.Int("power", 0, "exponent for grid values (1 = plain magic squares, 2 = squares)")
	mode := flag.String("mode", "", "plan family: auto, brute or dual")
	processes := flag.Int("processes", 0, "number of concurrent searches")
	exhaustive := flag.Bool("exhaustive", false, "keep searching after the first solution")
	outputDir := flag.String("output", "", "directory for per-number result files")
	outputMode := flag.String("outmode", "", "output mode: f (file), s (screen) or b (both)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg, power, mode, processes, exhaustive, outputDir, outputMode)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	numbers, ranges, err := parseTargets(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		flag.Usage()
		os.Exit(2)
	}
	if len(numbers) == 0 && len(ranges) == 0 {
		fmt.Fprintln(os.Stderr, "no magic numbers given")
		flag.Usage()
		os.Exit(2)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting hunter",
		"power", cfg.Hunt.Power,
		"mode", cfg.Hunt.Mode,
		"processes", cfg.Hunt.Processes,
		"numbers", len(numbers),
		"ranges", len(ranges),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Output.Directory == "" {
		cfg.Output.Directory = "parker"
	}
	sink, err := results.NewSink(cfg.Output)
	if err != nil {
		slog.Error("failed to set up output", "error", err)
		os.Exit(1)
	}
	defer sink.Close()

	checker := health.NewChecker()

	var redisClient *redis.Client
	var store checkpoint.Store
	if cfg.Checkpoint.Enabled {
		store, redisClient, err = buildStore(cfg)
		if err != nil {
			slog.Error("failed to set up checkpointing", "error", err)
			os.Exit(1)
		}
		if redisClient != nil {
			defer redisClient.Close()
			checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
				if err := redisClient.Ping(ctx); err != nil {
					return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
				}
				return health.ComponentHealth{Status: health.StatusUp}
			})
		}
	}

	var publisher *results.Publisher
	if cfg.Kafka.Enabled {
		publisher = results.NewPublisher(cfg.Kafka)
		defer publisher.Close()
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdown := metrics.StartServer(cfg.Metrics.Port, checker)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}()
	}

	hunter := hunt.New(cfg, sink, store, publisher, m)
	if err := hunter.Run(ctx, numbers, ranges); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("hunter interrupted, state saved")
			return
		}
		slog.Error("hunter failed", "error", err)
		os.Exit(1)
	}
	slog.Info("hunter finished")
}

// applyFlags overrides config values with explicitly set command-line flags.
func applyFlags(cfg *config.Config, power *int, mode *string, processes *int, exhaustive *bool, outputDir, outputMode *string) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "power":
			cfg.Hunt.Power = *power
		case "mode":
			cfg.Hunt.Mode = *mode
		case "processes":
			cfg.Hunt.Processes = *processes
		case "exhaustive":
			cfg.Hunt.Exhaustive = *exhaustive
		case "output":
			cfg.Output.Directory = *outputDir
		case "outmode":
			cfg.Output.Mode = *outputMode
		}
	})
}

// parseTargets classifies positional arguments into single numbers and
// inclusive ranges written as "from-to".
func parseTargets(args []string) ([]uint64, []hunt.Range, error) {
	var numbers []uint64
	var ranges []hunt.Range
	for _, arg := range args {
		if from, to, found := strings.Cut(arg, "-"); found {
			lo, err := strconv.ParseUint(from, 10, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid range %q: %v", arg, err)
			}
			hi, err := strconv.ParseUint(to, 10, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid range %q: %v", arg, err)
			}
			if hi < lo {
				return nil, nil, fmt.Errorf("invalid range %q: end before start", arg)
			}
			ranges = append(ranges, hunt.Range{From: lo, To: hi})
			continue
		}
		n, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid magic number %q: %v", arg, err)
		}
		numbers = append(numbers, n)
	}
	return numbers, ranges, nil
}

// buildStore creates the configured checkpoint backend. The redis client is
// returned too so the caller can close it and register its health check.
func buildStore(cfg *config.Config) (checkpoint.Store, *redis.Client, error) {
	if cfg.Checkpoint.Backend == "redis" {
		client, err := redis.NewClient(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return checkpoint.NewRedisStore(client), client, nil
	}
	dir := cfg.Checkpoint.Directory
	if dir == "" {
		dir = cfg.Output.Directory
	}
	store, err := checkpoint.NewFileStore(dir)
	if err != nil {
		return nil, nil, err
	}
	return store, nil, nil
}
