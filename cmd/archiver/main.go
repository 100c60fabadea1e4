// Command archiver consumes solution and outcome events from Kafka and
// persists them in Postgres, giving the ephemeral hunters a durable record.
//
// Usage:
//
//	go run ./cmd/archiver [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/numbermill/squarehunt/internal/results"
	"github.com/numbermill/squarehunt/pkg/config"
	"github.com/numbermill/squarehunt/pkg/health"
	"github.com/numbermill/squarehunt/pkg/kafka"
	"github.com/numbermill/squarehunt/pkg/logger"
	"github.com/numbermill/squarehunt/pkg/metrics"
	"github.com/numbermill/squarehunt/pkg/postgres"
	"github.com/numbermill/squarehunt/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting archiver",
		"brokers", cfg.Kafka.Brokers,
		"database", cfg.Postgres.Database,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pg.Close()

	archive := results.NewArchive(pg)
	err = resilience.WithTimeout(ctx, 30*time.Second, "archive-schema", func(ctx context.Context) error {
		return archive.Init(ctx)
	})
	if err != nil {
		slog.Error("failed to initialize archive schema", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	checker := health.NewChecker()
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if err := pg.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	shutdown := metrics.StartServer(cfg.Metrics.Port, checker)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown error", "error", err)
		}
	}()

	retryCfg := resilience.RetryConfig{MaxAttempts: 5, InitialDelay: 200 * time.Millisecond}
	// The breaker keeps a long Postgres outage from hammering the database
	// on every fetched message; uncommitted messages are replayed once it
	// closes again.
	breaker := resilience.NewCircuitBreaker("postgres", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     15 * time.Second,
	})

	solutions := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.SolutionFound,
		func(ctx context.Context, key, value []byte) error {
			ev, err := kafka.DecodeJSON[results.SolutionEvent](value)
			if err != nil {
				// A poison message would block the partition forever;
				// count it and move on.
				m.SolutionsArchived.WithLabelValues("invalid").Inc()
				slog.Error("dropping undecodable solution event", "key", string(key), "error", err)
				return nil
			}
			err = resilience.Retry(ctx, "archive-solution", retryCfg, func() error {
				return breaker.Execute(func() error {
					return archive.InsertSolution(ctx, ev)
				})
			})
			if err != nil {
				m.SolutionsArchived.WithLabelValues("failed").Inc()
				return err
			}
			m.SolutionsArchived.WithLabelValues("stored").Inc()
			slog.Info("solution archived", "magic_number", ev.Magic, "power", ev.Power)
			return nil
		})
	defer solutions.Close()

	outcomes := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.SearchOutcome,
		func(ctx context.Context, key, value []byte) error {
			ev, err := kafka.DecodeJSON[results.OutcomeEvent](value)
			if err != nil {
				slog.Error("dropping undecodable outcome event", "key", string(key), "error", err)
				return nil
			}
			return resilience.Retry(ctx, "archive-outcome", retryCfg, func() error {
				return breaker.Execute(func() error {
					return archive.UpsertOutcome(ctx, ev)
				})
			})
		})
	defer outcomes.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return solutions.Start(gctx) })
	g.Go(func() error { return outcomes.Start(gctx) })

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		slog.Error("archiver failed", "error", err)
		os.Exit(1)
	}
	slog.Info("archiver stopped")
}
