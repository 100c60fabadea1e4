// Package hunt orchestrates the search for one or many magic numbers: it
// applies the number-theory pre-filters, builds the right value table and
// plan for the configured mode, drives the engine, and routes whatever the
// engine produces to sinks, event topics and metrics.
package hunt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/numbermill/squarehunt/internal/checkpoint"
	"github.com/numbermill/squarehunt/internal/engine"
	"github.com/numbermill/squarehunt/internal/numtheory"
	"github.com/numbermill/squarehunt/internal/results"
	"github.com/numbermill/squarehunt/internal/valuetable"
	"github.com/numbermill/squarehunt/pkg/config"
	apperrors "github.com/numbermill/squarehunt/pkg/errors"
	"github.com/numbermill/squarehunt/pkg/logger"
	"github.com/numbermill/squarehunt/pkg/metrics"
)

// Outcome classifies one finished magic-number search.
type Outcome string

const (
	OutcomeFound      Outcome = "found"
	OutcomeNotFound   Outcome = "not_found"
	OutcomeInfeasible Outcome = "infeasible"
)

// Hunter runs searches. Sink is required; Store, Publisher and Metrics are
// optional and nil disables the corresponding side effect.
type Hunter struct {
	cfg       *config.Config
	sink      results.Sink
	store     checkpoint.Store
	publisher *results.Publisher
	metrics   *metrics.Metrics
}

func New(cfg *config.Config, sink results.Sink, store checkpoint.Store, publisher *results.Publisher, m *metrics.Metrics) *Hunter {
	return &Hunter{
		cfg:       cfg,
		sink:      sink,
		store:     store,
		publisher: publisher,
		metrics:   m,
	}
}

// mode resolves the configured plan family for the configured power.
func (h *Hunter) mode() string {
	if h.cfg.Hunt.Mode == "auto" {
		if h.cfg.Hunt.Power == 1 {
			return "linear"
		}
		return "general"
	}
	return h.cfg.Hunt.Mode
}

// Search runs the complete search for one magic number. It returns
// OutcomeInfeasible without error when a pre-filter rejects the number; an
// error return means the search could not run or complete, including context
// cancellation after a checkpoint flush.
func (h *Hunter) Search(ctx context.Context, magic uint64) (Outcome, error) {
	mode := h.mode()
	power := h.cfg.Hunt.Power
	log := logger.FromContext(ctx).With("mode", mode, "power", power)
	started := time.Now()

	if err := h.prefilter(magic); err != nil {
		reason := apperrors.Reason(err)
		if h.cfg.Output.Verbose {
			log.Info("magic number infeasible", "reason", reason)
		}
		h.countOutcome(OutcomeInfeasible, mode, reason, nil, time.Since(started))
		h.publishOutcome(ctx, magic, mode, OutcomeInfeasible, reason, nil, time.Since(started))
		return OutcomeInfeasible, nil
	}

	table, err := h.buildTable(magic, mode)
	if err != nil {
		if apperrors.IsInfeasible(err) {
			reason := apperrors.Reason(err)
			if h.cfg.Output.Verbose {
				log.Info("magic number infeasible", "reason", reason)
			}
			h.countOutcome(OutcomeInfeasible, mode, reason, nil, time.Since(started))
			h.publishOutcome(ctx, magic, mode, OutcomeInfeasible, reason, nil, time.Since(started))
			return OutcomeInfeasible, nil
		}
		return "", err
	}
	if h.metrics != nil {
		h.metrics.ValueTableSize.Observe(float64(table.Size()))
	}
	if h.cfg.Output.Verbose {
		if table.Dual {
			log.Info("search started",
				"table_entries", table.Size(),
				"center", table.Magnitude(table.CenterIndex()),
				"pairs", (table.Size()-1)/2,
			)
		} else {
			log.Info("search started", "table_entries", table.Size())
		}
	}

	eng := engine.New(h.engineOptions(magic, mode, table))
	if err := h.restore(ctx, eng, magic, mode, log); err != nil {
		return "", err
	}

	res, runErr := eng.Run(ctx)
	elapsed := time.Since(started)
	if runErr != nil {
		log.Info("search interrupted", "steps", res.Steps, "solutions", res.Solutions)
		return "", runErr
	}

	if h.store != nil {
		if err := h.store.DeleteEngine(context.WithoutCancel(ctx), magic, power, mode); err != nil {
			log.Warn("failed to clear engine checkpoint", "error", err)
		}
	}

	outcome := OutcomeNotFound
	if res.Found {
		outcome = OutcomeFound
	}
	if h.cfg.Output.Verbose {
		log.Info("search finished",
			"outcome", string(outcome),
			"solutions", res.Solutions,
			"steps", res.Steps,
			"backtracks", res.Backtracks,
			"duration", elapsed,
		)
	}
	h.countOutcome(outcome, mode, "", &res, elapsed)
	h.publishOutcome(ctx, magic, mode, outcome, "", &res, elapsed)
	return outcome, nil
}

// prefilter applies the rejections that need no table at all.
func (h *Hunter) prefilter(magic uint64) error {
	if magic%3 != 0 {
		return apperrors.Infeasible(magic, apperrors.ErrNotDivisibleByThree)
	}
	if h.cfg.Hunt.Power == 2 && !numtheory.SumOfThreeSquares(magic) {
		return apperrors.Infeasible(magic, apperrors.ErrNotSumOfThreeSquares)
	}
	return nil
}

func (h *Hunter) buildTable(magic uint64, mode string) (*valuetable.Table, error) {
	if mode == "dual" {
		return valuetable.BuildDualSquares(magic)
	}
	return valuetable.BuildPowers(magic, h.cfg.Hunt.Power, h.cfg.Hunt.MaxTableEntries)
}

func (h *Hunter) engineOptions(magic uint64, mode string, table *valuetable.Table) engine.Options {
	opts := engine.Options{
		Magic:      magic,
		Table:      table,
		Exhaustive: h.cfg.Hunt.Exhaustive,
		SaveEvery:  h.cfg.Hunt.EngineSaveEvery,
		Hooks:      h.hooks(mode, table),
	}
	if h.store != nil {
		opts.Saver = &engineSaver{
			store:   h.store,
			magic:   magic,
			power:   h.cfg.Hunt.Power,
			mode:    mode,
			metrics: h.metrics,
		}
	}

	switch mode {
	case "brute":
		opts.Plan = engine.BruteForcePlan()
		opts.MaxEnum = table.Size()
		// Brute force enumerates every arrangement, so it always continues
		// past a solution.
		opts.Exhaustive = true
	case "dual":
		opts.Plan = engine.BruteForcePlan()
		opts.MaxEnum = table.Size()
		opts.PreviewAt = 5
	case "linear":
		opts.Plan = engine.LinearPlan()
		opts.Floor = 1
		center, _ := table.Lookup(magic / 3)
		opts.Seeds = map[int]int{5: center}
		opts.MaxEnum = int(magic/3) + 1
	default: // general
		opts.Plan = engine.GeneralPlan()
		opts.MaxEnum = table.Size()/2 + 1
		opts.PreviewAt = 8
	}
	return opts
}

func (h *Hunter) hooks(mode string, table *valuetable.Table) engine.Hooks {
	return engine.Hooks{
		OnSolution: func(sq engine.Square) {
			if h.metrics != nil {
				h.metrics.SolutionsFoundTotal.Inc()
			}
			ctx := context.Background()
			if err := h.sink.Solution(ctx, sq, table); err != nil {
				logger.WithComponent("hunt").Error("failed to write solution",
					"magic_number", sq.Magic, "error", err)
			}
			if h.publisher != nil {
				h.publisher.Solution(ctx, results.SolutionEvent{
					Magic: sq.Magic,
					Power: h.cfg.Hunt.Power,
					Mode:  mode,
					Cells: sq.Cells,
				})
			}
		},
		OnNearMiss: func(sq engine.Square) {
			if h.metrics != nil && sq.Filled >= 8 {
				h.metrics.NearMissesTotal.Inc()
			}
			// Plain magic squares are abundant; rendering their dead ends
			// would drown the output. Higher powers are where the near
			// misses are the story.
			if h.cfg.Hunt.Power < 2 {
				return
			}
			if err := h.sink.NearMiss(context.Background(), sq, table); err != nil {
				logger.WithComponent("hunt").Error("failed to write near miss",
					"magic_number", sq.Magic, "error", err)
			}
		},
	}
}

// restore applies a saved engine checkpoint when one exists. A checkpoint
// that fails validation is discarded with a warning and the search starts
// over; losing progress beats resuming into a corrupt state.
func (h *Hunter) restore(ctx context.Context, eng *engine.Engine, magic uint64, mode string, log *slog.Logger) error {
	if h.store == nil {
		return nil
	}
	state, ok, err := h.store.LoadEngine(ctx, magic, h.cfg.Hunt.Power, mode)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidCheckpoint) {
			log.Warn("discarding unreadable engine checkpoint", "error", err)
			return nil
		}
		return fmt.Errorf("loading engine checkpoint: %w", err)
	}
	if !ok {
		return nil
	}
	if err := eng.Restore(state.Cursor, engine.Grid(state.Grid)); err != nil {
		log.Warn("discarding invalid engine checkpoint", "error", err)
		return nil
	}
	log.Info("resuming from engine checkpoint", "cursor", state.Cursor, "saved_at", state.SavedAt)
	return nil
}

func (h *Hunter) countOutcome(outcome Outcome, mode, reason string, res *engine.Result, elapsed time.Duration) {
	if h.metrics == nil {
		return
	}
	h.metrics.NumbersTestedTotal.WithLabelValues(string(outcome)).Inc()
	if outcome == OutcomeInfeasible {
		h.metrics.InfeasibleTotal.WithLabelValues(reason).Inc()
	}
	h.metrics.SearchDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	if res != nil {
		h.metrics.EngineStepsTotal.Add(float64(res.Steps))
		h.metrics.BacktracksTotal.Add(float64(res.Backtracks))
	}
}

func (h *Hunter) publishOutcome(ctx context.Context, magic uint64, mode string, outcome Outcome, reason string, res *engine.Result, elapsed time.Duration) {
	if h.publisher == nil {
		return
	}
	ev := results.OutcomeEvent{
		Magic:       magic,
		Power:       h.cfg.Hunt.Power,
		Mode:        mode,
		Outcome:     string(outcome),
		Reason:      reason,
		DurationSec: elapsed.Seconds(),
	}
	if res != nil {
		ev.Solutions = res.Solutions
		ev.Steps = res.Steps
		ev.Backtracks = res.Backtracks
	}
	h.publisher.Outcome(context.WithoutCancel(ctx), ev)
}

// engineSaver adapts the checkpoint store to the engine's Saver. Saves use a
// detached context so an in-flight flush survives cancellation.
type engineSaver struct {
	store   checkpoint.Store
	magic   uint64
	power   int
	mode    string
	metrics *metrics.Metrics
}

func (s *engineSaver) Save(cursor int, grid engine.Grid) error {
	err := s.store.SaveEngine(context.Background(), checkpoint.EngineState{
		Magic:  s.magic,
		Power:  s.power,
		Mode:   s.mode,
		Cursor: cursor,
		Grid:   [10]int(grid),
	})
	if err == nil && s.metrics != nil {
		s.metrics.CheckpointSavesTotal.WithLabelValues("engine").Inc()
	}
	return err
}
