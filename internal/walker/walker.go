// Package walker advances a search across a contiguous range of magic-number
// candidates. Every valid magic number of a 3x3 square is divisible by 3, so
// the walk aligns its start upward to a multiple of 3 and steps by 3,
// checkpointing its position so an interrupted range resumes where it left
// off.
package walker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/numbermill/squarehunt/internal/checkpoint"
	apperrors "github.com/numbermill/squarehunt/pkg/errors"
)

// SearchFunc runs the full search for one magic number. Returning an error
// stops the walk; a cancelled context is the usual reason.
type SearchFunc func(ctx context.Context, magic uint64) error

// Walker iterates one inclusive range [From, To].
type Walker struct {
	From uint64
	To   uint64
	// SaveEvery is the number of candidates between position checkpoints;
	// 0 disables them.
	SaveEvery uint64
	// Store persists the walk position; nil runs without persistence.
	Store checkpoint.Store
	// Progress, when set, observes every candidate about to be searched.
	Progress func(next uint64)

	logger *slog.Logger
}

// New creates a walker over [from, to].
func New(from, to uint64, saveEvery uint64, store checkpoint.Store) *Walker {
	return &Walker{
		From:      from,
		To:        to,
		SaveEvery: saveEvery,
		Store:     store,
		logger: slog.Default().With(
			"component", "walker",
			"range_from", from,
			"range_to", to,
		),
	}
}

// Align returns n rounded up to the next multiple of 3.
func Align(n uint64) uint64 {
	if rem := n % 3; rem != 0 {
		return n + 3 - rem
	}
	return n
}

// Run walks the range, invoking search for each candidate. An existing
// checkpoint for this exact range moves the start forward; a checkpoint that
// fails validation is discarded with a warning and the walk restarts from the
// aligned beginning. The checkpoint is deleted once the range completes. On
// interruption the current position is flushed before returning.
func (w *Walker) Run(ctx context.Context, search SearchFunc) error {
	next := Align(w.From)

	if w.Store != nil {
		state, ok, err := w.Store.LoadRange(ctx, w.From, w.To)
		switch {
		case errors.Is(err, apperrors.ErrInvalidCheckpoint):
			w.logger.Warn("discarding unreadable range checkpoint", "error", err)
		case err != nil:
			return err
		case ok:
			if state.Next%3 != 0 || state.Next < next || state.Next > w.To+3 {
				w.logger.Warn("discarding range checkpoint outside the range", "next", state.Next)
				break
			}
			next = state.Next
			w.logger.Info("resuming range walk", "next", next)
		}
	}

	var sinceSave uint64
	for ; next <= w.To; next += 3 {
		if w.Progress != nil {
			w.Progress(next)
		}
		if err := search(ctx, next); err != nil {
			w.save(ctx, next)
			return err
		}
		sinceSave++
		if w.SaveEvery > 0 && sinceSave*3 >= w.SaveEvery {
			sinceSave = 0
			w.save(ctx, next+3)
		}
		if err := ctx.Err(); err != nil {
			w.save(ctx, next+3)
			return err
		}
	}

	if w.Store != nil {
		if err := w.Store.DeleteRange(ctx, w.From, w.To); err != nil {
			w.logger.Warn("failed to clear range checkpoint", "error", err)
		}
	}
	w.logger.Info("range walk complete")
	return nil
}

func (w *Walker) save(ctx context.Context, next uint64) {
	if w.Store == nil {
		return
	}
	state := checkpoint.RangeState{From: w.From, To: w.To, Next: next}
	if err := w.Store.SaveRange(context.WithoutCancel(ctx), state); err != nil {
		w.logger.Warn("failed to save range checkpoint", "error", err)
		return
	}
	w.logger.Debug("range checkpoint saved", "next", next)
}
