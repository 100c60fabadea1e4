package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/numbermill/squarehunt/internal/valuetable"
	apperrors "github.com/numbermill/squarehunt/pkg/errors"
)

// Saver persists the engine's resumable state. Implementations must
// overwrite atomically; the engine calls it mid-search and on interruption.
type Saver interface {
	Save(cursor int, grid Grid) error
}

// Hooks receive grid snapshots as the search progresses. Both are optional.
type Hooks struct {
	// OnSolution fires for every verified magic square.
	OnSolution func(Square)
	// OnNearMiss fires for complete grids that failed the final line-sum
	// check and, when a preview threshold is set, for deep partial fills.
	OnNearMiss func(Square)
}

// Options configures one engine invocation over one magic number.
type Options struct {
	Magic uint64
	Table *valuetable.Table
	Plan  Plan
	// Floor is the lowest cursor position; the search is exhausted when the
	// cursor falls back to it. 0 except for pre-seeded plans.
	Floor int
	// Seeds pre-fills grid fields (field -> table index) that the plan
	// never enumerates, e.g. the fixed center in the power-1 plan.
	Seeds map[int]int
	// MaxEnum is the highest table index an enumerated field may try.
	MaxEnum int
	// Exhaustive keeps searching after a verified solution.
	Exhaustive bool
	// PreviewAt > 0 fires OnNearMiss once a partial fill passes this many
	// slots; 0 disables previews.
	PreviewAt int
	// SaveEvery is the number of loop iterations between checkpoint
	// flushes; 0 disables periodic saves.
	SaveEvery uint64
	Saver     Saver
	Hooks     Hooks
}

// Result summarises one engine run.
type Result struct {
	Found      bool
	Solutions  int
	Steps      uint64
	Backtracks uint64
}

// Engine performs the constrained backtracking fill over the nine grid
// positions. It is single-threaded; the grid and cursor together are its
// complete resumable state.
type Engine struct {
	opts   Options
	grid   Grid
	cursor int
	logger *slog.Logger
}

// New creates an engine positioned at the start of the search.
func New(opts Options) *Engine {
	e := &Engine{
		opts:   opts,
		cursor: opts.Floor + 1,
		logger: slog.Default().With("component", "engine", "magic_number", opts.Magic),
	}
	for field, idx := range opts.Seeds {
		e.grid[field] = idx
	}
	return e
}

// State returns the current cursor and a copy of the grid.
func (e *Engine) State() (int, Grid) {
	return e.cursor, e.grid
}

// Restore resumes the engine from a previously saved cursor and grid. The
// state is validated structurally; anything inconsistent is rejected so a
// corrupt checkpoint can never send the search into an invalid region.
func (e *Engine) Restore(cursor int, grid Grid) error {
	if cursor <= e.opts.Floor || cursor > gridSlots {
		return fmt.Errorf("cursor %d out of range (%d..%d]: %w",
			cursor, e.opts.Floor, gridSlots, apperrors.ErrInvalidCheckpoint)
	}
	if !grid.Valid(e.opts.Table.Size()) {
		return fmt.Errorf("grid fails validation: %w", apperrors.ErrInvalidCheckpoint)
	}
	e.cursor = cursor
	e.grid = grid
	return nil
}

const gridSlots = 9

// Run executes the search loop until the plan is exhausted or, in
// non-exhaustive mode, until the first verified solution. Cancelling ctx
// flushes a final checkpoint and returns ctx.Err() with the partial result.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	var res Result
	var sinceSave uint64

	for e.cursor > e.opts.Floor && e.cursor <= gridSlots {
		res.Steps++
		sinceSave++
		if e.opts.SaveEvery > 0 && sinceSave > e.opts.SaveEvery {
			sinceSave = 0
			e.save()
		}
		if res.Steps&0xFFFFF == 0 && ctx.Err() != nil {
			e.save()
			return res, ctx.Err()
		}

		step := e.opts.Plan[e.cursor]

		if !step.Derived {
			if e.grid[step.Field] == 0 && len(step.Start) > 0 {
				lower := 0
				for _, f := range step.Start {
					if e.grid[f] > lower {
						lower = e.grid[f]
					}
				}
				e.grid[step.Field] = lower
			}
			next := e.grid[step.Field] + 1
			for e.grid.Contains(next) {
				next++
			}
			e.grid[step.Field] = next
			if next > e.opts.MaxEnum {
				e.grid[step.Field] = 0
				e.backtrack(&res)
				continue
			}
			e.cursor++
			continue
		}

		// A filled derived field means this branch was already explored:
		// undo it and try the next option for the earlier field.
		if e.grid[step.Field] != 0 {
			e.grid[step.Field] = 0
			e.backtrack(&res)
			continue
		}

		a := e.opts.Table.Magnitude(e.grid[step.Calc[0]])
		b := e.opts.Table.Magnitude(e.grid[step.Calc[1]])
		if a+b >= e.opts.Magic {
			e.backtrack(&res)
			continue
		}
		idx, ok := e.opts.Table.Lookup(e.opts.Magic - a - b)
		if !ok {
			e.backtrack(&res)
			continue
		}
		if e.grid.Contains(idx) {
			e.backtrack(&res)
			continue
		}
		e.grid[step.Field] = idx
		e.cursor++

		if e.cursor > gridSlots {
			sq := e.snapshot()
			if !sq.IsMagic() {
				// A locally consistent fill is not yet a magic square;
				// the verifier is the final arbiter.
				if e.opts.Hooks.OnNearMiss != nil {
					e.opts.Hooks.OnNearMiss(sq)
				}
				e.backtrack(&res)
				continue
			}
			res.Found = true
			res.Solutions++
			if e.opts.Hooks.OnSolution != nil {
				e.opts.Hooks.OnSolution(sq)
			}
			if e.opts.Exhaustive {
				e.backtrack(&res)
			}
			continue
		}
		if e.opts.PreviewAt > 0 && e.cursor > e.opts.PreviewAt {
			if e.opts.Hooks.OnNearMiss != nil {
				e.opts.Hooks.OnNearMiss(e.snapshot())
			}
		}
	}

	return res, nil
}

func (e *Engine) backtrack(res *Result) {
	res.Backtracks++
	e.cursor--
}

func (e *Engine) save() {
	if e.opts.Saver == nil {
		return
	}
	if err := e.opts.Saver.Save(e.cursor, e.grid); err != nil {
		e.logger.Warn("checkpoint save failed", "error", err)
		return
	}
	e.logger.Debug("checkpoint saved", "cursor", e.cursor)
}

// snapshot resolves the grid through the value table into a Square. Empty
// slots resolve to magnitude 0, so partial grids render cleanly.
func (e *Engine) snapshot() Square {
	sq := Square{Magic: e.opts.Magic}
	for i := 0; i < gridSlots; i++ {
		idx := e.grid[i+1]
		sq.Indices[i] = idx
		sq.Cells[i] = e.opts.Table.Magnitude(idx)
		if idx != 0 {
			sq.Filled++
		}
	}
	sq.sum()
	return sq
}
