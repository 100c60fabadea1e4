package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/numbermill/squarehunt/internal/valuetable"
	apperrors "github.com/numbermill/squarehunt/pkg/errors"
)

func mustTable(t testing.TB, magic uint64, power int) *valuetable.Table {
	t.Helper()
	table, err := valuetable.BuildPowers(magic, power, 0)
	if err != nil {
		t.Fatalf("building table for %d power %d: %v", magic, power, err)
	}
	return table
}

func checkSolution(t *testing.T, sq Square) {
	t.Helper()
	if !sq.IsMagic() {
		t.Fatalf("emitted solution is not magic: %+v", sq)
	}
	seen := make(map[uint64]bool, 9)
	for _, c := range sq.Cells {
		if seen[c] {
			t.Fatalf("solution repeats value %d: %v", c, sq.Cells)
		}
		seen[c] = true
	}
}

// TestBruteForceLoShu runs the exhaustive plan on the classic magic number
// 15 with power 1. The only solutions are the eight rotations and
// reflections of the Lo Shu square, every one with 5 in the center.
func TestBruteForceLoShu(t *testing.T) {
	table := mustTable(t, 15, 1)
	var solutions []Square
	eng := New(Options{
		Magic:      15,
		Table:      table,
		Plan:       BruteForcePlan(),
		MaxEnum:    table.Size(),
		Exhaustive: true,
		Hooks: Hooks{
			OnSolution: func(sq Square) { solutions = append(solutions, sq) },
		},
	})

	res, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.Found || res.Solutions != 8 {
		t.Fatalf("found %d solutions, want 8", res.Solutions)
	}
	if len(solutions) != 8 {
		t.Fatalf("hook saw %d solutions, want 8", len(solutions))
	}
	for _, sq := range solutions {
		checkSolution(t, sq)
		if sq.Cells[4] != 5 {
			t.Errorf("center = %d, want 5", sq.Cells[4])
		}
	}
}

// TestLinearFinds34344 searches magic number 34344 with the power-1 plan
// (center pre-seeded to 11448) and must find an exact magic square.
func TestLinearFinds34344(t *testing.T) {
	const magic = uint64(34344)
	table := mustTable(t, magic, 1)
	center, ok := table.Lookup(magic / 3)
	if !ok {
		t.Fatalf("center %d missing from table", magic/3)
	}

	var solutions []Square
	eng := New(Options{
		Magic:   magic,
		Table:   table,
		Plan:    LinearPlan(),
		Floor:   1,
		Seeds:   map[int]int{5: center},
		MaxEnum: int(magic/3) + 1,
		Hooks: Hooks{
			OnSolution: func(sq Square) { solutions = append(solutions, sq) },
		},
	})

	res, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.Found || len(solutions) == 0 {
		t.Fatal("no magic square found for 34344")
	}
	for _, sq := range solutions {
		checkSolution(t, sq)
		if sq.Cells[4] != magic/3 {
			t.Errorf("center = %d, want %d", sq.Cells[4], magic/3)
		}
	}
}

// TestGeneralParkerNearMiss searches the Parker magic number 21609 with
// power 2. No magic square of squares exists there, but the search must
// reach complete grids where every line except the main diagonal holds:
// the plan derives rows and columns and the anti-diagonal, leaving the main
// diagonal as the only constraint a full grid can break.
func TestGeneralParkerNearMiss(t *testing.T) {
	const magic = uint64(21609)
	table := mustTable(t, magic, 2)

	var complete []Square
	eng := New(Options{
		Magic:     magic,
		Table:     table,
		Plan:      GeneralPlan(),
		MaxEnum:   table.Size()/2 + 1,
		PreviewAt: 8,
		Hooks: Hooks{
			OnNearMiss: func(sq Square) {
				if sq.Filled == 9 {
					complete = append(complete, sq)
				}
			},
		},
	})

	res, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Found {
		t.Fatal("found a magic square of squares at 21609; the verifier should have rejected every grid")
	}
	if len(complete) == 0 {
		t.Fatal("no complete near-miss grids reached for 21609")
	}
	for _, sq := range complete {
		for i := 0; i < 3; i++ {
			if sq.Rows[i] != magic {
				t.Fatalf("near miss breaks row %d: %+v", i, sq)
			}
			if sq.Cols[i] != magic {
				t.Fatalf("near miss breaks column %d: %+v", i, sq)
			}
		}
		if sq.AntiDiagonal != magic {
			t.Fatalf("near miss breaks anti-diagonal: %+v", sq)
		}
		if sq.Diagonal == magic {
			t.Fatalf("grid with all 8 lines correct was not emitted as a solution: %+v", sq)
		}
	}
}

// TestLinearAgreesWithBruteForce cross-checks the pre-seeded power-1 plan
// against the exhaustive plan on the same magic number: every square the
// faster plan emits must also be in the brute-force solution set.
func TestLinearAgreesWithBruteForce(t *testing.T) {
	const magic = uint64(15)
	table := mustTable(t, magic, 1)

	brute := make(map[[9]uint64]bool)
	eng := New(Options{
		Magic:      magic,
		Table:      table,
		Plan:       BruteForcePlan(),
		MaxEnum:    table.Size(),
		Exhaustive: true,
		Hooks:      Hooks{OnSolution: func(sq Square) { brute[sq.Cells] = true }},
	})
	if _, err := eng.Run(context.Background()); err != nil {
		t.Fatalf("brute-force run failed: %v", err)
	}

	center, ok := table.Lookup(magic / 3)
	if !ok {
		t.Fatalf("center %d missing from table", magic/3)
	}
	var linear []Square
	eng = New(Options{
		Magic:      magic,
		Table:      table,
		Plan:       LinearPlan(),
		Floor:      1,
		Seeds:      map[int]int{5: center},
		MaxEnum:    int(magic/3) + 1,
		Exhaustive: true,
		Hooks:      Hooks{OnSolution: func(sq Square) { linear = append(linear, sq) }},
	})
	if _, err := eng.Run(context.Background()); err != nil {
		t.Fatalf("linear run failed: %v", err)
	}

	if len(linear) == 0 {
		t.Fatal("linear plan found no solutions")
	}
	for _, sq := range linear {
		checkSolution(t, sq)
		if !brute[sq.Cells] {
			t.Fatalf("linear solution %v not in the brute-force set", sq.Cells)
		}
	}
}

type recordedState struct {
	cursor int
	grid   Grid
	solved int
}

type recordingSaver struct {
	states []recordedState
	solved *int
}

func (s *recordingSaver) Save(cursor int, grid Grid) error {
	s.states = append(s.states, recordedState{cursor: cursor, grid: grid, solved: *s.solved})
	return nil
}

// TestCheckpointRoundTrip verifies that restoring a mid-search checkpoint
// into a fresh engine reproduces exactly the solutions an uninterrupted run
// produces after that point, in the same order.
func TestCheckpointRoundTrip(t *testing.T) {
	const magic = uint64(15)
	table := mustTable(t, magic, 1)
	base := Options{
		Magic:      magic,
		Table:      table,
		Plan:       BruteForcePlan(),
		MaxEnum:    table.Size(),
		Exhaustive: true,
	}

	var full []Square
	opts := base
	opts.Hooks = Hooks{OnSolution: func(sq Square) { full = append(full, sq) }}
	if _, err := New(opts).Run(context.Background()); err != nil {
		t.Fatalf("baseline run failed: %v", err)
	}
	if len(full) != 8 {
		t.Fatalf("baseline found %d solutions, want 8", len(full))
	}

	var interrupted []Square
	solved := 0
	saver := &recordingSaver{solved: &solved}
	opts = base
	opts.SaveEvery = 100
	opts.Saver = saver
	opts.Hooks = Hooks{OnSolution: func(sq Square) {
		interrupted = append(interrupted, sq)
		solved++
	}}
	if _, err := New(opts).Run(context.Background()); err != nil {
		t.Fatalf("recording run failed: %v", err)
	}
	if len(saver.states) < 2 {
		t.Fatalf("only %d checkpoints recorded; lower SaveEvery", len(saver.states))
	}

	// Resume from a checkpoint in the middle of the search.
	state := saver.states[len(saver.states)/2]
	var resumed []Square
	opts = base
	opts.Hooks = Hooks{OnSolution: func(sq Square) { resumed = append(resumed, sq) }}
	eng := New(opts)
	if err := eng.Restore(state.cursor, state.grid); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if _, err := eng.Run(context.Background()); err != nil {
		t.Fatalf("resumed run failed: %v", err)
	}

	want := full[state.solved:]
	if len(resumed) != len(want) {
		t.Fatalf("resumed run found %d solutions, want %d", len(resumed), len(want))
	}
	for i := range want {
		if resumed[i].Cells != want[i].Cells {
			t.Fatalf("solution %d diverged after restore:\n got %v\nwant %v",
				i, resumed[i].Cells, want[i].Cells)
		}
	}
}

// TestRestoreRejectsInvalidState covers the structural validation on resume.
func TestRestoreRejectsInvalidState(t *testing.T) {
	table := mustTable(t, 15, 1)
	eng := New(Options{Magic: 15, Table: table, Plan: BruteForcePlan(), MaxEnum: table.Size()})

	if err := eng.Restore(0, Grid{}); !errors.Is(err, apperrors.ErrInvalidCheckpoint) {
		t.Errorf("cursor 0: err = %v, want ErrInvalidCheckpoint", err)
	}
	if err := eng.Restore(12, Grid{}); !errors.Is(err, apperrors.ErrInvalidCheckpoint) {
		t.Errorf("cursor 12: err = %v, want ErrInvalidCheckpoint", err)
	}
	dup := Grid{0, 3, 3}
	if err := eng.Restore(4, dup); !errors.Is(err, apperrors.ErrInvalidCheckpoint) {
		t.Errorf("duplicate grid: err = %v, want ErrInvalidCheckpoint", err)
	}
	oob := Grid{0, 99}
	if err := eng.Restore(2, oob); !errors.Is(err, apperrors.ErrInvalidCheckpoint) {
		t.Errorf("out-of-range grid: err = %v, want ErrInvalidCheckpoint", err)
	}
}

// TestCancellationFlushesCheckpoint runs with an already-cancelled context
// and expects the partial state to be saved before the error returns.
func TestCancellationFlushesCheckpoint(t *testing.T) {
	// A power-2 brute search has no solutions to stop at, so the loop runs
	// until the cancellation check fires.
	table := mustTable(t, 1_000_002, 2)
	solved := 0
	saver := &recordingSaver{solved: &solved}
	eng := New(Options{
		Magic:      1_000_002,
		Table:      table,
		Plan:       BruteForcePlan(),
		MaxEnum:    table.Size(),
		Exhaustive: true,
		Saver:      saver,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := eng.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(saver.states) == 0 {
		t.Fatal("no checkpoint flushed on cancellation")
	}
}
