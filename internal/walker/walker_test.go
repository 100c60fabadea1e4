package walker

import (
	"context"
	"errors"
	"testing"

	"github.com/numbermill/squarehunt/internal/checkpoint"
)

// TestAlign checks the round-up to the next multiple of 3.
func TestAlign(t *testing.T) {
	cases := map[uint64]uint64{0: 0, 1: 3, 2: 3, 3: 3, 100: 102, 102: 102, 3001: 3003}
	for in, want := range cases {
		if got := Align(in); got != want {
			t.Errorf("Align(%d) = %d, want %d", in, got, want)
		}
	}
}

// TestWalkStepsByThree verifies a range starting off-grid is advanced to the
// next multiple of 3 and then visited in steps of exactly 3, inclusive of
// the end.
func TestWalkStepsByThree(t *testing.T) {
	var visited []uint64
	w := New(100, 120, 0, nil)
	err := w.Run(context.Background(), func(_ context.Context, magic uint64) error {
		visited = append(visited, magic)
		return nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := []uint64{102, 105, 108, 111, 114, 117, 120}
	if len(visited) != len(want) {
		t.Fatalf("visited %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Fatalf("visited %v, want %v", visited, want)
		}
	}
}

// TestWalkResumesFromCheckpoint interrupts a walk partway, then re-runs the
// same range against the same store and expects it to pick up where the
// failed candidate left off.
func TestWalkResumesFromCheckpoint(t *testing.T) {
	store, err := checkpoint.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")

	var firstPass []uint64
	w := New(100, 130, 3, store)
	err = w.Run(context.Background(), func(_ context.Context, magic uint64) error {
		if magic == 114 {
			return boom
		}
		firstPass = append(firstPass, magic)
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want injected failure", err)
	}

	var secondPass []uint64
	w = New(100, 130, 3, store)
	err = w.Run(context.Background(), func(_ context.Context, magic uint64) error {
		secondPass = append(secondPass, magic)
		return nil
	})
	if err != nil {
		t.Fatalf("resumed Run failed: %v", err)
	}
	if len(secondPass) == 0 || secondPass[0] != 114 {
		t.Fatalf("resumed walk started at %v, want 114 first", secondPass)
	}
	if last := secondPass[len(secondPass)-1]; last != 129 {
		t.Fatalf("resumed walk ended at %d, want 129", last)
	}

	// A completed range clears its checkpoint.
	if _, ok, _ := store.LoadRange(context.Background(), 100, 130); ok {
		t.Fatal("range checkpoint still present after completion")
	}
}

// TestWalkDiscardsInvalidCheckpoint plants a position outside the range and
// expects the walk to warn and restart from the aligned beginning.
func TestWalkDiscardsInvalidCheckpoint(t *testing.T) {
	store, err := checkpoint.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	bad := checkpoint.RangeState{From: 100, To: 130, Next: 997}
	if err := store.SaveRange(context.Background(), bad); err != nil {
		t.Fatal(err)
	}

	var visited []uint64
	w := New(100, 130, 0, store)
	err = w.Run(context.Background(), func(_ context.Context, magic uint64) error {
		visited = append(visited, magic)
		return nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(visited) == 0 || visited[0] != 102 {
		t.Fatalf("walk started at %v, want 102 first", visited)
	}
}

// TestWalkProgressCallback checks the observer sees every candidate.
func TestWalkProgressCallback(t *testing.T) {
	var observed []uint64
	w := New(9, 18, 0, nil)
	w.Progress = func(next uint64) { observed = append(observed, next) }
	err := w.Run(context.Background(), func(context.Context, uint64) error { return nil })
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := []uint64{9, 12, 15, 18}
	if len(observed) != len(want) {
		t.Fatalf("observed %v, want %v", observed, want)
	}
}

// TestWalkCancellation cancels mid-range and expects the position saved so
// a later walk resumes instead of restarting.
func TestWalkCancellation(t *testing.T) {
	store, err := checkpoint.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())

	var visited []uint64
	w := New(300, 330, 0, store)
	err = w.Run(ctx, func(_ context.Context, magic uint64) error {
		visited = append(visited, magic)
		if magic == 312 {
			cancel()
		}
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	state, ok, err := store.LoadRange(context.Background(), 300, 330)
	if err != nil || !ok {
		t.Fatalf("LoadRange = (ok=%v, err=%v), want saved state", ok, err)
	}
	if state.Next != 315 {
		t.Fatalf("saved Next = %d, want 315", state.Next)
	}
}
