package valuetable

import (
	"errors"
	"testing"

	apperrors "github.com/numbermill/squarehunt/pkg/errors"
)

// TestBuildPowersLinear checks the identity table used for plain magic
// squares: Values[i] == i up to magic-3.
func TestBuildPowersLinear(t *testing.T) {
	table, err := BuildPowers(15, 1, 0)
	if err != nil {
		t.Fatalf("BuildPowers(15, 1) failed: %v", err)
	}
	if table.Size() != 12 {
		t.Fatalf("table size = %d, want 12", table.Size())
	}
	for i := 0; i <= table.Size(); i++ {
		if table.Magnitude(i) != uint64(i) {
			t.Fatalf("Magnitude(%d) = %d, want %d", i, table.Magnitude(i), i)
		}
		if idx, ok := table.Lookup(uint64(i)); !ok || idx != i {
			t.Fatalf("Lookup(%d) = (%d, %v), want (%d, true)", i, idx, ok, i)
		}
	}
}

// TestBuildPowersSquares checks the squares table for the Parker magic
// number 21609: the largest base whose square still fits is 146.
func TestBuildPowersSquares(t *testing.T) {
	table, err := BuildPowers(21609, 2, 0)
	if err != nil {
		t.Fatalf("BuildPowers(21609, 2) failed: %v", err)
	}
	if table.Size() != 146 {
		t.Fatalf("table size = %d, want 146", table.Size())
	}
	if got := table.Magnitude(146); got != 146*146 {
		t.Fatalf("Magnitude(146) = %d, want %d", got, 146*146)
	}
	if idx, ok := table.Lookup(146 * 146); !ok || idx != 146 {
		t.Fatalf("Lookup(146^2) = (%d, %v), want (146, true)", idx, ok)
	}
	if _, ok := table.Lookup(147 * 147); ok {
		t.Fatal("Lookup(147^2) succeeded beyond the table bound")
	}
}

// TestBuildPowersEntryLimit verifies that an oversized table is reported as
// a structural limit, not built anyway.
func TestBuildPowersEntryLimit(t *testing.T) {
	_, err := BuildPowers(1_000_000, 1, 1000)
	if !errors.Is(err, apperrors.ErrTableTooLarge) {
		t.Fatalf("err = %v, want ErrTableTooLarge", err)
	}
}

// TestBuildDualSquaresInfeasible covers the three rejection paths: not
// divisible by 3, center not a perfect square, and too few usable pairs.
func TestBuildDualSquaresInfeasible(t *testing.T) {
	if _, err := BuildDualSquares(21610); !errors.Is(err, apperrors.ErrNotDivisibleByThree) {
		t.Errorf("BuildDualSquares(21610) err = %v, want ErrNotDivisibleByThree", err)
	}
	// 21609/3 = 7203 = 3 * 49^2 is not a square.
	if _, err := BuildDualSquares(21609); !errors.Is(err, apperrors.ErrCenterNotSquare) {
		t.Errorf("BuildDualSquares(21609) err = %v, want ErrCenterNotSquare", err)
	}
	// center 25^2: 2*625 has only two distinct-square decompositions.
	if _, err := BuildDualSquares(3 * 625); !errors.Is(err, apperrors.ErrTooFewSquares) {
		t.Errorf("BuildDualSquares(1875) err = %v, want ErrTooFewSquares", err)
	}
	if !apperrors.IsInfeasible(func() error { _, err := BuildDualSquares(21609); return err }()) {
		t.Error("dual rejection not classified as infeasible")
	}
}

// TestBuildDualSquaresPairs builds a feasible dual table (center 1105^2,
// whose doubled square has 13 distinct decompositions) and verifies the
// structural invariants: magnitudes unique, pairs summing to magic-center,
// center appended last.
func TestBuildDualSquaresPairs(t *testing.T) {
	const root = 1105
	const center = uint64(root * root)
	const magic = 3 * center

	table, err := BuildDualSquares(magic)
	if err != nil {
		t.Fatalf("BuildDualSquares(%d) failed: %v", magic, err)
	}
	if !table.Dual {
		t.Error("table not marked dual")
	}
	if got := table.Magnitude(table.CenterIndex()); got != center {
		t.Fatalf("center magnitude = %d, want %d", got, center)
	}

	size := table.Size()
	if size-1 < 8 {
		t.Fatalf("only %d non-center magnitudes, want >= 8", size-1)
	}
	seen := make(map[uint64]bool, size)
	for i := 1; i <= size; i++ {
		v := table.Magnitude(i)
		if seen[v] {
			t.Fatalf("duplicate magnitude %d at index %d", v, i)
		}
		seen[v] = true
		if idx, ok := table.Lookup(v); !ok || idx != i {
			t.Fatalf("Lookup(%d) = (%d, %v), want (%d, true)", v, idx, ok, i)
		}
	}
	// Non-center entries come in adjacent pairs summing to magic - center.
	for i := 1; i < size; i += 2 {
		if sum := table.Magnitude(i) + table.Magnitude(i+1); sum != magic-center {
			t.Fatalf("pair (%d, %d) sums to %d, want %d", i, i+1, sum, magic-center)
		}
	}
}

// BenchmarkBuildPowers measures table construction for a mid-sized squares
// search.
func BenchmarkBuildPowers(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := BuildPowers(1_000_002, 2, 0); err != nil {
			b.Fatal(err)
		}
	}
}
