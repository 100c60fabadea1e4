package results

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/numbermill/squarehunt/internal/engine"
	"github.com/numbermill/squarehunt/internal/valuetable"
	"github.com/numbermill/squarehunt/pkg/config"
)

func loShu(t *testing.T) (engine.Square, *valuetable.Table) {
	t.Helper()
	table, err := valuetable.BuildPowers(15, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	sq := engine.Square{
		Magic:  15,
		Cells:  [9]uint64{2, 7, 6, 9, 5, 1, 4, 3, 8},
		Filled: 9,
		Rows:   [3]uint64{15, 15, 15},
		Cols:   [3]uint64{15, 15, 15},
	}
	sq.Diagonal = 15
	sq.AntiDiagonal = 15
	for i, c := range sq.Cells {
		sq.Indices[i] = int(c)
	}
	return sq, table
}

// TestFileSinkPromotesOnSolution checks the parker-to-square rename: near
// misses collect under parker_<n>.txt, and the first solution promotes the
// file so later output lands in square_<n>.txt.
func TestFileSinkPromotesOnSolution(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir)
	if err != nil {
		t.Fatalf("NewFileSink failed: %v", err)
	}
	sq, table := loShu(t)
	ctx := context.Background()

	if err := sink.NearMiss(ctx, sq, table); err != nil {
		t.Fatalf("NearMiss failed: %v", err)
	}
	parker := filepath.Join(dir, "parker_15.txt")
	if _, err := os.Stat(parker); err != nil {
		t.Fatalf("parker file missing after near miss: %v", err)
	}

	if err := sink.Solution(ctx, sq, table); err != nil {
		t.Fatalf("Solution failed: %v", err)
	}
	square := filepath.Join(dir, "square_15.txt")
	if _, err := os.Stat(square); err != nil {
		t.Fatalf("square file missing after solution: %v", err)
	}
	if _, err := os.Stat(parker); !os.IsNotExist(err) {
		t.Fatal("parker file still present after promotion")
	}

	// Later output goes to the promoted file.
	if err := sink.NearMiss(ctx, sq, table); err != nil {
		t.Fatalf("NearMiss after promotion failed: %v", err)
	}
	data, err := os.ReadFile(square)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "\\"); n != 3 {
		t.Fatalf("square file holds %d grids, want 3", n)
	}
	if _, err := os.Stat(parker); !os.IsNotExist(err) {
		t.Fatal("parker file recreated after promotion")
	}
}

// TestScreenSink checks terminal output carries the magic number and grid.
func TestScreenSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewScreenSink(&buf)
	sq, table := loShu(t)

	if err := sink.Solution(context.Background(), sq, table); err != nil {
		t.Fatalf("Solution failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "magic square for 15") {
		t.Errorf("output missing solution header:\n%s", out)
	}

	buf.Reset()
	if err := sink.NearMiss(context.Background(), sq, table); err != nil {
		t.Fatalf("NearMiss failed: %v", err)
	}
	if !strings.Contains(buf.String(), "near miss for 15") {
		t.Errorf("output missing near-miss header:\n%s", buf.String())
	}
}

// TestNewSinkModes checks the sink stack built for each output mode.
func TestNewSinkModes(t *testing.T) {
	dir := t.TempDir()

	s, err := NewSink(config.OutputConfig{Mode: "f", Directory: dir})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*FileSink); !ok {
		t.Errorf("mode f built %T, want *FileSink", s)
	}

	s, err = NewSink(config.OutputConfig{Mode: "s", Directory: dir})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*ScreenSink); !ok {
		t.Errorf("mode s built %T, want *ScreenSink", s)
	}

	s, err = NewSink(config.OutputConfig{Mode: "b", Directory: dir})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(MultiSink); !ok {
		t.Errorf("mode b built %T, want MultiSink", s)
	}
}
