// Package results handles everything that happens to a square once the
// engine produces it: rendering to files or the terminal, publishing events
// to Kafka, and archiving verified solutions in Postgres.
package results

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/numbermill/squarehunt/internal/engine"
	"github.com/numbermill/squarehunt/internal/valuetable"
	"github.com/numbermill/squarehunt/pkg/config"
)

// Sink receives rendered squares. Solution is called only for verified magic
// squares; NearMiss receives complete-but-failed grids and deep partial
// fills.
type Sink interface {
	Solution(ctx context.Context, sq engine.Square, t *valuetable.Table) error
	NearMiss(ctx context.Context, sq engine.Square, t *valuetable.Table) error
	Close() error
}

// NewSink builds the sink stack for an output configuration. Mode "f" writes
// files, "s" writes to the terminal, "b" does both.
func NewSink(cfg config.OutputConfig) (Sink, error) {
	var sinks []Sink
	if cfg.Mode == "f" || cfg.Mode == "b" {
		fs, err := NewFileSink(cfg.Directory)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, fs)
	}
	if cfg.Mode == "s" || cfg.Mode == "b" {
		sinks = append(sinks, NewScreenSink(os.Stdout))
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return MultiSink(sinks), nil
}

// FileSink writes one text file per magic number. Near misses accumulate in
// parker_<n>.txt; the first verified solution promotes the file to
// square_<n>.txt so solved numbers stand out in a directory listing.
type FileSink struct {
	dir string

	mu sync.Mutex
}

func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &FileSink{dir: dir}, nil
}

func (s *FileSink) parkerPath(magic uint64) string {
	return filepath.Join(s.dir, fmt.Sprintf("parker_%d.txt", magic))
}

func (s *FileSink) squarePath(magic uint64) string {
	return filepath.Join(s.dir, fmt.Sprintf("square_%d.txt", magic))
}

// path returns the file currently collecting output for magic: the promoted
// square file when it exists, the parker file otherwise.
func (s *FileSink) path(magic uint64) string {
	sq := s.squarePath(magic)
	if _, err := os.Stat(sq); err == nil {
		return sq
	}
	return s.parkerPath(magic)
}

func (s *FileSink) append(path, text string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "%s\n", text); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	return nil
}

func (s *FileSink) NearMiss(_ context.Context, sq engine.Square, t *valuetable.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.append(s.path(sq.Magic), engine.Render(&sq, t))
}

func (s *FileSink) Solution(_ context.Context, sq engine.Square, t *valuetable.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.path(sq.Magic)
	if err := s.append(path, engine.Render(&sq, t)); err != nil {
		return err
	}
	if path == s.parkerPath(sq.Magic) {
		if err := os.Rename(path, s.squarePath(sq.Magic)); err != nil {
			return fmt.Errorf("promote solution file: %w", err)
		}
	}
	return nil
}

func (s *FileSink) Close() error { return nil }

// ScreenSink prints squares to a writer, typically stdout.
type ScreenSink struct {
	w  io.Writer
	mu sync.Mutex
}

func NewScreenSink(w io.Writer) *ScreenSink {
	return &ScreenSink{w: w}
}

func (s *ScreenSink) print(header string, sq engine.Square, t *valuetable.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "%s %d\n%s\n", header, sq.Magic, engine.Render(&sq, t))
	return err
}

func (s *ScreenSink) Solution(_ context.Context, sq engine.Square, t *valuetable.Table) error {
	return s.print("magic square for", sq, t)
}

func (s *ScreenSink) NearMiss(_ context.Context, sq engine.Square, t *valuetable.Table) error {
	return s.print("near miss for", sq, t)
}

func (s *ScreenSink) Close() error { return nil }

// MultiSink fans out to several sinks; the first error wins but every sink
// still sees the square.
type MultiSink []Sink

func (m MultiSink) Solution(ctx context.Context, sq engine.Square, t *valuetable.Table) error {
	var first error
	for _, s := range m {
		if err := s.Solution(ctx, sq, t); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m MultiSink) NearMiss(ctx context.Context, sq engine.Square, t *valuetable.Table) error {
	var first error
	for _, s := range m {
		if err := s.NearMiss(ctx, sq, t); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m MultiSink) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
