// Package checkpoint persists the two levels of resumable search state: the
// engine's in-flight grid for a single magic number, and the range walker's
// position across a number range. Both backends key records identically, so
// a hunt can move between file and redis persistence without losing state.
package checkpoint

import (
	"context"
	"fmt"
	"time"
)

// EngineState is the complete resumable state of one engine run. Cursor and
// Grid mirror the engine exactly; the remaining fields identify which search
// the state belongs to, so a checkpoint is never replayed into a different
// table shape.
type EngineState struct {
	Magic   uint64    `json:"magic"`
	Power   int       `json:"power"`
	Mode    string    `json:"mode"`
	Cursor  int       `json:"cursor"`
	Grid    [10]int   `json:"grid"`
	SavedAt time.Time `json:"saved_at"`
}

// Key returns the backend-independent identity of the state.
func (s EngineState) Key() string {
	return EngineKey(s.Magic, s.Power, s.Mode)
}

// EngineKey builds the identity key for an engine checkpoint.
func EngineKey(magic uint64, power int, mode string) string {
	return fmt.Sprintf("engine_%s_p%d_%d", mode, power, magic)
}

// RangeState records how far a range walk has progressed. Next is the first
// magic number not yet fully searched.
type RangeState struct {
	From    uint64    `json:"from"`
	To      uint64    `json:"to"`
	Next    uint64    `json:"next"`
	SavedAt time.Time `json:"saved_at"`
}

// Key returns the backend-independent identity of the state.
func (s RangeState) Key() string {
	return RangeKey(s.From, s.To)
}

// RangeKey builds the identity key for a range checkpoint.
func RangeKey(from, to uint64) string {
	return fmt.Sprintf("range_%d_%d", from, to)
}

// Store is the persistence contract shared by all backends. Load returns
// ok=false without error when no checkpoint exists; a checkpoint that exists
// but cannot be decoded is an error.
type Store interface {
	SaveEngine(ctx context.Context, state EngineState) error
	LoadEngine(ctx context.Context, magic uint64, power int, mode string) (EngineState, bool, error)
	DeleteEngine(ctx context.Context, magic uint64, power int, mode string) error

	SaveRange(ctx context.Context, state RangeState) error
	LoadRange(ctx context.Context, from, to uint64) (RangeState, bool, error)
	DeleteRange(ctx context.Context, from, to uint64) error
}
