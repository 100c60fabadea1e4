package errors

import (
	"errors"
	"fmt"
)

// Infeasibility sentinels: the magic number was rejected by a pre-filter
// before any search ran. The walker logs these and moves on.
var (
	ErrNotDivisibleByThree  = errors.New("magic number not divisible by 3")
	ErrNotSumOfThreeSquares = errors.New("magic number cannot be written as a sum of 3 squares")
	ErrCenterNotSquare      = errors.New("magic number divided by 3 is not a perfect square")
	ErrTooFewSquares        = errors.New("fewer than 8 usable square magnitudes")
)

// Fatal-per-unit sentinels.
var (
	// ErrTableTooLarge marks a structural limit: the value table for this
	// magic number and power cannot be materialized. Never to be conflated
	// with an exhausted search.
	ErrTableTooLarge = errors.New("value table too large")
	// ErrInvalidCheckpoint marks a stored search state that fails structural
	// validation; the caller starts fresh instead of resuming.
	ErrInvalidCheckpoint = errors.New("invalid checkpoint state")
)

// InfeasibleError wraps an infeasibility sentinel with the rejected number.
type InfeasibleError struct {
	Magic  uint64
	Reason error
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("magic number %d infeasible: %s", e.Magic, e.Reason.Error())
}

func (e *InfeasibleError) Unwrap() error {
	return e.Reason
}

func Infeasible(magic uint64, reason error) *InfeasibleError {
	return &InfeasibleError{Magic: magic, Reason: reason}
}

// IsInfeasible reports whether err belongs to the infeasible-input family.
func IsInfeasible(err error) bool {
	return errors.Is(err, ErrNotDivisibleByThree) ||
		errors.Is(err, ErrNotSumOfThreeSquares) ||
		errors.Is(err, ErrCenterNotSquare) ||
		errors.Is(err, ErrTooFewSquares)
}

// Reason returns a short stable label for an infeasibility error, used as a
// metrics dimension and event field.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrNotDivisibleByThree):
		return "not_divisible_by_3"
	case errors.Is(err, ErrNotSumOfThreeSquares):
		return "three_square_theorem"
	case errors.Is(err, ErrCenterNotSquare):
		return "center_not_square"
	case errors.Is(err, ErrTooFewSquares):
		return "too_few_squares"
	default:
		return "other"
	}
}
