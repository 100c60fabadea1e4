// Package valuetable builds the ordered magnitude tables the search engine
// fills grids from. Index 0 is always the zero magnitude so an empty grid
// slot resolves to 0; indices 1..Size() carry the candidate magnitudes in
// construction order.
package valuetable

import (
	"fmt"
	"math/bits"

	"github.com/numbermill/squarehunt/internal/numtheory"
	apperrors "github.com/numbermill/squarehunt/pkg/errors"
)

// Table maps grid indices to magnitudes and back.
type Table struct {
	// Values holds Values[i] = magnitude of index i; Values[0] == 0.
	Values []uint64
	// Magic is the target line sum the table was built for.
	Magic uint64
	// Power is the exponent for generic tables; 2 for dual-square tables.
	Power int
	// Dual marks a dual-square table, whose last entry is the center.
	Dual bool

	index map[uint64]int
}

// Size returns the highest valid index.
func (t *Table) Size() int {
	return len(t.Values) - 1
}

// Magnitude returns the magnitude at index i.
func (t *Table) Magnitude(i int) uint64 {
	return t.Values[i]
}

// Lookup returns the index holding magnitude v.
func (t *Table) Lookup(v uint64) (int, bool) {
	i, ok := t.index[v]
	return i, ok
}

// CenterIndex returns the index of the pre-seeded center magnitude of a
// dual-square table (always the last entry).
func (t *Table) CenterIndex() int {
	return len(t.Values) - 1
}

// pow returns base^exp, reporting overflow instead of wrapping.
func pow(base uint64, exp int) (uint64, bool) {
	result := uint64(1)
	for i := 0; i < exp; i++ {
		hi, lo := bits.Mul64(result, base)
		if hi != 0 {
			return 0, false
		}
		result = lo
	}
	return result, true
}

// BuildPowers builds the generic table Values[i] = i^power for i in 0..size,
// where size is the largest k with k^power <= magic - 1 - 2^power. The bound
// guarantees that the two smallest distinct magnitudes plus Values[size]
// cannot overshoot the magic number. maxEntries caps the allocation; beyond
// it the magic number is a structural limit for this machine, reported as
// ErrTableTooLarge rather than as an exhausted search.
func BuildPowers(magic uint64, power int, maxEntries int) (*Table, error) {
	twoPow, ok := pow(2, power)
	if !ok || magic <= twoPow+1 {
		return nil, fmt.Errorf("magic number %d too small for power %d", magic, power)
	}
	bound := magic - 1 - twoPow
	size := rootFloor(bound, power)
	if maxEntries > 0 && size+1 > uint64(maxEntries) {
		return nil, fmt.Errorf("power %d table for %d needs %d entries (limit %d): %w",
			power, magic, size+1, maxEntries, apperrors.ErrTableTooLarge)
	}

	t := &Table{
		Values: make([]uint64, size+1),
		Magic:  magic,
		Power:  power,
		index:  make(map[uint64]int, size+1),
	}
	for i := uint64(0); i <= size; i++ {
		v, _ := pow(i, power)
		t.Values[i] = v
		t.index[v] = int(i)
	}
	return t, nil
}

// rootFloor returns the largest k with k^power <= n.
func rootFloor(n uint64, power int) uint64 {
	if power == 1 {
		return n
	}
	// Binary search; exact power evaluation keeps this overflow-safe.
	lo, hi := uint64(0), uint64(1)<<uint(64/power+1)
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		v, ok := pow(mid, power)
		if ok && v <= n {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// BuildDualSquares enumerates the square magnitudes usable around a fixed
// center c = magic/3: pairs (s^2, mid - s^2) with mid = magic - c where both
// halves are squares and unequal. The center is appended last so the engine
// can pre-seed it. Fewer than four pairs means no 3x3 arrangement exists.
func BuildDualSquares(magic uint64) (*Table, error) {
	if magic%3 != 0 {
		return nil, apperrors.Infeasible(magic, apperrors.ErrNotDivisibleByThree)
	}
	center := magic / 3
	if !numtheory.IsSquare(center) {
		return nil, apperrors.Infeasible(magic, apperrors.ErrCenterNotSquare)
	}

	t := &Table{
		Values: []uint64{0},
		Magic:  magic,
		Power:  2,
		Dual:   true,
		index:  map[uint64]int{0: 0},
	}
	mid := magic - center
	for s, sq := uint64(0), uint64(0); sq < center; {
		s++
		sq = s * s
		counter := mid - sq
		if !numtheory.IsSquare(counter) {
			continue
		}
		if sq == counter {
			continue
		}
		// The last iteration can cross the center and mirror a pair that
		// was already collected; magnitudes must stay unique.
		if _, dup := t.index[sq]; dup {
			continue
		}
		if _, dup := t.index[counter]; dup {
			continue
		}
		t.append(sq)
		t.append(counter)
	}
	// Eight distinct non-center magnitudes are the bare minimum for the
	// remaining ring around the center.
	if len(t.Values)-1 < 8 {
		return nil, apperrors.Infeasible(magic, apperrors.ErrTooFewSquares)
	}
	t.append(center)
	return t, nil
}

func (t *Table) append(v uint64) {
	t.index[v] = len(t.Values)
	t.Values = append(t.Values, v)
}
