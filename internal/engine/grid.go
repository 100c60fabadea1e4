package engine

// Grid holds the nine field slots, 1-based with slot 0 unused. Each non-zero
// entry is a value-table index; zero means empty. Non-zero entries are
// unique at all times.
type Grid [10]int

// Contains reports whether index v occupies any slot.
func (g *Grid) Contains(v int) bool {
	for _, cur := range g[1:] {
		if cur == v {
			return true
		}
	}
	return false
}

// Complete reports whether all nine slots are filled.
func (g *Grid) Complete() bool {
	for _, cur := range g[1:] {
		if cur == 0 {
			return false
		}
	}
	return true
}

// Reset empties every slot.
func (g *Grid) Reset() {
	*g = Grid{}
}

// Valid checks the structural invariants a restored grid must satisfy:
// indices within the table bound and no duplicate non-zero entries.
func (g *Grid) Valid(tableSize int) bool {
	seen := make(map[int]struct{}, 9)
	for _, cur := range g[1:] {
		if cur < 0 || cur > tableSize {
			return false
		}
		if cur == 0 {
			continue
		}
		if _, dup := seen[cur]; dup {
			return false
		}
		seen[cur] = struct{}{}
	}
	return true
}
