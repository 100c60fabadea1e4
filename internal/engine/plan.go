package engine

// Step describes how one grid field gets its value. Enumerated fields try
// table indices in increasing order; derived fields are computed from two
// already-filled fields through the magic-number constraint and carry no
// enumeration state of their own.
type Step struct {
	// Field is the grid slot (1..9) this step fills.
	Field int
	// Derived marks a computed field; Calc names the two source fields.
	Derived bool
	Calc    [2]int
	// Start lists prior fields whose maximum index lower-bounds the first
	// candidate for an enumerated field (symmetry breaking).
	Start []int
}

// Plan is the fixed field-visitation order of one search mode, 1-based with
// entry 0 unused. The ordering encodes the entire pruning strategy: changing
// it changes both performance and the order solutions are enumerated in.
type Plan [10]Step

// BruteForcePlan visits the grid with no symmetry breaking; every
// arrangement is reachable, so it enumerates all solutions including
// rotations and reflections.
func BruteForcePlan() Plan {
	return Plan{
		1: {Field: 1},
		2: {Field: 3},
		3: {Field: 2, Derived: true, Calc: [2]int{1, 3}},
		4: {Field: 5},
		5: {Field: 7, Derived: true, Calc: [2]int{3, 5}},
		6: {Field: 4, Derived: true, Calc: [2]int{1, 7}},
		7: {Field: 6, Derived: true, Calc: [2]int{4, 5}},
		8: {Field: 8, Derived: true, Calc: [2]int{2, 5}},
		9: {Field: 9, Derived: true, Calc: [2]int{3, 6}},
	}
}

// LinearPlan is the power-1 order: the center is pre-seeded to magic/3 and
// the plan starts at step 2, deriving the opposite corner from each filled
// corner.
func LinearPlan() Plan {
	return Plan{
		1: {Field: 5}, // pre-seeded, never executed (floor is 1)
		2: {Field: 1},
		3: {Field: 9, Derived: true, Calc: [2]int{1, 5}},
		4: {Field: 3, Start: []int{1}},
		5: {Field: 2, Derived: true, Calc: [2]int{1, 3}},
		6: {Field: 6, Derived: true, Calc: [2]int{3, 9}},
		7: {Field: 4, Derived: true, Calc: [2]int{5, 6}},
		8: {Field: 8, Derived: true, Calc: [2]int{2, 5}},
		9: {Field: 7, Derived: true, Calc: [2]int{1, 4}},
	}
}

// GeneralPlan is the order for power >= 2: like the brute-force order but
// with ascending-start hints on fields 3 and 5, which prunes rotated and
// reflected duplicates of the same square.
func GeneralPlan() Plan {
	return Plan{
		1: {Field: 1},
		2: {Field: 3, Start: []int{1}},
		3: {Field: 2, Derived: true, Calc: [2]int{1, 3}},
		4: {Field: 5, Start: []int{3}},
		5: {Field: 7, Derived: true, Calc: [2]int{3, 5}},
		6: {Field: 4, Derived: true, Calc: [2]int{1, 7}},
		7: {Field: 6, Derived: true, Calc: [2]int{4, 5}},
		8: {Field: 8, Derived: true, Calc: [2]int{2, 5}},
		9: {Field: 9, Derived: true, Calc: [2]int{3, 6}},
	}
}
