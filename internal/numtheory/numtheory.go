// Package numtheory holds the exact integer predicates that gate the search:
// a perfect-square test, an integer square root, and Legendre's three-square
// feasibility check. Everything operates on uint64 and stays exact up to the
// full 64-bit range; squaring is done through bits.Mul64 so candidates near
// 10^18 never overflow silently.
package numtheory

import "math/bits"

// SumOfThreeSquares reports whether n can be written as a^2 + b^2 + c^2.
// By Legendre's three-square theorem this fails exactly when n, after all
// factors of 4 are removed, is congruent to 7 modulo 8.
func SumOfThreeSquares(n uint64) bool {
	for n%4 == 0 && n != 0 {
		n /= 4
	}
	return n%8 != 7
}

// mulEquals reports whether x*x == n without overflowing.
func mulEquals(x, n uint64) bool {
	hi, lo := bits.Mul64(x, x)
	return hi == 0 && lo == n
}

// Sqrt returns the integer square root of n when n is a perfect square.
// It iterates the Babylonian recurrence x <- (x + n/x)/2 until it settles,
// then verifies x-1, x and x+1 by exact multiplication; ok is false when
// none of them squares to n.
func Sqrt(n uint64) (root uint64, ok bool) {
	if n == 0 {
		return 0, true
	}
	x := n/2 + 1
	for {
		y := (x + n/x) / 2
		var diff uint64
		if x > y {
			diff = x - y
		} else {
			diff = y - x
		}
		if diff < 2 {
			break
		}
		x = y
	}
	if mulEquals(x, n) {
		return x, true
	}
	if x > 0 && mulEquals(x-1, n) {
		return x - 1, true
	}
	if mulEquals(x+1, n) {
		return x + 1, true
	}
	return 0, false
}

// IsSquare reports whether n is a perfect square. Cheap congruence sieves
// (mod 4/8 via bit tests, then mod 10, 7, 9 and 13, then the 25/625 tail
// pattern) reject most non-squares before the Babylonian root extraction,
// which carries a visited set so a non-converging orbit terminates.
func IsSquare(n uint64) bool {
	if n == 0 {
		return true
	}

	// Strip factors of 4; squares end in binary 001 after that.
	for n&3 == 0 {
		n >>= 2
	}
	if n&7 != 1 {
		return false
	}
	if n == 1 {
		return true
	}

	last := n % 10
	if last == 3 || last == 7 {
		return false
	}
	switch n % 7 {
	case 3, 5, 6:
		return false
	}
	switch n % 9 {
	case 2, 3, 5, 6, 8:
		return false
	}
	switch n % 13 {
	case 2, 5, 6, 7, 8, 11:
		return false
	}

	if last == 5 {
		// A square ending in 5 ends in 25; the preceding digit is 0, 2 or
		// 6, and 625 is the only admissible 6 case besides 5625.
		if (n/10)%10 != 2 {
			return false
		}
		switch (n / 100) % 10 {
		case 0, 2:
		case 6:
			d := (n / 1000) % 10
			if d != 0 && d != 5 {
				return false
			}
		default:
			return false
		}
	} else if (n/10)%4 != 0 {
		return false
	}

	// Babylonian descent seeded at 4*10^(digits/2). The visited set guards
	// against the two-cycle the integer recurrence can fall into.
	x := uint64(4)
	for scale := n; scale >= 100; scale /= 100 {
		x *= 10
	}
	seen := map[uint64]struct{}{x: {}, n: {}}
	for !mulEquals(x, n) {
		x = (x + n/x) >> 1
		if _, dup := seen[x]; dup {
			return false
		}
		seen[x] = struct{}{}
	}
	return true
}
