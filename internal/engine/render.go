package engine

import (
	"fmt"
	"strings"

	"github.com/numbermill/squarehunt/internal/numtheory"
	"github.com/numbermill/squarehunt/internal/valuetable"
)

// Render formats a square for solution files and verbose output: the
// anti-diagonal sum above the grid, each row trailed by its sum, a rule,
// and the column sums beside the main-diagonal sum. For tables with
// power >= 2 a second block shows each cell in base^power form.
func Render(sq *Square, t *valuetable.Table) string {
	w := digits(sq.Magic) + 1
	var b strings.Builder

	fmt.Fprintf(&b, "%s%*d\n", strings.Repeat(" ", 3*(w+1)+3), w, sq.AntiDiagonal)
	for r := 0; r < 3; r++ {
		fmt.Fprintf(&b, " %*d %*d %*d | %*d\n",
			w, sq.Cells[3*r], w, sq.Cells[3*r+1], w, sq.Cells[3*r+2], w, sq.Rows[r])
	}
	fmt.Fprintf(&b, "%s\\\n", strings.Repeat("-", 3*(w+1)+2))
	fmt.Fprintf(&b, " %*d %*d %*d   %*d\n",
		w, sq.Cols[0], w, sq.Cols[1], w, sq.Cols[2], w, sq.Diagonal)

	if t.Power >= 2 {
		b.WriteByte('\n')
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				fmt.Fprintf(&b, " %*d^%d", w, root(sq, t, 3*r+c), t.Power)
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// root recovers the base of a cell. Generic power tables store i^power at
// index i, so the index is the base; dual tables store arbitrary squares,
// so the base is extracted.
func root(sq *Square, t *valuetable.Table, cell int) uint64 {
	if !t.Dual {
		return uint64(sq.Indices[cell])
	}
	r, _ := numtheory.Sqrt(sq.Cells[cell])
	return r
}

func digits(n uint64) int {
	d := 1
	for n >= 10 {
		n /= 10
		d++
	}
	return d
}
