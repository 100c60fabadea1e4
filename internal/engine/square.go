package engine

// Square is a resolved grid snapshot: the nine cell magnitudes in row-major
// order together with every line sum. Cells of empty slots are 0, so a
// Square can also represent a deep partial fill for near-miss reporting.
type Square struct {
	Magic   uint64
	Cells   [9]uint64
	Indices [9]int
	Filled  int

	Rows         [3]uint64
	Cols         [3]uint64
	Diagonal     uint64 // top-left to bottom-right
	AntiDiagonal uint64 // top-right to bottom-left
}

func (s *Square) sum() {
	for r := 0; r < 3; r++ {
		s.Rows[r] = s.Cells[3*r] + s.Cells[3*r+1] + s.Cells[3*r+2]
	}
	for c := 0; c < 3; c++ {
		s.Cols[c] = s.Cells[c] + s.Cells[c+3] + s.Cells[c+6]
	}
	s.Diagonal = s.Cells[0] + s.Cells[4] + s.Cells[8]
	s.AntiDiagonal = s.Cells[2] + s.Cells[4] + s.Cells[6]
}

// IsMagic reports whether all eight line sums equal the magic number. The
// fill plans only constrain a subset of the lines, so this final check is
// what separates a solution from a near miss.
func (s *Square) IsMagic() bool {
	for i := 0; i < 3; i++ {
		if s.Rows[i] != s.Magic || s.Cols[i] != s.Magic {
			return false
		}
	}
	return s.Diagonal == s.Magic && s.AntiDiagonal == s.Magic
}

// Complete reports whether every cell is filled.
func (s *Square) Complete() bool {
	return s.Filled == 9
}
