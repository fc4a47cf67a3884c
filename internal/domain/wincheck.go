package domain

// Lines lists the 8 winning lines of a 3x3 board in evaluation order:
// rows top to bottom, columns left to right, then both diagonals.
var Lines = [8][3]int{
	// rows
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	// cols
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	// diags
	{0, 4, 8}, {2, 4, 6},
}

// WinnerInfo is the result of evaluating a 9-slot board.
type WinnerInfo struct {
	Outcome Outcome `json:"outcome"`
	Line    []int   `json:"line,omitempty"` // set only for XWins and OWins
}

// Decided reports whether the evaluated board has resolved.
func (w WinnerInfo) Decided() bool { return w.Outcome.Decided() }

// Slot is any 9-slot board value: cells of a sub-board or outcomes of the meta-board.
type Slot interface {
	Cell | Outcome
}

// Evaluate returns the first completed line of a board, Draw when every slot
// is filled without a line, or Undecided otherwise. Draw slots fill the board
// but never complete a line.
func Evaluate[T Slot](b [9]T) WinnerInfo {
	for _, ln := range Lines {
		v := Outcome(b[ln[0]])
		if v != XWins && v != OWins {
			continue
		}
		if Outcome(b[ln[1]]) == v && Outcome(b[ln[2]]) == v {
			return WinnerInfo{Outcome: v, Line: []int{ln[0], ln[1], ln[2]}}
		}
	}
	for _, v := range b {
		if Outcome(v) == Undecided {
			return WinnerInfo{}
		}
	}
	return WinnerInfo{Outcome: Draw}
}
