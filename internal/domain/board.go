package domain

import "fmt"

// SubBoard is one inner 3x3 board stored row-major.
type SubBoard [9]Cell

// MetaBoard holds the outcome of each sub-board, in the same layout as a SubBoard.
type MetaBoard [9]Outcome

// Claimed returns how many sub-boards the given mark has won.
func (m MetaBoard) Claimed(c Cell) int {
	want := OutcomeFor(c)
	n := 0
	for _, v := range m {
		if v == want {
			n++
		}
	}
	return n
}

// Move targets one cell of one sub-board, both indexed 0..8.
type Move struct {
	Board int `json:"board"`
	Cell  int `json:"cell"`
}

// InBounds reports whether both indexes are within 0..8.
func (m Move) InBounds() bool {
	return m.Board >= 0 && m.Board < 9 && m.Cell >= 0 && m.Cell < 9
}

func (m Move) String() string { return fmt.Sprintf("%d/%d", m.Board, m.Cell) }

// IsLegal reports whether m targets an empty cell of an undecided sub-board.
func IsLegal(meta MetaBoard, boards [9]SubBoard, m Move) bool {
	return m.InBounds() && meta[m.Board] == Undecided && boards[m.Board][m.Cell] == Empty
}

// LegalMoves lists every legal move, ordered by sub-board then cell.
func LegalMoves(meta MetaBoard, boards [9]SubBoard) []Move {
	moves := make([]Move, 0, 81)
	for b := range 9 {
		if meta[b] != Undecided {
			continue
		}
		for c, v := range boards[b] {
			if v == Empty {
				moves = append(moves, Move{Board: b, Cell: c})
			}
		}
	}
	return moves
}

// Evaluate runs win detection over the sub-board's cells.
func (b SubBoard) Evaluate() WinnerInfo { return Evaluate([9]Cell(b)) }

// Evaluate runs win detection over the meta-board. Draw cells count as
// filled but never complete a line.
func (m MetaBoard) Evaluate() WinnerInfo { return Evaluate([9]Outcome(m)) }
