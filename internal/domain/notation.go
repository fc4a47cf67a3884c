package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// StartingPosition is the notation of an empty board with X to move.
const StartingPosition = "9/9/9/9/9/9/9/9/9 x"

// Notation encodes the cells and the side to move, much like a chess FEN:
// nine '/'-separated sub-boards, each a run of 'x', 'o' and digits counting
// consecutive empty cells, then a space and the mark to move.
//
//	9/9/9/9/4x4/9/9/9/9 o
//
// Outcomes, tie state and score are not encoded; ParseNotation re-derives
// the outcomes from the cells.
func (g *Game) Notation() string {
	var sb strings.Builder
	for bi, board := range g.Boards {
		if bi > 0 {
			sb.WriteByte('/')
		}
		empty := 0
		for _, c := range board {
			if c == Empty {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			if c == X {
				sb.WriteByte('x')
			} else {
				sb.WriteByte('o')
			}
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
	}
	sb.WriteByte(' ')
	if g.Turn == O {
		sb.WriteByte('o')
	} else {
		sb.WriteByte('x')
	}
	return sb.String()
}

// ParseNotation builds a game from Notation output. Sub-board outcomes and
// the meta outcome are evaluated from the cells; a drawn meta-board leaves
// the game pending a tie-break.
func ParseNotation(s string) (Game, error) {
	cells, side, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok {
		return Game{}, fmt.Errorf("notation %q: missing side to move", s)
	}
	groups := strings.Split(cells, "/")
	if len(groups) != 9 {
		return Game{}, fmt.Errorf("notation %q: expected 9 sub-boards, got %d", s, len(groups))
	}

	g := New()
	for bi, group := range groups {
		ci := 0
		for _, r := range group {
			switch {
			case r == 'x' || r == 'o':
				if ci >= 9 {
					return Game{}, fmt.Errorf("notation %q: sub-board %d overflows", s, bi)
				}
				if r == 'x' {
					g.Boards[bi][ci] = X
				} else {
					g.Boards[bi][ci] = O
				}
				ci++
				g.Moves++
			case r >= '1' && r <= '9':
				ci += int(r - '0')
			default:
				return Game{}, fmt.Errorf("notation %q: invalid token %q in sub-board %d", s, r, bi)
			}
		}
		if ci != 9 {
			return Game{}, fmt.Errorf("notation %q: sub-board %d has %d cells", s, bi, ci)
		}
	}

	switch strings.TrimSpace(side) {
	case "x":
		g.Turn = X
	case "o":
		g.Turn = O
	default:
		return Game{}, fmt.Errorf("notation %q: invalid side %q", s, side)
	}

	for bi := range g.Boards {
		g.Subs[bi] = g.Boards[bi].Evaluate()
	}
	meta := g.MetaBoard().Evaluate()
	switch meta.Outcome {
	case XWins, OWins:
		g.Meta = meta
	case Draw:
		g.TiePending = true
	}
	return g, nil
}
