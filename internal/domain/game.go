package domain

import (
	"errors"
	"fmt"
)

// Status is the phase of a match.
type Status uint8

const (
	InProgress Status = iota
	PendingTieBreak
	Decided
)

func (s Status) String() string {
	switch s {
	case PendingTieBreak:
		return "tie-break"
	case Decided:
		return "decided"
	default:
		return "in-progress"
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// TieBreak records how a drawn meta-board was settled.
type TieBreak uint8

const (
	TieBreakNone TieBreak = iota
	TieBreakAccepted
	TieBreakCounted
)

func (t TieBreak) String() string {
	switch t {
	case TieBreakAccepted:
		return "accepted"
	case TieBreakCounted:
		return "counted"
	default:
		return ""
	}
}

func (t TieBreak) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// Scoreboard counts match wins per mark. It survives Reset(true).
type Scoreboard struct {
	X int `json:"x"`
	O int `json:"o"`
}

func (s *Scoreboard) add(c Cell) {
	switch c {
	case X:
		s.X++
	case O:
		s.O++
	}
}

// Of returns the score of a mark.
func (s Scoreboard) Of(c Cell) int {
	switch c {
	case X:
		return s.X
	case O:
		return s.O
	default:
		return 0
	}
}

// CommitFunc is notified once for every move Play accepts, after the game
// state has been updated.
type CommitFunc func(m Move, mark Cell)

// Game holds the current state of an ultimate tic-tac-toe match.
type Game struct {
	Boards     [9]SubBoard
	Subs       [9]WinnerInfo
	Meta       WinnerInfo
	Turn       Cell
	First      Cell
	TiePending bool
	TieBreak   TieBreak
	Score      Scoreboard
	Moves      int

	OnCommit CommitFunc `json:"-"`
}

// Errors returned by domain operations. Every move rejection wraps ErrIllegalMove.
var (
	ErrIllegalMove  = errors.New("illegal move")
	ErrOutOfBounds  = fmt.Errorf("%w: out of bounds", ErrIllegalMove)
	ErrOccupied     = fmt.Errorf("%w: cell occupied", ErrIllegalMove)
	ErrBoardDecided = fmt.Errorf("%w: sub-board decided", ErrIllegalMove)
	ErrGameOver     = fmt.Errorf("%w: game over", ErrIllegalMove)
	ErrNoTiePending = errors.New("no tie-break pending")
)

// New returns a new game with X to move.
func New() Game {
	return Game{Turn: X, First: X}
}

// Status derives the match phase. Exactly one phase holds at any time.
func (g *Game) Status() Status {
	switch {
	case g.Meta.Decided():
		return Decided
	case g.TiePending:
		return PendingTieBreak
	default:
		return InProgress
	}
}

// MetaBoard returns the current sub-board outcomes.
func (g *Game) MetaBoard() MetaBoard {
	var m MetaBoard
	for i, s := range g.Subs {
		m[i] = s.Outcome
	}
	return m
}

// LegalMoves lists the moves Play would accept.
func (g *Game) LegalMoves() []Move {
	if g.Status() != InProgress {
		return nil
	}
	return LegalMoves(g.MetaBoard(), g.Boards)
}

// Play places the current turn's mark. A rejected move leaves the game untouched.
func (g *Game) Play(m Move) error {
	if g.Status() != InProgress {
		return ErrGameOver
	}
	if !m.InBounds() {
		return ErrOutOfBounds
	}
	if g.Subs[m.Board].Decided() {
		return ErrBoardDecided
	}
	if g.Boards[m.Board][m.Cell] != Empty {
		return ErrOccupied
	}

	// Place the mark
	mark := g.Turn
	g.Boards[m.Board][m.Cell] = mark
	g.Moves++
	defer g.commit(m, mark)

	// Sub-board outcomes are only ever set once
	sub := g.Boards[m.Board].Evaluate()
	if !sub.Decided() {
		g.Turn = mark.Opponent()
		return nil
	}
	g.Subs[m.Board] = sub

	meta := g.MetaBoard().Evaluate()
	switch meta.Outcome {
	case XWins, OWins:
		g.Meta = meta
		g.Score.add(meta.Outcome.Winner())
	case Draw:
		// Held open until ResolveTie
		g.TiePending = true
	default:
		g.Turn = mark.Opponent()
	}
	return nil
}

func (g *Game) commit(m Move, mark Cell) {
	if g.OnCommit != nil {
		g.OnCommit(m, mark)
	}
}

// ResolveTie settles a drawn meta-board. Accepting the draw ends the match
// without a score change; otherwise the mark holding strictly more sub-boards
// wins, and equal counts end in a draw.
func (g *Game) ResolveTie(acceptDraw bool) error {
	if g.Status() != PendingTieBreak {
		return ErrNoTiePending
	}
	g.TiePending = false
	if acceptDraw {
		g.TieBreak = TieBreakAccepted
		g.Meta = WinnerInfo{Outcome: Draw}
		return nil
	}

	g.TieBreak = TieBreakCounted
	meta := g.MetaBoard()
	x, o := meta.Claimed(X), meta.Claimed(O)
	switch {
	case x > o:
		g.Meta = WinnerInfo{Outcome: XWins}
		g.Score.add(X)
	case o > x:
		g.Meta = WinnerInfo{Outcome: OWins}
		g.Score.add(O)
	default:
		g.Meta = WinnerInfo{Outcome: Draw}
	}
	return nil
}

// Reset clears the boards and hands the first move back to the starting
// mark. The scoreboard is zeroed unless preserveScore is set.
func (g *Game) Reset(preserveScore bool) {
	first := g.First
	if first == Empty {
		first = X
	}
	score := g.Score
	hook := g.OnCommit
	*g = Game{Turn: first, First: first, OnCommit: hook}
	if preserveScore {
		g.Score = score
	}
}
