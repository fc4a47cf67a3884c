package domain

// Cell represents a board cell state.
type Cell uint8

const (
	Empty Cell = iota
	X
	O
)

// Opponent returns the other mark. Empty has no opponent.
func (c Cell) Opponent() Cell {
	switch c {
	case X:
		return O
	case O:
		return X
	default:
		return Empty
	}
}

func (c Cell) String() string {
	switch c {
	case X:
		return "X"
	case O:
		return "O"
	default:
		return ""
	}
}

func (c Cell) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Outcome is the resolved state of a sub-board or of the meta-board.
// XWins and OWins share their numeric value with X and O.
type Outcome uint8

const (
	Undecided Outcome = iota
	XWins
	OWins
	Draw
)

// OutcomeFor returns the winning outcome for a mark.
func OutcomeFor(c Cell) Outcome {
	switch c {
	case X:
		return XWins
	case O:
		return OWins
	default:
		return Undecided
	}
}

// Winner returns the mark that won, or Empty for Draw and Undecided.
func (o Outcome) Winner() Cell {
	switch o {
	case XWins:
		return X
	case OWins:
		return O
	default:
		return Empty
	}
}

// Decided reports whether the outcome is permanent.
func (o Outcome) Decided() bool { return o != Undecided }

func (o Outcome) String() string {
	switch o {
	case XWins:
		return "X"
	case OWins:
		return "O"
	case Draw:
		return "draw"
	default:
		return ""
	}
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }
