package ai

import (
	"fmt"
	"strings"
)

// Difficulty selects the move-selection tier.
type Difficulty uint8

const (
	Easy Difficulty = iota
	Medium
	Hard
	Impossible
)

// DefaultDifficulty is used when a session does not pick one.
const DefaultDifficulty = Medium

func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "easy"
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	case Impossible:
		return "impossible"
	default:
		return fmt.Sprintf("difficulty(%d)", uint8(d))
	}
}

// ParseDifficulty accepts easy, medium, hard or impossible in any case.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return Easy, nil
	case "medium":
		return Medium, nil
	case "hard":
		return Hard, nil
	case "impossible":
		return Impossible, nil
	}
	return DefaultDifficulty, fmt.Errorf("unknown difficulty %q", s)
}

func (d Difficulty) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Difficulty) UnmarshalText(b []byte) error {
	v, err := ParseDifficulty(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
