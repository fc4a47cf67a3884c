package ai

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jaminalder/ultimate-tic-tac-toe/internal/domain"
)

// ErrNoLegalMove means SelectMove was called on a board with nothing left to
// play, which only happens when the caller ignores the match status.
var ErrNoLegalMove = errors.New("no legal move")

// DefaultSearchDepth is the Impossible tier's horizon in plies: the AI move
// and the opponent's reply.
const DefaultSearchDepth = 2

// Strategy selects moves for the computer player. It never mutates the
// boards it is given; every what-if is played on a private copy.
type Strategy struct {
	mark   domain.Cell
	depth  int
	logger zerolog.Logger

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// Option configures a Strategy.
type Option func(*Strategy)

// WithLogger sets the logger used for fallback and search diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Strategy) { s.logger = l }
}

// WithRand makes random choices reproducible.
func WithRand(r *rand.Rand) Option {
	return func(s *Strategy) { s.rng = r }
}

// WithMark sets the mark the computer plays. Defaults to O.
func WithMark(c domain.Cell) Option {
	return func(s *Strategy) {
		if c == domain.X || c == domain.O {
			s.mark = c
		}
	}
}

// WithSearchDepth sets the Impossible tier's horizon in plies.
func WithSearchDepth(plies int) Option {
	return func(s *Strategy) {
		if plies > 0 {
			s.depth = plies
		}
	}
}

// New returns a Strategy playing O with a two-ply search horizon.
func New(opts ...Option) *Strategy {
	s := &Strategy{
		mark:   domain.O,
		depth:  DefaultSearchDepth,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s.logger = s.logger.With().Str("component", "ai").Logger()
	return s
}

// SelectMove picks a move for the computer at the given difficulty.
func (s *Strategy) SelectMove(meta domain.MetaBoard, boards [9]domain.SubBoard, d Difficulty) (domain.Move, error) {
	return s.SelectMoveContext(context.Background(), meta, boards, d)
}

// SelectMoveContext is SelectMove with cancellation. A cancelled Impossible
// search returns the best move found so far.
func (s *Strategy) SelectMoveContext(ctx context.Context, meta domain.MetaBoard, boards [9]domain.SubBoard, d Difficulty) (domain.Move, error) {
	moves := domain.LegalMoves(meta, boards)
	if len(moves) == 0 {
		return domain.Move{}, ErrNoLegalMove
	}

	var m domain.Move
	switch d {
	case Easy:
		m = s.random(moves)
	case Medium:
		m = s.medium(meta, boards, moves)
	case Hard:
		m = s.hard(meta, boards, moves)
	case Impossible:
		m = s.impossible(ctx, meta, boards, moves)
	default:
		m = s.random(moves)
	}

	return s.ensureLegal(meta, boards, moves, d, m), nil
}

// ensureLegal replaces a move that targets an occupied cell or a decided
// sub-board with a random legal one, so a faulty tier never reaches Play.
func (s *Strategy) ensureLegal(meta domain.MetaBoard, boards [9]domain.SubBoard, moves []domain.Move, d Difficulty, m domain.Move) domain.Move {
	if domain.IsLegal(meta, boards, m) {
		return m
	}
	fallback := s.random(moves)
	s.logger.Warn().
		Stringer("difficulty", d).
		Stringer("rejected", m).
		Stringer("fallback", fallback).
		Msg("tier produced an illegal move, substituting a random one")
	return fallback
}

func (s *Strategy) random(moves []domain.Move) domain.Move {
	s.mu.Lock()
	defer s.mu.Unlock()
	return moves[s.rng.Intn(len(moves))]
}
