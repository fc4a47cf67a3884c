package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jaminalder/ultimate-tic-tac-toe/internal/ai"
	"github.com/jaminalder/ultimate-tic-tac-toe/internal/domain"
)

// Errors exposed by the service layer.
var (
	ErrNotFound    = errors.New("game not found")
	ErrNotYourTurn = errors.New("not your turn")
	ErrNotAPlayer  = errors.New("not a player")
	ErrBadMode     = errors.New("unknown game mode")
)

// Mode says who plays O.
type Mode string

const (
	ModePvP Mode = "pvp" // both marks are human, sharing one screen
	ModePvA Mode = "pva" // X is human, O is the computer
)

// ParseMode accepts pvp or pva; empty means pva.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModePvP:
		return ModePvP, nil
	case ModePvA, "":
		return ModePvA, nil
	}
	return "", fmt.Errorf("%w: %q", ErrBadMode, s)
}

// Default player names.
const (
	DefaultXName    = "Player 1"
	DefaultOName    = "Player 2"
	ComputerName    = "Computer"
	eventBufferSize = 8
)

// Settings are chosen when a session starts.
type Settings struct {
	Mode       Mode
	XName      string
	OName      string
	Difficulty ai.Difficulty
}

// GameState is the in-memory state tracked per session.
type GameState struct {
	ID         string
	Owner      string
	Game       domain.Game
	Mode       Mode
	XName      string
	OName      string
	Difficulty ai.Difficulty
	Created    time.Time
	Updated    time.Time
}

// Computer reports whether mark c is played by the AI in this session.
func (gs *GameState) Computer(c domain.Cell) bool {
	return gs.Mode == ModePvA && c == domain.O
}

// Name returns the display name for a mark.
func (gs *GameState) Name(c domain.Cell) string {
	if c == domain.O {
		return gs.OName
	}
	return gs.XName
}

// snapshot copies the state without the commit hook.
func (gs *GameState) snapshot() GameState {
	cp := *gs
	cp.Game.OnCommit = nil
	return cp
}

// EventKind classifies a broadcast.
type EventKind string

const (
	EventMove  EventKind = "move"
	EventTie   EventKind = "tie"
	EventReset EventKind = "reset"
	EventSetup EventKind = "settings"
)

// Event is delivered to subscribers after every state change. Move events
// are sent once per committed move, human or computer.
type Event struct {
	Kind  EventKind
	Move  domain.Move
	Mark  domain.Cell
	State GameState
}

type subscriber struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

// send delivers ev without blocking and reports whether it fit.
func (s *subscriber) send(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Service manages sessions and subscribers.
type Service struct {
	mu       sync.Mutex
	games    map[string]*GameState
	subs     map[string]map[*subscriber]struct{}
	strategy *ai.Strategy
	logger   zerolog.Logger
}

// NewService creates a service whose computer player uses strategy.
func NewService(strategy *ai.Strategy, logger zerolog.Logger) *Service {
	if strategy == nil {
		strategy = ai.New(ai.WithLogger(logger))
	}
	return &Service{
		games:    make(map[string]*GameState),
		subs:     make(map[string]map[*subscriber]struct{}),
		strategy: strategy,
		logger:   logger.With().Str("component", "service").Logger(),
	}
}

// CreateGame creates and registers a new session owned by owner.
func (s *Service) CreateGame(owner string, set Settings) (*GameState, error) {
	mode, err := ParseMode(string(set.Mode))
	if err != nil {
		return nil, err
	}
	xName := strings.TrimSpace(set.XName)
	if xName == "" {
		xName = DefaultXName
	}
	oName := strings.TrimSpace(set.OName)
	if oName == "" {
		oName = DefaultOName
	}
	if mode == ModePvA {
		oName = ComputerName
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	now := time.Now()
	gs := &GameState{
		ID:         id,
		Owner:      owner,
		Game:       domain.New(),
		Mode:       mode,
		XName:      xName,
		OName:      oName,
		Difficulty: set.Difficulty,
		Created:    now,
		Updated:    now,
	}
	s.games[id] = gs
	s.logger.Info().
		Str("game", id).
		Str("mode", string(mode)).
		Stringer("difficulty", set.Difficulty).
		Msg("game created")
	cp := gs.snapshot()
	return &cp, nil
}

// Get returns a copy of the game state if present.
func (s *Service) Get(id string) (*GameState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.games[id]
	if !ok {
		return nil, false
	}
	cp := gs.snapshot()
	return &cp, true
}

// Play applies a human move for playerID. In a pva session the computer
// replies straight away through the same path, so both moves are
// broadcast as separate events.
func (s *Service) Play(ctx context.Context, id, playerID string, m domain.Move) (*GameState, error) {
	s.mu.Lock()
	gs, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if gs.Owner != "" && gs.Owner != playerID {
		s.mu.Unlock()
		return nil, ErrNotAPlayer
	}
	if gs.Computer(gs.Game.Turn) && gs.Game.Status() == domain.InProgress {
		s.mu.Unlock()
		return nil, ErrNotYourTurn
	}

	var events []Event
	gs.Game.OnCommit = func(m domain.Move, mark domain.Cell) {
		events = append(events, Event{Kind: EventMove, Move: m, Mark: mark, State: gs.snapshot()})
	}
	err := gs.Game.Play(m)
	if err == nil && gs.Computer(gs.Game.Turn) && gs.Game.Status() == domain.InProgress {
		err = s.computerMoveLocked(ctx, gs)
	}
	gs.Game.OnCommit = nil
	if len(events) > 0 {
		gs.Updated = time.Now()
		s.logOutcomeLocked(gs)
	}
	cp := gs.snapshot()
	subs := s.copySubsLocked(id)
	s.mu.Unlock()

	s.broadcast(id, subs, events...)
	if err != nil {
		return &cp, err
	}
	return &cp, nil
}

func (s *Service) computerMoveLocked(ctx context.Context, gs *GameState) error {
	g := &gs.Game
	// The reply is committed, so it must not depend on the caller staying connected.
	m, err := s.strategy.SelectMoveContext(context.WithoutCancel(ctx), g.MetaBoard(), g.Boards, gs.Difficulty)
	if err != nil {
		s.logger.Error().Err(err).Str("game", gs.ID).Str("position", g.Notation()).Msg("computer has no move")
		return fmt.Errorf("computer move: %w", err)
	}
	if err := g.Play(m); err != nil {
		s.logger.Error().Err(err).Str("game", gs.ID).Stringer("move", m).Msg("computer move rejected")
		return fmt.Errorf("computer move: %w", err)
	}
	s.logger.Debug().Str("game", gs.ID).Stringer("move", m).Stringer("difficulty", gs.Difficulty).Msg("computer moved")
	return nil
}

func (s *Service) logOutcomeLocked(gs *GameState) {
	switch gs.Game.Status() {
	case domain.Decided:
		s.logger.Info().
			Str("game", gs.ID).
			Stringer("winner", gs.Game.Meta.Outcome).
			Int("moves", gs.Game.Moves).
			Msg("match decided")
	case domain.PendingTieBreak:
		s.logger.Info().Str("game", gs.ID).Msg("meta-board drawn, waiting for tie-break")
	}
}

// ResolveTie settles a pending tie-break, either accepting the draw or
// counting claimed sub-boards.
func (s *Service) ResolveTie(id, playerID string, acceptDraw bool) (*GameState, error) {
	return s.update(id, playerID, EventTie, func(gs *GameState) error {
		if err := gs.Game.ResolveTie(acceptDraw); err != nil {
			return err
		}
		s.logger.Info().
			Str("game", gs.ID).
			Bool("accepted_draw", acceptDraw).
			Stringer("winner", gs.Game.Meta.Outcome).
			Msg("tie-break resolved")
		return nil
	})
}

// Reset starts a new board and keeps the score.
func (s *Service) Reset(id, playerID string) (*GameState, error) {
	return s.update(id, playerID, EventReset, func(gs *GameState) error {
		gs.Game.Reset(true)
		return nil
	})
}

// NewMatch starts a new board and clears the score.
func (s *Service) NewMatch(id, playerID string) (*GameState, error) {
	return s.update(id, playerID, EventReset, func(gs *GameState) error {
		gs.Game.Reset(false)
		return nil
	})
}

// SetDifficulty changes the computer's tier for the rest of the session.
func (s *Service) SetDifficulty(id, playerID string, d ai.Difficulty) (*GameState, error) {
	return s.update(id, playerID, EventSetup, func(gs *GameState) error {
		gs.Difficulty = d
		return nil
	})
}

// update applies fn under the lock and broadcasts kind when it succeeds.
func (s *Service) update(id, playerID string, kind EventKind, fn func(*GameState) error) (*GameState, error) {
	s.mu.Lock()
	gs, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if gs.Owner != "" && gs.Owner != playerID {
		s.mu.Unlock()
		return nil, ErrNotAPlayer
	}
	if err := fn(gs); err != nil {
		cp := gs.snapshot()
		s.mu.Unlock()
		return &cp, err
	}
	gs.Updated = time.Now()
	cp := gs.snapshot()
	subs := s.copySubsLocked(id)
	s.mu.Unlock()

	s.broadcast(id, subs, Event{Kind: kind, State: cp})
	return &cp, nil
}

// broadcast fans events out; slow subscribers are closed and dropped.
func (s *Service) broadcast(id string, subs map[*subscriber]struct{}, events ...Event) {
	if len(events) == 0 || len(subs) == 0 {
		return
	}
	var toDrop []*subscriber
	for sub := range subs {
		for _, ev := range events {
			if !sub.send(ev) {
				sub.close()
				toDrop = append(toDrop, sub)
				break
			}
		}
	}
	if len(toDrop) > 0 {
		s.mu.Lock()
		for _, sub := range toDrop {
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
			}
		}
		s.mu.Unlock()
		s.logger.Debug().Str("game", id).Int("dropped", len(toDrop)).Msg("dropped slow subscribers")
	}
}

// Subscribe registers a subscriber for a game. Returns a channel and an unsubscribe func.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan Event, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[id]; !ok {
		return nil, func() {}, ErrNotFound
	}
	set := s.subs[id]
	if set == nil {
		set = make(map[*subscriber]struct{})
		s.subs[id] = set
	}
	sub := &subscriber{ch: make(chan Event, eventBufferSize)}
	set[sub] = struct{}{}

	unsubOnce := &sync.Once{}
	unsub := func() {
		unsubOnce.Do(func() {
			s.mu.Lock()
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
			}
			s.mu.Unlock()
			sub.close()
		})
	}
	go func() {
		<-ctx.Done()
		unsub()
	}()
	return sub.ch, unsub, nil
}

func (s *Service) copySubsLocked(id string) map[*subscriber]struct{} {
	out := make(map[*subscriber]struct{})
	if set, ok := s.subs[id]; ok {
		for k := range set {
			out[k] = struct{}{}
		}
	}
	return out
}
