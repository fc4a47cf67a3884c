package web

import (
	"fmt"
	"slices"

	"github.com/jaminalder/ultimate-tic-tac-toe/internal/ai"
	"github.com/jaminalder/ultimate-tic-tac-toe/internal/app"
	"github.com/jaminalder/ultimate-tic-tac-toe/internal/domain"
)

// boardView is the template model for the board fragment.
type boardView struct {
	ID         string
	Error      string
	Spectator  bool
	Status     string
	Message    string
	TiePending bool
	Decided    bool
	PvA        bool
	XName      string
	OName      string
	XScore     int
	OScore     int
	Difficulty string
	Levels     []string
	Subs       [9]subView
}

type subView struct {
	Index      int
	Outcome    string
	Decided    bool
	InMetaLine bool
	Cells      [9]cellView
}

type cellView struct {
	Board    int
	Index    int
	Symbol   string
	Playable bool
	Winning  bool
}

var levels = []string{
	ai.Easy.String(), ai.Medium.String(), ai.Hard.String(), ai.Impossible.String(),
}

func newBoardView(gs app.GameState, viewer, errMsg string) boardView {
	g := gs.Game
	v := boardView{
		ID:         gs.ID,
		Error:      errMsg,
		Spectator:  gs.Owner != "" && gs.Owner != viewer,
		Status:     g.Status().String(),
		TiePending: g.TiePending,
		Decided:    g.Meta.Decided(),
		PvA:        gs.Mode == app.ModePvA,
		XName:      gs.XName,
		OName:      gs.OName,
		XScore:     g.Score.Of(domain.X),
		OScore:     g.Score.Of(domain.O),
		Difficulty: gs.Difficulty.String(),
		Levels:     levels,
	}
	v.Message = statusMessage(gs)

	humanTurn := g.Status() == domain.InProgress && !gs.Computer(g.Turn) && !v.Spectator
	meta := g.MetaBoard()
	for b := range 9 {
		sv := subView{
			Index:      b,
			Outcome:    g.Subs[b].Outcome.String(),
			Decided:    g.Subs[b].Decided(),
			InMetaLine: slices.Contains(g.Meta.Line, b),
		}
		for c := range 9 {
			m := domain.Move{Board: b, Cell: c}
			sv.Cells[c] = cellView{
				Board:    b,
				Index:    c,
				Symbol:   g.Boards[b][c].String(),
				Playable: humanTurn && domain.IsLegal(meta, g.Boards, m),
				Winning:  slices.Contains(g.Subs[b].Line, c),
			}
		}
		v.Subs[b] = sv
	}
	return v
}

func statusMessage(gs app.GameState) string {
	g := gs.Game
	switch g.Status() {
	case domain.Decided:
		w := g.Meta.Outcome.Winner()
		switch {
		case w != domain.Empty && g.TieBreak == domain.TieBreakCounted:
			return fmt.Sprintf("%s (%s) wins the match on boards claimed", gs.Name(w), w)
		case w != domain.Empty:
			return fmt.Sprintf("%s (%s) wins the match", gs.Name(w), w)
		case g.TieBreak == domain.TieBreakAccepted:
			return "The match is a draw by agreement"
		case g.TieBreak == domain.TieBreakCounted:
			return "The match is a draw on boards claimed"
		}
		return "The match is a draw"
	case domain.PendingTieBreak:
		return "Every small board is decided without a line. Accept the draw or count boards won"
	}
	if gs.Computer(g.Turn) {
		return fmt.Sprintf("%s is thinking", gs.Name(g.Turn))
	}
	return fmt.Sprintf("%s (%s) to move", gs.Name(g.Turn), g.Turn)
}

// stateDTO is the JSON form of a session used by /state and the websocket.
type stateDTO struct {
	ID         string               `json:"id"`
	Mode       app.Mode             `json:"mode"`
	Status     domain.Status        `json:"status"`
	Turn       domain.Cell          `json:"turn"`
	Boards     [9]domain.SubBoard   `json:"boards"`
	Subs       [9]domain.WinnerInfo `json:"subs"`
	Meta       domain.WinnerInfo    `json:"meta"`
	TieBreak   domain.TieBreak      `json:"tieBreak,omitempty"`
	Score      domain.Scoreboard    `json:"score"`
	XName      string               `json:"xName"`
	OName      string               `json:"oName"`
	Difficulty ai.Difficulty        `json:"difficulty"`
	Legal      []domain.Move        `json:"legal"`
	Moves      int                  `json:"moves"`
	Notation   string               `json:"notation"`
}

func newStateDTO(gs app.GameState) stateDTO {
	g := gs.Game
	legal := g.LegalMoves()
	if legal == nil {
		legal = []domain.Move{}
	}
	return stateDTO{
		ID:         gs.ID,
		Mode:       gs.Mode,
		Status:     g.Status(),
		Turn:       g.Turn,
		Boards:     g.Boards,
		Subs:       g.Subs,
		Meta:       g.Meta,
		TieBreak:   g.TieBreak,
		Score:      g.Score,
		XName:      gs.XName,
		OName:      gs.OName,
		Difficulty: gs.Difficulty,
		Legal:      legal,
		Moves:      g.Moves,
		Notation:   g.Notation(),
	}
}
