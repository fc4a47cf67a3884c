package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/jaminalder/ultimate-tic-tac-toe/internal/ai"
	"github.com/jaminalder/ultimate-tic-tac-toe/internal/app"
	"github.com/jaminalder/ultimate-tic-tac-toe/internal/domain"
)

type handlers struct {
	svc        *app.Service
	tpl        *templates
	logger     zerolog.Logger
	difficulty ai.Difficulty
	heartbeat  time.Duration
}

func (h *handlers) renderBoard(gs app.GameState, viewer, errMsg string) []byte {
	return renderTemplate(h.tpl.board, "", newBoardView(gs, viewer, errMsg))
}

func (h *handlers) writeBoard(w http.ResponseWriter, gs app.GameState, viewer, errMsg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(h.renderBoard(gs, viewer, errMsg))
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Levels     []string
		Difficulty string
	}{Levels: levels, Difficulty: h.difficulty.String()}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(renderTemplate(h.tpl.index, "base", data))
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	pid := ensurePlayerCookie(w, r)
	_ = r.ParseForm()
	mode, err := app.ParseMode(r.Form.Get("mode"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	d := h.difficulty
	if v := r.Form.Get("difficulty"); v != "" {
		if d, err = ai.ParseDifficulty(v); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	gs, err := h.svc.CreateGame(pid, app.Settings{
		Mode:       mode,
		XName:      r.Form.Get("xname"),
		OName:      r.Form.Get("oname"),
		Difficulty: d,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("create game")
		http.Error(w, "failed to create", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/game/"+gs.ID, http.StatusSeeOther)
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	gs, ok := h.svc.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(renderTemplate(h.tpl.game, "base", newBoardView(*gs, pid, "")))
}

func (h *handlers) state(w http.ResponseWriter, r *http.Request) {
	gs, ok := h.svc.Get(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(newStateDTO(*gs)); err != nil {
		h.logger.Warn().Err(err).Msg("encode state")
	}
}

func (h *handlers) play(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	_ = r.ParseForm()
	b, errB := strconv.Atoi(r.Form.Get("b"))
	c, errC := strconv.Atoi(r.Form.Get("c"))
	if errB != nil || errC != nil {
		b, c = -1, -1
	}
	gs, err := h.svc.Play(r.Context(), id, pid, domain.Move{Board: b, Cell: c})
	h.respond(w, r, id, pid, gs, err)
}

func (h *handlers) tie(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	_ = r.ParseForm()
	var accept bool
	switch r.Form.Get("choice") {
	case "draw":
		accept = true
	case "count":
	default:
		http.Error(w, "choice must be draw or count", http.StatusBadRequest)
		return
	}
	gs, err := h.svc.ResolveTie(id, pid, accept)
	h.respond(w, r, id, pid, gs, err)
}

func (h *handlers) reset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	gs, err := h.svc.Reset(id, pid)
	h.respond(w, r, id, pid, gs, err)
}

func (h *handlers) newMatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	gs, err := h.svc.NewMatch(id, pid)
	h.respond(w, r, id, pid, gs, err)
}

func (h *handlers) setDifficulty(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	_ = r.ParseForm()
	d, err := ai.ParseDifficulty(r.Form.Get("difficulty"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	gs, err := h.svc.SetDifficulty(id, pid, d)
	h.respond(w, r, id, pid, gs, err)
}

// respond renders the board fragment, carrying a readable message for a
// rejected action.
func (h *handlers) respond(w http.ResponseWriter, r *http.Request, id, pid string, gs *app.GameState, err error) {
	var errMsg string
	if err != nil {
		if gs == nil {
			if g, ok := h.svc.Get(id); ok {
				gs = g
			}
		}
		errMsg = errorMessage(err)
		h.logger.Debug().Err(err).Str("game", id).Msg("action rejected")
	}
	if gs == nil {
		http.NotFound(w, r)
		return
	}
	h.writeBoard(w, *gs, pid, errMsg)
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, app.ErrNotYourTurn):
		return "Not your turn"
	case errors.Is(err, app.ErrNotAPlayer):
		return "You are a spectator"
	case errors.Is(err, domain.ErrOccupied):
		return "Cell is occupied"
	case errors.Is(err, domain.ErrOutOfBounds):
		return "Out of bounds"
	case errors.Is(err, domain.ErrBoardDecided):
		return "That board is already decided"
	case errors.Is(err, domain.ErrGameOver):
		return "Game is over"
	case errors.Is(err, domain.ErrNoTiePending):
		return "No tie-break is pending"
	case errors.Is(err, ai.ErrNoLegalMove):
		return "The computer has no move"
	default:
		return "Invalid action"
	}
}
