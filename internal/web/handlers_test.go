package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaminalder/ultimate-tic-tac-toe/internal/ai"
	"github.com/jaminalder/ultimate-tic-tac-toe/internal/app"
	"github.com/jaminalder/ultimate-tic-tac-toe/internal/domain"
)

func newTestServer(t *testing.T) (*app.Service, http.Handler) {
	t.Helper()
	strategy := ai.New(ai.WithRand(rand.New(rand.NewSource(7))))
	s := app.NewService(strategy, zerolog.Nop())
	h := NewServer(s, WithDefaultDifficulty(ai.Hard))
	return s, h
}

func postForm(h http.Handler, path, player string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if player != "" {
		req.AddCookie(&http.Cookie{Name: playerCookie, Value: player})
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func playerFrom(rr *httptest.ResponseRecorder) string {
	for _, c := range rr.Result().Cookies() {
		if c.Name == playerCookie {
			return c.Value
		}
	}
	return ""
}

func TestIndexPage(t *testing.T) {
	_, h := newTestServer(t)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `action="/game"`)
	assert.Contains(t, body, `name="mode"`)
	assert.Contains(t, body, `<option value="hard" selected>`)
	assert.Contains(t, body, "<!doctype html>")
}

func TestCreateRedirectsAndOwnsGame(t *testing.T) {
	svc, h := newTestServer(t)
	rr := postForm(h, "/game", "", url.Values{
		"mode": {"pvp"}, "xname": {"Ada"}, "difficulty": {"impossible"},
	})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	loc := rr.Result().Header.Get("Location")
	require.True(t, strings.HasPrefix(loc, "/game/"), "location %q", loc)

	pid := playerFrom(rr)
	require.NotEmpty(t, pid)
	gs, ok := svc.Get(strings.TrimPrefix(loc, "/game/"))
	require.True(t, ok)
	assert.Equal(t, pid, gs.Owner)
	assert.Equal(t, app.ModePvP, gs.Mode)
	assert.Equal(t, "Ada", gs.XName)
	assert.Equal(t, app.DefaultOName, gs.OName)
	assert.Equal(t, ai.Impossible, gs.Difficulty)
}

func TestCreateDefaultsToServerDifficulty(t *testing.T) {
	svc, h := newTestServer(t)
	rr := postForm(h, "/game", "p1", url.Values{})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	gs, ok := svc.Get(strings.TrimPrefix(rr.Result().Header.Get("Location"), "/game/"))
	require.True(t, ok)
	assert.Equal(t, app.ModePvA, gs.Mode)
	assert.Equal(t, app.ComputerName, gs.OName)
	assert.Equal(t, ai.Hard, gs.Difficulty)
}

func TestCreateRejectsBadInput(t *testing.T) {
	_, h := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest, postForm(h, "/game", "p1", url.Values{"mode": {"solo"}}).Code)
	assert.Equal(t, http.StatusBadRequest, postForm(h, "/game", "p1", url.Values{"difficulty": {"brutal"}}).Code)
}

func TestGamePageHasBoardAndSSEWiring(t *testing.T) {
	svc, h := newTestServer(t)
	gs, err := svc.CreateGame("p1", app.Settings{Mode: app.ModePvP})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/game/"+gs.ID, nil)
	req.AddCookie(&http.Cookie{Name: playerCookie, Value: "p1"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `hx-ext="sse"`)
	assert.Contains(t, body, "/game/"+gs.ID+"/events")
	assert.Contains(t, body, `id="board"`)
	assert.Equal(t, 81, strings.Count(body, `name="c"`), "every cell is playable on an empty board")
	assert.Contains(t, body, "Player 1 (X) to move")
}

func TestGamePageUnknownID(t *testing.T) {
	_, h := newTestServer(t)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/game/missing", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPlayRestrictsTargets(t *testing.T) {
	svc, h := newTestServer(t)
	gs, err := svc.CreateGame("p1", app.Settings{Mode: app.ModePvP})
	require.NoError(t, err)

	rr := postForm(h, "/game/"+gs.ID+"/play", "p1", url.Values{"b": {"4"}, "c": {"4"}})
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `id="board"`)
	assert.Contains(t, body, "Player 2 (O) to move")
	assert.Equal(t, 80, strings.Count(body, `name="c"`))

	latest, _ := svc.Get(gs.ID)
	assert.Equal(t, 1, latest.Game.Moves)
	assert.Equal(t, domain.X, latest.Game.Boards[4][4])
}

func TestPlayErrorsRenderMessages(t *testing.T) {
	svc, h := newTestServer(t)
	gs, err := svc.CreateGame("p1", app.Settings{Mode: app.ModePvP})
	require.NoError(t, err)
	path := "/game/" + gs.ID + "/play"

	require.Equal(t, http.StatusOK, postForm(h, path, "p1", url.Values{"b": {"0"}, "c": {"0"}}).Code)

	cases := []struct {
		name   string
		player string
		form   url.Values
		want   string
	}{
		{"occupied", "p1", url.Values{"b": {"0"}, "c": {"0"}}, "Cell is occupied"},
		{"out of bounds", "p1", url.Values{"b": {"9"}, "c": {"0"}}, "Out of bounds"},
		{"malformed", "p1", url.Values{"b": {"x"}}, "Out of bounds"},
		{"spectator", "p2", url.Values{"b": {"1"}, "c": {"1"}}, "You are a spectator"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := postForm(h, path, tc.player, tc.form)
			require.Equal(t, http.StatusOK, rr.Code)
			assert.Contains(t, rr.Body.String(), tc.want)
		})
	}
	latest, _ := svc.Get(gs.ID)
	assert.Equal(t, 1, latest.Game.Moves)
}

func TestPlayUnknownGame(t *testing.T) {
	_, h := newTestServer(t)
	rr := postForm(h, "/game/missing/play", "p1", url.Values{"b": {"0"}, "c": {"0"}})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPlayAgainstComputerReplies(t *testing.T) {
	svc, h := newTestServer(t)
	gs, err := svc.CreateGame("p1", app.Settings{Mode: app.ModePvA, Difficulty: ai.Medium})
	require.NoError(t, err)

	rr := postForm(h, "/game/"+gs.ID+"/play", "p1", url.Values{"b": {"4"}, "c": {"4"}})
	require.Equal(t, http.StatusOK, rr.Code)
	latest, _ := svc.Get(gs.ID)
	assert.Equal(t, 2, latest.Game.Moves)
	assert.Equal(t, domain.X, latest.Game.Turn)
}

func TestTieEndpoint(t *testing.T) {
	svc, h := newTestServer(t)
	gs, err := svc.CreateGame("p1", app.Settings{Mode: app.ModePvP})
	require.NoError(t, err)
	path := "/game/" + gs.ID + "/tie"

	assert.Equal(t, http.StatusBadRequest, postForm(h, path, "p1", url.Values{"choice": {"coin"}}).Code)

	rr := postForm(h, path, "p1", url.Values{"choice": {"count"}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "No tie-break is pending")
}

func TestResetAndNewMatch(t *testing.T) {
	svc, h := newTestServer(t)
	gs, err := svc.CreateGame("p1", app.Settings{Mode: app.ModePvP})
	require.NoError(t, err)
	postForm(h, "/game/"+gs.ID+"/play", "p1", url.Values{"b": {"4"}, "c": {"4"}})

	rr := postForm(h, "/game/"+gs.ID+"/reset", "p1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	latest, _ := svc.Get(gs.ID)
	assert.Equal(t, 0, latest.Game.Moves)

	postForm(h, "/game/"+gs.ID+"/play", "p1", url.Values{"b": {"0"}, "c": {"0"}})
	rr = postForm(h, "/game/"+gs.ID+"/new-match", "p1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	latest, _ = svc.Get(gs.ID)
	assert.Equal(t, 0, latest.Game.Moves)
	assert.Equal(t, domain.X, latest.Game.Turn)

	rr = postForm(h, "/game/"+gs.ID+"/reset", "p2", nil)
	assert.Contains(t, rr.Body.String(), "You are a spectator")
}

func TestDifficultyEndpoint(t *testing.T) {
	svc, h := newTestServer(t)
	gs, err := svc.CreateGame("p1", app.Settings{Mode: app.ModePvA})
	require.NoError(t, err)
	path := "/game/" + gs.ID + "/difficulty"

	rr := postForm(h, path, "p1", url.Values{"difficulty": {"Impossible"}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `<option value="impossible" selected>`)
	latest, _ := svc.Get(gs.ID)
	assert.Equal(t, ai.Impossible, latest.Difficulty)

	assert.Equal(t, http.StatusBadRequest, postForm(h, path, "p1", url.Values{"difficulty": {"godlike"}}).Code)
}

func TestStateEndpointJSON(t *testing.T) {
	svc, h := newTestServer(t)
	gs, err := svc.CreateGame("p1", app.Settings{Mode: app.ModePvP, XName: "Ada"})
	require.NoError(t, err)
	_, err = svc.Play(context.Background(), gs.ID, "p1", domain.Move{Board: 4, Cell: 0})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/game/"+gs.ID+"/state", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var got struct {
		Status   string        `json:"status"`
		Turn     string        `json:"turn"`
		Boards   [9][9]string  `json:"boards"`
		XName    string        `json:"xName"`
		Legal    []domain.Move `json:"legal"`
		Moves    int           `json:"moves"`
		Notation string        `json:"notation"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "in-progress", got.Status)
	assert.Equal(t, "O", got.Turn)
	assert.Equal(t, "X", got.Boards[4][0])
	assert.Equal(t, "Ada", got.XName)
	assert.Len(t, got.Legal, 80)
	assert.Equal(t, 1, got.Moves)
	assert.Equal(t, "9/9/9/9/x8/9/9/9/9 o", got.Notation)
}

func TestBoardViewShowsScores(t *testing.T) {
	g := domain.New()
	g.Score = domain.Scoreboard{X: 2, O: 1}
	gs := app.GameState{ID: "g", Game: g, Mode: app.ModePvA, XName: "Ada", OName: app.ComputerName}
	v := newBoardView(gs, "", "")
	assert.Equal(t, 2, v.XScore)
	assert.Equal(t, 1, v.OScore)
	assert.Contains(t, string(renderTemplate(loadTemplates().board, "", v)), "Ada (X): 2 &middot; Computer (O): 1")
}

func TestTieBreakShownInStatusAndJSON(t *testing.T) {
	decided := func(o domain.Outcome, tb domain.TieBreak) app.GameState {
		g := domain.New()
		g.Meta = domain.WinnerInfo{Outcome: o}
		g.TieBreak = tb
		return app.GameState{ID: "g", Game: g, Mode: app.ModePvP, XName: "Ada", OName: "Bea"}
	}
	cases := []struct {
		name string
		gs   app.GameState
		msg  string
		tb   string
	}{
		{"line win", decided(domain.OWins, domain.TieBreakNone), "Bea (O) wins the match", ""},
		{"counted win", decided(domain.XWins, domain.TieBreakCounted), "Ada (X) wins the match on boards claimed", "counted"},
		{"counted draw", decided(domain.Draw, domain.TieBreakCounted), "The match is a draw on boards claimed", "counted"},
		{"accepted draw", decided(domain.Draw, domain.TieBreakAccepted), "The match is a draw by agreement", "accepted"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.msg, statusMessage(tc.gs))

			var got map[string]any
			require.NoError(t, json.Unmarshal(mustMarshal(newStateDTO(tc.gs)), &got))
			if tc.tb == "" {
				assert.NotContains(t, got, "tieBreak")
				return
			}
			assert.Equal(t, tc.tb, got["tieBreak"])
		})
	}
}

func TestEventsEndpointSSEHeaders(t *testing.T) {
	svc, h := newTestServer(t)
	gs, err := svc.CreateGame("p1", app.Settings{})
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/game/"+gs.ID+"/events", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "text/event-stream"))
}

func TestEventsStreamBoardAfterMove(t *testing.T) {
	svc, h := newTestServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()
	gs, err := svc.CreateGame("p1", app.Settings{Mode: app.ModePvP})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/game/"+gs.ID+"/events", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/event-stream")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = svc.Play(ctx, gs.ID, "p1", domain.Move{Board: 2, Cell: 6})
	require.NoError(t, err)

	sc := bufio.NewScanner(resp.Body)
	require.True(t, sc.Scan())
	assert.Equal(t, "event: board", sc.Text())
	require.True(t, sc.Scan())
	assert.Equal(t, `data: <div id="board">`, sc.Text())
}

func TestWriteSSEPrefixesEveryLine(t *testing.T) {
	var buf bytes.Buffer
	writeSSE(&buf, "board", []byte("\n<div>\n  x\n</div>\n"))
	assert.Equal(t, "event: board\ndata: <div>\ndata:   x\ndata: </div>\n\n", buf.String())
}

func TestWebsocketStateAndPlay(t *testing.T) {
	svc, h := newTestServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()
	gs, err := svc.CreateGame("p1", app.Settings{Mode: app.ModePvP})
	require.NoError(t, err)

	header := http.Header{}
	header.Add("Cookie", playerCookie+"=p1")
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/game/" + gs.ID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "state", msg.Type)

	play := wsMessage{Type: "play", Payload: mustMarshal(domain.Move{Board: 4, Cell: 4})}
	require.NoError(t, conn.WriteJSON(play))
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "event", msg.Type)
	var ev struct {
		Kind string       `json:"kind"`
		Move *domain.Move `json:"move"`
		Mark string       `json:"mark"`
	}
	require.NoError(t, json.Unmarshal(msg.Payload, &ev))
	assert.Equal(t, string(app.EventMove), ev.Kind)
	require.NotNil(t, ev.Move)
	assert.Equal(t, domain.Move{Board: 4, Cell: 4}, *ev.Move)
	assert.Equal(t, "X", ev.Mark)

	// Same cell again, now as O.
	require.NoError(t, conn.WriteJSON(play))
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "error", msg.Type)
	assert.Contains(t, string(msg.Payload), "Cell is occupied")
}

func TestWebsocketRejectsForeignOrigin(t *testing.T) {
	svc, h := newTestServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()
	gs, err := svc.CreateGame("p1", app.Settings{Mode: app.ModePvP})
	require.NoError(t, err)

	header := http.Header{}
	header.Add("Cookie", playerCookie+"=p1")
	header.Add("Origin", "http://elsewhere.example")
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/game/"+gs.ID+"/ws", header)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", srv.URL)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/game/"+gs.ID+"/ws", header)
	require.NoError(t, err)
	_ = conn.Close()
}

func TestWebsocketUnknownGame(t *testing.T) {
	_, h := newTestServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/game/missing/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
