package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/jaminalder/ultimate-tic-tac-toe/internal/app"
	"github.com/jaminalder/ultimate-tic-tac-toe/internal/domain"
)

const defaultHeartbeat = 15 * time.Second

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	// Plain GETs only get the headers; EventSource always sends this Accept.
	if r.Header.Get("Accept") != "text/event-stream" {
		w.WriteHeader(http.StatusOK)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	var viewer string
	if c, err := r.Cookie(playerCookie); err == nil {
		viewer = c.Value
	}
	ctx := r.Context()
	ch, unsubscribe, err := h.svc.Subscribe(ctx, id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer unsubscribe()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			flusher.Flush()
		case ev, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(w, "board", h.renderBoard(ev.State, viewer, ""))
			flusher.Flush()
		}
	}
}

// writeSSE frames data as one event, prefixing every line.
func writeSSE(w io.Writer, event string, data []byte) {
	_, _ = fmt.Fprintf(w, "event: %s\n", event)
	for _, line := range bytes.Split(bytes.TrimSpace(data), []byte("\n")) {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = io.WriteString(w, "\n")
}

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type eventPayload struct {
	Kind  app.EventKind `json:"kind"`
	Move  *domain.Move  `json:"move,omitempty"`
	Mark  domain.Cell   `json:"mark,omitempty"`
	State stateDTO      `json:"state"`
}

type errorPayload struct {
	Error string `json:"error"`
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func eventMessage(ev app.Event) wsMessage {
	p := eventPayload{Kind: ev.Kind, State: newStateDTO(ev.State)}
	if ev.Kind == app.EventMove {
		m := ev.Move
		p.Move = &m
		p.Mark = ev.Mark
	}
	return wsMessage{Type: "event", Payload: mustMarshal(p)}
}

// Nil CheckOrigin admits same-host origins only; play is authorized by cookie.
var upgrader = websocket.Upgrader{}

// ws streams session events as JSON and accepts "state" and "play" requests.
func (h *handlers) ws(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	gs, ok := h.svc.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	var pid string
	if c, err := r.Cookie(playerCookie); err == nil {
		pid = c.Value
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug().Err(err).Str("game", id).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	events, unsubscribe, err := h.svc.Subscribe(ctx, id)
	if err != nil {
		return
	}
	defer unsubscribe()

	replies := make(chan wsMessage, 16)
	replies <- wsMessage{Type: "state", Payload: mustMarshal(newStateDTO(*gs))}
	reply := func(msg wsMessage) {
		select {
		case replies <- msg:
		default:
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := writeWSWithHeartbeat(ctx, conn, events, replies, h.heartbeat); err != nil {
			h.logger.Debug().Err(err).Str("game", id).Msg("websocket write")
		}
		// Unblocks ReadMessage below.
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "state":
			if gs, ok := h.svc.Get(id); ok {
				reply(wsMessage{Type: "state", Payload: mustMarshal(newStateDTO(*gs))})
			}
		case "play":
			var m domain.Move
			if err := json.Unmarshal(msg.Payload, &m); err != nil {
				reply(wsMessage{Type: "error", Payload: mustMarshal(errorPayload{Error: "malformed move"})})
				continue
			}
			if _, err := h.svc.Play(ctx, id, pid, m); err != nil {
				reply(wsMessage{Type: "error", Payload: mustMarshal(errorPayload{Error: errorMessage(err)})})
			}
		}
	}
	cancel()
	<-done
}

// writeWSWithHeartbeat is the only writer on conn. It pings when the
// connection has been idle for a full interval.
func writeWSWithHeartbeat(ctx context.Context, conn *websocket.Conn, events <-chan app.Event, replies <-chan wsMessage, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	lastWrite := time.Now()
	ping := mustMarshal(wsMessage{Type: "ping"})

	write := func(b []byte) error {
		lastWrite = time.Now()
		return conn.WriteMessage(websocket.TextMessage, b)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := write(mustMarshal(eventMessage(ev))); err != nil {
				return err
			}
		case msg := <-replies:
			if err := write(mustMarshal(msg)); err != nil {
				return err
			}
		case <-ticker.C:
			if time.Since(lastWrite) < interval {
				continue
			}
			if err := write(ping); err != nil {
				return err
			}
		}
	}
}
