package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/jaminalder/ultimate-tic-tac-toe/internal/ai"
	"github.com/jaminalder/ultimate-tic-tac-toe/internal/app"
)

// Option configures the HTTP server.
type Option func(*handlers)

// WithLogger sets the access and handler logger.
func WithLogger(l zerolog.Logger) Option {
	return func(h *handlers) { h.logger = l }
}

// WithDefaultDifficulty sets the tier preselected on the setup form.
func WithDefaultDifficulty(d ai.Difficulty) Option {
	return func(h *handlers) { h.difficulty = d }
}

// WithHeartbeat sets the keep-alive interval of the event streams.
func WithHeartbeat(d time.Duration) Option {
	return func(h *handlers) {
		if d > 0 {
			h.heartbeat = d
		}
	}
}

// NewServer wires routes and returns an http.Handler.
func NewServer(s *app.Service, opts ...Option) http.Handler {
	h := &handlers{
		svc:        s,
		tpl:        loadTemplates(),
		logger:     zerolog.Nop(),
		difficulty: ai.DefaultDifficulty,
		heartbeat:  defaultHeartbeat,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With().Str("component", "web").Logger()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.logger))

	r.Get("/", h.index)
	r.Post("/game", h.create)
	r.Route("/game/{id}", func(r chi.Router) {
		r.Get("/", h.view)
		r.Get("/state", h.state)
		r.Post("/play", h.play)
		r.Post("/tie", h.tie)
		r.Post("/reset", h.reset)
		r.Post("/new-match", h.newMatch)
		r.Post("/difficulty", h.setDifficulty)
		r.Get("/events", h.events)
		r.Get("/ws", h.ws)
	})
	return r
}

// requestLogger logs method, path, status, bytes and duration of every request.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Str("request_id", middleware.GetReqID(r.Context())).
				Dur("dur", time.Since(start)).
				Msg("http")
		})
	}
}
