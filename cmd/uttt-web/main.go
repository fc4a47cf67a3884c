package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/jaminalder/ultimate-tic-tac-toe/internal/ai"
	"github.com/jaminalder/ultimate-tic-tac-toe/internal/app"
	"github.com/jaminalder/ultimate-tic-tac-toe/internal/config"
	"github.com/jaminalder/ultimate-tic-tac-toe/internal/web"
)

func main() {
	cfg, err := config.Load(os.Args[0], os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger, err := newLogger(cfg, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
}

func newLogger(cfg config.Config, out io.Writer) (zerolog.Logger, error) {
	lvl, err := cfg.Level()
	if err != nil {
		return zerolog.Nop(), err
	}
	if cfg.LogFormat == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	strategy := ai.New(ai.WithLogger(logger), ai.WithSearchDepth(cfg.SearchDepth))
	svc := app.NewService(strategy, logger)
	h := web.NewServer(svc,
		web.WithLogger(logger),
		web.WithDefaultDifficulty(cfg.DefaultDifficulty()),
		web.WithHeartbeat(cfg.Heartbeat),
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Addr).
			Str("difficulty", cfg.Difficulty).
			Int("search_depth", cfg.SearchDepth).
			Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
