package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jaminalder/ultimate-tic-tac-toe/internal/ai"
)

// Config holds the server settings.
type Config struct {
	Addr              string        `json:"addr"`
	LogLevel          string        `json:"log_level"`
	LogFormat         string        `json:"log_format"`
	Difficulty        string        `json:"difficulty"`
	SearchDepth       int           `json:"search_depth"`
	Heartbeat         time.Duration `json:"heartbeat"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout"`
}

// Default returns the settings used when no flag overrides them.
func Default() Config {
	return Config{
		Addr:              ":8080",
		LogLevel:          "info",
		LogFormat:         "console",
		Difficulty:        ai.DefaultDifficulty.String(),
		SearchDepth:       ai.DefaultSearchDepth,
		Heartbeat:         15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// RegisterFlags binds every field to fs, using the current values as defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Addr, "addr", c.Addr, "listen address")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug|info|warn|error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "console|json")
	fs.StringVar(&c.Difficulty, "difficulty", c.Difficulty, "default computer difficulty: easy|medium|hard|impossible")
	fs.IntVar(&c.SearchDepth, "search-depth", c.SearchDepth, "impossible tier search horizon in plies")
	fs.DurationVar(&c.Heartbeat, "heartbeat", c.Heartbeat, "event stream keep-alive interval")
	fs.DurationVar(&c.ReadHeaderTimeout, "read-header-timeout", c.ReadHeaderTimeout, "http read header timeout")
}

// Load parses args on top of Default and validates the result.
func Load(name string, args []string) (Config, error) {
	c := Default()
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	c.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return c, c.Validate()
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return errors.New("config: addr is empty")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.LogFormat)
	}
	if _, err := ai.ParseDifficulty(c.Difficulty); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.SearchDepth < 1 {
		return fmt.Errorf("config: search depth must be positive, got %d", c.SearchDepth)
	}
	if c.Heartbeat <= 0 {
		return fmt.Errorf("config: heartbeat must be positive, got %s", c.Heartbeat)
	}
	return nil
}

// Level returns the zerolog level named by LogLevel.
func (c Config) Level() (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel, fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	return lvl, nil
}

// DefaultDifficulty returns the parsed Difficulty setting.
func (c Config) DefaultDifficulty() ai.Difficulty {
	d, err := ai.ParseDifficulty(c.Difficulty)
	if err != nil {
		return ai.DefaultDifficulty
	}
	return d
}
