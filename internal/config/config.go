// Package config loads the server settings from flags and the environment.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

type Config struct {
	Addr         string
	AllowOrigins string
	DataDir      string
	InMemory     bool
	ThinkTime    time.Duration
	MaxDepth     int
	SearchPoll   time.Duration
	LogLevel     string
}

func Default() Config {
	return Config{
		Addr:         ":8080",
		AllowOrigins: "http://localhost:5173",
		DataDir:      "data",
		ThinkTime:    5 * time.Second,
		MaxDepth:     25,
		SearchPoll:   100 * time.Millisecond,
		LogLevel:     "info",
	}
}

// Load parses args (without the program name). Environment variables
// override the defaults; explicit flags override both.
func Load(args []string) (Config, error) {
	cfg := Default()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	fs := flag.NewFlagSet("reesebot", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.StringVar(&cfg.AllowOrigins, "allow-origins", cfg.AllowOrigins, "comma separated CORS origins")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "database directory")
	fs.BoolVar(&cfg.InMemory, "in-memory", cfg.InMemory, "keep the database in memory")
	fs.DurationVar(&cfg.ThinkTime, "think-time", cfg.ThinkTime, "engine thinking time per move")
	fs.IntVar(&cfg.MaxDepth, "max-depth", cfg.MaxDepth, "maximum search depth")
	fs.DurationVar(&cfg.SearchPoll, "search-poll", cfg.SearchPoll, "how often the search queue is polled")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "trace, debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("REESEBOT_ADDR"); ok {
		c.Addr = v
	}
	if v, ok := lookup("REESEBOT_DATA_DIR"); ok {
		c.DataDir = v
	}
	if v, ok := lookup("REESEBOT_LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := lookup("REESEBOT_THINK_TIME"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("REESEBOT_THINK_TIME: %w", err)
		}
		c.ThinkTime = d
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr must not be empty")
	}
	if c.ThinkTime <= 0 {
		return fmt.Errorf("think time must be positive, got %s", c.ThinkTime)
	}
	if c.MaxDepth < 2 || c.MaxDepth > 25 {
		return fmt.Errorf("max depth must be between 2 and 25, got %d", c.MaxDepth)
	}
	if c.SearchPoll <= 0 {
		return fmt.Errorf("search poll must be positive, got %s", c.SearchPoll)
	}
	if !c.InMemory && c.DataDir == "" {
		return errors.New("data dir must be set unless the database is in memory")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name onto fiber's logger levels.
func ParseLevel(s string) (log.Level, error) {
	switch strings.ToLower(s) {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return log.LevelDebug, nil
	case "info", "":
		return log.LevelInfo, nil
	case "warn", "warning":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	}
	return log.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
