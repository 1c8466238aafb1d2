package logging

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/crushline/automsg/internal/config"
)

// New builds the process root logger from config. Components derive their own
// with .With().Str("component", ...).
func New(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if cfg.LogPretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}
