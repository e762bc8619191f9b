package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"coursetutor/internal/config"
)

// Setup configures the global zerolog logger from config and writes to out.
// A nil out means stderr.
func Setup(cfg config.LogConfig, out io.Writer) {
	if out == nil {
		out = os.Stderr
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(level)
	if cfg.Console {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
			With().Timestamp().Caller().Logger()
		return
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}
