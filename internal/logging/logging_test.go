package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"coursetutor/internal/config"
)

func TestSetup_JSONOutputAndLevel(t *testing.T) {
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	Setup(config.LogConfig{Level: "warn"}, &buf)

	log.Info().Msg("hidden")
	log.Warn().Str("component", "test").Msg("shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d: %s", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal(lines[0], &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["message"] != "shown" || entry["component"] != "test" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestSetup_InvalidLevelFallsBackToInfo(t *testing.T) {
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	Setup(config.LogConfig{Level: "loud"}, &bytes.Buffer{})
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Fatalf("level = %v, want info", zerolog.GlobalLevel())
	}
}
