package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"coursetutor/internal/bootstrap"
	"coursetutor/internal/config"
	"coursetutor/internal/logging"
	"coursetutor/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, query string
	var listTopics bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/coursetutor/config.yaml if not provided)")
	flag.StringVar(&query, "query", "", "Answer a single question and print it as JSON")
	flag.BoolVar(&listTopics, "topics", false, "Print the course topics as JSON and exit")
	flag.Parse()

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	interactive := query == "" && !listTopics
	var logOut io.Writer = os.Stderr
	if interactive {
		// The TUI owns the terminal; logs go to a file instead.
		f, err := os.OpenFile(filepath.Join(os.TempDir(), "coursetutor.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err == nil {
			defer f.Close()
			logOut = f
		}
	}
	logging.Setup(cfg.Log, logOut)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer app.Close()

	switch {
	case listTopics:
		printJSON(map[string]any{"topics": app.Tutor.ListTopics()})
	case query != "":
		answer, err := app.Tutor.Query(ctx, query)
		if err != nil {
			log.Error().Err(err).Msg("query failed")
			app.Close()
			os.Exit(1)
		}
		printJSON(map[string]string{"question": query, "answer": answer})
	default:
		m := tui.New(ctx, app.Tutor, app.Tutor.Overview())
		if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
			log.Error().Err(err).Msg("tui exited")
		}
	}
}

func loadConfig(path string) (*config.AppConfig, error) {
	if path == "" {
		cfg, _, err := config.LoadDefault()
		return cfg, err
	}
	return config.Load(path)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Error().Err(err).Msg("write output")
	}
}
