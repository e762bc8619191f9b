package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"coursetutor/internal/bootstrap"
	"coursetutor/internal/config"
	"coursetutor/internal/httpapi"
	"coursetutor/internal/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	var cfgPath, addr string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/coursetutor/config.yaml if not provided)")
	flag.StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	logging.Setup(cfg.Log, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           httpapi.NewServer(app.Tutor, cfg.Server.AllowedOrigins).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server failed")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}
