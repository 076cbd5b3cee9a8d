package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/helegran/liveclass/internal/adapters/http"
	ws "github.com/helegran/liveclass/internal/adapters/signal"
	"github.com/helegran/liveclass/internal/app"
	"github.com/helegran/liveclass/internal/config"
	"github.com/helegran/liveclass/internal/domain"
	"github.com/helegran/liveclass/internal/hub"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	h := hub.New()
	ctrl := ws.NewController(h, cfg.ReadLimit, cfg.PingPeriod)
	ids := app.NewIdentities()
	dir := app.NewSessionDirectory()
	dir.Put(domain.LiveSession{
		ID:     "demo",
		Title:  "Open classroom",
		Course: "Getting started",
	})

	r := router.SetupRouter(ctx, cfg, ctrl, ids, dir)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("liveclass server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
