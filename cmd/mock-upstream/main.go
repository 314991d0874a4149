package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/blockedby/regstats/internal/config"
	"github.com/blockedby/regstats/internal/logger"
	"github.com/blockedby/regstats/internal/mockupstream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	upCfg := mockupstream.Config{
		Username: cfg.StatsUsername,
		Password: cfg.StatsPassword,
		TokenTTL: cfg.MockTokenTTL,
		Random:   cfg.MockRandom,
	}
	if cfg.MockFixture != "" {
		snap, err := mockupstream.LoadFixture(cfg.MockFixture)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.MockFixture).Msg("failed to load fixture")
		}
		upCfg.Snapshot = snap
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.MockPort),
		Handler:           mockupstream.New(upCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().
		Int("port", cfg.MockPort).
		Str("username", cfg.StatsUsername).
		Bool("random", cfg.MockRandom).
		Dur("token_ttl", cfg.MockTokenTTL).
		Msg("starting mock upstream")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("mock upstream error")
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info().Msg("mock upstream stopped")
}
