package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blockedby/regstats/internal/config"
	"github.com/blockedby/regstats/internal/dashboard"
	"github.com/blockedby/regstats/internal/logger"
	"github.com/blockedby/regstats/internal/statsclient"
	"github.com/blockedby/regstats/internal/web"
	"github.com/blockedby/regstats/internal/web/handlers"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// 2. Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()
	log.Info().Str("upstream", cfg.StatsBaseURL).Msg("starting statistics dashboard")

	// 3. Setup context with graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 4. Statistics client
	client := statsclient.New(statsclient.Config{
		BaseURL:  cfg.StatsBaseURL,
		Username: cfg.StatsUsername,
		Password: cfg.StatsPassword,
		Timeout:  cfg.StatsTimeout,
		AuthRPS:  cfg.StatsAuthRPS,
		Logger:   log,
	})

	// 5. Password gate and view
	var gate dashboard.Gate
	pg, err := dashboard.NewPasswordGate(cfg.GatePassword, cfg.GatePasswordHash)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid gate configuration")
	}
	if pg != nil {
		gate = pg
	} else {
		log.Warn().Msg("no gate password configured, dashboard is open")
	}

	view := dashboard.New(client, gate, dashboard.Options{Logger: log})

	// 6. WebSocket hub; every transition is pushed to connected browsers
	hub := web.NewHub()
	go hub.Run()
	view.OnChange(func(st dashboard.State) {
		hub.Broadcast(web.StateChangedEvent(st))
	})
	view.Start(ctx)

	// 7. Templates
	var templates fs.FS = web.EmbeddedTemplates()
	reload := false
	if cfg.TemplatesDir != "" {
		templates = os.DirFS(cfg.TemplatesDir)
		reload = true // dev mode
	}
	tmpl := web.NewTemplateEngine(templates, reload)
	if err := tmpl.Load(); err != nil {
		log.Fatal().Err(err).Msg("failed to load templates")
	}

	// 8. Server and handlers
	server := web.NewServer(&web.Config{
		Port:        cfg.HTTPPort,
		CORSOrigins: cfg.CORSOrigins,
	}, hub)
	server.RegisterDashboardHandler(handlers.NewDashboardHandler(tmpl, view, client.AdminURL()))
	server.RegisterAPIHandler(handlers.NewAPIHandler(view, client))

	log.Info().Int("port", cfg.HTTPPort).Bool("gated", view.GateRequired()).Msg("starting web server")
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	// 9. Wait for shutdown
	<-ctx.Done()
	log.Info().Msg("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	view.Close()
	hub.Stop()

	log.Info().Msg("shutdown complete")
}
