package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/blockedby/regstats/internal/config"
	"github.com/blockedby/regstats/internal/logger"
	"github.com/blockedby/regstats/internal/statsclient"
)

func main() {
	check := flag.Bool("check", false, "only test the connection to the statistics service")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	// console output belongs to the report; keep logs quiet unless asked
	level := cfg.LogLevel
	if os.Getenv("LOG_LEVEL") == "" {
		level = "warn"
	}
	if err := logger.Init(level, cfg.LogFile); err != nil {
		panic("failed to init logger: " + err.Error())
	}

	client := statsclient.New(statsclient.Config{
		BaseURL:  cfg.StatsBaseURL,
		Username: cfg.StatsUsername,
		Password: cfg.StatsPassword,
		Timeout:  cfg.StatsTimeout,
		AuthRPS:  cfg.StatsAuthRPS,
	})

	ctx := context.Background()

	if *check {
		report := client.TestConnection(ctx)
		fmt.Println(renderReport(report))
		if !report.OK {
			os.Exit(1)
		}
		return
	}

	snap, err := client.FetchSnapshot(ctx)
	if err != nil {
		fmt.Println(renderError(err, client.AdminURL()))
		os.Exit(1)
	}
	fmt.Println(renderSnapshot(snap))
}
