package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apiconfig "fsi_kpi/pkg/api/config"
	"fsi_kpi/pkg/api/graphql"
	"fsi_kpi/pkg/core/app"
	"fsi_kpi/pkg/core/config"
	"fsi_kpi/pkg/core/logger"
	"fsi_kpi/pkg/core/prompt"

	"github.com/robfig/cron/v3"
)

func main() {
	configPath := flag.String("config", "", "config file (default "+config.DefaultPath+")")
	resourcesPath := flag.String("resources", "resources", "directory holding prompts/")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("[FATAL] %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Log); err != nil {
		fmt.Printf("[FATAL] logger: %v\n", err)
		os.Exit(1)
	}

	if err := prompt.LoadFromDirectory(*resourcesPath); err != nil {
		fmt.Printf("[WARNING] Failed to load prompt library: %v\n", err)
		fmt.Println("  Falling back to built-in prompts")
	} else {
		fmt.Printf("[PROMPT] %d prompts available from %s\n", prompt.Get().Count(), *resourcesPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Printf("[FATAL] %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	server := &graphql.Server{
		Resolver: &graphql.Resolver{
			Runner:     a.Runner(),
			Financials: graphql.SourceLister{Source: a.Source},
		},
		Config: apiconfig.NewHandler(a.Agents),
	}
	// Listing reads every stored row when the table is there.
	if a.Repo != nil {
		server.Resolver.Financials = a.Repo
	}
	if a.QA != nil {
		server.Resolver.QA = a.QA
	} else {
		fmt.Println("[WARNING] GEMINI_API_KEY not set, askQuestion is disabled")
	}

	handler, err := server.Routes()
	if err != nil {
		fmt.Printf("[FATAL] schema: %v\n", err)
		os.Exit(1)
	}

	scheduler := cron.New()
	if cfg.Batch.Schedule != "" {
		runner := a.Runner()
		_, err := scheduler.AddFunc(cfg.Batch.Schedule, func() {
			op := logger.StartOperation(ctx, "batch.audit", "companies", len(cfg.Companies))
			report, err := runner.Run(op.Context(), cfg.Companies)
			op.End(err)
			if err != nil {
				return
			}
			logger.Info(ctx, "scheduled audit finished",
				"companies", len(report.Companies),
				"failed_sets", report.HardErrors(),
				"missing", report.Missing.Len(),
			)
		})
		if err != nil {
			fmt.Printf("[FATAL] schedule: %v\n", err)
			os.Exit(1)
		}
		scheduler.Start()
		fmt.Printf("[CRON] Audit scheduled: %s\n", cfg.Batch.Schedule)
	}

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	fmt.Printf("API server starting on %s (source: %s)...\n", cfg.Server.ListenAddr, cfg.Source)
	fmt.Println("  - GET  /")
	fmt.Println("  - POST /graphql")
	fmt.Println("  - GET  /api/config")
	fmt.Println("  - POST /api/config/switch")

	if err := serve(ctx, srv, scheduler, logger.Shutdown); err != nil {
		fmt.Printf("[FATAL] Server failed to start: %v\n", err)
		os.Exit(1)
	}
}
