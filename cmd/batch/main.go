// Command batch computes every KPI set for the configured companies and
// prints the missing-value audit.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"fsi_kpi/pkg/core/app"
	"fsi_kpi/pkg/core/config"
	"fsi_kpi/pkg/core/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "config file (default "+config.DefaultPath+")")
	companies := flag.String("companies", "", "comma-separated companies, overrides the config list")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("[FATAL] %v\n", err)
		return 1
	}
	if *companies != "" {
		cfg.Companies = splitList(*companies)
	}
	if err := logger.Init(cfg.Log); err != nil {
		fmt.Printf("[FATAL] logger: %v\n", err)
		return 1
	}
	defer logger.Shutdown(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Printf("[FATAL] %v\n", err)
		return 1
	}
	defer a.Close()

	report, err := a.Runner().Run(ctx, cfg.Companies)
	if err != nil {
		fmt.Printf("[FATAL] %v\n", err)
		return 1
	}
	report.Write(os.Stdout)

	if report.HardErrors() > 0 {
		return 1
	}
	return 0
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
