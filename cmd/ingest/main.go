// Command ingest parses statement HTML exports into line items, indexes them
// as chunks for retrieval and optionally stores them in financial_statements.
//
//	ingest -company ITC -statement balance_sheet -db itc_bs.html
//	ingest -diagnose
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fsi_kpi/pkg/core/app"
	"fsi_kpi/pkg/core/config"
	"fsi_kpi/pkg/core/lineitem"
	"fsi_kpi/pkg/core/logger"
	"fsi_kpi/pkg/core/rag"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "config file (default "+config.DefaultPath+")")
	company := flag.String("company", "", "company name")
	statement := flag.String("statement", "", "balance_sheet, profit_and_loss or cash_flows")
	toDB := flag.Bool("db", false, "also upsert the parsed rows into financial_statements")
	diagnose := flag.Bool("diagnose", false, "list tables and row counts, then exit")
	dim := flag.Int("dim", 768, "embedding dimension for a new pgvector table")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("[FATAL] %v\n", err)
		return 1
	}
	if err := logger.Init(cfg.Log); err != nil {
		fmt.Printf("[FATAL] logger: %v\n", err)
		return 1
	}
	defer logger.Shutdown(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Ingestion writes the index; the configured KPI source does not matter.
	if *diagnose || *toDB {
		cfg.Source = config.SourceDB
	} else {
		cfg.Source = ""
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Printf("[FATAL] %v\n", err)
		return 1
	}
	defer a.Close()

	if *diagnose {
		d, err := a.Repo.Diagnose(ctx)
		if err != nil {
			fmt.Printf("[ERROR] %v\n", err)
			return 1
		}
		fmt.Printf("Tables: %v\n", d.Tables)
		fmt.Printf("financial_statements rows: %d\n", d.RowCount)
		return 0
	}

	st, err := lineitem.ParseStatement(*statement)
	if err != nil || *company == "" || flag.NArg() == 0 {
		fmt.Println("usage: ingest -company NAME -statement TYPE [-db] FILE.html...")
		return 2
	}
	if a.Embedder == nil {
		fmt.Println("[FATAL] GEMINI_API_KEY is required to embed chunks")
		return 1
	}
	if pg, ok := a.Index.(*rag.PgIndex); ok {
		if err := pg.EnsureSchema(ctx, *dim); err != nil {
			fmt.Printf("[FATAL] %v\n", err)
			return 1
		}
	}

	ingester := &rag.Ingester{Embedder: a.Embedder, Index: a.Index}
	failed := 0
	for _, path := range flag.Args() {
		if err := ingestFile(ctx, a, ingester, path, *company, st, *toDB); err != nil {
			fmt.Printf("[ERROR] %s: %v\n", path, err)
			failed++
		}
	}

	if err := a.SaveIndex(); err != nil {
		fmt.Printf("[ERROR] %v\n", err)
		return 1
	}
	if failed > 0 {
		return 1
	}
	return 0
}

func ingestFile(ctx context.Context, a *app.App, in *rag.Ingester, path, company string, st lineitem.Statement, toDB bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := rag.ParseStatementHTML(f)
	if err != nil {
		return err
	}
	n, err := in.Ingest(ctx, company, st, rows)
	if err != nil {
		return err
	}
	fmt.Printf("[INGEST] %s: %d chunks indexed for %s %s\n", path, n, company, st)

	if toDB {
		stored, err := a.Repo.UpsertFinancials(ctx, company, st, rows)
		if err != nil {
			return err
		}
		fmt.Printf("[DB] %s: %d rows stored\n", path, stored)
	}
	return nil
}
