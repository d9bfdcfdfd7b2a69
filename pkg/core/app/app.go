// Package app assembles the line-item source, the vector index and the LLM
// agents from a loaded config. The commands share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"fsi_kpi/pkg/core/agent"
	"fsi_kpi/pkg/core/batch"
	"fsi_kpi/pkg/core/config"
	"fsi_kpi/pkg/core/lineitem"
	"fsi_kpi/pkg/core/rag"
	"fsi_kpi/pkg/core/store"
)

// App holds the wired components. Optional parts are nil when their
// configuration is absent.
type App struct {
	Config   *config.Config
	Agents   *agent.Manager
	Repo     *store.LineItemRepo // nil without a database
	Embedder rag.Embedder        // nil without GEMINI_API_KEY
	Index    rag.Index
	Source   lineitem.Source
	QA       *rag.QA // nil without an embedder

	memIndex *rag.MemoryIndex
	closers  []func()
}

// New wires everything cfg asks for. Close releases it.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, Agents: agent.NewManager(cfg.LLM)}

	needDB := cfg.Source == config.SourceDB || cfg.RAG.Backend == "pgvector"
	if needDB {
		if err := cfg.RequireDatabase(); err != nil {
			return nil, err
		}
	}
	if dsn := cfg.Database.DSN(); dsn != "" {
		if err := store.InitDB(ctx, dsn); err != nil {
			if needDB {
				return nil, err
			}
			fmt.Printf("[WARNING] Database unavailable, continuing without it: %v\n", err)
		} else {
			a.Repo = store.NewLineItemRepo(store.GetPool())
			a.closers = append(a.closers, store.Close)
		}
	}

	if cfg.Keys.Gemini != "" {
		emb, err := rag.NewGeminiEmbedder(ctx, cfg.Keys.Gemini, cfg.RAG.EmbeddingModel)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Embedder = emb
		a.closers = append(a.closers, func() { emb.Close() })
	}

	if err := a.openIndex(); err != nil {
		a.Close()
		return nil, err
	}

	switch cfg.Source {
	case config.SourceDB:
		a.Source = a.Repo
	case config.SourceRAG:
		if a.Embedder == nil {
			a.Close()
			return nil, fmt.Errorf("rag source needs GEMINI_API_KEY for embeddings")
		}
		r := &rag.Retriever{
			Embedder:    a.Embedder,
			Index:       a.Index,
			K:           cfg.RAG.K,
			Concurrency: cfg.Batch.Concurrency,
		}
		if cfg.RAG.Extraction {
			r.Extractor = a.Agents
		}
		a.Source = r
		if cfg.RAG.CacheDir != "" || a.Repo != nil {
			a.Source = &store.CachedSource{
				Source: r,
				Cache:  store.NewTableCache(pgPool(a.Repo), cfg.RAG.CacheDir, cfg.RAG.CacheTTL),
			}
		}
	}

	if a.Embedder != nil {
		a.QA = &rag.QA{
			Embedder: a.Embedder,
			Index:    a.Index,
			Prompter: a.Agents,
			K:        cfg.RAG.QAK,
			FetchK:   cfg.RAG.FetchK,
			Lambda:   cfg.RAG.Lambda,
		}
	}
	return a, nil
}

// pgPool returns the shared pool when the repo is wired, else a nil Querier
// so the cache falls back to files.
func pgPool(repo *store.LineItemRepo) store.Querier {
	if repo == nil {
		return nil
	}
	return store.GetPool()
}

func (a *App) openIndex() error {
	cfg := a.Config.RAG
	if cfg.Backend == "pgvector" {
		a.Index = rag.NewPgIndex(store.GetPool(), cfg.Table)
		return nil
	}
	idx, err := rag.LoadMemoryIndex(cfg.IndexPath)
	switch {
	case err == nil:
		fmt.Printf("[RAG] Loaded %d chunks from %s\n", idx.Len(), cfg.IndexPath)
	case errors.Is(err, os.ErrNotExist):
		idx = rag.NewMemoryIndex()
	default:
		return err
	}
	a.memIndex = idx
	a.Index = idx
	return nil
}

// SaveIndex persists a file-backed index; pgvector writes through.
func (a *App) SaveIndex() error {
	if a.memIndex == nil {
		return nil
	}
	return a.memIndex.Save(a.Config.RAG.IndexPath)
}

// Runner builds a batch runner over the configured source.
func (a *App) Runner() *batch.Runner {
	return &batch.Runner{
		Source:           a.Source,
		Concurrency:      a.Config.Batch.Concurrency,
		BalanceTolerance: a.Config.Batch.BalanceTolerance,
	}
}

// Close releases resources in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
