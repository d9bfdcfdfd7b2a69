package rag

import (
	"context"
	"fmt"
	"strings"

	"fsi_kpi/pkg/core/agent"
	"fsi_kpi/pkg/core/lineitem"
	"fsi_kpi/pkg/core/logger"
	"fsi_kpi/pkg/core/prompt"
	"fsi_kpi/pkg/core/utils"

	"golang.org/x/sync/errgroup"
)

// Prompter runs a prompt for a task; agent.Manager implements it.
type Prompter interface {
	ExecutePrompt(ctx context.Context, task string, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
}

// Retriever resolves canonical line items by vector search over statement
// chunks.
type Retriever struct {
	Embedder Embedder
	Index    Index
	K        int // hits per lookup, default 3
	// Extractor, when set, reads values out of hits that ParseChunk cannot.
	Extractor   Prompter
	Concurrency int // parallel lookups per Fetch, default 4
}

var _ lineitem.Source = (*Retriever)(nil)

// Lookup searches "<company> <statement> <item>" and returns the first hit
// that parses, under the canonical item name. A nil row means no hit.
func (r *Retriever) Lookup(ctx context.Context, company string, statement lineitem.Statement, item string) (*lineitem.Row, error) {
	vec, err := embedOne(ctx, r.Embedder, fmt.Sprintf("%s %s %s", company, statement, item))
	if err != nil {
		return nil, fmt.Errorf("embed lookup %q: %w", item, err)
	}
	k := r.K
	if k <= 0 {
		k = 3
	}
	hits, err := r.Index.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", item, err)
	}

	var unparsed []Hit
	for _, h := range hits {
		c, ok := ParseChunk(h.Text)
		if !ok {
			unparsed = append(unparsed, h)
			continue
		}
		if !sameCompany(c.Company, company) {
			continue
		}
		logger.Debug(ctx, "line item resolved", "company", company, "item", item, "matched", c.LineItem, "score", h.Score)
		return &lineitem.Row{LineItem: item, Record: c.Record}, nil
	}

	if r.Extractor != nil && len(unparsed) > 0 {
		return r.extract(ctx, company, item, unparsed)
	}
	return nil, nil
}

// sameCompany accepts chunks without a company field and loose name matches
// ("Infosys" vs "Infosys Ltd").
func sameCompany(chunk, company string) bool {
	if chunk == "" {
		return true
	}
	a, b := strings.ToLower(chunk), strings.ToLower(company)
	return strings.Contains(a, b) || strings.Contains(b, a)
}

type extraction struct {
	FY2024 interface{} `json:"fy_2024"`
	FY2023 interface{} `json:"fy_2023"`
}

func (r *Retriever) extract(ctx context.Context, company, item string, hits []Hit) (*lineitem.Row, error) {
	excerpts := make([]string, 0, len(hits))
	for _, h := range hits {
		excerpts = append(excerpts, h.Text)
	}
	system, user, err := prompt.Get().Render(prompt.ExtractionLineItem, prompt.Vars{
		"Company":  company,
		"Item":     item,
		"Excerpts": excerpts,
	})
	if err != nil {
		return nil, err
	}

	out, err := r.Extractor.ExecutePrompt(ctx, agent.TaskExtraction, user, system,
		map[string]interface{}{"temperature": 0.0, "json": true})
	if err != nil {
		return nil, fmt.Errorf("extract %q: %w", item, err)
	}
	var ex extraction
	if _, err := utils.SmartParse(out, &ex); err != nil {
		logger.Warn(ctx, "extraction output unreadable", "company", company, "item", item, "error", err)
		return nil, nil
	}
	rec := lineitem.Record{FY2024: extractedValue(ex.FY2024), FY2023: extractedValue(ex.FY2023)}
	if rec.FY2024.IsNull() && rec.FY2023.IsNull() {
		return nil, nil
	}
	return &lineitem.Row{LineItem: item, Record: rec}, nil
}

func extractedValue(v interface{}) lineitem.Value {
	if s, ok := v.(string); ok {
		return lineitem.ParseAmount(s)
	}
	return lineitem.FromAny(v)
}

// Fetch implements lineitem.Source: every canonical item of the statement is
// looked up and items without a hit are left out of the table.
func (r *Retriever) Fetch(ctx context.Context, company string, statement lineitem.Statement) (lineitem.Table, error) {
	items := lineitem.CanonicalItems(statement)
	if items == nil {
		return nil, fmt.Errorf("unknown statement %q", statement)
	}

	rows := make([]*lineitem.Row, len(items))
	g, gctx := errgroup.WithContext(ctx)
	limit := r.Concurrency
	if limit <= 0 {
		limit = 4
	}
	g.SetLimit(limit)
	for i, item := range items {
		g.Go(func() error {
			row, err := r.Lookup(gctx, company, statement, item)
			if err != nil {
				return err
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("retrieve %s for %s: %w", statement, company, err)
	}

	found := make([]lineitem.Row, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			found = append(found, *row)
		}
	}
	return lineitem.NewTable(found), nil
}
