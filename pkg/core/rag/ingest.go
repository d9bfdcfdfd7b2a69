package rag

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"fsi_kpi/pkg/core/lineitem"
	"fsi_kpi/pkg/core/logger"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
)

var (
	year2024 = regexp.MustCompile(`(?i)FY\s*(20)?24\b|\b2024\b|2023-24`)
	year2023 = regexp.MustCompile(`(?i)FY\s*(20)?23\b|\b2023\b|2022-23`)
)

// ParseStatementHTML reads line items out of the <table> elements of a
// statement page. A header row naming both years fixes the column order;
// otherwise the first two amounts of a row are FY2024 then FY2023. Labels
// are canonicalized where they match a known line item.
func ParseStatementHTML(r io.Reader) ([]lineitem.Row, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse statement html: %w", err)
	}

	var rows []lineitem.Row
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		col24, col23 := -1, -1
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var cells []string
			tr.Find("th,td").Each(func(_ int, c *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(c.Text()))
			})
			if len(cells) < 2 {
				return
			}

			if c24, c23 := headerColumns(cells); c24 > 0 && c23 > 0 {
				col24, col23 = c24, c23
				return
			}

			label := cells[0]
			if label == "" {
				return
			}
			rec, ok := rowAmounts(cells, col24, col23)
			if !ok {
				return
			}
			name, _ := lineitem.Canonicalize(label)
			rows = append(rows, lineitem.Row{LineItem: name, Record: rec})
		})
	})
	return rows, nil
}

func headerColumns(cells []string) (int, int) {
	c24, c23 := -1, -1
	for i, c := range cells[1:] {
		switch {
		case c24 < 0 && year2024.MatchString(c):
			c24 = i + 1
		case c23 < 0 && year2023.MatchString(c):
			c23 = i + 1
		}
	}
	return c24, c23
}

func rowAmounts(cells []string, col24, col23 int) (lineitem.Record, bool) {
	if col24 > 0 && col23 > 0 && col24 < len(cells) && col23 < len(cells) {
		rec := lineitem.Record{FY2024: lineitem.ParseAmount(cells[col24]), FY2023: lineitem.ParseAmount(cells[col23])}
		_, ok24 := rec.FY2024.Float64()
		_, ok23 := rec.FY2023.Float64()
		return rec, ok24 || ok23
	}

	var amounts []lineitem.Value
	for _, c := range cells[1:] {
		v := lineitem.ParseAmount(c)
		if _, ok := v.Float64(); ok {
			amounts = append(amounts, v)
		}
	}
	switch len(amounts) {
	case 0:
		return lineitem.Record{}, false
	case 1:
		return lineitem.Record{FY2024: amounts[0]}, true
	}
	// A leading small integer is usually a note reference.
	if len(amounts) > 2 {
		amounts = amounts[len(amounts)-2:]
	}
	return lineitem.Record{FY2024: amounts[0], FY2023: amounts[1]}, true
}

// =============================================================================
// INGESTER
// =============================================================================

// chunkNamespace scopes chunk IDs so re-ingesting a statement replaces its
// chunks instead of duplicating them.
var chunkNamespace = uuid.MustParse("6f1f5c1e-3b0a-4c55-9d0e-6a1d9c0b7e21")

// ChunkID is the stable ID of a company/statement/line-item chunk.
func ChunkID(company string, statement lineitem.Statement, item string) string {
	key := strings.ToLower(company) + "|" + string(statement) + "|" + strings.ToLower(item)
	return uuid.NewSHA1(chunkNamespace, []byte(key)).String()
}

// Ingester embeds statement rows and writes them to an index.
type Ingester struct {
	Embedder  Embedder
	Index     Index
	BatchSize int // default 32
}

// Ingest writes one chunk per row and returns the number written.
func (in *Ingester) Ingest(ctx context.Context, company string, statement lineitem.Statement, rows []lineitem.Row) (int, error) {
	op := logger.StartOperation(ctx, "rag.ingest", "company", company, "statement", string(statement), "rows", len(rows))
	n, err := in.ingest(op.Context(), company, statement, rows)
	op.End(err)
	return n, err
}

func (in *Ingester) ingest(ctx context.Context, company string, statement lineitem.Statement, rows []lineitem.Row) (int, error) {
	size := in.BatchSize
	if size <= 0 {
		size = 32
	}
	written := 0
	for start := 0; start < len(rows); start += size {
		batch := rows[start:min(start+size, len(rows))]
		docs := make([]Document, len(batch))
		texts := make([]string, len(batch))
		for i, row := range batch {
			texts[i] = FormatChunk(company, statement, row)
			docs[i] = Document{
				ID:   ChunkID(company, statement, row.LineItem),
				Text: texts[i],
				Metadata: map[string]string{
					"company":   company,
					"statement": string(statement),
					"line_item": row.LineItem,
				},
			}
		}
		vecs, err := in.Embedder.Embed(ctx, texts)
		if err != nil {
			return written, fmt.Errorf("embed chunks: %w", err)
		}
		if len(vecs) != len(docs) {
			return written, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vecs), len(docs))
		}
		for i := range docs {
			docs[i].Embedding = vecs[i]
		}
		if err := in.Index.Add(ctx, docs); err != nil {
			return written, fmt.Errorf("index chunks: %w", err)
		}
		written += len(docs)
	}
	return written, nil
}
