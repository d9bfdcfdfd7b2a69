package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"fsi_kpi/pkg/core/store"
)

// PgIndex stores documents in a pgvector table. Nearest neighbours come from
// the `<=>` cosine-distance operator; MMR re-ranking happens in Go.
type PgIndex struct {
	db    store.Querier
	table string
}

var _ Index = (*PgIndex)(nil)

// NewPgIndex uses table (default "statement_chunks").
func NewPgIndex(db store.Querier, table string) *PgIndex {
	if table == "" {
		table = "statement_chunks"
	}
	return &PgIndex{db: db, table: table}
}

// EnsureSchema creates the extension and table for vectors of dim dimensions.
func (p *PgIndex) EnsureSchema(ctx context.Context, dim int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			metadata JSONB,
			embedding vector(%d) NOT NULL
		)`, p.table, dim),
	}
	for _, s := range stmts {
		if _, err := p.db.Exec(ctx, s); err != nil {
			return fmt.Errorf("ensure vector schema: %w", err)
		}
	}
	return nil
}

func (p *PgIndex) Add(ctx context.Context, docs []Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, content, metadata, embedding)
		VALUES ($1, $2, $3, $4::vector)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding`, p.table)
	for _, d := range docs {
		meta, err := json.Marshal(d.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", d.ID, err)
		}
		if _, err := p.db.Exec(ctx, query, d.ID, d.Text, meta, vectorLiteral(d.Embedding)); err != nil {
			return fmt.Errorf("insert chunk %s: %w", d.ID, err)
		}
	}
	return nil
}

func (p *PgIndex) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	sql := fmt.Sprintf(`
		SELECT id, content, metadata, embedding::text, 1 - (embedding <=> $1::vector) AS score
		FROM %s
		ORDER BY embedding <=> $1::vector
		LIMIT $2`, p.table)
	rows, err := p.db.Query(ctx, sql, vectorLiteral(query), k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var (
			h    Hit
			meta []byte
			vec  string
		)
		if err := rows.Scan(&h.ID, &h.Text, &meta, &vec, &h.Score); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &h.Metadata); err != nil {
				return nil, fmt.Errorf("chunk %s metadata: %w", h.ID, err)
			}
		}
		if h.Embedding, err = parseVector(vec); err != nil {
			return nil, fmt.Errorf("chunk %s: %w", h.ID, err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return hits, nil
}

func (p *PgIndex) SearchMMR(ctx context.Context, query []float32, k, fetchK int, lambda float64) ([]Hit, error) {
	candidates, err := p.Search(ctx, query, fetchK)
	if err != nil {
		return nil, err
	}
	return mmr(candidates, k, lambda), nil
}

// vectorLiteral formats a pgvector input literal: "[0.1,0.2]".
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

func parseVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("malformed vector %q", s)
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return nil, nil
	}
	fields := strings.Split(body, ",")
	out := make([]float32, len(fields))
	for i, f := range fields {
		x, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
		if err != nil {
			return nil, fmt.Errorf("malformed vector element %q", f)
		}
		out[i] = float32(x)
	}
	return out, nil
}
