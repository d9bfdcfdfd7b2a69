package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"fsi_kpi/pkg/core/lineitem"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TableCache keeps fetched statement tables so slow sources (retrieval plus
// LLM extraction) run once per company and statement.
// Hybrid: DB (primary) when a pool is configured, JSON files otherwise.
type TableCache struct {
	db      Querier
	fileDir string
	ttl     time.Duration
}

// NewTableCache creates a cache. With no db and no dir it defaults to
// .cache/line_items. A zero ttl never expires entries.
func NewTableCache(db Querier, dir string, ttl time.Duration) *TableCache {
	if db == nil && dir == "" {
		dir = filepath.Join(".cache", "line_items")
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Printf("[WARNING] TableCache dir: %v\n", err)
		}
	}
	return &TableCache{db: db, fileDir: dir, ttl: ttl}
}

// CacheEntry is one cached statement table.
type CacheEntry struct {
	Company   string             `json:"company"`
	Statement lineitem.Statement `json:"statement"`
	Rows      []lineitem.Row     `json:"rows"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// Get returns the cached rows, or nil on a miss or an expired entry.
func (c *TableCache) Get(ctx context.Context, company string, statement lineitem.Statement) (*CacheEntry, error) {
	var raw []byte
	if c.db != nil {
		err := c.db.QueryRow(ctx, `
			SELECT data
			FROM line_item_snapshots
			WHERE company = $1 AND statement_type = $2
			LIMIT 1`, company, string(statement)).Scan(&raw)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshot: %w", err)
		}
	} else {
		b, err := os.ReadFile(c.path(company, statement))
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshot file: %w", err)
		}
		raw = b
	}

	var entry CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached table: %w", err)
	}
	if c.ttl > 0 && time.Since(entry.FetchedAt) > c.ttl {
		return nil, nil
	}
	return &entry, nil
}

// Save stores rows for a company's statement.
func (c *TableCache) Save(ctx context.Context, company string, statement lineitem.Statement, rows []lineitem.Row) error {
	entry := CacheEntry{Company: company, Statement: statement, Rows: rows, FetchedAt: time.Now()}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal table: %w", err)
	}

	if c.db != nil {
		_, err = c.db.Exec(ctx, `
			INSERT INTO line_item_snapshots (company, statement_type, data)
			VALUES ($1, $2, $3)
			ON CONFLICT (company, statement_type)
			DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
			company, string(statement), data)
		if err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(c.path(company, statement), data, 0644); err != nil {
		return fmt.Errorf("failed to save snapshot file: %w", err)
	}
	return nil
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9]+`)

// path names the snapshot file. Names with no ASCII letters or digits fall
// back to a name-based uuid so they never share a file.
func (c *TableCache) path(company string, statement lineitem.Statement) string {
	key := strings.Trim(unsafeChars.ReplaceAllString(strings.ToLower(company), "_"), "_")
	if key == "" {
		key = uuid.NewSHA1(uuid.NameSpaceOID, []byte(company)).String()
	}
	return filepath.Join(c.fileDir, key+"__"+string(statement)+".json")
}

// =============================================================================
// CACHED SOURCE
// =============================================================================

// CachedSource serves tables from the cache and falls through to the wrapped
// source on a miss. Cache failures are logged and never fail a fetch.
type CachedSource struct {
	Source lineitem.Source
	Cache  *TableCache
}

// Fetch implements lineitem.Source.
func (s *CachedSource) Fetch(ctx context.Context, company string, statement lineitem.Statement) (lineitem.Table, error) {
	entry, err := s.Cache.Get(ctx, company, statement)
	if err != nil {
		fmt.Printf("[CACHE] read %s/%s: %v\n", company, statement, err)
	}
	if entry != nil {
		return lineitem.NewTable(entry.Rows), nil
	}

	table, err := s.Source.Fetch(ctx, company, statement)
	if err != nil {
		return nil, err
	}
	if err := s.Cache.Save(ctx, company, statement, tableRows(table)); err != nil {
		fmt.Printf("[CACHE] save %s/%s: %v\n", company, statement, err)
	}
	return table, nil
}

func tableRows(t lineitem.Table) []lineitem.Row {
	rows := make([]lineitem.Row, 0, len(t))
	for name, rec := range t {
		rows = append(rows, lineitem.Row{LineItem: name, Record: rec})
	}
	return rows
}
