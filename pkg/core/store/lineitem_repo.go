package store

import (
	"context"
	"fmt"

	"fsi_kpi/pkg/core/lineitem"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the part of pgxpool.Pool the repositories use.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// LineItemRepo reads statement line items from the financial_statements table.
type LineItemRepo struct {
	db Querier
}

// NewLineItemRepo creates a repository over a pool (or any Querier).
func NewLineItemRepo(db Querier) *LineItemRepo {
	return &LineItemRepo{db: db}
}

const listFinancialsSQL = `
	SELECT line_item, fy_2024, fy_2023
	FROM financial_statements
	WHERE company = $1 AND statement_type = $2
	ORDER BY line_item`

// ListFinancials returns every row stored for a company's statement. NULL and
// NaN amounts come back as null values.
func (r *LineItemRepo) ListFinancials(ctx context.Context, company string, statement lineitem.Statement) ([]lineitem.Row, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database pool not configured")
	}

	rows, err := r.db.Query(ctx, listFinancialsSQL, company, string(statement))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s for %s: %w", statement, company, err)
	}
	defer rows.Close()

	var out []lineitem.Row
	for rows.Next() {
		var (
			name string
			fy24 *float64
			fy23 *float64
		)
		if err := rows.Scan(&name, &fy24, &fy23); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		out = append(out, lineitem.Row{
			LineItem: name,
			Record: lineitem.Record{
				FY2024: lineitem.FromPtr(fy24),
				FY2023: lineitem.FromPtr(fy23),
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s rows for %s: %w", statement, company, err)
	}
	return out, nil
}

// Fetch implements lineitem.Source.
func (r *LineItemRepo) Fetch(ctx context.Context, company string, statement lineitem.Statement) (lineitem.Table, error) {
	rows, err := r.ListFinancials(ctx, company, statement)
	if err != nil {
		return nil, err
	}
	return lineitem.NewTable(rows), nil
}

// Diagnosis is the result of a connectivity check.
type Diagnosis struct {
	Tables   []string `json:"tables"`
	RowCount int64    `json:"row_count"`
}

// Diagnose lists the public tables and counts financial_statements rows.
func (r *LineItemRepo) Diagnose(ctx context.Context) (*Diagnosis, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database pool not configured")
	}

	rows, err := r.db.Query(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public'
		ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	d := &Diagnosis{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		d.Tables = append(d.Tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM financial_statements`).Scan(&d.RowCount); err != nil {
		return nil, fmt.Errorf("failed to count financial_statements: %w", err)
	}
	return d, nil
}

const upsertFinancialSQL = `
	INSERT INTO financial_statements (company, statement_type, line_item, fy_2024, fy_2023)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (company, statement_type, line_item)
	DO UPDATE SET fy_2024 = EXCLUDED.fy_2024, fy_2023 = EXCLUDED.fy_2023`

// UpsertFinancials writes rows for a company's statement and returns how many
// were stored. Text cells cannot be stored and are written as NULL.
func (r *LineItemRepo) UpsertFinancials(ctx context.Context, company string, statement lineitem.Statement, rows []lineitem.Row) (int, error) {
	if r.db == nil {
		return 0, fmt.Errorf("database pool not configured")
	}
	n := 0
	for _, row := range rows {
		_, err := r.db.Exec(ctx, upsertFinancialSQL,
			company, string(statement), row.LineItem, row.FY2024.Ptr(), row.FY2023.Ptr())
		if err != nil {
			return n, fmt.Errorf("failed to upsert %q: %w", row.LineItem, err)
		}
		n++
	}
	return n, nil
}
