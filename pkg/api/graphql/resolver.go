package graphql

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"fsi_kpi/pkg/core/batch"
	"fsi_kpi/pkg/core/kpi"
	"fsi_kpi/pkg/core/lineitem"
	"fsi_kpi/pkg/core/logger"
	"fsi_kpi/pkg/core/rag"
)

// ErrQANotConfigured is returned by the question fields when no retriever
// and model are wired.
var ErrQANotConfigured = errors.New("question answering is not configured")

// Asker answers a free-form question.
type Asker interface {
	Ask(ctx context.Context, question string) (*rag.Answer, error)
}

// Lister returns every stored row of a statement. store.LineItemRepo
// implements it; SourceLister adapts any lineitem.Source.
type Lister interface {
	ListFinancials(ctx context.Context, company string, statement lineitem.Statement) ([]lineitem.Row, error)
}

// SourceLister lists a source's table sorted by line item.
type SourceLister struct {
	Source lineitem.Source
}

func (s SourceLister) ListFinancials(ctx context.Context, company string, statement lineitem.Statement) ([]lineitem.Row, error) {
	table, err := s.Source.Fetch(ctx, company, statement)
	if err != nil {
		return nil, err
	}
	rows := make([]lineitem.Row, 0, len(table))
	for name, rec := range table {
		rows = append(rows, lineitem.Row{LineItem: name, Record: rec})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].LineItem < rows[j].LineItem })
	return rows, nil
}

// Resolver is the Query root.
type Resolver struct {
	Runner     *batch.Runner
	Financials Lister
	QA         Asker
}

type questionArgs struct {
	Question string
}

func (r *Resolver) ask(ctx context.Context, question string) (*rag.Answer, error) {
	if r.QA == nil {
		return nil, ErrQANotConfigured
	}
	return r.QA.Ask(ctx, question)
}

func (r *Resolver) AskQuestion(ctx context.Context, args questionArgs) (string, error) {
	ans, err := r.ask(ctx, args.Question)
	if err != nil {
		return "", err
	}
	return ans.Text, nil
}

func (r *Resolver) AskQuestionHTML(ctx context.Context, args questionArgs) (string, error) {
	ans, err := r.ask(ctx, args.Question)
	if err != nil {
		return "", err
	}
	return ans.HTML, nil
}

type financialsArgs struct {
	Company       string
	StatementType string
}

func (r *Resolver) GetFinancials(ctx context.Context, args financialsArgs) ([]*financialItemResolver, error) {
	st, err := lineitem.ParseStatement(args.StatementType)
	if err != nil {
		return nil, err
	}
	rows, err := r.Financials.ListFinancials(ctx, strings.TrimSpace(args.Company), st)
	if err != nil {
		return nil, fmt.Errorf("get financials: %w", err)
	}
	out := make([]*financialItemResolver, 0, len(rows))
	for _, row := range rows {
		out = append(out, &financialItemResolver{row: row})
	}
	return out, nil
}

type companyArgs struct {
	Company string
}

// CompanyMetrics computes the four KPI sets. A failed set surfaces as an
// error on its own field.
func (r *Resolver) CompanyMetrics(ctx context.Context, args companyArgs) (*companyMetricsResolver, error) {
	company := strings.TrimSpace(args.Company)
	if company == "" {
		return nil, fmt.Errorf("company is required")
	}
	rep := r.Runner.RunCompany(ctx, company)
	for _, s := range rep.Statements {
		if s.Err == nil {
			logger.Info(ctx, s.Line(), "company", company, "kind", string(s.Kind), "missing", len(s.Finding.Missing))
		}
	}
	return &companyMetricsResolver{report: rep}, nil
}

// =============================================================================
// TYPES
// =============================================================================

type financialItemResolver struct {
	row lineitem.Row
}

func (f *financialItemResolver) LineItem() *string { return &f.row.LineItem }
func (f *financialItemResolver) Fy2024() *float64  { return f.row.FY2024.Ptr() }
func (f *financialItemResolver) Fy2023() *float64  { return f.row.FY2023.Ptr() }

type kpiResolver struct {
	metric kpi.Metric
}

const (
	statusOK      = "ok"
	statusMissing = "missing"
)

func (k *kpiResolver) Name() string        { return k.metric.Name }
func (k *kpiResolver) Description() string { return k.metric.Description }

func (k *kpiResolver) Value() *string {
	v, ok := k.metric.Display()
	if !ok {
		return nil
	}
	return &v
}

func (k *kpiResolver) Status() *string {
	s := statusOK
	if k.metric.Missing() {
		s = statusMissing
	}
	return &s
}

type companyMetricsResolver struct {
	report batch.CompanyReport
}

func (c *companyMetricsResolver) metrics(kind kpi.Kind) (*[]*kpiResolver, error) {
	s, ok := c.report.Statement(kind)
	if !ok {
		return nil, fmt.Errorf("%s not computed", kind.Label())
	}
	if s.Err != nil {
		return nil, fmt.Errorf("%s: %w", s.Label, s.Err)
	}
	out := make([]*kpiResolver, 0, len(s.Result.Metrics))
	for _, m := range s.Result.Metrics {
		out = append(out, &kpiResolver{metric: m})
	}
	return &out, nil
}

func (c *companyMetricsResolver) BalanceSheet() (*[]*kpiResolver, error) {
	return c.metrics(kpi.KindBalanceSheet)
}

func (c *companyMetricsResolver) Pnl() (*[]*kpiResolver, error) {
	return c.metrics(kpi.KindProfitAndLoss)
}

func (c *companyMetricsResolver) Cashflow() (*[]*kpiResolver, error) {
	return c.metrics(kpi.KindCashFlow)
}

func (c *companyMetricsResolver) CrossStatement() (*[]*kpiResolver, error) {
	return c.metrics(kpi.KindCrossStatement)
}
