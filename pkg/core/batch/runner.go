// Package batch computes and audits the KPI sets of many companies.
package batch

import (
	"context"
	"fmt"
	"io"

	"fsi_kpi/pkg/core/audit"
	"fsi_kpi/pkg/core/kpi"
	"fsi_kpi/pkg/core/lineitem"
	"fsi_kpi/pkg/core/logger"

	"golang.org/x/sync/errgroup"
)

// DefaultBalanceTolerance is the relative gap at which a balance check is
// reported as unbalanced.
const DefaultBalanceTolerance = 0.005

// Runner fetches each company's statements from Source and computes every KPI
// kind. A failing company or statement never stops the others.
type Runner struct {
	Source           lineitem.Source
	Concurrency      int     // companies in flight, default 4
	BalanceTolerance float64 // default DefaultBalanceTolerance
}

// StatementReport is one KPI kind of one company: a result with its audit,
// or the hard error that stopped it.
type StatementReport struct {
	Kind    kpi.Kind
	Label   string
	Result  *kpi.Result
	Finding audit.Finding
	Err     error
}

// Line renders the report the way the batch output prints it.
func (s StatementReport) Line() string {
	if s.Err != nil {
		return fmt.Sprintf("⚠️ %s → Failed: %v", s.Label, s.Err)
	}
	return s.Finding.Line()
}

// CompanyReport holds the four kinds of one company in reporting order.
type CompanyReport struct {
	Company    string
	Statements []StatementReport
	Unbalanced []string // balance checks outside tolerance
}

// Errors lists the hard errors of the company.
func (c CompanyReport) Errors() []error {
	var errs []error
	for _, s := range c.Statements {
		if s.Err != nil {
			errs = append(errs, s.Err)
		}
	}
	return errs
}

// Statement returns the report of one kind.
func (c CompanyReport) Statement(kind kpi.Kind) (StatementReport, bool) {
	for _, s := range c.Statements {
		if s.Kind == kind {
			return s, true
		}
	}
	return StatementReport{}, false
}

// Report is the outcome of one run. Companies keep input order.
type Report struct {
	Companies []CompanyReport
	Missing   audit.Record
}

// HardErrors counts failed statements across all companies.
func (r *Report) HardErrors() int {
	n := 0
	for _, c := range r.Companies {
		n += len(c.Errors())
	}
	return n
}

// Label names a KPI set in audit output: "<company> <kind label> KPIs".
func Label(company string, kind kpi.Kind) string {
	return fmt.Sprintf("%s %s KPIs", company, kind.Label())
}

// RunCompany fetches the three statements and computes all four kinds in
// order. Cross-statement KPIs fail when any statement could not be fetched.
func (r *Runner) RunCompany(ctx context.Context, company string) CompanyReport {
	op := logger.StartOperation(ctx, "batch.company", "company", company)
	ctx = op.Context()

	var (
		tables   kpi.Tables
		fetchErr = map[lineitem.Statement]error{}
	)
	for _, st := range lineitem.Statements() {
		t, err := r.Source.Fetch(ctx, company, st)
		if err != nil {
			fetchErr[st] = fmt.Errorf("fetch %s: %w", st, err)
			continue
		}
		tables.Set(st, t)
	}

	rep := CompanyReport{Company: company}
	for _, kind := range kpi.Kinds() {
		sr := StatementReport{Kind: kind, Label: Label(company, kind)}
		for _, st := range kind.Statements() {
			if err := fetchErr[st]; err != nil {
				sr.Err = err
				break
			}
		}
		if sr.Err == nil {
			sr.Result, sr.Err = kpi.Compute(kind, tables)
		}
		if sr.Err == nil {
			sr.Finding = audit.Check(sr.Result, sr.Label)
			rep.Unbalanced = append(rep.Unbalanced, r.unbalanced(ctx, company, sr.Result)...)
		} else {
			logger.Warn(ctx, "KPI set failed", "company", company, "kind", string(kind), "error", sr.Err)
		}
		rep.Statements = append(rep.Statements, sr)
	}

	var err error
	if errs := rep.Errors(); len(errs) > 0 {
		err = fmt.Errorf("%d of %d KPI sets failed", len(errs), len(rep.Statements))
	}
	op.End(err)
	return rep
}

func (r *Runner) unbalanced(ctx context.Context, company string, res *kpi.Result) []string {
	tol := r.BalanceTolerance
	if tol <= 0 {
		tol = DefaultBalanceTolerance
	}
	var out []string
	for _, m := range res.Metrics {
		if m.Pair == nil || m.Pair.Balanced(tol) {
			continue
		}
		logger.Warn(ctx, "balance sheet does not balance",
			"company", company, "metric", m.Name, "assets", m.Pair[0], "equity_plus_liabilities", m.Pair[1])
		out = append(out, m.Name)
	}
	return out
}

// Run processes companies concurrently and folds the missing record in input
// order once all are done. It only fails when ctx is cancelled.
func (r *Runner) Run(ctx context.Context, companies []string) (*Report, error) {
	reports := make([]CompanyReport, len(companies))

	g, gctx := errgroup.WithContext(ctx)
	limit := r.Concurrency
	if limit <= 0 {
		limit = 4
	}
	g.SetLimit(limit)
	for i, company := range companies {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reports[i] = r.RunCompany(gctx, company)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch run: %w", err)
	}

	out := &Report{Companies: reports}
	for _, c := range reports {
		for _, s := range c.Statements {
			if s.Err == nil {
				out.Missing = out.Missing.Fold(s.Finding)
			}
		}
	}
	return out, nil
}

// Write prints per-company audit lines followed by the missing summary.
func (r *Report) Write(w io.Writer) {
	for _, c := range r.Companies {
		fmt.Fprintf(w, "\n================ %s ================\n", c.Company)
		for _, s := range c.Statements {
			fmt.Fprintln(w, s.Line())
		}
		for _, name := range c.Unbalanced {
			fmt.Fprintf(w, "⚖️ %s → %s outside tolerance\n", c.Company, name)
		}
	}
	fmt.Fprintln(w, "\n======= SUMMARY =======")
	r.Missing.WriteSummary(w)
	if n := r.HardErrors(); n > 0 {
		fmt.Fprintf(w, "Failed KPI sets: %d\n", n)
	}
}
