// Package kpi computes balance-sheet, profit-and-loss, cash-flow and
// cross-statement ratios from line-item tables.
//
// Every function is pure: it reads already-fetched tables and returns a Result.
// Hard input problems (missing required line items, invalid values, no revenue
// base) abort the whole statement with an error; a ratio whose denominator is
// zero or unavailable resolves to a missing metric instead.
package kpi

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"fsi_kpi/pkg/core/lineitem"
)

// Kind names one KPI set.
type Kind string

const (
	KindBalanceSheet   Kind = "balance_sheet"
	KindProfitAndLoss  Kind = "profit_and_loss"
	KindCashFlow       Kind = "cash_flow"
	KindCrossStatement Kind = "cross_statement"
)

// Kinds returns the KPI sets in reporting order.
func Kinds() []Kind {
	return []Kind{KindBalanceSheet, KindProfitAndLoss, KindCashFlow, KindCrossStatement}
}

// Label is the human-readable name used in audit output.
func (k Kind) Label() string {
	switch k {
	case KindBalanceSheet:
		return "Balance Sheet"
	case KindProfitAndLoss:
		return "P&L"
	case KindCashFlow:
		return "Cashflow"
	case KindCrossStatement:
		return "Cross Statement"
	}
	return string(k)
}

// Statements lists the statement tables a KPI set reads.
func (k Kind) Statements() []lineitem.Statement {
	switch k {
	case KindBalanceSheet:
		return []lineitem.Statement{lineitem.BalanceSheet}
	case KindProfitAndLoss:
		return []lineitem.Statement{lineitem.ProfitAndLoss}
	case KindCashFlow:
		return []lineitem.Statement{lineitem.CashFlows}
	case KindCrossStatement:
		return lineitem.Statements()
	}
	return nil
}

// =============================================================================
// METRICS
// =============================================================================

// Pair is an equality check: both sides should agree for well-formed data.
type Pair [2]float64

// Balanced reports whether both sides agree within a relative tolerance.
func (p Pair) Balanced(tolerance float64) bool {
	scale := math.Max(math.Abs(p[0]), math.Abs(p[1]))
	if scale == 0 {
		return true
	}
	return math.Abs(p[0]-p[1])/scale <= tolerance
}

func (p Pair) String() string {
	return fmt.Sprintf("(%s, %s)", FormatFloat(p[0]), FormatFloat(p[1]))
}

// Metric is one KPI value with its static description.
type Metric struct {
	Name        string
	Value       lineitem.Option
	Pair        *Pair // set instead of Value for equality checks
	Description string
}

// Missing reports whether the metric resolved to "unavailable".
func (m Metric) Missing() bool {
	return m.Pair == nil && !m.Value.Valid()
}

// Display returns the printable value; ok is false for missing metrics.
func (m Metric) Display() (string, bool) {
	if m.Pair != nil {
		return m.Pair.String(), true
	}
	v, ok := m.Value.Get()
	if !ok {
		return "", false
	}
	return FormatFloat(v), true
}

// Result is the ordered metric set of one KPI kind.
type Result struct {
	Kind    Kind
	Metrics []Metric
}

// Lookup finds a metric by name.
func (r *Result) Lookup(name string) (Metric, bool) {
	if r == nil {
		return Metric{}, false
	}
	for _, m := range r.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return Metric{}, false
}

// Names lists the metric names in order.
func (r *Result) Names() []string {
	names := make([]string, 0, len(r.Metrics))
	for _, m := range r.Metrics {
		names = append(names, m.Name)
	}
	return names
}

func (r *Result) add(name string, v lineitem.Option, description string) {
	r.Metrics = append(r.Metrics, Metric{Name: name, Value: round3(v), Description: description})
}

func (r *Result) addPair(name string, a, b float64, description string) {
	p := Pair{roundFloat(a), roundFloat(b)}
	r.Metrics = append(r.Metrics, Metric{Name: name, Pair: &p, Description: description})
}

// FormatFloat prints a float the way the reports show it: shortest form,
// always with a decimal point ("2.0", "0.588", "-1234.5").
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return s
	}
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// Tables bundles the three statements of one company.
type Tables struct {
	BalanceSheet  lineitem.Table
	ProfitAndLoss lineitem.Table
	CashFlows     lineitem.Table
}

// Set stores a fetched statement table.
func (t *Tables) Set(s lineitem.Statement, table lineitem.Table) {
	switch s {
	case lineitem.BalanceSheet:
		t.BalanceSheet = table
	case lineitem.ProfitAndLoss:
		t.ProfitAndLoss = table
	case lineitem.CashFlows:
		t.CashFlows = table
	}
}
