package audit

import (
	"bytes"
	"strings"
	"testing"

	"fsi_kpi/pkg/core/kpi"
	"fsi_kpi/pkg/core/lineitem"
)

func result(kind kpi.Kind, metrics ...kpi.Metric) *kpi.Result {
	return &kpi.Result{Kind: kind, Metrics: metrics}
}

func TestAudit_Example(t *testing.T) {
	res := result(kpi.KindBalanceSheet,
		kpi.Metric{Name: "a", Value: lineitem.Some(1.0), Description: "d"},
		kpi.Metric{Name: "b", Value: lineitem.None(), Description: "d2"},
	)

	hasMissing, missing := Audit(res, "ACME Balance Sheet KPIs")
	if !hasMissing {
		t.Fatal("expected hasMissing = true")
	}
	if len(missing) != 1 || missing[0] != "b" {
		t.Errorf("missing = %v, want [b]", missing)
	}
}

func TestAudit_PairsAndZeroAreNotMissing(t *testing.T) {
	pair := kpi.Pair{400, 400}
	res := result(kpi.KindBalanceSheet,
		kpi.Metric{Name: "zero", Value: lineitem.Some(0)},
		kpi.Metric{Name: "check", Pair: &pair},
	)
	if hasMissing, missing := Audit(res, "x"); hasMissing || len(missing) != 0 {
		t.Errorf("expected nothing missing, got %v", missing)
	}
	if line := Check(res, "ACME Balance Sheet KPIs").Line(); !strings.Contains(line, "All good") {
		t.Errorf("unexpected line %q", line)
	}
}

func TestRecord_FoldIsImmutable(t *testing.T) {
	first := Finding{Label: "A P&L KPIs", Missing: []string{"m1", "m2"}}
	second := Finding{Label: "B Cashflow KPIs", Missing: []string{"m3"}}

	var empty Record
	one := empty.Fold(first)
	two := one.Fold(second)
	branch := one.Fold(Finding{Label: "C", Missing: []string{"other"}})

	if empty.Len() != 0 {
		t.Errorf("empty record changed: %d", empty.Len())
	}
	if one.Len() != 2 {
		t.Errorf("one.Len() = %d, want 2", one.Len())
	}
	if two.Len() != 3 || branch.Len() != 3 {
		t.Fatalf("two.Len() = %d, branch.Len() = %d", two.Len(), branch.Len())
	}
	if got := two.Entries()[2]; got != (Entry{Label: "B Cashflow KPIs", Metric: "m3"}) {
		t.Errorf("two.Entries()[2] = %+v", got)
	}
	if got := branch.Entries()[2]; got.Label != "C" {
		t.Errorf("branch shares storage with two: %+v", got)
	}

	merged := one.Merge(Record{}.Fold(second))
	if merged.Len() != 3 || one.Len() != 2 {
		t.Errorf("merge: merged=%d one=%d", merged.Len(), one.Len())
	}
}

func TestRecord_WriteSummary(t *testing.T) {
	var buf bytes.Buffer
	Record{}.WriteSummary(&buf)
	if !strings.Contains(buf.String(), "All KPIs present") {
		t.Errorf("unexpected empty summary: %q", buf.String())
	}

	buf.Reset()
	Record{}.Fold(Finding{Label: "ACME P&L KPIs", Missing: []string{"revenue_yoy_growth"}}).WriteSummary(&buf)
	want := "Total missing: 1\n - ACME P&L KPIs: revenue_yoy_growth\n"
	if buf.String() != want {
		t.Errorf("summary = %q, want %q", buf.String(), want)
	}
}
