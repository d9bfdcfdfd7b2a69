// Package audit reports which KPIs resolved to "unavailable" and folds those
// findings across a batch run without any package-level state.
package audit

import (
	"fmt"
	"io"

	"fsi_kpi/pkg/core/kpi"
)

// Audit returns whether the result has missing metrics and their names, in
// metric order.
func Audit(result *kpi.Result, label string) (bool, []string) {
	f := Check(result, label)
	return f.HasMissing(), f.Missing
}

// Finding is the audit of one KPI set.
type Finding struct {
	Label   string
	Kind    kpi.Kind
	Missing []string
}

// HasMissing reports whether any metric was unavailable.
func (f Finding) HasMissing() bool { return len(f.Missing) > 0 }

// Check audits one KPI set.
func Check(result *kpi.Result, label string) Finding {
	f := Finding{Label: label}
	if result == nil {
		return f
	}
	f.Kind = result.Kind
	for _, m := range result.Metrics {
		if m.Missing() {
			f.Missing = append(f.Missing, m.Name)
		}
	}
	return f
}

// Line renders the finding the way the batch report prints it.
func (f Finding) Line() string {
	if !f.HasMissing() {
		return fmt.Sprintf("✅ %s → All good", f.Label)
	}
	return fmt.Sprintf("❌ %s → Missing %d: %v", f.Label, len(f.Missing), f.Missing)
}

// =============================================================================
// RECORD
// =============================================================================

// Entry is one missing metric under the label of the set it came from.
type Entry struct {
	Label  string
	Metric string
}

// Record accumulates missing entries for one run. It is a value: Fold and
// Merge return new records and never modify the receiver.
type Record struct {
	entries []Entry
}

// Fold appends the finding's missing metrics.
func (r Record) Fold(f Finding) Record {
	if !f.HasMissing() {
		return r
	}
	next := make([]Entry, len(r.entries), len(r.entries)+len(f.Missing))
	copy(next, r.entries)
	for _, name := range f.Missing {
		next = append(next, Entry{Label: f.Label, Metric: name})
	}
	return Record{entries: next}
}

// Merge appends another record after this one.
func (r Record) Merge(other Record) Record {
	if other.Len() == 0 {
		return r
	}
	next := make([]Entry, 0, len(r.entries)+len(other.entries))
	next = append(next, r.entries...)
	next = append(next, other.entries...)
	return Record{entries: next}
}

// Len is the number of missing entries.
func (r Record) Len() int { return len(r.entries) }

// Entries returns a copy of the entries in fold order.
func (r Record) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// WriteSummary prints the run summary.
func (r Record) WriteSummary(w io.Writer) {
	if r.Len() == 0 {
		fmt.Fprintln(w, "🎉 All KPIs present for all companies!")
		return
	}
	fmt.Fprintf(w, "Total missing: %d\n", r.Len())
	for _, e := range r.entries {
		fmt.Fprintf(w, " - %s: %s\n", e.Label, e.Metric)
	}
}
