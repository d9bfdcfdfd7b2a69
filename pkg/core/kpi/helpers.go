package kpi

import (
	"errors"
	"fmt"
	"math"

	"fsi_kpi/pkg/core/lineitem"
)

var (
	// ErrMissingRevenueBase means neither revenue from operations nor total
	// income resolves for a fiscal year.
	ErrMissingRevenueBase = errors.New("neither 'Revenue from operations' nor 'Total income' found")
	// ErrCapexSign means capital expenditure arrived as a positive magnitude;
	// free cash flow expects it to carry a negative sign already.
	ErrCapexSign = errors.New("capital expenditure must be zero or negative")
	// ErrUnknownKind is returned by Compute for an unrecognised kind.
	ErrUnknownKind = errors.New("unknown KPI kind")
)

// =============================================================================
// ARITHMETIC
// =============================================================================

// ratio divides, yielding None when the denominator is zero.
func ratio(num, den float64) lineitem.Option {
	if den == 0 {
		return lineitem.None()
	}
	return lineitem.Some(num / den)
}

// ratioOpt divides optional operands, yielding None when either side is
// unavailable or the denominator is zero.
func ratioOpt(num, den lineitem.Option) lineitem.Option {
	n, ok := num.Get()
	if !ok {
		return lineitem.None()
	}
	d, ok := den.Get()
	if !ok {
		return lineitem.None()
	}
	return ratio(n, d)
}

// growth is (current - prior) / prior.
func growth(current, prior float64) lineitem.Option {
	return ratio(current-prior, prior)
}

// roundFloat rounds to 3 decimals; NaN and Inf pass through unchanged.
func roundFloat(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r := math.Round(v*1000) / 1000
	if math.IsInf(r, 0) {
		return v
	}
	return r
}

func round3(o lineitem.Option) lineitem.Option {
	v, ok := o.Get()
	if !ok {
		return o
	}
	return lineitem.Some(roundFloat(v))
}

// =============================================================================
// LOOKUPS
// =============================================================================

// reader collects the first accessor error so formulas can be written as a
// flat list of reads followed by one error check.
type reader struct {
	table lineitem.Table
	err   error
}

func (r *reader) need(item string, y lineitem.Year) float64 {
	if r.err != nil {
		return 0
	}
	v, err := lineitem.Required(r.table, item, y)
	if err != nil {
		r.err = err
	}
	return v
}

func (r *reader) opt(item string, y lineitem.Year, def lineitem.Option) lineitem.Option {
	if r.err != nil {
		return def
	}
	v, err := lineitem.Optional(r.table, item, y, def)
	if err != nil {
		r.err = err
	}
	return v
}

// revenueBase prefers revenue from operations and falls back to total income,
// independently per year. Both years must resolve.
func revenueBase(pl lineitem.Table) (base24, base23 float64, err error) {
	r := &reader{table: pl}
	base := func(y lineitem.Year) (float64, error) {
		rev := r.opt(lineitem.RevenueFromOperations, y, lineitem.None())
		tin := r.opt(lineitem.TotalIncome, y, lineitem.None())
		if r.err != nil {
			return 0, r.err
		}
		if v, ok := rev.Get(); ok {
			return v, nil
		}
		if v, ok := tin.Get(); ok {
			return v, nil
		}
		return 0, fmt.Errorf("%w for %s", ErrMissingRevenueBase, y)
	}

	if base24, err = base(lineitem.FY2024); err != nil {
		return 0, 0, err
	}
	if base23, err = base(lineitem.FY2023); err != nil {
		return 0, 0, err
	}
	return base24, base23, nil
}
