// Package lineitem holds the per-statement line-item tables the KPI engine reads,
// the accessor layer over them, and the Source contract that fills them.
package lineitem

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// =============================================================================
// STATEMENTS & FISCAL YEARS
// =============================================================================

// Statement identifies one financial statement type.
type Statement string

const (
	BalanceSheet  Statement = "balance_sheet"
	ProfitAndLoss Statement = "profit_and_loss"
	CashFlows     Statement = "cash_flows"
)

// Statements returns the statement types in reporting order.
func Statements() []Statement {
	return []Statement{BalanceSheet, ProfitAndLoss, CashFlows}
}

// ParseStatement accepts the canonical names plus a few common aliases.
func ParseStatement(s string) (Statement, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "balance_sheet", "balancesheet", "bs":
		return BalanceSheet, nil
	case "profit_and_loss", "profitandloss", "pnl", "p&l", "pl":
		return ProfitAndLoss, nil
	case "cash_flows", "cash_flow", "cashflow", "cashflows", "cf":
		return CashFlows, nil
	}
	return "", fmt.Errorf("unknown statement type %q", s)
}

// Year selects one of the two fiscal-year columns.
type Year string

const (
	FY2024 Year = "fy_2024"
	FY2023 Year = "fy_2023"
)

// =============================================================================
// VALUES
// =============================================================================

// Value is one fiscal-year cell. The zero Value is null.
// A cell may hold raw text when the source could not parse it; the accessor
// layer reports such cells as invalid instead of guessing.
type Value struct {
	raw interface{}
}

// Null is the absent value.
var Null = Value{}

// Number wraps a numeric cell. NaN and infinities are stored as null.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null
	}
	return Value{raw: f}
}

// Text wraps an unparsed cell.
func Text(s string) Value {
	return Value{raw: s}
}

// FromPtr converts a nullable database column.
func FromPtr(f *float64) Value {
	if f == nil {
		return Null
	}
	return Number(*f)
}

// FromAny converts a decoded JSON/driver value into a cell.
func FromAny(v interface{}) Value {
	switch t := v.(type) {
	case nil:
		return Null
	case Value:
		return t
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case *float64:
		return FromPtr(t)
	}
	return Value{raw: v}
}

// IsNull reports whether the cell is absent.
func (v Value) IsNull() bool { return v.raw == nil }

// Raw returns the underlying value (nil, float64, string, or any driver type).
func (v Value) Raw() interface{} { return v.raw }

// Float64 returns the number and true only for cells that coerce cleanly.
func (v Value) Float64() (float64, bool) {
	f, err := coerce(v.raw)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Ptr mirrors a nullable float column: nil for null or non-numeric cells.
func (v Value) Ptr() *float64 {
	if f, ok := v.Float64(); ok {
		return &f
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.raw)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if n, ok := raw.(json.Number); ok {
		if f, err := n.Float64(); err == nil {
			*v = Number(f)
			return nil
		}
	}
	*v = FromAny(raw)
	return nil
}

// =============================================================================
// OPTION
// =============================================================================

// Option is a float that may be "not provided", which is distinct from zero.
type Option struct {
	value float64
	ok    bool
}

// Some wraps a provided value.
func Some(v float64) Option { return Option{value: v, ok: true} }

// None is the "not provided" option.
func None() Option { return Option{} }

// Get returns the value and whether it was provided.
func (o Option) Get() (float64, bool) { return o.value, o.ok }

// Valid reports whether a value was provided.
func (o Option) Valid() bool { return o.ok }

// OrElse returns the value, or def when not provided.
func (o Option) OrElse(def float64) float64 {
	if o.ok {
		return o.value
	}
	return def
}

func (o Option) String() string {
	if !o.ok {
		return "None"
	}
	return fmt.Sprintf("%g", o.value)
}

// =============================================================================
// TABLES
// =============================================================================

// Record carries both fiscal-year cells of one line item.
type Record struct {
	FY2024 Value `json:"fy_2024"`
	FY2023 Value `json:"fy_2023"`
}

// Get returns the cell for a year; unknown years read as null.
func (r Record) Get(y Year) Value {
	switch y {
	case FY2024:
		return r.FY2024
	case FY2023:
		return r.FY2023
	}
	return Null
}

// Row is one line item as a source returns it.
type Row struct {
	LineItem string `json:"line_item"`
	Record
}

// Table maps canonical line-item names to their records. Tables are built once
// per request and treated as read-only afterwards.
type Table map[string]Record

// NewTable builds a table from rows. When a name repeats, the first row wins.
func NewTable(rows []Row) Table {
	t := make(Table, len(rows))
	for _, r := range rows {
		if _, dup := t[r.LineItem]; dup {
			continue
		}
		t[r.LineItem] = r.Record
	}
	return t
}

// Lookup returns the record for a canonical name.
func (t Table) Lookup(item string) (Record, bool) {
	r, ok := t[item]
	return r, ok
}
