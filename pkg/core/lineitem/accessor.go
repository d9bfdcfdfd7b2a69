package lineitem

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cast"
)

var (
	// ErrMissingLineItem means the line item key is absent from the table.
	ErrMissingLineItem = errors.New("missing required line item")
	// ErrInvalidValue means the cell is null where a number is required, or not numeric.
	ErrInvalidValue = errors.New("invalid line item value")
)

// LookupError ties an accessor failure to the line item and year that caused it.
type LookupError struct {
	Item  string
	Year  Year
	Err   error // ErrMissingLineItem or ErrInvalidValue
	Cause error // optional underlying reason
}

func (e *LookupError) Error() string {
	msg := fmt.Sprintf("%v: '%s' for %s", e.Err, e.Item, e.Year)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *LookupError) Unwrap() []error {
	errs := []error{e.Err}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// Required reads table[item][year] and fails when the key is absent, the cell is
// null, or the cell does not coerce to a float.
func Required(t Table, item string, y Year) (float64, error) {
	rec, ok := t.Lookup(item)
	if !ok {
		return 0, &LookupError{Item: item, Year: y, Err: ErrMissingLineItem}
	}
	v := rec.Get(y)
	if v.IsNull() {
		return 0, &LookupError{Item: item, Year: y, Err: ErrInvalidValue, Cause: errors.New("value is null")}
	}
	f, err := coerce(v.raw)
	if err != nil {
		return 0, &LookupError{Item: item, Year: y, Err: ErrInvalidValue, Cause: err}
	}
	return f, nil
}

// Optional reads table[item][year], substituting def for an absent key or a null
// cell. A present cell that is not numeric is still an ErrInvalidValue.
func Optional(t Table, item string, y Year, def Option) (Option, error) {
	rec, ok := t.Lookup(item)
	if !ok {
		return def, nil
	}
	v := rec.Get(y)
	if v.IsNull() {
		return def, nil
	}
	f, err := coerce(v.raw)
	if err != nil {
		return None(), &LookupError{Item: item, Year: y, Err: ErrInvalidValue, Cause: err}
	}
	return Some(f), nil
}

func coerce(raw interface{}) (float64, error) {
	switch t := raw.(type) {
	case nil:
		return 0, errors.New("value is null")
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, errors.New("empty text")
		}
		raw = s
	case json.Number:
		raw = t.String()
	case bool:
		return 0, fmt.Errorf("not numeric: %v", t)
	}
	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, fmt.Errorf("not numeric: %v", raw)
	}
	if math.IsNaN(f) {
		return 0, errors.New("value is NaN")
	}
	if math.IsInf(f, 0) {
		return 0, errors.New("value is not finite")
	}
	return f, nil
}
