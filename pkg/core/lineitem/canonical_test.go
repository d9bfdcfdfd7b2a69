package lineitem

import "testing"

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		label string
		want  string
		ok    bool
	}{
		{"Total current assets", TotalCurrentAssets, true},
		{"  TOTAL ASSETS ", TotalAssets, true},
		{"Depreciation & amortisation expense", DepreciationAmort, true},
		{"Profit before tax (PBT)", ProfitBeforeTax, true},
		{"12 Trade receivables", TradeReceivables, true},
		{"Net cash used in investing activities", NetCashInvesting, true},
		{"Goodwill", "Goodwill", false},
	}
	for _, tt := range tests {
		got, ok := Canonicalize(tt.label)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Canonicalize(%q) = %q, %v; want %q, %v", tt.label, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseAmount(t *testing.T) {
	numbers := map[string]float64{
		"89432.0":    89432,
		"1,23,456.5": 123456.5,
		"(1,234)":    -1234,
		"-42":        -42,
		"₹ 1,000":    1000,
	}
	for in, want := range numbers {
		f, ok := ParseAmount(in).Float64()
		if !ok || f != want {
			t.Errorf("ParseAmount(%q) = %v, %v; want %v", in, f, ok, want)
		}
	}

	for _, in := range []string{"", "-", "—", "N/A"} {
		if !ParseAmount(in).IsNull() {
			t.Errorf("ParseAmount(%q) should be null", in)
		}
	}

	for _, in := range []string{"Inf", "-Infinity", "NaN"} {
		v := ParseAmount(in)
		if v.IsNull() {
			t.Errorf("ParseAmount(%q) should be kept as text", in)
		}
		if _, ok := v.Float64(); ok {
			t.Errorf("ParseAmount(%q) should not coerce", in)
		}
	}

	v := ParseAmount("approx. 12")
	if v.IsNull() {
		t.Fatal("unparsable amount should be kept as text")
	}
	if _, ok := v.Float64(); ok {
		t.Error("unparsable amount should not coerce")
	}
}
