package lineitem

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// aliases maps normalized labels seen in filings onto canonical names.
var aliases = map[string]string{
	"current assets":                             TotalCurrentAssets,
	"total current assets":                       TotalCurrentAssets,
	"current liabilities":                        TotalCurrentLiabilities,
	"total current liabilities":                  TotalCurrentLiabilities,
	"inventory":                                  Inventories,
	"inventories":                                Inventories,
	"total liabilities":                          TotalLiabilities,
	"total equity":                               TotalEquity,
	"equity attributable to owners":              TotalEquity,
	"total assets":                               TotalAssets,
	"trade receivables":                          TradeReceivables,
	"receivables":                                TradeReceivables,
	"revenue from operations":                    RevenueFromOperations,
	"total revenue from operations":              RevenueFromOperations,
	"total income":                               TotalIncome,
	"total expenses":                             TotalExpenses,
	"profit before tax":                          ProfitBeforeTax,
	"profit before taxes":                        ProfitBeforeTax,
	"profit for the year":                        ProfitForTheYear,
	"profit after tax":                           ProfitForTheYear,
	"net profit":                                 ProfitForTheYear,
	"finance costs":                              FinanceCosts,
	"finance cost":                               FinanceCosts,
	"depreciation and amortization":              DepreciationAmort,
	"depreciation and amortisation":              DepreciationAmort,
	"depreciation and amortization expense":      DepreciationAmort,
	"depreciation and amortisation expense":      DepreciationAmort,
	"net cash from operating activities":         NetCashOperating,
	"net cash generated by operating activities": NetCashOperating,
	"net cash from investing activities":         NetCashInvesting,
	"net cash used in investing activities":      NetCashInvesting,
	"net cash from financing activities":         NetCashFinancing,
	"net cash used in financing activities":      NetCashFinancing,
	"purchase of property, plant and equipment":  CapitalExpend,
	"capital expenditure":                        CapitalExpend,
	"dividends paid":                             DividendsPaid,
	"dividend paid":                              DividendsPaid,
}

var (
	labelNoise = regexp.MustCompile(`\s+|\(.*?\)`)
	noteRef    = regexp.MustCompile(`^\s*(note\s*)?\d+[a-z]?[.)]?\s+`)
)

func normalizeLabel(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	s = noteRef.ReplaceAllString(s, "")
	s = labelNoise.ReplaceAllStringFunc(s, func(m string) string {
		if strings.HasPrefix(m, "(") {
			return ""
		}
		return " "
	})
	s = strings.ReplaceAll(s, "&", "and")
	return strings.Trim(strings.TrimSpace(s), ":.-")
}

// Canonicalize maps a filing label onto a canonical line-item name. Unknown
// labels are returned trimmed with ok false.
func Canonicalize(label string) (string, bool) {
	if name, ok := aliases[normalizeLabel(label)]; ok {
		return name, true
	}
	return strings.TrimSpace(label), false
}

// ParseAmount reads a printed amount: thousands separators, currency
// symbols and accounting negatives "(1,234)" are accepted. Dashes and empty
// cells are null; anything else unparsable is kept as text.
func ParseAmount(s string) Value {
	t := strings.TrimSpace(s)
	switch t {
	case "", "-", "–", "—", "NA", "N/A", "n/a", "nil", "Nil":
		return Null
	}
	neg := false
	if strings.HasPrefix(t, "(") && strings.HasSuffix(t, ")") {
		neg = true
		t = strings.TrimSuffix(strings.TrimPrefix(t, "("), ")")
	}
	clean := strings.NewReplacer(",", "", "₹", "", "$", "", " ", "", " ", "").Replace(t)
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return Text(strings.TrimSpace(s))
	}
	if neg {
		f = -f
	}
	return Number(f)
}
