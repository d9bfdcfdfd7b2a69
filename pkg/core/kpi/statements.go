package kpi

import (
	"fmt"
	"math"

	"fsi_kpi/pkg/core/lineitem"
)

const (
	fy24 = lineitem.FY2024
	fy23 = lineitem.FY2023
)

var zero = lineitem.Some(0)

// =============================================================================
// BALANCE SHEET
// =============================================================================

// BalanceSheetKPIs computes liquidity and leverage ratios for both years.
func BalanceSheetKPIs(bs lineitem.Table) (*Result, error) {
	r := &reader{table: bs}
	ca24 := r.need(lineitem.TotalCurrentAssets, fy24)
	ca23 := r.need(lineitem.TotalCurrentAssets, fy23)
	cl24 := r.need(lineitem.TotalCurrentLiabilities, fy24)
	cl23 := r.need(lineitem.TotalCurrentLiabilities, fy23)
	inv24 := r.opt(lineitem.Inventories, fy24, zero).OrElse(0)
	inv23 := r.opt(lineitem.Inventories, fy23, zero).OrElse(0)
	tl24 := r.need(lineitem.TotalLiabilities, fy24)
	tl23 := r.need(lineitem.TotalLiabilities, fy23)
	te24 := r.need(lineitem.TotalEquity, fy24)
	te23 := r.need(lineitem.TotalEquity, fy23)
	ta24 := r.need(lineitem.TotalAssets, fy24)
	ta23 := r.need(lineitem.TotalAssets, fy23)
	if r.err != nil {
		return nil, r.err
	}

	res := &Result{Kind: KindBalanceSheet}
	res.add("current_ratio_2024", ratio(ca24, cl24),
		"Liquidity ratio: current assets / current liabilities (FY2024).")
	res.add("current_ratio_2023", ratio(ca23, cl23),
		"Liquidity ratio: current assets / current liabilities (FY2023).")
	res.add("quick_ratio_2024", ratio(ca24-inv24, cl24),
		"Acid-test: (current assets - inventories) / current liabilities (FY2024).")
	res.add("quick_ratio_2023", ratio(ca23-inv23, cl23),
		"Acid-test: (current assets - inventories) / current liabilities (FY2023).")
	res.add("debt_to_equity_2024", ratio(tl24, te24),
		"Leverage: total liabilities / equity (FY2024).")
	res.add("debt_to_equity_2023", ratio(tl23, te23),
		"Leverage: total liabilities / equity (FY2023).")
	res.addPair("assets_vs_equity_liab_2024", ta24, te24+tl24,
		"Check: assets should equal liabilities + equity (FY2024).")
	res.addPair("assets_vs_equity_liab_2023", ta23, te23+tl23,
		"Check: assets should equal liabilities + equity (FY2023).")
	return res, nil
}

// =============================================================================
// PROFIT & LOSS
// =============================================================================

// ProfitAndLossKPIs computes margins and growth against the revenue base.
func ProfitAndLossKPIs(pl lineitem.Table) (*Result, error) {
	base24, base23, err := revenueBase(pl)
	if err != nil {
		return nil, err
	}

	r := &reader{table: pl}
	r.need(lineitem.TotalExpenses, fy24)
	r.need(lineitem.TotalExpenses, fy23)
	pbt24 := r.need(lineitem.ProfitBeforeTax, fy24)
	pbt23 := r.need(lineitem.ProfitBeforeTax, fy23)
	pat24 := r.need(lineitem.ProfitForTheYear, fy24)
	pat23 := r.need(lineitem.ProfitForTheYear, fy23)
	fin24 := r.opt(lineitem.FinanceCosts, fy24, zero)
	fin23 := r.opt(lineitem.FinanceCosts, fy23, zero)
	dep24 := r.opt(lineitem.DepreciationAmort, fy24, zero)
	dep23 := r.opt(lineitem.DepreciationAmort, fy23, zero)
	if r.err != nil {
		return nil, r.err
	}

	res := &Result{Kind: KindProfitAndLoss}
	res.add("net_profit_margin_2024", ratio(pat24, base24),
		"Net margin: profit after tax / revenue (FY2024).")
	res.add("net_profit_margin_2023", ratio(pat23, base23),
		"Net margin: profit after tax / revenue (FY2023).")
	res.add("pbt_margin_2024", ratio(pbt24, base24),
		"Profit before tax / revenue (FY2024).")
	res.add("pbt_margin_2023", ratio(pbt23, base23),
		"Profit before tax / revenue (FY2023).")
	res.add("revenue_yoy_growth", growth(base24, base23),
		"Year-over-year growth in revenue.")
	res.add("net_profit_yoy_growth", growth(pat24, pat23),
		"Year-over-year growth in net profit.")
	res.add("finance_cost_2024", fin24,
		"Finance costs (interest and related expenses, FY2024).")
	res.add("finance_cost_2023", fin23,
		"Finance costs (interest and related expenses, FY2023).")
	res.add("depreciation_2024", dep24,
		"Depreciation and amortization expense (FY2024).")
	res.add("depreciation_2023", dep23,
		"Depreciation and amortization expense (FY2023).")
	return res, nil
}

// =============================================================================
// CASH FLOW
// =============================================================================

// CashFlowKPIs reports the three activity totals, free cash flow, dividends
// and the 2024 activity mix.
//
// Free cash flow is operating cash plus capex: capex must already carry a
// negative sign. A positive capex is rejected rather than silently inflating
// free cash flow.
func CashFlowKPIs(cf lineitem.Table) (*Result, error) {
	r := &reader{table: cf}
	cfo24 := r.need(lineitem.NetCashOperating, fy24)
	cfo23 := r.need(lineitem.NetCashOperating, fy23)
	cfi24 := r.need(lineitem.NetCashInvesting, fy24)
	cfi23 := r.need(lineitem.NetCashInvesting, fy23)
	cff24 := r.need(lineitem.NetCashFinancing, fy24)
	cff23 := r.need(lineitem.NetCashFinancing, fy23)
	cap24 := r.opt(lineitem.CapitalExpend, fy24, zero).OrElse(0)
	cap23 := r.opt(lineitem.CapitalExpend, fy23, zero).OrElse(0)
	div24 := r.opt(lineitem.DividendsPaid, fy24, zero)
	div23 := r.opt(lineitem.DividendsPaid, fy23, zero)
	if r.err != nil {
		return nil, r.err
	}
	for _, c := range []struct {
		year  lineitem.Year
		value float64
	}{{fy24, cap24}, {fy23, cap23}} {
		if c.value > 0 {
			return nil, &lineitem.LookupError{
				Item:  lineitem.CapitalExpend,
				Year:  c.year,
				Err:   lineitem.ErrInvalidValue,
				Cause: fmt.Errorf("%w, got %s", ErrCapexSign, FormatFloat(c.value)),
			}
		}
	}

	// Mix is only defined for 2024.
	denom24 := math.Abs(cfo24) + math.Abs(cfi24) + math.Abs(cff24)

	res := &Result{Kind: KindCashFlow}
	res.add("cfo_2024", lineitem.Some(cfo24), "Operating cash flow (cash from core operations, FY2024).")
	res.add("cfo_2023", lineitem.Some(cfo23), "Operating cash flow (cash from core operations, FY2023).")
	res.add("cfi_2024", lineitem.Some(cfi24), "Investing cash flow (capital expenditure, acquisitions, FY2024).")
	res.add("cfi_2023", lineitem.Some(cfi23), "Investing cash flow (capital expenditure, acquisitions, FY2023).")
	res.add("cff_2024", lineitem.Some(cff24), "Financing cash flow (debt, equity, dividends, FY2024).")
	res.add("cff_2023", lineitem.Some(cff23), "Financing cash flow (debt, equity, dividends, FY2023).")
	res.add("free_cash_flow_2024", lineitem.Some(cfo24+cap24),
		"Free cash flow: operating cash less capital expenditure (FY2024).")
	res.add("free_cash_flow_2023", lineitem.Some(cfo23+cap23),
		"Free cash flow: operating cash less capital expenditure (FY2023).")
	res.add("dividends_2024", div24, "Dividends paid to shareholders (FY2024).")
	res.add("dividends_2023", div23, "Dividends paid to shareholders (FY2023).")
	res.add("cfo_mix_2024", ratio(cfo24, denom24), "Share of operating cash in total cash flow mix (FY2024).")
	res.add("cfi_mix_2024", ratio(cfi24, denom24), "Share of investing cash in total cash flow mix (FY2024).")
	res.add("cff_mix_2024", ratio(cff24, denom24), "Share of financing cash in total cash flow mix (FY2024).")
	return res, nil
}

// =============================================================================
// CROSS STATEMENT
// =============================================================================

// CrossStatementKPIs joins the three statements of one company. Receivables
// metrics are 2024 only.
func CrossStatementKPIs(bs, pl, cf lineitem.Table) (*Result, error) {
	b := &reader{table: bs}
	te24 := b.need(lineitem.TotalEquity, fy24)
	ta24 := b.need(lineitem.TotalAssets, fy24)
	rec24 := b.opt(lineitem.TradeReceivables, fy24, lineitem.None())
	rec23 := b.opt(lineitem.TradeReceivables, fy23, lineitem.None())
	if b.err != nil {
		return nil, b.err
	}

	base24, base23, err := revenueBase(pl)
	if err != nil {
		return nil, err
	}

	p := &reader{table: pl}
	pat24 := p.need(lineitem.ProfitForTheYear, fy24)
	if p.err != nil {
		return nil, p.err
	}
	c := &reader{table: cf}
	cfo24 := c.need(lineitem.NetCashOperating, fy24)
	if c.err != nil {
		return nil, c.err
	}

	receivablesGrowth := lineitem.None()
	if r24, ok := rec24.Get(); ok {
		if r23, ok := rec23.Get(); ok {
			receivablesGrowth = growth(r24, r23)
		}
	}

	res := &Result{Kind: KindCrossStatement}
	res.add("roe_2024", ratio(pat24, te24), "Return on equity: net profit / equity (FY2024).")
	res.add("roa_2024", ratio(pat24, ta24), "Return on assets: net profit / assets (FY2024).")
	res.add("cash_conversion_2024", ratio(cfo24, pat24), "Cash conversion: operating cash / net profit (FY2024).")
	res.add("receivables_as_pct_of_revenue_2024", ratioOpt(rec24, lineitem.Some(base24)),
		"Receivables as % of revenue (working capital efficiency, FY2024).")
	res.add("receivables_yoy_growth", receivablesGrowth, "Year-over-year growth in trade receivables.")
	res.add("revenue_yoy_growth", growth(base24, base23), "Year-over-year growth in revenue.")
	return res, nil
}

// =============================================================================
// DISPATCH
// =============================================================================

// Compute runs one KPI kind against the company's tables.
func Compute(kind Kind, t Tables) (*Result, error) {
	switch kind {
	case KindBalanceSheet:
		return BalanceSheetKPIs(t.BalanceSheet)
	case KindProfitAndLoss:
		return ProfitAndLossKPIs(t.ProfitAndLoss)
	case KindCashFlow:
		return CashFlowKPIs(t.CashFlows)
	case KindCrossStatement:
		return CrossStatementKPIs(t.BalanceSheet, t.ProfitAndLoss, t.CashFlows)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
}
