package lineitem

import "context"

// Canonical line-item names. Sources canonicalize their own labels into these.
const (
	TotalCurrentAssets      = "Total Current Assets"
	TotalCurrentLiabilities = "Total Current Liabilities"
	Inventories             = "Inventories"
	TotalLiabilities        = "Total Liabilities"
	TotalEquity             = "Total Equity"
	TotalAssets             = "Total Assets"
	TradeReceivables        = "Trade receivables"

	RevenueFromOperations = "Revenue from operations"
	TotalIncome           = "Total income"
	TotalExpenses         = "Total expenses"
	ProfitBeforeTax       = "Profit before tax"
	ProfitForTheYear      = "Profit for the year"
	FinanceCosts          = "Finance costs"
	DepreciationAmort     = "Depreciation and amortization"

	NetCashOperating = "Net cash from operating activities"
	NetCashInvesting = "Net cash from investing activities"
	NetCashFinancing = "Net cash from financing activities"
	CapitalExpend    = "Purchase of property, plant and equipment" // usually negative
	DividendsPaid    = "Dividends paid"
)

// CanonicalItems lists the line items a source should resolve for a statement.
func CanonicalItems(s Statement) []string {
	switch s {
	case BalanceSheet:
		return []string{
			TotalCurrentAssets,
			TotalCurrentLiabilities,
			Inventories,
			TotalLiabilities,
			TotalEquity,
			TotalAssets,
			TradeReceivables,
		}
	case ProfitAndLoss:
		return []string{
			RevenueFromOperations,
			TotalIncome,
			TotalExpenses,
			ProfitBeforeTax,
			ProfitForTheYear,
			FinanceCosts,
			DepreciationAmort,
		}
	case CashFlows:
		return []string{
			NetCashOperating,
			NetCashInvesting,
			NetCashFinancing,
			CapitalExpend,
			DividendsPaid,
		}
	}
	return nil
}

// Source fetches the line-item table of one statement for one company.
// Implementations: store.LineItemRepo (Postgres) and rag.Retriever (vector search).
type Source interface {
	Fetch(ctx context.Context, company string, statement Statement) (Table, error)
}
