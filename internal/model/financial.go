package model

// FinancialSnapshot holds formatted financial figures from a single provider.
type FinancialSnapshot struct {
	Revenue           string `json:"revenue,omitempty"`
	MarketCap         string `json:"market_cap,omitempty"`
	GrossProfit       string `json:"gross_profit,omitempty"`
	OperatingCashFlow string `json:"operating_cash_flow,omitempty"`
	Source            string `json:"source,omitempty"`
	RetrievedOn       string `json:"retrieved_on,omitempty"`
}

// HasFigures reports whether any of the four financial figures is set.
func (s FinancialSnapshot) HasFigures() bool {
	return s.Revenue != "" || s.MarketCap != "" || s.GrossProfit != "" || s.OperatingCashFlow != ""
}
