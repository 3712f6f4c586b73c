package finance

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/pkg/alphavantage"
	"github.com/sells-group/enrich-cli/pkg/yahoo"
)

// Figures are raw provider values. Zero means the provider did not report it.
type Figures struct {
	Revenue           float64
	MarketCap         float64
	GrossProfit       float64
	OperatingCashFlow float64
}

// Empty reports whether no figure was reported.
func (f Figures) Empty() bool {
	return f.Revenue == 0 && f.MarketCap == 0 && f.GrossProfit == 0 && f.OperatingCashFlow == 0
}

// Provider fetches financial figures for a ticker.
type Provider interface {
	// Name is recorded as the snapshot source.
	Name() string
	Fetch(ctx context.Context, ticker string) (Figures, error)
}

// YahooProvider reads figures from the Yahoo Finance quoteSummary endpoint.
type YahooProvider struct {
	client yahoo.Client
}

// NewYahooProvider wraps a Yahoo client.
func NewYahooProvider(c yahoo.Client) *YahooProvider {
	return &YahooProvider{client: c}
}

func (p *YahooProvider) Name() string { return "Yahoo Finance" }

func (p *YahooProvider) Fetch(ctx context.Context, ticker string) (Figures, error) {
	s, err := p.client.QuoteSummary(ctx, ticker)
	if err != nil {
		return Figures{}, eris.Wrapf(err, "finance: yahoo summary %s", ticker)
	}
	return Figures{
		Revenue:           s.TotalRevenue,
		MarketCap:         s.MarketCap,
		GrossProfit:       s.GrossProfits,
		OperatingCashFlow: s.OperatingCashflow,
	}, nil
}

// AlphaVantageProvider reads the latest annual income statement and the
// company overview.
type AlphaVantageProvider struct {
	client alphavantage.Client
}

// NewAlphaVantageProvider wraps an Alpha Vantage client.
func NewAlphaVantageProvider(c alphavantage.Client) *AlphaVantageProvider {
	return &AlphaVantageProvider{client: c}
}

func (p *AlphaVantageProvider) Name() string { return "Alpha Vantage" }

// Fetch combines the income statement and overview. It fails only when both
// calls fail.
func (p *AlphaVantageProvider) Fetch(ctx context.Context, ticker string) (Figures, error) {
	var f Figures

	is, isErr := p.client.IncomeStatement(ctx, ticker)
	if isErr == nil && len(is.AnnualReports) > 0 {
		latest := is.AnnualReports[0]
		f.Revenue = alphavantage.ParseAmount(latest.TotalRevenue)
		f.GrossProfit = alphavantage.ParseAmount(latest.GrossProfit)
	}

	ov, ovErr := p.client.Overview(ctx, ticker)
	if ovErr == nil {
		f.MarketCap = alphavantage.ParseAmount(ov.MarketCapitalization)
	}

	if isErr != nil && ovErr != nil {
		return Figures{}, eris.Wrapf(isErr, "finance: alphavantage %s", ticker)
	}
	if isErr != nil || ovErr != nil {
		zap.L().Debug("finance: alphavantage partial result",
			zap.String("ticker", ticker),
			zap.NamedError("income_statement", isErr),
			zap.NamedError("overview", ovErr),
		)
	}
	return f, nil
}
