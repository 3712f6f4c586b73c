// Package finance resolves a company's ticker and fetches headline financial
// figures from a chain of market-data providers.
package finance

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/pkg/yahoo"
)

// QuoteService resolves company names to ticker symbols.
type QuoteService interface {
	LookupSymbol(ctx context.Context, query string) (string, error)
	Search(ctx context.Context, query string) ([]yahoo.SearchQuote, error)
}

// Enricher produces a FinancialSnapshot for a company. The first provider
// that reports any figure wins; providers are never combined.
type Enricher struct {
	quotes    QuoteService
	providers []Provider
	now       func() time.Time
}

// NewEnricher creates an Enricher that tries providers in order.
func NewEnricher(quotes QuoteService, providers ...Provider) *Enricher {
	return &Enricher{
		quotes:    quotes,
		providers: providers,
		now:       time.Now,
	}
}

// WithNow sets the clock used to stamp snapshots.
func (e *Enricher) WithNow(fn func() time.Time) *Enricher {
	e.now = fn
	return e
}

// Enrich never fails: a missing ticker or an exhausted provider chain yields
// an empty snapshot.
func (e *Enricher) Enrich(ctx context.Context, name, website string) model.FinancialSnapshot {
	log := zap.L().With(zap.String("company", name), zap.String("website", website))

	ticker := e.ResolveTicker(ctx, name)
	if ticker == "" {
		log.Debug("finance: no ticker found")
		return model.FinancialSnapshot{}
	}

	for _, p := range e.providers {
		if ctx.Err() != nil {
			break
		}
		figs, err := p.Fetch(ctx, ticker)
		if err != nil {
			log.Warn("finance: provider lookup failed",
				zap.String("provider", p.Name()),
				zap.String("ticker", ticker),
				zap.Error(err),
			)
			continue
		}
		if figs.Empty() {
			log.Debug("finance: provider returned no figures",
				zap.String("provider", p.Name()),
				zap.String("ticker", ticker),
			)
			continue
		}
		log.Info("finance: figures found",
			zap.String("provider", p.Name()),
			zap.String("ticker", ticker),
		)
		return e.snapshot(p.Name(), figs)
	}
	return model.FinancialSnapshot{}
}

// ResolveTicker tries a direct symbol lookup on the name, then the first
// search match listed on Yahoo Finance. It returns "" when neither works.
func (e *Enricher) ResolveTicker(ctx context.Context, name string) string {
	if e.quotes == nil || strings.TrimSpace(name) == "" {
		return ""
	}

	sym, err := e.quotes.LookupSymbol(ctx, name)
	if err == nil && sym != "" {
		return sym
	}

	quotes, err := e.quotes.Search(ctx, name)
	if err != nil {
		zap.L().Warn("finance: ticker search failed", zap.String("company", name), zap.Error(err))
		return ""
	}
	for _, q := range quotes {
		if q.IsYahooFinance && q.Symbol != "" {
			return q.Symbol
		}
	}
	return ""
}

func (e *Enricher) snapshot(source string, f Figures) model.FinancialSnapshot {
	return model.FinancialSnapshot{
		Revenue:           Annual(f.Revenue),
		MarketCap:         Amount(f.MarketCap),
		GrossProfit:       Annual(f.GrossProfit),
		OperatingCashFlow: Annual(f.OperatingCashFlow),
		Source:            source,
		RetrievedOn:       e.now().Format("2006-01-02"),
	}
}
