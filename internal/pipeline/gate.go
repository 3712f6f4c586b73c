package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/finance"
	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/resilience"
	"github.com/sells-group/enrich-cli/internal/store"
)

// Outcome is the result of processing one company.
type Outcome int

const (
	// Dropped companies produced no record for export.
	Dropped Outcome = iota
	// Persisted companies were enriched and inserted.
	Persisted
	// Updated companies already existed and had their financial info refreshed.
	Updated
	// Skipped companies already existed and were left unchanged.
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Persisted:
		return "persisted"
	case Updated:
		return "updated"
	case Skipped:
		return "skipped"
	default:
		return "dropped"
	}
}

// FinancialEnricher produces a financial snapshot for a company.
type FinancialEnricher interface {
	Enrich(ctx context.Context, name, website string) model.FinancialSnapshot
}

// Gate guards the store: it short-circuits known companies and owns every
// write.
type Gate struct {
	store    store.Store
	enricher FinancialEnricher
}

// NewGate creates a Gate. enricher may be nil, which disables refreshes.
func NewGate(s store.Store, enricher FinancialEnricher) *Gate {
	return &Gate{store: s, enricher: enricher}
}

// Check returns the stored record for name, or nil when absent. A failed
// lookup is logged and treated as absent; only context errors are returned.
func (g *Gate) Check(ctx context.Context, name string) (*model.CompanyRecord, error) {
	rec, err := g.store.GetCompany(ctx, name)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		zap.L().Warn("gate: lookup failed, treating as new", zap.String("company", name), zap.Error(err))
		return nil, nil
	}
	return rec, nil
}

// RefreshFinancials re-runs financial enrichment for a stored record whose
// financial info is missing or the placeholder. The row is only rewritten
// when figures were found; rec is updated in place on success.
func (g *Gate) RefreshFinancials(ctx context.Context, rec *model.CompanyRecord) Outcome {
	if g.enricher == nil || !rec.NeedsFinancialRefresh() || rec.Website == "" {
		return Skipped
	}
	log := zap.L().With(zap.String("company", rec.Name))

	snap := g.enricher.Enrich(ctx, rec.Name, rec.Website)
	if !snap.HasFigures() {
		log.Info("gate: no financial figures found for existing company")
		return Skipped
	}

	info := finance.FinancialInfo(snap)
	if err := g.store.UpdateFinancialInfo(ctx, rec.Name, info); err != nil {
		log.Error("gate: financial info update failed", zap.Error(&resilience.PersistenceError{Company: rec.Name, Err: err}))
		return Skipped
	}
	rec.FinancialInfo = info
	log.Info("gate: financial info refreshed", zap.String("source", snap.Source))
	return Updated
}

// Insert stores a new record. Failures are returned as *resilience.PersistenceError.
func (g *Gate) Insert(ctx context.Context, rec model.CompanyRecord) error {
	if err := g.store.InsertCompany(ctx, rec); err != nil {
		return &resilience.PersistenceError{Company: rec.Name, Err: err}
	}
	return nil
}
