// Package pipeline enriches company names into CompanyRecords: website
// resolution, sitemap discovery, URL ranking, page fetch, field extraction,
// financial enrichment and persistence.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/enrich-cli/internal/config"
	"github.com/sells-group/enrich-cli/internal/finance"
	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/resilience"
	"github.com/sells-group/enrich-cli/internal/scrape"
	"github.com/sells-group/enrich-cli/pkg/browser"
)

// Resolver finds a company's website.
type Resolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// URLDiscoverer lists candidate pages for a website.
type URLDiscoverer interface {
	Discover(ctx context.Context, website string) ([]model.URLCandidate, error)
}

// PageFetcher downloads pages and returns the ones that succeeded, in order.
type PageFetcher interface {
	ScrapeAll(ctx context.Context, urls []string) []scrape.Result
}

// SessionPool hands out browser sessions, one per worker.
type SessionPool interface {
	Acquire(ctx context.Context) (browser.Session, error)
	Release(s browser.Session)
}

// FetcherFactory builds the page fetcher for one worker. session is nil when
// no browser is available.
type FetcherFactory func(session browser.Session) PageFetcher

// RunReport summarizes a batch run. Records are in input order.
type RunReport struct {
	Records       []model.CompanyRecord
	Persisted     int
	Updated       int
	Skipped       int
	Dropped       int
	// Unprocessed counts companies never started because the run stopped.
	Unprocessed   int
	QuotaExceeded bool
}

// Pipeline runs the enrichment stages for each company.
type Pipeline struct {
	gate        *Gate
	resolver    Resolver
	discoverer  URLDiscoverer
	ranker      *Ranker
	extractor   *Extractor
	enricher    FinancialEnricher
	pool        SessionPool
	newFetcher  FetcherFactory
	slugs       []string
	concurrency int
}

// New creates a Pipeline. pool may be nil, in which case pages are fetched
// over plain HTTP only.
func New(
	cfg *config.Config,
	gate *Gate,
	resolver Resolver,
	discoverer URLDiscoverer,
	ranker *Ranker,
	extractor *Extractor,
	enricher FinancialEnricher,
	pool SessionPool,
) *Pipeline {
	local := scrape.NewLocalScraper(time.Duration(cfg.Browser.TimeoutSecs)*time.Second, cfg.Browser.UserAgent)
	return &Pipeline{
		gate:        gate,
		resolver:    resolver,
		discoverer:  discoverer,
		ranker:      ranker,
		extractor:   extractor,
		enricher:    enricher,
		pool:        pool,
		slugs:       cfg.Discovery.Slugs,
		concurrency: max(cfg.Run.Concurrency, 1),
		newFetcher: func(session browser.Session) PageFetcher {
			if session == nil {
				return scrape.NewChain(scrape.NewPathMatcher(nil), local)
			}
			return scrape.NewChain(scrape.NewPathMatcher(nil), scrape.NewBrowserScraper(session), local)
		},
	}
}

// WithFetcherFactory replaces how workers build their page fetcher.
func (p *Pipeline) WithFetcherFactory(fn FetcherFactory) *Pipeline {
	p.newFetcher = fn
	return p
}

// Process enriches one company. Known companies skip straight to an optional
// financial refresh. Only quota and context errors are returned; every other
// failure degrades or drops the company.
func (p *Pipeline) Process(ctx context.Context, name string, fetcher PageFetcher) (Outcome, *model.CompanyRecord, error) {
	log := zap.L().With(zap.String("company", name))

	existing, err := p.gate.Check(ctx, name)
	if err != nil {
		return Dropped, nil, err
	}
	if existing != nil {
		outcome := p.gate.RefreshFinancials(ctx, existing)
		log.Info("pipeline: company already stored", zap.Stringer("outcome", outcome))
		return outcome, existing, nil
	}

	website, err := p.resolver.Resolve(ctx, name)
	if err != nil {
		if fatal(ctx, err) {
			return Dropped, nil, err
		}
		log.Warn("pipeline: website not found, dropping", zap.Error(err))
		return Dropped, nil, nil
	}
	log = log.With(zap.String("website", website))

	candidates, err := p.discoverer.Discover(ctx, website)
	if err != nil {
		return Dropped, nil, err
	}
	if len(candidates) == 0 {
		candidates = GenerateFallbackURLs(website, p.slugs...)
		log.Info("pipeline: using fallback urls", zap.Int("count", len(candidates)))
	}

	urls, err := p.ranker.Rank(ctx, candidates, name, website)
	if err != nil {
		return Dropped, nil, err
	}

	pages := fetcher.ScrapeAll(ctx, urls)
	if err := ctx.Err(); err != nil {
		return Dropped, nil, err
	}
	if len(pages) == 0 {
		log.Warn("pipeline: no pages fetched, dropping", zap.Int("urls", len(urls)))
		return Dropped, nil, nil
	}
	html := make([]string, len(pages))
	for i, pg := range pages {
		html[i] = pg.HTML
	}

	rec, err := p.extractor.Extract(ctx, name, website, html)
	if err != nil {
		return Dropped, nil, err
	}
	rec.Name, rec.Website = name, website

	var snap model.FinancialSnapshot
	if p.enricher != nil {
		snap = p.enricher.Enrich(ctx, name, website)
	}
	rec.FinancialInfo = finance.MergeFinancialInfo(snap, rec.FinancialInfo)

	if err := p.gate.Insert(ctx, rec); err != nil {
		if ctx.Err() != nil {
			return Dropped, nil, ctx.Err()
		}
		log.Error("pipeline: persist failed, dropping", zap.Error(err))
		return Dropped, nil, nil
	}
	log.Info("pipeline: company persisted", zap.Int("pages", len(pages)))
	return Persisted, &rec, nil
}

// Run processes names with the configured number of workers. Each worker
// holds one browser session while it processes a company. A quota error
// cancels the remaining work; records produced before it are still reported
// and the error is returned alongside the report.
func (p *Pipeline) Run(ctx context.Context, names []string) (*RunReport, error) {
	records := make([]*model.CompanyRecord, len(names))
	outcomes := make([]Outcome, len(names))
	done := make([]bool, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, name := range names {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			session, release := p.acquire(gctx)
			defer release()

			outcome, rec, err := p.Process(gctx, name, p.newFetcher(session))
			outcomes[i], records[i], done[i] = outcome, rec, true
			if resilience.IsQuotaExceeded(err) {
				zap.L().Error("pipeline: quota exhausted, stopping run", zap.String("company", name), zap.Error(err))
				return err
			}
			return nil
		})
	}
	runErr := g.Wait()

	report := &RunReport{QuotaExceeded: resilience.IsQuotaExceeded(runErr)}
	for i, rec := range records {
		if !done[i] {
			report.Unprocessed++
			continue
		}
		switch outcomes[i] {
		case Persisted:
			report.Persisted++
		case Updated:
			report.Updated++
		case Skipped:
			report.Skipped++
		default:
			report.Dropped++
		}
		if rec != nil {
			report.Records = append(report.Records, *rec)
		}
	}

	zap.L().Info("pipeline: run complete",
		zap.Int("companies", len(names)),
		zap.Int("persisted", report.Persisted),
		zap.Int("updated", report.Updated),
		zap.Int("skipped", report.Skipped),
		zap.Int("dropped", report.Dropped),
		zap.Int("unprocessed", report.Unprocessed),
		zap.Bool("quota_exceeded", report.QuotaExceeded),
	)

	if runErr != nil {
		return report, eris.Wrap(runErr, "pipeline: run aborted")
	}
	if err := ctx.Err(); err != nil {
		return report, eris.Wrap(err, "pipeline: run cancelled")
	}
	return report, nil
}

// acquire takes a browser session for one company. Without a pool, or when
// the browser cannot start, it returns nil and pages are fetched over HTTP.
func (p *Pipeline) acquire(ctx context.Context) (browser.Session, func()) {
	if p.pool == nil {
		return nil, func() {}
	}
	s, err := p.pool.Acquire(ctx)
	if err != nil {
		if ctx.Err() == nil {
			zap.L().Warn("pipeline: browser unavailable, using http only", zap.Error(err))
		}
		return nil, func() {}
	}
	return s, func() { p.pool.Release(s) }
}

func fatal(ctx context.Context, err error) bool {
	return resilience.IsQuotaExceeded(err) || ctx.Err() != nil
}
