package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/enrich-cli/internal/fetcher"
	"github.com/sells-group/enrich-cli/internal/finance"
	"github.com/sells-group/enrich-cli/internal/pipeline"
	"github.com/sells-group/enrich-cli/internal/resilience"
	"github.com/sells-group/enrich-cli/internal/store"
	"github.com/sells-group/enrich-cli/pkg/alphavantage"
	anthropicpkg "github.com/sells-group/enrich-cli/pkg/anthropic"
	"github.com/sells-group/enrich-cli/pkg/browser"
	"github.com/sells-group/enrich-cli/pkg/gemini"
	"github.com/sells-group/enrich-cli/pkg/search"
	"github.com/sells-group/enrich-cli/pkg/yahoo"
)

// enrichEnv holds the store, clients and pipeline used by the enrich command.
type enrichEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Browser  *browser.Pool // may be nil
	closers  []func()
}

// Close releases every resource held by the environment.
func (e *enrichEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	if e.Browser != nil {
		e.Browser.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnrich validates the config, opens the store and builds the pipeline.
// Callers should defer env.Close().
func initEnrich(ctx context.Context) (*enrichEnv, error) {
	if err := cfg.Validate("enrich"); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	env := &enrichEnv{Store: st}

	llm, err := initLLM(ctx, env)
	if err != nil {
		env.Close()
		return nil, err
	}

	retry := resilience.FromConfig(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoffMs, cfg.Retry.MaxBackoffMs)
	searchClient := search.NewClient(cfg.Search.Key, cfg.Search.CX,
		search.WithBaseURL(cfg.Search.BaseURL),
		search.WithRateLimit(rate.Limit(cfg.Search.RatePerSec)),
		search.WithRetry(retry),
	)

	sitemapFetcher := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:   cfg.Browser.UserAgent,
		Timeout:     time.Duration(cfg.Discovery.SitemapTimeoutSecs) * time.Second,
		RatePerHost: rate.Limit(cfg.Discovery.RatePerSec),
		Retry:       resilience.RetryConfig{MaxAttempts: 1},
	})

	enricher := initFinance()

	var pool pipeline.SessionPool
	if cfg.Browser.Enabled {
		env.Browser = browser.NewPool(
			browser.WithSize(max(cfg.Browser.PoolSize, cfg.Run.Concurrency)),
			browser.WithOptions(browser.Options{
				Headless:  cfg.Browser.Headless,
				ExecPath:  cfg.Browser.ExecPath,
				UserAgent: cfg.Browser.UserAgent,
				Wait:      time.Duration(cfg.Browser.WaitMs) * time.Millisecond,
				Timeout:   time.Duration(cfg.Browser.TimeoutSecs) * time.Second,
			}),
		)
		pool = env.Browser
	}

	env.Pipeline = pipeline.New(cfg,
		pipeline.NewGate(st, enricher),
		pipeline.NewWebsiteResolver(searchClient),
		pipeline.NewDiscoverer(sitemapFetcher, cfg.Discovery),
		pipeline.NewRanker(llm, cfg.Ranker),
		pipeline.NewExtractor(llm, cfg.Extract),
		enricher,
		pool,
	)
	return env, nil
}

// initLLM builds the configured completion oracle. Provider "none" returns
// nil, which makes ranking and extraction use their deterministic fallbacks.
func initLLM(ctx context.Context, env *enrichEnv) (pipeline.LLM, error) {
	switch cfg.LLM.Provider {
	case "anthropic":
		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		return anthropicpkg.NewCompleter(client, cfg.Anthropic.Model, cfg.LLM.MaxTokens), nil
	case "gemini":
		client, err := gemini.NewClient(ctx, cfg.Gemini.Key, cfg.Gemini.Model)
		if err != nil {
			return nil, eris.Wrap(err, "init gemini")
		}
		env.closers = append(env.closers, func() { _ = client.Close() })
		return client, nil
	case "none":
		zap.L().Warn("no llm configured, using heuristic ranking and regex extraction")
		return nil, nil
	default:
		return nil, eris.Errorf("unsupported llm provider: %s", cfg.LLM.Provider)
	}
}

// initFinance chains the free quote service with Alpha Vantage when a key is set.
func initFinance() *finance.Enricher {
	yc := yahoo.NewClient(
		yahoo.WithBaseURL(cfg.Yahoo.BaseURL),
		yahoo.WithSearchBaseURL(cfg.Yahoo.SearchBaseURL),
	)
	providers := []finance.Provider{finance.NewYahooProvider(yc)}
	if cfg.AlphaVantage.Key != "" {
		av := alphavantage.NewClient(cfg.AlphaVantage.Key, alphavantage.WithBaseURL(cfg.AlphaVantage.BaseURL))
		providers = append(providers, finance.NewAlphaVantageProvider(av))
	}
	return finance.NewEnricher(yc, providers...)
}
