package config

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks that the settings needed by the given command mode are present.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	switch mode {
	case "enrich":
		if c.Search.Key == "" {
			errs = append(errs, "search.key is required")
		}
		if c.Search.CX == "" {
			errs = append(errs, "search.cx is required")
		}
		switch c.LLM.Provider {
		case "anthropic":
			if c.Anthropic.Key == "" {
				errs = append(errs, "anthropic.key is required for llm.provider anthropic")
			}
		case "gemini":
			if c.Gemini.Key == "" {
				errs = append(errs, "gemini.key is required for llm.provider gemini")
			}
		case "none":
		default:
			errs = append(errs, "llm.provider must be anthropic, gemini, or none")
		}
		if c.Run.Concurrency < 1 || c.Run.Concurrency > 50 {
			errs = append(errs, "run.concurrency must be between 1 and 50")
		}
		if c.Ranker.MaxURLs <= 0 {
			errs = append(errs, "ranker.max_urls must be > 0")
		}
		if c.Extract.MaxPageChars <= 0 || c.Extract.MaxTotalChars <= 0 {
			errs = append(errs, "extract limits must be > 0")
		}
	case "export":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
