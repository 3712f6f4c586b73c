// Package scrape fetches candidate pages, preferring a headless browser
// render and falling back to a plain HTTP GET.
package scrape

import (
	"context"
)

// Result holds one fetched page.
type Result struct {
	URL    string
	HTML   string
	Source string // "browser" or "local_http"
}

// Scraper fetches a single URL and returns its rendered markup.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
	Supports(url string) bool
}
