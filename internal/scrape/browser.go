package scrape

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/pkg/browser"
)

// BrowserScraper renders pages through a headless browser session.
// A session is owned by one worker, so a BrowserScraper must not be shared.
type BrowserScraper struct {
	session browser.Session
}

// NewBrowserScraper wraps a browser session.
func NewBrowserScraper(s browser.Session) *BrowserScraper {
	return &BrowserScraper{session: s}
}

func (b *BrowserScraper) Name() string           { return "browser" }
func (b *BrowserScraper) Supports(_ string) bool { return b.session != nil }

// Scrape renders targetURL and returns the document HTML.
func (b *BrowserScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	html, err := b.session.Render(ctx, targetURL)
	if err != nil {
		return nil, err
	}
	if blocked, blockType := DetectBlock(200, nil, []byte(html)); blocked {
		return nil, eris.Errorf("browser: blocked (%s)", blockType)
	}
	if len(html) < 100 {
		return nil, eris.New("browser: empty page")
	}
	return &Result{URL: targetURL, HTML: html, Source: b.Name()}, nil
}
