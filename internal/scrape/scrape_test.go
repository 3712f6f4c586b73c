package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockScraper implements Scraper for testing.
type mockScraper struct {
	name     string
	supports bool
	result   *Result
	err      error
	calls    int
}

func (m *mockScraper) Name() string           { return m.name }
func (m *mockScraper) Supports(_ string) bool { return m.supports }
func (m *mockScraper) Scrape(_ context.Context, u string) (*Result, error) {
	m.calls++
	if m.result != nil {
		r := *m.result
		r.URL = u
		return &r, m.err
	}
	return nil, m.err
}

type fakeSession struct {
	html string
	err  error
}

func (f *fakeSession) Render(context.Context, string) (string, error) { return f.html, f.err }
func (f *fakeSession) Close()                                         {}

var longBody = "<html><body><h1>Acme</h1><p>" + strings.Repeat("We build great products. ", 10) + "</p></body></html>"

func TestChain_Scrape_FirstSuccess(t *testing.T) {
	s1 := &mockScraper{name: "primary", supports: true, result: &Result{HTML: "a", Source: "primary"}}
	s2 := &mockScraper{name: "fallback", supports: true}

	result, err := NewChain(nil, s1, s2).Scrape(context.Background(), "https://acme.example")
	require.NoError(t, err)
	assert.Equal(t, "primary", result.Source)
	assert.Equal(t, 0, s2.calls)
}

func TestChain_Scrape_FallbackOnError(t *testing.T) {
	s1 := &mockScraper{name: "browser", supports: true, err: errors.New("chrome crashed")}
	s2 := &mockScraper{name: "local_http", supports: true, result: &Result{HTML: "b", Source: "local_http"}}

	result, err := NewChain(nil, s1, s2).Scrape(context.Background(), "https://acme.example/about")
	require.NoError(t, err)
	assert.Equal(t, "local_http", result.Source)
	assert.Equal(t, "https://acme.example/about", result.URL)
}

func TestChain_Scrape_AllFail(t *testing.T) {
	s1 := &mockScraper{name: "a", supports: true, err: errors.New("boom")}
	_, err := NewChain(nil, s1).Scrape(context.Background(), "https://acme.example")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all scrapers failed")
}

func TestChain_Scrape_NoneSupport(t *testing.T) {
	s1 := &mockScraper{name: "a", supports: false}
	_, err := NewChain(nil, s1).Scrape(context.Background(), "https://acme.example")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no suitable scraper")
}

func TestChain_Scrape_Excluded(t *testing.T) {
	s1 := &mockScraper{name: "a", supports: true, result: &Result{}}
	_, err := NewChain(NewPathMatcher(nil), s1).Scrape(context.Background(), "https://acme.example/brochure.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "excluded")
	assert.Equal(t, 0, s1.calls)
}

func TestChain_ScrapeAll_SkipsFailuresKeepsOrder(t *testing.T) {
	ok := &mockScraper{name: "ok", supports: true, result: &Result{HTML: "x", Source: "ok"}}
	chain := NewChain(NewPathMatcher(nil), ok)

	pages := chain.ScrapeAll(context.Background(), []string{
		"https://acme.example/about",
		"https://acme.example/logo.png",
		"https://acme.example/contact",
	})
	require.Len(t, pages, 2)
	assert.Equal(t, "https://acme.example/about", pages[0].URL)
	assert.Equal(t, "https://acme.example/contact", pages[1].URL)
}

func TestChain_ScrapeAll_StopsOnCancel(t *testing.T) {
	ok := &mockScraper{name: "ok", supports: true, result: &Result{HTML: "x"}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pages := NewChain(nil, ok).ScrapeAll(ctx, []string{"https://a.example", "https://b.example"})
	assert.Empty(t, pages)
	assert.Equal(t, 0, ok.calls)
}

func TestBrowserScraper(t *testing.T) {
	s := NewBrowserScraper(&fakeSession{html: longBody})
	assert.True(t, s.Supports("https://acme.example"))

	res, err := s.Scrape(context.Background(), "https://acme.example")
	require.NoError(t, err)
	assert.Equal(t, "browser", res.Source)
	assert.Equal(t, longBody, res.HTML)
}

func TestBrowserScraper_Errors(t *testing.T) {
	_, err := NewBrowserScraper(&fakeSession{err: errors.New("timeout")}).Scrape(context.Background(), "https://x.example")
	assert.Error(t, err)

	_, err = NewBrowserScraper(&fakeSession{html: "<html></html>"}).Scrape(context.Background(), "https://x.example")
	assert.ErrorContains(t, err, "empty")

	_, err = NewBrowserScraper(&fakeSession{html: "<html><body>Please complete the captcha</body></html>"}).Scrape(context.Background(), "https://x.example")
	assert.ErrorContains(t, err, "blocked")
}

func TestBrowserScraper_NilSession(t *testing.T) {
	assert.False(t, NewBrowserScraper(nil).Supports("https://x.example"))
}

func TestLocalScraper_ReturnsHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(longBody))
	}))
	defer srv.Close()

	res, err := NewLocalScraper(5*time.Second, "test-agent").Scrape(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "local_http", res.Source)
	assert.Equal(t, longBody, res.HTML)
}

func TestLocalScraper_Cloudflare(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Cf-Ray", "abc123")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<html><body>Access denied</body></html>`))
	}))
	defer srv.Close()

	_, err := NewLocalScraper(0, "").Scrape(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "blocked")
}

func TestLocalScraper_HTTP404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(longBody))
	}))
	defer srv.Close()

	_, err := NewLocalScraper(0, "").Scrape(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "status 404")
}

func TestLocalScraper_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html></html>`))
	}))
	defer srv.Close()

	_, err := NewLocalScraper(0, "").Scrape(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "empty")
}

func TestDetectBlock(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header http.Header
		body   string
		want   BlockType
	}{
		{"cloudflare 403", 403, http.Header{"Cf-Ray": {"abc"}}, "", BlockCloudflare},
		{"cloudflare server 503", 503, http.Header{"Server": {"cloudflare"}}, "", BlockCloudflare},
		{"browser check", 200, nil, "Checking your browser before accessing", BlockCloudflare},
		{"small captcha page", 200, nil, "<html>Please complete the reCAPTCHA</html>", BlockCaptcha},
		{"js shell", 200, nil, `<html><noscript>Enable JavaScript</noscript></html>`, BlockJSShell},
		{"normal page", 200, nil, longBody, BlockNone},
		{"large page with captcha widget", 200, nil, strings.Repeat("content ", 2000) + "g-recaptcha", BlockNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := DetectBlock(tt.status, tt.header, []byte(tt.body))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPathMatcher_IsExcluded(t *testing.T) {
	t.Parallel()
	m := NewPathMatcher([]string{"/blog/*", "*.pdf"})

	tests := []struct {
		name     string
		url      string
		excluded bool
	}{
		{"blog post", "https://acme.example/blog/post1", true},
		{"blog root", "https://acme.example/blog", true},
		{"blog deep path", "https://acme.example/blog/2024/01/post", true},
		{"root pdf", "https://acme.example/report.pdf", true},
		{"nested pdf", "https://acme.example/docs/Report.PDF", true},
		{"about page", "https://acme.example/about", false},
		{"careers", "https://acme.example/careers", false},
		{"homepage", "https://acme.example/", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.excluded, m.IsExcluded(tt.url))
		})
	}
}

func TestPathMatcher_Defaults(t *testing.T) {
	m := NewPathMatcher(nil)
	assert.Contains(t, m.Patterns(), "*.pdf")
	assert.True(t, m.IsExcluded("https://acme.example/img/logo.png"))
	assert.False(t, m.IsExcluded("https://acme.example/contact"))
	assert.True(t, m.IsExcluded("://bad url"))
}

func TestPathMatcher_Nil(t *testing.T) {
	var m *PathMatcher
	assert.False(t, m.IsExcluded("https://acme.example/x.pdf"))
}
