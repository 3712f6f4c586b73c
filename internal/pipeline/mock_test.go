package pipeline

import (
	"context"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/scrape"
	"github.com/sells-group/enrich-cli/pkg/browser"
)

// --- LLM Mock ---

type mockLLM struct {
	mock.Mock
}

func (m *mockLLM) Name() string { return "mock-llm" }

func (m *mockLLM) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func assertPromptMentions(prompt string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(prompt, p) {
			return false
		}
	}
	return true
}

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetCompany(ctx context.Context, name string) (*model.CompanyRecord, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CompanyRecord), args.Error(1)
}

func (m *mockStore) InsertCompany(ctx context.Context, rec model.CompanyRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *mockStore) UpdateFinancialInfo(ctx context.Context, name, info string) error {
	return m.Called(ctx, name, info).Error(0)
}

func (m *mockStore) ListCompanies(ctx context.Context) ([]model.CompanyRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CompanyRecord), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockStore) Close() error                      { return m.Called().Error(0) }

// --- Stage Mocks ---

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

type mockDiscoverer struct {
	mock.Mock
}

func (m *mockDiscoverer) Discover(ctx context.Context, website string) ([]model.URLCandidate, error) {
	args := m.Called(ctx, website)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.URLCandidate), args.Error(1)
}

type mockEnricher struct {
	mock.Mock
}

func (m *mockEnricher) Enrich(ctx context.Context, name, website string) model.FinancialSnapshot {
	return m.Called(ctx, name, website).Get(0).(model.FinancialSnapshot)
}

// --- Page fetch fakes ---

// fakeFetcher serves canned HTML by URL and records every request.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

func (f *fakeFetcher) ScrapeAll(_ context.Context, urls []string) []scrape.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []scrape.Result
	for _, u := range urls {
		f.calls = append(f.calls, u)
		if html, ok := f.pages[u]; ok {
			out = append(out, scrape.Result{URL: u, HTML: html, Source: "fake"})
		}
	}
	return out
}

func (f *fakeFetcher) requested() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// countingPool tracks browser sessions handed out and returned.
type countingPool struct {
	mu       sync.Mutex
	acquired int
	released int
	err      error
}

type nopSession struct{}

func (nopSession) Render(context.Context, string) (string, error) { return "", nil }
func (nopSession) Close()                                         {}

func (p *countingPool) Acquire(context.Context) (browser.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.acquired++
	return nopSession{}, nil
}

func (p *countingPool) Release(browser.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released++
}
