// Package browser renders pages in headless Chrome via chromedp and pools
// browser sessions so each worker owns one instance at a time.
package browser

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Session renders pages in a single browser instance.
type Session interface {
	// Render navigates to url and returns the rendered document HTML.
	Render(ctx context.Context, url string) (string, error)
	// Close shuts the browser down.
	Close()
}

// Options configures browser sessions.
type Options struct {
	Headless  bool
	ExecPath  string
	UserAgent string
	// Wait is the settle time after the body is ready, for client-side rendering.
	Wait time.Duration
	// Timeout bounds a single Render call.
	Timeout time.Duration
}

// Option configures a Pool.
type Option func(*Pool)

// WithOptions sets the session options.
func WithOptions(o Options) Option {
	return func(p *Pool) { p.opts = o }
}

// WithSize sets the maximum number of live sessions.
func WithSize(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.size = n
		}
	}
}

// WithLauncher replaces the session constructor. Used by tests.
func WithLauncher(fn func(ctx context.Context, o Options) (Session, error)) Option {
	return func(p *Pool) { p.launch = fn }
}

// Pool hands out at most size sessions, starting them lazily and reusing
// released ones.
type Pool struct {
	opts   Options
	size   int
	launch func(ctx context.Context, o Options) (Session, error)

	slots chan struct{}
	mu    sync.Mutex
	idle  []Session
	all   []Session
}

// NewPool creates a session pool. The default size is 1.
func NewPool(opts ...Option) *Pool {
	p := &Pool{
		opts: Options{
			Headless: true,
			Wait:     2 * time.Second,
			Timeout:  30 * time.Second,
		},
		size:   1,
		launch: launchChrome,
	}
	for _, o := range opts {
		o(p)
	}
	p.slots = make(chan struct{}, p.size)
	return p
}

// Acquire returns an idle session or starts a new one, blocking while all
// sessions are in use.
func (p *Pool) Acquire(ctx context.Context) (Session, error) {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, eris.Wrap(ctx.Err(), "browser: acquire")
	}

	p.mu.Lock()
	if n := len(p.idle); n > 0 {
		s := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return s, nil
	}
	p.mu.Unlock()

	s, err := p.launch(ctx, p.opts)
	if err != nil {
		<-p.slots
		return nil, eris.Wrap(err, "browser: launch")
	}

	p.mu.Lock()
	p.all = append(p.all, s)
	p.mu.Unlock()
	return s, nil
}

// Release returns a session to the pool.
func (p *Pool) Release(s Session) {
	if s == nil {
		return
	}
	p.mu.Lock()
	p.idle = append(p.idle, s)
	p.mu.Unlock()
	<-p.slots
}

// Close shuts down every session the pool started.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.all {
		s.Close()
	}
	p.all = nil
	p.idle = nil
}

// chromeSession is one Chrome process; each Render opens a fresh tab.
type chromeSession struct {
	opts          Options
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

func launchChrome(_ context.Context, o Options) (Session, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", o.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if o.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(o.ExecPath))
	}
	if o.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(o.UserAgent))
	}

	// The browser outlives the acquiring request, so it hangs off Background.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Run with no actions starts the browser.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, eris.Wrap(err, "browser: start chrome")
	}

	zap.L().Debug("browser: session started", zap.Bool("headless", o.Headless))
	return &chromeSession{
		opts:          o,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

func (s *chromeSession) Render(ctx context.Context, url string) (string, error) {
	tabCtx, tabCancel := chromedp.NewContext(s.browserCtx)
	defer tabCancel()

	timeout := s.opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	tabCtx, cancel := context.WithTimeout(tabCtx, timeout)
	defer cancel()

	// Propagate caller cancellation into the tab.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(s.opts.Wait),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", eris.Wrapf(err, "browser: render %s", url)
	}
	return html, nil
}

func (s *chromeSession) Close() {
	s.browserCancel()
	s.allocCancel()
}
