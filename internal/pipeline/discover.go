package pipeline

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/xml"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/enrich-cli/internal/config"
	"github.com/sells-group/enrich-cli/internal/fetcher"
	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/resilience"
)

// maxIndexDepth is how many levels of sitemap index are followed below the
// probed document.
const maxIndexDepth = 2

// errSitemapTooLarge reports a sitemap body over the configured byte limit.
var errSitemapTooLarge = eris.New("sitemap exceeds size limit")

// Sitemap is a parsed sitemap document. For an index, Locs are the child
// sitemap locations; otherwise they are page URLs.
type Sitemap struct {
	Index bool
	Locs  []string
}

// ParseSitemap reads a <urlset> or <sitemapindex> document, honouring its
// declared charset. Gzip-compressed input is accepted.
func ParseSitemap(r io.Reader) (*Sitemap, error) {
	br, err := maybeGunzip(r)
	if err != nil {
		return nil, &resilience.ParseError{Source: "sitemap", Err: err}
	}

	dec := fetcher.NewXMLDecoder(br)
	var doc *Sitemap
	var parents []string
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &resilience.ParseError{Source: "sitemap", Err: err}
		}

		switch el := tok.(type) {
		case xml.StartElement:
			name := strings.ToLower(el.Name.Local)
			if doc == nil {
				switch name {
				case "urlset":
					doc = &Sitemap{}
				case "sitemapindex":
					doc = &Sitemap{Index: true}
				default:
					return nil, &resilience.ParseError{Source: "sitemap", Err: eris.Errorf("unexpected root element <%s>", el.Name.Local)}
				}
				parents = append(parents, name)
				continue
			}

			// Only <url><loc> and <sitemap><loc>; image and video extensions
			// nest their own <loc> deeper.
			parent := parents[len(parents)-1]
			if name == "loc" && (parent == "url" || parent == "sitemap") {
				var loc string
				if err := dec.DecodeElement(&loc, &el); err != nil {
					return nil, &resilience.ParseError{Source: "sitemap", Err: err}
				}
				if loc = strings.TrimSpace(loc); loc != "" {
					doc.Locs = append(doc.Locs, loc)
				}
				continue
			}
			parents = append(parents, name)
		case xml.EndElement:
			if len(parents) > 0 {
				parents = parents[:len(parents)-1]
			}
		}
	}

	if doc == nil {
		return nil, &resilience.ParseError{Source: "sitemap", Err: io.ErrUnexpectedEOF}
	}
	return doc, nil
}

func maybeGunzip(r io.Reader) (io.Reader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return zr, nil
	}
	return bytes.NewReader(data), nil
}

// Discoverer gathers candidate URLs from a site's sitemaps.
type Discoverer struct {
	fetcher          fetcher.Fetcher
	paths            []string
	timeout          time.Duration
	maxBytes         int64
	childConcurrency int
}

// NewDiscoverer creates a Discoverer. Zero config values fall back to the
// package defaults.
func NewDiscoverer(f fetcher.Fetcher, cfg config.DiscoveryConfig) *Discoverer {
	d := &Discoverer{
		fetcher:          f,
		paths:            cfg.SitemapPaths,
		timeout:          time.Duration(cfg.SitemapTimeoutSecs) * time.Second,
		maxBytes:         cfg.MaxSitemapBytes,
		childConcurrency: cfg.ChildConcurrency,
	}
	if len(d.paths) == 0 {
		d.paths = config.DefaultSitemapPaths
	}
	if d.timeout <= 0 {
		d.timeout = 10 * time.Second
	}
	if d.maxBytes <= 0 {
		d.maxBytes = 10 << 20
	}
	if d.childConcurrency <= 0 {
		d.childConcurrency = 4
	}
	return d
}

// Discover probes the configured sitemap paths in order and returns the
// URLs of the first one that yields any. An empty result means no sitemap
// was usable. Only context errors are returned.
func (d *Discoverer) Discover(ctx context.Context, website string) ([]model.URLCandidate, error) {
	root := siteRoot(website)
	log := zap.L().With(zap.String("website", root))

	for _, p := range d.paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sitemapURL := root + "/" + strings.TrimLeft(p, "/")
		doc, err := d.fetchSitemap(ctx, sitemapURL)
		if err != nil {
			log.Debug("discover: sitemap skipped", zap.String("url", sitemapURL), zap.Error(err))
			continue
		}

		locs := doc.Locs
		if doc.Index {
			locs = d.expandIndex(ctx, doc.Locs, 1)
		}

		candidates := make([]model.URLCandidate, 0, len(locs))
		for _, l := range locs {
			candidates = append(candidates, model.URLCandidate{URL: l, Provenance: model.ProvenanceSitemap})
		}
		candidates = model.DedupCandidates(candidates)
		if len(candidates) > 0 {
			log.Info("discover: sitemap urls found",
				zap.String("sitemap", sitemapURL),
				zap.Int("count", len(candidates)),
			)
			return candidates, nil
		}
	}

	log.Info("discover: no sitemap found")
	return nil, ctx.Err()
}

// expandIndex fetches child sitemaps concurrently and returns their page URLs
// in child order. Failed children are skipped.
func (d *Discoverer) expandIndex(ctx context.Context, children []string, depth int) []string {
	results := make([][]string, len(children))

	var g errgroup.Group
	g.SetLimit(d.childConcurrency)
	for i, child := range children {
		g.Go(func() error {
			doc, err := d.fetchSitemap(ctx, child)
			if err != nil {
				zap.L().Warn("discover: child sitemap failed", zap.String("url", child), zap.Error(err))
				return nil
			}
			if !doc.Index {
				results[i] = doc.Locs
				return nil
			}
			if depth < maxIndexDepth {
				results[i] = d.expandIndex(ctx, doc.Locs, depth+1)
			}
			return nil
		})
	}
	_ = g.Wait()

	var out []string
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

func (d *Discoverer) fetchSitemap(ctx context.Context, u string) (*Sitemap, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	// One byte past the limit tells an oversized body from a complete one.
	data, err := fetcher.ReadAll(ctx, d.fetcher, u, d.maxBytes+1)
	if err != nil {
		return nil, resilience.NewTransientError(err, fetcher.StatusCode(err))
	}
	if int64(len(data)) > d.maxBytes {
		zap.L().Warn("discover: sitemap too large, skipped",
			zap.String("url", u),
			zap.Int64("max_bytes", d.maxBytes),
		)
		return nil, eris.Wrapf(errSitemapTooLarge, "sitemap %s", u)
	}
	return ParseSitemap(bytes.NewReader(data))
}

// GenerateFallbackURLs synthesizes likely information pages for website
// without network access. Each slug yields base/slug, base/slug.html,
// base/en/slug and base/us/slug. With no slugs, config.DefaultSlugs is used.
func GenerateFallbackURLs(website string, slugs ...string) []model.URLCandidate {
	if strings.TrimSpace(website) == "" {
		return nil
	}
	if len(slugs) == 0 {
		slugs = config.DefaultSlugs
	}

	base := siteRoot(website)
	out := make([]model.URLCandidate, 0, len(slugs)*4)
	for _, s := range slugs {
		s = strings.Trim(s, "/")
		for _, u := range []string{
			base + "/" + s,
			base + "/" + s + ".html",
			base + "/en/" + s,
			base + "/us/" + s,
		} {
			out = append(out, model.URLCandidate{URL: u, Provenance: model.ProvenanceTemplate})
		}
	}
	return model.DedupCandidates(out)
}

// siteRoot returns scheme://host for website. A bare host gets https. An
// unparseable value is returned trimmed.
func siteRoot(website string) string {
	raw := strings.TrimSpace(website)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimRight(strings.TrimSpace(website), "/")
	}
	return u.Scheme + "://" + u.Host
}
