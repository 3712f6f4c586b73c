package pipeline

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/resilience"
	"github.com/sells-group/enrich-cli/pkg/search"
)

// ExcludedWebsiteDomains are never accepted as a company's own website.
var ExcludedWebsiteDomains = []string{
	"facebook.com",
	"linkedin.com",
	"twitter.com",
	"x.com",
	"instagram.com",
	"youtube.com",
	"yelp.com",
	"yellowpages.com",
	"crunchbase.com",
	"glassdoor.com",
	"wikipedia.org",
	"bloomberg.com",
	"zoominfo.com",
}

// WebsiteResolver finds a company's website through web search.
type WebsiteResolver struct {
	search   search.Client
	excluded []string
}

// NewWebsiteResolver creates a resolver over the given search client.
func NewWebsiteResolver(c search.Client) *WebsiteResolver {
	return &WebsiteResolver{search: c, excluded: ExcludedWebsiteDomains}
}

// Resolve returns the first search hit that is not a social network,
// directory or aggregator. It returns resilience.ErrNotFound when nothing
// qualifies and a *resilience.QuotaError when search quota is exhausted.
func (r *WebsiteResolver) Resolve(ctx context.Context, name string) (string, error) {
	items, err := r.search.Search(ctx, name+" official website")
	if err != nil {
		if resilience.IsQuotaExceeded(err) || ctx.Err() != nil {
			return "", err
		}
		zap.L().Warn("resolve: search failed", zap.String("company", name), zap.Error(err))
		return "", eris.Wrapf(resilience.ErrNotFound, "resolve %q", name)
	}

	for _, item := range items {
		link := strings.TrimSpace(item.Link)
		if link == "" || r.isExcluded(link) {
			continue
		}
		return link, nil
	}
	return "", eris.Wrapf(resilience.ErrNotFound, "resolve %q: no suitable result", name)
}

func (r *WebsiteResolver) isExcluded(link string) bool {
	host := strings.ToLower(link)
	if u, err := url.Parse(link); err == nil && u.Host != "" {
		host = strings.ToLower(u.Hostname())
	}
	for _, d := range r.excluded {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
