package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/config"
	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/resilience"
)

// rankFields are the facts the ranked pages should cover.
var rankFields = []string{
	"Website",
	"Company Description",
	"Software Classification",
	"Enterprise Grade Classification",
	"Industry",
	"Customers names list",
	"Employee Headcount",
	"Investors",
	"Geography",
	"Parent company",
	"Address (Street, City, ZIP/Postal Code, Country)",
	"Financial Information",
	"Email",
	"Phone",
}

var urlPattern = regexp.MustCompile(`https?://[^\s"'\[\],]+`)

// Ranker selects the candidate pages most likely to hold company facts.
type Ranker struct {
	llm           LLM
	maxCandidates int
	maxURLs       int
}

// NewRanker creates a Ranker. llm may be nil, in which case sitemap
// candidates are truncated in input order.
func NewRanker(llm LLM, cfg config.RankerConfig) *Ranker {
	r := &Ranker{llm: llm, maxCandidates: cfg.MaxCandidates, maxURLs: cfg.MaxURLs}
	if r.maxCandidates <= 0 {
		r.maxCandidates = 200
	}
	if r.maxURLs <= 0 {
		r.maxURLs = 15
	}
	return r
}

// Rank returns at most maxURLs URLs to fetch from sitemap candidates. The
// cap does not apply when every candidate is templated: those are returned
// unchanged. Only quota and context errors are returned.
func (r *Ranker) Rank(ctx context.Context, candidates []model.URLCandidate, name, website string) ([]string, error) {
	urls := model.CandidateURLs(candidates)
	if model.AllTemplated(candidates) {
		return urls, nil
	}
	if r.llm == nil || len(urls) == 0 {
		return r.head(urls), nil
	}

	log := zap.L().With(zap.String("company", name))
	resp, err := r.llm.Complete(ctx, r.prompt(urls, name, website))
	if err != nil {
		if resilience.IsQuotaExceeded(err) || ctx.Err() != nil {
			return nil, err
		}
		log.Warn("rank: llm failed, using first candidates", zap.Error(err))
		return r.head(urls), nil
	}

	if ranked, ok := parseURLList(resp); ok {
		log.Info("rank: llm selected urls", zap.Int("count", len(ranked)))
		return r.head(ranked), nil
	}
	if found := extractURLs(resp); len(found) > 0 {
		log.Info("rank: urls extracted from llm text", zap.Int("count", len(found)))
		return r.head(found), nil
	}
	log.Warn("rank: unusable llm response, using first candidates")
	return r.head(urls), nil
}

func (r *Ranker) head(urls []string) []string {
	if len(urls) > r.maxURLs {
		return urls[:r.maxURLs]
	}
	return urls
}

func (r *Ranker) prompt(urls []string, name, website string) string {
	if len(urls) > r.maxCandidates {
		urls = urls[:r.maxCandidates]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "I'm researching the company '%s' with website %s.\n", name, website)
	b.WriteString("I need to gather the following information:\n")
	for i, f := range rankFields {
		fmt.Fprintf(&b, "%d. %s\n", i+1, f)
	}
	b.WriteString("\nHere is a list of URLs from their sitemap:\n")
	for _, u := range urls {
		b.WriteString(u)
		b.WriteByte('\n')
	}
	b.WriteString("\nBased on the URL patterns, which 10-15 URLs would be most useful to scrape to find this information?\n")
	b.WriteString("Return your answer as a JSON array of URL strings only.")
	return b.String()
}

// parseURLList decodes the span from the first '[' to the last ']' as a
// non-empty list of strings.
func parseURLList(text string) ([]string, bool) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, false
	}
	var list []string
	if err := json.Unmarshal([]byte(text[start:end+1]), &list); err != nil {
		return nil, false
	}
	out := dedupStrings(list)
	return out, len(out) > 0
}

// extractURLs returns every URL-shaped substring of text, without duplicates.
func extractURLs(text string) []string {
	return dedupStrings(urlPattern.FindAllString(text, -1))
}

func dedupStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
