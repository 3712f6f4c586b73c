package model

// Provenance identifies where a URL candidate came from.
type Provenance string

const (
	ProvenanceSitemap  Provenance = "sitemap"
	ProvenanceTemplate Provenance = "template"
)

// URLCandidate is a page that may hold company information.
type URLCandidate struct {
	URL        string     `json:"url"`
	Provenance Provenance `json:"provenance"`
}

// DedupCandidates removes candidates whose URL string was already seen.
// The first occurrence wins.
func DedupCandidates(in []URLCandidate) []URLCandidate {
	seen := make(map[string]bool, len(in))
	out := make([]URLCandidate, 0, len(in))
	for _, c := range in {
		if seen[c.URL] {
			continue
		}
		seen[c.URL] = true
		out = append(out, c)
	}
	return out
}

// CandidateURLs returns the URL strings of the given candidates.
func CandidateURLs(in []URLCandidate) []string {
	out := make([]string, len(in))
	for i, c := range in {
		out[i] = c.URL
	}
	return out
}

// AllTemplated reports whether every candidate was synthesized from templates.
func AllTemplated(in []URLCandidate) bool {
	if len(in) == 0 {
		return false
	}
	for _, c := range in {
		if c.Provenance != ProvenanceTemplate {
			return false
		}
	}
	return true
}
