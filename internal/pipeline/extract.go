package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/sells-group/enrich-cli/internal/config"
	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/resilience"
)

// extractFields are requested from the LLM in this order. The first maps to
// the Description column; the rest share their column name.
var extractFields = []struct {
	Key    string
	Column string
	Hint   string
}{
	{"Company Description", "Description", "A brief description of what the company does."},
	{"Industry", "Industry", "What industry does the company operate in?"},
	{"Software Classification", "Software Classification", "What type of software does the company provide?"},
	{"Enterprise Grade Classification", "Enterprise Grade Classification", "Is their software enterprise-grade? What level?"},
	{"Geography", "Geography", "Where is the company based or headquartered?"},
	{"Street Address", "Street Address", "The street address of their main office."},
	{"City", "City", "City of their main office."},
	{"Postal Code", "Postal Code", "ZIP or postal code of their main office."},
	{"Country", "Country", "Country of their main office."},
	{"Phone", "Phone", "Contact phone number."},
	{"Email", "Email", "Contact email address."},
	{"Employee Count", "Employee Count", "How many employees work at the company?"},
	{"Customers", "Customers", "List of major customers or clients."},
	{"Investors", "Investors", "List of investors or funding sources."},
	{"Parent Company", "Parent Company", "Is this company owned by a parent company? If so, which one?"},
	{"Financial Info", "Financial Info", "Any financial information like revenue, funding, etc."},
}

// noiseElements are removed before page text is collected.
const noiseElements = "script, style, meta, noscript, header, footer, nav, head"

var fencedBlock = regexp.MustCompile("(?s)```(?:json|JSON)?[ \t]*\r?\n?(.*?)```")

// Extractor turns fetched pages into a CompanyRecord.
type Extractor struct {
	llm           LLM
	maxPageChars  int
	maxTotalChars int
}

// NewExtractor creates an Extractor. llm may be nil, in which case every
// record comes from ExtractFallback.
func NewExtractor(llm LLM, cfg config.ExtractConfig) *Extractor {
	e := &Extractor{llm: llm, maxPageChars: cfg.MaxPageChars, maxTotalChars: cfg.MaxTotalChars}
	if e.maxPageChars <= 0 {
		e.maxPageChars = 100_000
	}
	if e.maxTotalChars <= 0 {
		e.maxTotalChars = 150_000
	}
	return e
}

// Extract builds a record for name from the raw HTML pages. The LLM answer
// wins field by field; fields it leaves empty are filled from the regex
// fallback. Only quota and context errors are returned.
func (e *Extractor) Extract(ctx context.Context, name, website string, pages []string) (model.CompanyRecord, error) {
	raw := strings.Join(pages, "\n")
	log := zap.L().With(zap.String("company", name))

	if e.llm == nil {
		return ExtractFallback(name, website, raw), nil
	}

	resp, err := e.llm.Complete(ctx, e.prompt(name, website, e.CleanPages(pages)))
	if err != nil {
		if resilience.IsQuotaExceeded(err) || ctx.Err() != nil {
			return model.NewCompanyRecord(name, website), err
		}
		log.Warn("extract: llm failed, using regex fallback", zap.String("llm", e.llm.Name()), zap.Error(err))
		return ExtractFallback(name, website, raw), nil
	}

	obj, ok := ParseObject(resp)
	if !ok {
		log.Warn("extract: llm response not parseable, using regex fallback",
			zap.Error(&resilience.ParseError{Source: e.llm.Name(), Err: eris.Errorf("no JSON object in %d byte response", len(resp))}),
		)
		return ExtractFallback(name, website, raw), nil
	}

	rec := RecordFromObject(name, website, obj)
	fb := ExtractFallback(name, website, raw)
	fbFields := fb.Fields()
	for col, p := range rec.Fields() {
		if *p == "" {
			*p = *fbFields[col]
		}
	}
	return rec, nil
}

// CleanPages strips markup from each page and joins the text, truncated to
// the per-page and total character limits.
func (e *Extractor) CleanPages(pages []string) string {
	var parts []string
	for _, p := range pages {
		text := truncateRunes(cleanPage(p), e.maxPageChars)
		if text != "" {
			parts = append(parts, text)
		}
	}
	return truncateRunes(strings.Join(parts, " "), e.maxTotalChars)
}

func cleanPage(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return strings.Join(strings.Fields(raw), " ")
	}
	doc.Find(noiseElements).Remove()

	var parts []string
	for _, n := range doc.Nodes {
		collectText(n, &parts)
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func collectText(n *html.Node, out *[]string) {
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			*out = append(*out, t)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, out)
	}
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	i := 0
	for n := range s {
		if i == limit {
			return s[:n]
		}
		i++
	}
	return s
}

func (e *Extractor) prompt(name, website, content string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I need to extract specific information about the company '%s' with website %s.\n\n", name, website)
	b.WriteString("Based on the following scraped content from their website, please extract as much of this information as possible:\n\n")
	for i, f := range extractFields {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, f.Key, f.Hint)
	}
	b.WriteString("\nHere's the content from their website:\n")
	b.WriteString(content)
	fmt.Fprintf(&b, "\n\nFormat your response as a JSON object with these %d fields, with empty string values for any information you cannot find.", len(extractFields))
	return b.String()
}

// ParseObject reads a JSON object from an LLM response, trying a fenced code
// block, then the first balanced {...} span, then the whole text.
func ParseObject(text string) (map[string]any, bool) {
	for _, parse := range []func(string) (map[string]any, bool){
		parseFenced,
		parseBalanced,
		parseRaw,
	} {
		if obj, ok := parse(text); ok {
			return obj, true
		}
	}
	return nil, false
}

func parseFenced(text string) (map[string]any, bool) {
	for _, m := range fencedBlock.FindAllStringSubmatch(text, -1) {
		if obj, ok := decodeObject(m[1]); ok {
			return obj, true
		}
	}
	return nil, false
}

func parseBalanced(text string) (map[string]any, bool) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end := matchBrace(text, start); end > 0 {
			if obj, ok := decodeObject(text[start : end+1]); ok {
				return obj, true
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, false
}

// matchBrace returns the index of the brace closing the one at start, skipping
// braces inside JSON strings, or -1.
func matchBrace(text string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func parseRaw(text string) (map[string]any, bool) {
	return decodeObject(text)
}

func decodeObject(s string) (map[string]any, bool) {
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(s)))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// RecordFromObject maps the LLM's keys onto a record. Keys match
// case-insensitively; the column name is accepted as well as the prompt key.
// Missing keys leave the field empty.
func RecordFromObject(name, website string, obj map[string]any) model.CompanyRecord {
	byKey := make(map[string]any, len(obj))
	for k, v := range obj {
		byKey[strings.ToLower(strings.TrimSpace(k))] = v
	}

	rec := model.NewCompanyRecord(name, website)
	fields := rec.Fields()
	for _, f := range extractFields {
		v, ok := byKey[strings.ToLower(f.Key)]
		if !ok {
			v, ok = byKey[strings.ToLower(f.Column)]
		}
		if ok {
			*fields[f.Column] = stringify(v)
		}
	}
	return rec
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := stringify(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
