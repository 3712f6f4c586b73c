package pipeline

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mcnijman/go-emailaddress"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/enrich-cli/internal/model"
)

var (
	metaDescriptionPattern = regexp.MustCompile(`(?i)<meta\s+name=["']description["'][^>]*content=["']([^"']+)["']`)
	industryPattern        = regexp.MustCompile(`(?i)industry[:\s]+([^.<]{3,50})`)
	phonePattern           = regexp.MustCompile(`(?i)(?:phone|tel)[:\s]+([\d\s()+\-.]{7,20})`)
	addressPattern         = regexp.MustCompile(`(?i)address[:\s]+([^.<]{5,150})`)
	streetPattern          = regexp.MustCompile(`^([^,]+)`)
	cityPattern            = regexp.MustCompile(`,\s*([^,]+),`)
	countryPattern         = regexp.MustCompile(`,\s*([A-Za-z\s]+)$`)
)

// ExcludedEmailMarkers disqualify automated or tracking addresses.
var ExcludedEmailMarkers = []string{"noreply", "no-reply", "donotreply", "sentry", "wixpress"}

// ExcludedEmailSuffixes catch image file names that look like addresses.
var ExcludedEmailSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp"}

// ExtractFallback derives what it can from raw page markup with fixed
// patterns: description, industry, email, phone and a best-effort address
// split. It never fails; unknown fields are empty.
func ExtractFallback(name, website, content string) model.CompanyRecord {
	rec := model.NewCompanyRecord(name, website)
	content = norm.NFKC.String(content)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err == nil {
		rec.Description = metaDescription(doc)
	}
	if rec.Description == "" {
		if m := metaDescriptionPattern.FindStringSubmatch(content); m != nil {
			rec.Description = strings.TrimSpace(m[1])
		}
	}

	if m := industryPattern.FindStringSubmatch(content); m != nil {
		rec.Industry = strings.TrimSpace(m[1])
	}

	var emails []string
	if doc != nil {
		emails = mailtoEmails(doc)
	}
	emails = append(emails, textEmails(content)...)
	if len(emails) > 0 {
		rec.Email = emails[0]
	}

	if m := phonePattern.FindStringSubmatch(content); m != nil {
		rec.Phone = strings.TrimSpace(m[1])
	}

	if m := addressPattern.FindStringSubmatch(content); m != nil {
		full := strings.TrimSpace(m[1])
		if s := streetPattern.FindStringSubmatch(full); s != nil {
			rec.StreetAddress = strings.TrimSpace(s[1])
		}
		if c := cityPattern.FindStringSubmatch(full); c != nil {
			rec.City = strings.TrimSpace(c[1])
		}
		if c := countryPattern.FindStringSubmatch(full); c != nil {
			rec.Country = strings.TrimSpace(c[1])
		}
	}

	return rec
}

func metaDescription(doc *goquery.Document) string {
	var desc string
	doc.Find("meta[name]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.EqualFold(strings.TrimSpace(s.AttrOr("name", "")), "description") {
			return true
		}
		desc = strings.TrimSpace(s.AttrOr("content", ""))
		return desc == ""
	})
	return desc
}

func mailtoEmails(doc *goquery.Document) []string {
	var out []string
	doc.Find("a[href^='mailto:']").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		addr := strings.TrimPrefix(href, "mailto:")
		if i := strings.IndexByte(addr, '?'); i >= 0 {
			addr = addr[:i]
		}
		if email, ok := validEmail(addr); ok {
			out = append(out, email)
		}
	})
	return out
}

func textEmails(content string) []string {
	var out []string
	for _, a := range emailaddress.Find([]byte(content), false) {
		if email, ok := validEmail(a.String()); ok {
			out = append(out, email)
		}
	}
	return out
}

func validEmail(s string) (string, bool) {
	addr, err := emailaddress.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	email := addr.String()
	lower := strings.ToLower(email)
	for _, m := range ExcludedEmailMarkers {
		if strings.Contains(lower, m) {
			return "", false
		}
	}
	for _, suffix := range ExcludedEmailSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return "", false
		}
	}
	return email, true
}
