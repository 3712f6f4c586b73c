package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/enrich-cli/internal/model"
)

func TestExtractFallback_AllPatterns(t *testing.T) {
	rec := ExtractFallback("Acme Corp", "https://acme.example", acmePage)

	assert.Equal(t, model.CompanyRecord{
		Name:          "Acme Corp",
		Website:       "https://acme.example",
		Description:   "Acme makes everything.",
		Industry:      "Manufacturing and logistics",
		Email:         "info@acme.example",
		Phone:         "+1 (555) 010-0200",
		StreetAddress: "1 Road Runner Way",
		City:          "Phoenix",
		Country:       "United States",
	}, rec)
}

func TestExtractFallback_Empty(t *testing.T) {
	rec := ExtractFallback("Ghost", "https://ghost.example", "")
	assert.Equal(t, model.NewCompanyRecord("Ghost", "https://ghost.example"), rec)
	assert.Len(t, rec.Values(), len(model.Columns))
}

func TestExtractFallback_EmailFilters(t *testing.T) {
	content := `<p>noreply@acme.example no-reply@acme.example logo@2x.png donotreply@acme.example
	errors@sentry.io Reach us: hello@acme.example</p>`
	rec := ExtractFallback("Acme", "", content)
	assert.Equal(t, "hello@acme.example", rec.Email)
}

func TestExtractFallback_MailtoWins(t *testing.T) {
	content := `<p>press@acme.example</p><a href="mailto:sales@acme.example">Sales</a>`
	rec := ExtractFallback("Acme", "", content)
	assert.Equal(t, "sales@acme.example", rec.Email)
}

func TestExtractFallback_PlainText(t *testing.T) {
	content := "Our industry: ＦＩＮＴＥＣＨ services. Tel: 020 7946 0000\nAddress: 10 Downing Street"
	rec := ExtractFallback("Acme", "", content)
	assert.Equal(t, "FINTECH services", rec.Industry, "full-width text is normalized")
	assert.Equal(t, "020 7946 0000", rec.Phone)
	assert.Equal(t, "10 Downing Street", rec.StreetAddress)
	assert.Empty(t, rec.City)
	assert.Empty(t, rec.Country)
}

func TestExtractFallback_SingleQuotedMeta(t *testing.T) {
	rec := ExtractFallback("Acme", "", `<meta name='description' content='Single quoted'>`)
	assert.Equal(t, "Single quoted", rec.Description)
}
