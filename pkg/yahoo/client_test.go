package yahoo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/enrich-cli/internal/resilience"
)

func TestQuoteSummary_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v10/finance/quoteSummary/ACME", r.URL.Path)
		assert.Equal(t, "financialData,price", r.URL.Query().Get("modules"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"quoteSummary":{"result":[{
			"financialData":{"totalRevenue":{"raw":2500000000,"fmt":"2.5B"},"grossProfits":{"raw":900000000},"operatingCashflow":{}},
			"price":{"marketCap":{"raw":12000000000,"fmt":"12B"}}
		}],"error":null}}`))
	}))
	defer srv.Close()

	s, err := NewClient(WithBaseURL(srv.URL)).QuoteSummary(context.Background(), "ACME")
	require.NoError(t, err)
	assert.InDelta(t, 2.5e9, s.TotalRevenue, 1)
	assert.InDelta(t, 9e8, s.GrossProfits, 1)
	assert.InDelta(t, 1.2e10, s.MarketCap, 1)
	assert.Zero(t, s.OperatingCashflow)
}

func TestQuoteSummary_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"quoteSummary":{"result":null,"error":{"code":"Not Found","description":"Quote not found for ticker symbol: ZZZZ"}}}`))
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).QuoteSummary(context.Background(), "ZZZZ")
	assert.ErrorContains(t, err, "Quote not found")
}

func TestQuoteSummary_NotFoundStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).QuoteSummary(context.Background(), "ZZZZ")
	assert.True(t, errors.Is(err, resilience.ErrNotFound))
}

func TestLookupSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v7/finance/quote", r.URL.Path)
		if r.URL.Query().Get("symbols") == "ACME" {
			_, _ = w.Write([]byte(`{"quoteResponse":{"result":[{"symbol":"ACME"}],"error":null}}`))
			return
		}
		_, _ = w.Write([]byte(`{"quoteResponse":{"result":[],"error":null}}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	sym, err := c.LookupSymbol(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Equal(t, "ACME", sym)

	_, err = c.LookupSymbol(context.Background(), "Acme Corp")
	assert.True(t, errors.Is(err, resilience.ErrNotFound))
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/finance/search", r.URL.Path)
		assert.Equal(t, "Acme Corp", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"quotes":[
			{"symbol":"ACME.X","isYahooFinance":false},
			{"symbol":"ACME","shortname":"Acme Corp","quoteType":"EQUITY","isYahooFinance":true}
		]}`))
	}))
	defer srv.Close()

	quotes, err := NewClient(WithSearchBaseURL(srv.URL)).Search(context.Background(), "Acme Corp")
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.False(t, quotes[0].IsYahooFinance)
	assert.True(t, quotes[1].IsYahooFinance)
	assert.Equal(t, "ACME", quotes[1].Symbol)
}

func TestGetJSON_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/finance/search" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithSearchBaseURL(srv.URL))
	_, err := c.Search(context.Background(), "x")
	assert.ErrorContains(t, err, "unexpected status 429")

	_, err = c.QuoteSummary(context.Background(), "X")
	var perr *resilience.ParseError
	assert.ErrorAs(t, err, &perr)
}
