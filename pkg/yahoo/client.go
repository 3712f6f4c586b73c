// Package yahoo is a client for the public Yahoo Finance query endpoints.
package yahoo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/resilience"
)

const (
	defaultBaseURL   = "https://query2.finance.yahoo.com"
	defaultUserAgent = "Mozilla/5.0"
	serviceName      = "yahoo_finance"
)

// Client performs Yahoo Finance lookups.
type Client interface {
	// LookupSymbol treats query as a ticker and returns the canonical symbol
	// when the quote service knows it.
	LookupSymbol(ctx context.Context, query string) (string, error)
	// Search returns quote matches for a free-text query.
	Search(ctx context.Context, query string) ([]SearchQuote, error)
	// QuoteSummary returns headline financial figures for symbol.
	QuoteSummary(ctx context.Context, symbol string) (*Summary, error)
}

// SearchQuote is one match from the search endpoint.
type SearchQuote struct {
	Symbol         string `json:"symbol"`
	ShortName      string `json:"shortname"`
	LongName       string `json:"longname"`
	Exchange       string `json:"exchange"`
	QuoteType      string `json:"quoteType"`
	IsYahooFinance bool   `json:"isYahooFinance"`
}

// Summary carries the figures used for financial info. Zero means absent.
type Summary struct {
	MarketCap         float64
	TotalRevenue      float64
	GrossProfits      float64
	OperatingCashflow float64
}

type rawValue struct {
	Raw float64 `json:"raw"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			FinancialData struct {
				TotalRevenue      rawValue `json:"totalRevenue"`
				GrossProfits      rawValue `json:"grossProfits"`
				OperatingCashflow rawValue `json:"operatingCashflow"`
			} `json:"financialData"`
			Price struct {
				MarketCap rawValue `json:"marketCap"`
			} `json:"price"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"quoteSummary"`
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol string `json:"symbol"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"quoteResponse"`
}

type searchResponse struct {
	Quotes []SearchQuote `json:"quotes"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the quote and quoteSummary base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithSearchBaseURL overrides the search endpoint base URL.
func WithSearchBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.searchBaseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithUserAgent sets the User-Agent header. Yahoo rejects requests without one.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

type httpClient struct {
	baseURL       string
	searchBaseURL string
	userAgent     string
	http          *http.Client
}

// NewClient creates a Yahoo Finance client. No credential is required.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:       defaultBaseURL,
		searchBaseURL: defaultBaseURL,
		userAgent:     defaultUserAgent,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) LookupSymbol(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("symbols", query)

	var resp quoteResponse
	if err := c.getJSON(ctx, c.baseURL+"/v7/finance/quote?"+params.Encode(), &resp); err != nil {
		return "", err
	}
	if e := resp.QuoteResponse.Error; e != nil {
		return "", eris.Errorf("yahoo: quote error %s: %s", e.Code, e.Description)
	}
	for _, r := range resp.QuoteResponse.Result {
		if r.Symbol != "" {
			return r.Symbol, nil
		}
	}
	return "", eris.Wrapf(resilience.ErrNotFound, "yahoo: no symbol for %q", query)
}

func (c *httpClient) Search(ctx context.Context, query string) ([]SearchQuote, error) {
	params := url.Values{}
	params.Set("q", query)

	var resp searchResponse
	if err := c.getJSON(ctx, c.searchBaseURL+"/v1/finance/search?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Quotes, nil
}

func (c *httpClient) QuoteSummary(ctx context.Context, symbol string) (*Summary, error) {
	params := url.Values{}
	params.Set("modules", "financialData,price")

	var resp quoteSummaryResponse
	u := c.baseURL + "/v10/finance/quoteSummary/" + url.PathEscape(symbol) + "?" + params.Encode()
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}
	if e := resp.QuoteSummary.Error; e != nil {
		return nil, eris.Errorf("yahoo: quoteSummary error %s: %s", e.Code, e.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, eris.Wrapf(resilience.ErrNotFound, "yahoo: no summary for %s", symbol)
	}

	r := resp.QuoteSummary.Result[0]
	return &Summary{
		MarketCap:         r.Price.MarketCap.Raw,
		TotalRevenue:      r.FinancialData.TotalRevenue.Raw,
		GrossProfits:      r.FinancialData.GrossProfits.Raw,
		OperatingCashflow: r.FinancialData.OperatingCashflow.Raw,
	}, nil
}

func (c *httpClient) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return eris.Wrap(err, "yahoo: create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "yahoo: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "yahoo: read response")
	}

	if resp.StatusCode == http.StatusNotFound {
		return eris.Wrap(resilience.ErrNotFound, "yahoo: not found")
	}
	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("yahoo: unexpected status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &resilience.ParseError{Source: serviceName, Err: err}
	}
	return nil
}
