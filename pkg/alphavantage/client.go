// Package alphavantage is a client for the Alpha Vantage fundamentals API.
package alphavantage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/resilience"
)

const (
	defaultBaseURL = "https://www.alphavantage.co"
	serviceName    = "alphavantage"
)

// Client fetches company fundamentals.
type Client interface {
	IncomeStatement(ctx context.Context, symbol string) (*IncomeStatement, error)
	Overview(ctx context.Context, symbol string) (*Overview, error)
}

// IncomeStatement holds the annual income statements, newest first.
type IncomeStatement struct {
	Symbol        string         `json:"symbol"`
	AnnualReports []AnnualReport `json:"annualReports"`
}

// AnnualReport is one fiscal year. Values are decimal strings or "None".
type AnnualReport struct {
	FiscalDateEnding string `json:"fiscalDateEnding"`
	TotalRevenue     string `json:"totalRevenue"`
	GrossProfit      string `json:"grossProfit"`
}

// Overview is the subset of the company overview that we use.
type Overview struct {
	Symbol               string `json:"Symbol"`
	Name                 string `json:"Name"`
	MarketCapitalization string `json:"MarketCapitalization"`
}

// ParseAmount converts an Alpha Vantage numeric string. Empty, "None" and
// unparseable values yield 0.
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates an Alpha Vantage client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) IncomeStatement(ctx context.Context, symbol string) (*IncomeStatement, error) {
	var out IncomeStatement
	if err := c.query(ctx, "INCOME_STATEMENT", symbol, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) Overview(ctx context.Context, symbol string) (*Overview, error) {
	var out Overview
	if err := c.query(ctx, "OVERVIEW", symbol, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// throttleNotice is the body shape returned with status 200 when the key is
// rate limited or the call is not permitted.
type throttleNotice struct {
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

func (c *httpClient) query(ctx context.Context, function, symbol string, out any) error {
	params := url.Values{}
	params.Set("function", function)
	params.Set("symbol", symbol)
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/query?"+params.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "alphavantage: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "alphavantage: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "alphavantage: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("alphavantage: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var notice throttleNotice
	if err := json.Unmarshal(body, &notice); err != nil {
		return &resilience.ParseError{Source: serviceName, Err: err}
	}
	switch {
	case notice.ErrorMessage != "":
		return eris.Errorf("alphavantage: %s %s: %s", function, symbol, notice.ErrorMessage)
	case notice.Note != "":
		return eris.Errorf("alphavantage: throttled: %s", notice.Note)
	case notice.Information != "":
		return eris.Errorf("alphavantage: throttled: %s", notice.Information)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &resilience.ParseError{Source: serviceName, Err: err}
	}
	return nil
}
