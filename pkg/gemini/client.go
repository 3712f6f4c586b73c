// Package gemini wraps the Google Gemini API for single-prompt text completion.
package gemini

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rotisserie/eris"
	"google.golang.org/api/option"

	"github.com/sells-group/enrich-cli/internal/resilience"
)

const serviceName = "gemini"

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-1.5-flash"

// generator is the subset of *genai.GenerativeModel used here.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Client sends prompts to one Gemini model.
type Client struct {
	client *genai.Client
	model  generator
	name   string
}

// NewClient creates a Gemini client for model. Extra client options are
// passed through to the SDK.
func NewClient(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, eris.New("gemini: api key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	gc, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}

	m := gc.GenerativeModel(model)
	m.SetTemperature(0.1)

	return &Client{client: gc, model: m, name: model}, nil
}

// Name identifies the provider in logs.
func (c *Client) Name() string { return serviceName }

// Complete sends prompt and returns the concatenated text parts of the first
// candidate. Quota exhaustion is reported as a *resilience.QuotaError.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		if qerr := resilience.DetectQuota(serviceName, err.Error()); qerr != nil {
			return "", qerr
		}
		return "", eris.Wrapf(err, "gemini: generate content (%s)", c.name)
	}
	return extractText(resp)
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", eris.New("gemini: no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", eris.New("gemini: no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", eris.New("gemini: no text parts in response")
	}
	return strings.Join(parts, ""), nil
}
