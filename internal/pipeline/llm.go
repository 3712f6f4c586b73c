package pipeline

import "context"

// LLM is a text-completion oracle. Implementations report exhausted quota as
// a *resilience.QuotaError.
type LLM interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}
