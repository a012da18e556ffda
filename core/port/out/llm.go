package out

import "context"

// LLMPort is the minimal completion interface both enrichment stages use.
// Implementations return the raw model text; parsing it is the caller's
// problem.
type LLMPort interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
