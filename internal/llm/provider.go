// Package llm holds the reply-generation providers. The engine treats a
// provider as a narrow collaborator: prompt in, text out, or an error.
package llm

import "context"

// Provider defines a generic LLM interface
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}
