package classifier

import "context"

// FallbackService answers a free-text prompt. It is consulted only for
// descriptors that no keyword rule matches.
type FallbackService interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// FallbackFunc adapts a function to FallbackService.
type FallbackFunc func(ctx context.Context, model, prompt string) (string, error)

// Generate calls f.
func (f FallbackFunc) Generate(ctx context.Context, model, prompt string) (string, error) {
	return f(ctx, model, prompt)
}
