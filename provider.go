package storyassist

import "context"

// Provider defines the contract for text-completion backends. A prompt goes
// in, the raw completion text comes out; the engine is agnostic to which model
// or vendor sits behind it.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
