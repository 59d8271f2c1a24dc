// Package generation drives metadata generation across an ordered chain of
// AI providers.
package generation

import (
	"context"
)

// Kind selects between text and image generation.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// Request describes one generation call.
type Request struct {
	Kind   Kind
	Prompt string
	// Provider pins the request to a single named provider. When set, that
	// provider's failure is returned as-is and no fallback happens.
	Provider string
}

// Result is the successful outcome of a generation request.
type Result struct {
	Text  string
	Image []byte
	// Provider is the name of the provider that produced the result.
	Provider string
}

// Provider is a single generation backend. Implementations are constructed
// per user from the credential vault; Available reports whether the
// credential needed for the backend is present.
type Provider interface {
	Name() string
	// Priority orders providers within a chain; lower runs first.
	Priority() int
	Available() bool
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}
