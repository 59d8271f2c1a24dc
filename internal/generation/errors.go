package generation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ProviderError is a structured failure from a single generation backend.
type ProviderError struct {
	Provider   string
	StatusCode int
	// Transient marks failures worth one bounded retry before falling over
	// to the next provider (e.g. HTTP 503 while a model loads).
	Transient bool
	Err       error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %s failed (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a transient provider failure.
func IsTransient(err error) bool {
	var provErr *ProviderError
	return errors.As(err, &provErr) && provErr.Transient
}

// AllProvidersFailedError is the terminal failure of a fallback chain. It
// carries the last error seen per provider for diagnostics.
type AllProvidersFailedError struct {
	Errors map[string]error
}

func (e *AllProvidersFailedError) Error() string {
	if len(e.Errors) == 0 {
		return "no generation providers available"
	}
	names := make([]string, 0, len(e.Errors))
	for name := range e.Errors {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %v", name, e.Errors[name]))
	}
	return "all generation providers failed: " + strings.Join(parts, "; ")
}

// ParseError indicates the provider's output was not in the expected
// structured form. Raw preserves the unparsed text so a reviewer can
// correct it manually instead of losing the generation.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse generation output: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
