package generation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tubeseo-agent/pkg/logger"
)

// Chain tries an ordered list of providers until one succeeds.
type Chain struct {
	providers []Provider
	// retryWait is how long to sleep before the single retry of a
	// transient provider failure.
	retryWait time.Duration
	log       *logger.Logger
}

// NewChain creates a fallback chain. Providers are ordered by ascending
// Priority regardless of input order.
func NewChain(providers []Provider, retryWait time.Duration, log *logger.Logger) *Chain {
	sorted := make([]Provider, len(providers))
	copy(sorted, providers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})
	return &Chain{
		providers: sorted,
		retryWait: retryWait,
		log:       log.WithComponent("generation"),
	}
}

// Providers returns the chain's providers in priority order.
func (c *Chain) Providers() []Provider {
	return c.providers
}

// Generate runs the request through the chain. With an explicit provider
// the request is tried once against that provider only and its error is
// returned untouched. Otherwise providers are tried in priority order,
// skipping unavailable ones; a transient failure gets one bounded retry
// before moving on. When everything fails the terminal error carries the
// last error per provider.
func (c *Chain) Generate(ctx context.Context, req Request) (*Result, error) {
	if req.Provider != "" {
		for _, p := range c.providers {
			if p.Name() == req.Provider {
				return c.tryProvider(ctx, p, req)
			}
		}
		return nil, fmt.Errorf("provider %s not configured", req.Provider)
	}

	failures := make(map[string]error)
	for _, p := range c.providers {
		if !p.Available() {
			c.log.Debug().Str("provider", p.Name()).Msg("Provider unavailable, skipping")
			continue
		}

		result, err := c.tryProvider(ctx, p, req)
		if err == nil {
			return result, nil
		}
		failures[p.Name()] = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		c.log.Warn().
			Err(err).
			Str("provider", p.Name()).
			Msg("Provider failed, falling over")
	}

	return nil, &AllProvidersFailedError{Errors: failures}
}

func (c *Chain) tryProvider(ctx context.Context, p Provider, req Request) (*Result, error) {
	result, err := c.call(ctx, p, req)
	if err == nil {
		return result, nil
	}

	if IsTransient(err) && c.retryWait > 0 {
		c.log.Info().
			Str("provider", p.Name()).
			Dur("wait", c.retryWait).
			Msg("Transient provider failure, retrying once")

		select {
		case <-time.After(c.retryWait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return c.call(ctx, p, req)
	}

	return nil, err
}

func (c *Chain) call(ctx context.Context, p Provider, req Request) (*Result, error) {
	switch req.Kind {
	case KindImage:
		image, err := p.GenerateImage(ctx, req.Prompt)
		if err != nil {
			return nil, err
		}
		return &Result{Image: image, Provider: p.Name()}, nil
	default:
		text, err := p.GenerateText(ctx, req.Prompt)
		if err != nil {
			return nil, err
		}
		return &Result{Text: text, Provider: p.Name()}, nil
	}
}
