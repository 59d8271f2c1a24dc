package pollinations

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tubeseo-agent/internal/generation"
	"github.com/tubeseo-agent/pkg/logger"
	"github.com/tubeseo-agent/pkg/ratelimit"
)

const imageURL = "https://image.pollinations.ai/prompt/"

// Provider generates images through the free pollinations.ai endpoint. It
// needs no credential and is meant as the terminal image fallback so
// thumbnail generation never silently fails.
type Provider struct {
	priority    int
	httpClient  *http.Client
	rateLimiter *ratelimit.MultiLimiter
	log         *logger.Logger
}

// New creates a Pollinations provider.
func New(priority int, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Provider {
	return &Provider{
		priority: priority,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		rateLimiter: limiter,
		log:         log.WithComponent("pollinations"),
	}
}

func (p *Provider) Name() string    { return "pollinations" }
func (p *Provider) Priority() int   { return p.priority }
func (p *Provider) Available() bool { return true }

// GenerateText is not supported by this backend.
func (p *Provider) GenerateText(ctx context.Context, prompt string) (string, error) {
	return "", &generation.ProviderError{Provider: p.Name(), Err: fmt.Errorf("text generation not supported")}
}

// GenerateImage fetches a generated image for the prompt.
func (p *Provider) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if err := p.rateLimiter.Wait(ctx, ratelimit.LimiterPollinations); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	endpoint := imageURL + url.PathEscape(prompt) + "?width=1280&height=720&nologo=true&model=flux"
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &generation.ProviderError{Provider: p.Name(), Transient: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &generation.ProviderError{
			Provider:   p.Name(),
			StatusCode: resp.StatusCode,
			Transient:  resp.StatusCode == http.StatusServiceUnavailable,
			Err:        fmt.Errorf("status %d", resp.StatusCode),
		}
	}

	image, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &generation.ProviderError{Provider: p.Name(), Err: fmt.Errorf("failed to read image data: %w", err)}
	}

	p.log.Debug().Int("size_bytes", len(image)).Msg("Image generated")
	return image, nil
}
