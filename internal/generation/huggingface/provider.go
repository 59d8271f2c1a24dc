package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tubeseo-agent/internal/generation"
	"github.com/tubeseo-agent/pkg/logger"
	"github.com/tubeseo-agent/pkg/ratelimit"
)

const (
	baseURL      = "https://api-inference.huggingface.co/models"
	defaultModel = "stabilityai/stable-diffusion-xl-base-1.0"
)

// Provider generates images through the Hugging Face Inference API. On the
// free tier a cold model answers 503 while it loads; that failure is
// transient and worth one retry.
type Provider struct {
	apiToken    string
	model       string
	priority    int
	httpClient  *http.Client
	rateLimiter *ratelimit.MultiLimiter
	log         *logger.Logger
}

// New creates a Hugging Face provider.
func New(apiToken, model string, priority int, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Provider {
	if model == "" {
		model = defaultModel
	}
	return &Provider{
		apiToken: apiToken,
		model:    model,
		priority: priority,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		rateLimiter: limiter,
		log:         log.WithComponent("huggingface"),
	}
}

func (p *Provider) Name() string    { return "huggingface" }
func (p *Provider) Priority() int   { return p.priority }
func (p *Provider) Available() bool { return p.apiToken != "" }

// GenerateText is not supported by this backend.
func (p *Provider) GenerateText(ctx context.Context, prompt string) (string, error) {
	return "", &generation.ProviderError{Provider: p.Name(), Err: fmt.Errorf("text generation not supported")}
}

type inferenceRequest struct {
	Inputs     string                 `json:"inputs"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// GenerateImage runs text-to-image inference and returns the raw image
// bytes from the response body.
func (p *Provider) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if err := p.rateLimiter.Wait(ctx, ratelimit.LimiterHuggingFace); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	body, err := json.Marshal(inferenceRequest{
		Inputs:     prompt,
		Parameters: map[string]interface{}{"num_inference_steps": 25},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/"+p.model, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiToken)
	req.Header.Set("Content-Type", "application/json")

	p.log.Debug().Str("model", p.model).Msg("Requesting image inference")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &generation.ProviderError{Provider: p.Name(), Transient: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &generation.ProviderError{
			Provider:   p.Name(),
			StatusCode: resp.StatusCode,
			Transient:  resp.StatusCode == http.StatusServiceUnavailable,
			Err:        fmt.Errorf("API error: %s", string(respBody)),
		}
	}

	image, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &generation.ProviderError{Provider: p.Name(), Err: fmt.Errorf("failed to read image data: %w", err)}
	}

	p.log.Debug().Int("size_bytes", len(image)).Msg("Image generated")
	return image, nil
}
