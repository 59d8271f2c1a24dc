package gemini

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
	baseURL      = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel = "gemini-1.5-flash"
)

// Provider generates text through the Google Gemini REST API.
type Provider struct {
	apiKey      string
	model       string
	priority    int
	httpClient  *http.Client
	rateLimiter *ratelimit.MultiLimiter
	log         *logger.Logger
}

// New creates a Gemini provider.
func New(apiKey, model string, priority int, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Provider {
	if model == "" {
		model = defaultModel
	}
	return &Provider{
		apiKey:   apiKey,
		model:    model,
		priority: priority,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		rateLimiter: limiter,
		log:         log.WithComponent("gemini"),
	}
}

func (p *Provider) Name() string    { return "gemini" }
func (p *Provider) Priority() int   { return p.priority }
func (p *Provider) Available() bool { return p.apiKey != "" }

type generateRequest struct {
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
	Contents          []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// GenerateText calls the generateContent endpoint and returns the first
// candidate's text.
func (p *Provider) GenerateText(ctx context.Context, prompt string) (string, error) {
	if err := p.rateLimiter.Wait(ctx, ratelimit.LimiterGemini); err != nil {
		return "", fmt.Errorf("rate limit error: %w", err)
	}

	body, err := json.Marshal(generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: generation.SEOSystemPrompt}}},
		Contents:          []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", baseURL, p.model, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	p.log.Debug().Str("model", p.model).Msg("Sending request to Gemini")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", &generation.ProviderError{Provider: p.Name(), Transient: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", &generation.ProviderError{
			Provider:   p.Name(),
			StatusCode: resp.StatusCode,
			Transient:  resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests,
			Err:        fmt.Errorf("API error: %s", string(respBody)),
		}
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &generation.ProviderError{Provider: p.Name(), Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", &generation.ProviderError{Provider: p.Name(), Err: fmt.Errorf("empty response")}
	}

	var text string
	for _, pt := range result.Candidates[0].Content.Parts {
		text += pt.Text
	}
	return text, nil
}

// GenerateImage is not supported by this backend.
func (p *Provider) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	return nil, &generation.ProviderError{Provider: p.Name(), Err: fmt.Errorf("image generation not supported")}
}
