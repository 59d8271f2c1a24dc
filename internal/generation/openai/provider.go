package openai

import (
	"bytes"
	"context"
	"encoding/base64"
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
	baseURL           = "https://api.openai.com/v1"
	defaultTextModel  = "gpt-4o-mini"
	defaultImageModel = "dall-e-3"
)

// Provider generates text and images through the OpenAI API.
type Provider struct {
	apiKey      string
	model       string
	priority    int
	httpClient  *http.Client
	rateLimiter *ratelimit.MultiLimiter
	log         *logger.Logger
}

// New creates an OpenAI provider. The model override applies to text
// generation; images always use DALL-E 3.
func New(apiKey, model string, priority int, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Provider {
	if model == "" {
		model = defaultTextModel
	}
	return &Provider{
		apiKey:   apiKey,
		model:    model,
		priority: priority,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		rateLimiter: limiter,
		log:         log.WithComponent("openai"),
	}
}

func (p *Provider) Name() string    { return "openai" }
func (p *Provider) Priority() int   { return p.priority }
func (p *Provider) Available() bool { return p.apiKey != "" }

func (p *Provider) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return &generation.ProviderError{Provider: p.Name(), Transient: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return &generation.ProviderError{
			Provider:   p.Name(),
			StatusCode: resp.StatusCode,
			Transient:  resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests,
			Err:        fmt.Errorf("API error: %s", string(respBody)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &generation.ProviderError{Provider: p.Name(), Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// GenerateText calls the chat completions endpoint.
func (p *Provider) GenerateText(ctx context.Context, prompt string) (string, error) {
	if err := p.rateLimiter.Wait(ctx, ratelimit.LimiterOpenAI); err != nil {
		return "", fmt.Errorf("rate limit error: %w", err)
	}

	p.log.Debug().Str("model", p.model).Msg("Sending request to OpenAI")

	var result chatResponse
	err := p.post(ctx, "/chat/completions", chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: generation.SEOSystemPrompt},
			{Role: "user", Content: prompt},
		},
	}, &result)
	if err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", &generation.ProviderError{Provider: p.Name(), Err: fmt.Errorf("empty response")}
	}
	return result.Choices[0].Message.Content, nil
}

type imageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	Size           string `json:"size"`
	Quality        string `json:"quality"`
	N              int    `json:"n"`
	ResponseFormat string `json:"response_format"`
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// GenerateImage calls the image generations endpoint and returns the
// decoded image bytes.
func (p *Provider) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if err := p.rateLimiter.Wait(ctx, ratelimit.LimiterOpenAI); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	var result imageResponse
	err := p.post(ctx, "/images/generations", imageRequest{
		Model:          defaultImageModel,
		Prompt:         prompt,
		Size:           "1792x1024",
		Quality:        "standard",
		N:              1,
		ResponseFormat: "b64_json",
	}, &result)
	if err != nil {
		return nil, err
	}
	if len(result.Data) == 0 {
		return nil, &generation.ProviderError{Provider: p.Name(), Err: fmt.Errorf("empty response")}
	}

	image, err := base64.StdEncoding.DecodeString(result.Data[0].B64JSON)
	if err != nil {
		return nil, &generation.ProviderError{Provider: p.Name(), Err: fmt.Errorf("failed to decode image: %w", err)}
	}

	p.log.Debug().Int("size_bytes", len(image)).Msg("Image generated")
	return image, nil
}
