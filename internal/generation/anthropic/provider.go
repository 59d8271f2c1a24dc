package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/tubeseo-agent/internal/generation"
	"github.com/tubeseo-agent/pkg/logger"
	"github.com/tubeseo-agent/pkg/ratelimit"
)

const (
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 4096
)

// Provider generates text through the Anthropic Messages API.
type Provider struct {
	client      anthropic.Client
	apiKey      string
	model       string
	priority    int
	rateLimiter *ratelimit.MultiLimiter
	log         *logger.Logger
}

// New creates an Anthropic provider. An empty model falls back to the
// default.
func New(apiKey, model string, priority int, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Provider {
	if model == "" {
		model = defaultModel
	}
	return &Provider{
		client:      anthropic.NewClient(option.WithAPIKey(apiKey)),
		apiKey:      apiKey,
		model:       model,
		priority:    priority,
		rateLimiter: limiter,
		log:         log.WithComponent("anthropic"),
	}
}

func (p *Provider) Name() string    { return "anthropic" }
func (p *Provider) Priority() int   { return p.priority }
func (p *Provider) Available() bool { return p.apiKey != "" }

// GenerateText sends the prompt to Claude and returns the concatenated text
// blocks of the response.
func (p *Provider) GenerateText(ctx context.Context, prompt string) (string, error) {
	if err := p.rateLimiter.Wait(ctx, ratelimit.LimiterAnthropic); err != nil {
		return "", fmt.Errorf("rate limit error: %w", err)
	}

	p.log.Debug().Str("model", p.model).Msg("Sending request to Claude")

	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(defaultMaxTokens),
		System: []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: generation.SEOSystemPrompt,
			},
		},
		Messages: []anthropic.MessageParam{
			{
				Role: anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{
					anthropic.NewTextBlock(prompt),
				},
			},
		},
	})
	if err != nil {
		return "", &generation.ProviderError{Provider: p.Name(), Err: err}
	}

	var response string
	for _, block := range message.Content {
		textBlock := block.AsText()
		if textBlock.Text != "" {
			response += textBlock.Text
		}
	}

	p.log.Debug().
		Int("input_tokens", int(message.Usage.InputTokens)).
		Int("output_tokens", int(message.Usage.OutputTokens)).
		Msg("Received Claude response")

	return response, nil
}

// GenerateImage is not supported by this backend.
func (p *Provider) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	return nil, &generation.ProviderError{Provider: p.Name(), Err: fmt.Errorf("image generation not supported")}
}
