// Package providers wires a user's credential vault into generation chains.
package providers

import (
	"github.com/tubeseo-agent/internal/generation"
	"github.com/tubeseo-agent/internal/generation/anthropic"
	"github.com/tubeseo-agent/internal/generation/gemini"
	"github.com/tubeseo-agent/internal/generation/huggingface"
	"github.com/tubeseo-agent/internal/generation/openai"
	"github.com/tubeseo-agent/internal/generation/pollinations"
	"github.com/tubeseo-agent/internal/models"
	"github.com/tubeseo-agent/pkg/logger"
	"github.com/tubeseo-agent/pkg/ratelimit"
)

// Fixed priorities. Gemini leads the text chain (cheapest adequate
// backend); Pollinations terminates the image chain because it needs no
// credential, so image generation always has a last resort.
const (
	textPriorityGemini    = 1
	textPriorityAnthropic = 2
	textPriorityOpenAI    = 3

	imagePriorityOpenAI       = 1
	imagePriorityHuggingFace  = 2
	imagePriorityPollinations = 3
)

// FromCredentials builds the text and image provider lists for one user
// from the credential vault rows. Providers the user holds no credential
// for are left out entirely, except the free terminal image fallback.
func FromCredentials(creds []*models.ProviderCredential, limiter *ratelimit.MultiLimiter, log *logger.Logger) (text, image []generation.Provider) {
	byProvider := make(map[string]*models.ProviderCredential, len(creds))
	for _, c := range creds {
		byProvider[c.Provider] = c
	}

	if c, ok := byProvider[models.ProviderGemini]; ok {
		text = append(text, gemini.New(c.APIKey, c.Model, textPriorityGemini, limiter, log))
	}
	if c, ok := byProvider[models.ProviderAnthropic]; ok {
		text = append(text, anthropic.New(c.APIKey, c.Model, textPriorityAnthropic, limiter, log))
	}
	if c, ok := byProvider[models.ProviderOpenAI]; ok {
		text = append(text, openai.New(c.APIKey, c.Model, textPriorityOpenAI, limiter, log))
		image = append(image, openai.New(c.APIKey, "", imagePriorityOpenAI, limiter, log))
	}
	if c, ok := byProvider[models.ProviderHuggingFace]; ok {
		image = append(image, huggingface.New(c.APIKey, c.Model, imagePriorityHuggingFace, limiter, log))
	}
	image = append(image, pollinations.New(imagePriorityPollinations, limiter, log))

	return text, image
}
