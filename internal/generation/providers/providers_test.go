package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tubeseo-agent/internal/models"
	"github.com/tubeseo-agent/pkg/logger"
	"github.com/tubeseo-agent/pkg/ratelimit"
)

func testDeps() (*ratelimit.MultiLimiter, *logger.Logger) {
	return ratelimit.NewDefaultLimiter(),
		logger.New(logger.Config{Level: "error", Format: "json", Output: "stdout"})
}

func cred(provider string) *models.ProviderCredential {
	return &models.ProviderCredential{UserID: "u1", Provider: provider, APIKey: "key"}
}

func TestFromCredentialsFullVault(t *testing.T) {
	limiter, log := testDeps()

	text, image := FromCredentials([]*models.ProviderCredential{
		cred(models.ProviderAnthropic),
		cred(models.ProviderGemini),
		cred(models.ProviderOpenAI),
		cred(models.ProviderHuggingFace),
	}, limiter, log)

	require.Len(t, text, 3)
	require.Len(t, image, 3)

	textNames := map[string]int{}
	for _, p := range text {
		textNames[p.Name()] = p.Priority()
	}
	assert.Equal(t, 1, textNames[models.ProviderGemini])
	assert.Equal(t, 2, textNames[models.ProviderAnthropic])
	assert.Equal(t, 3, textNames[models.ProviderOpenAI])

	imageNames := map[string]int{}
	for _, p := range image {
		imageNames[p.Name()] = p.Priority()
	}
	assert.Equal(t, 1, imageNames[models.ProviderOpenAI])
	assert.Equal(t, 2, imageNames[models.ProviderHuggingFace])
	assert.Equal(t, 3, imageNames[models.ProviderPollinations])
}

func TestFromCredentialsEmptyVault(t *testing.T) {
	limiter, log := testDeps()

	text, image := FromCredentials(nil, limiter, log)

	// No text backends without keys, but image generation always keeps its
	// free terminal fallback.
	assert.Empty(t, text)
	require.Len(t, image, 1)
	assert.Equal(t, models.ProviderPollinations, image[0].Name())
	assert.True(t, image[0].Available())
}

func TestFromCredentialsPartialVault(t *testing.T) {
	limiter, log := testDeps()

	text, image := FromCredentials([]*models.ProviderCredential{
		cred(models.ProviderAnthropic),
	}, limiter, log)

	require.Len(t, text, 1)
	assert.Equal(t, models.ProviderAnthropic, text[0].Name())
	require.Len(t, image, 1)
	assert.Equal(t, models.ProviderPollinations, image[0].Name())
}
