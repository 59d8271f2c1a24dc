package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSuggestionPlainJSON(t *testing.T) {
	raw := `{"title":"Better Title","description":"Longer description.","tags":["go","seo"]}`

	s, err := ParseSuggestion(raw)
	require.NoError(t, err)

	assert.Equal(t, "Better Title", s.Title)
	assert.Equal(t, "Longer description.", s.Description)
	assert.Equal(t, []string{"go", "seo"}, s.Tags)
}

func TestParseSuggestionMarkdownFences(t *testing.T) {
	raw := "Here is your optimized metadata:\n```json\n{\"title\":\"Fenced\",\"description\":\"d\",\"tags\":[]}\n```\nLet me know if you want changes."

	s, err := ParseSuggestion(raw)
	require.NoError(t, err)

	assert.Equal(t, "Fenced", s.Title)
}

func TestParseSuggestionInvalidJSON(t *testing.T) {
	raw := "Sorry, I could not produce JSON this time."

	_, err := ParseSuggestion(raw)
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, raw, parseErr.Raw, "raw text must survive for manual review")
}

func TestParseSuggestionMissingTitle(t *testing.T) {
	raw := `{"description":"only a description","tags":["x"]}`

	_, err := ParseSuggestion(raw)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, raw, parseErr.Raw)
}

func TestBuildSEOPromptDefaults(t *testing.T) {
	prompt := BuildSEOPrompt(PromptInput{Title: "My Video"})

	assert.Contains(t, prompt, "My Video")
	assert.Contains(t, prompt, DefaultPersona)
	assert.Contains(t, prompt, "None available")
}

func TestBuildSEOPromptWithContext(t *testing.T) {
	prompt := BuildSEOPrompt(PromptInput{
		Title:        "My Video",
		Tags:         []string{"a", "b"},
		Persona:      "Energetic tech channel",
		RecentTitles: []string{"First", "Second"},
	})

	assert.Contains(t, prompt, "a, b")
	assert.Contains(t, prompt, "Energetic tech channel")
	assert.Contains(t, prompt, "- First\n- Second")
	assert.NotContains(t, prompt, DefaultPersona)
}
