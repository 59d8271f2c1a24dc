package generation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Suggestion is a structured metadata proposal parsed from provider output.
type Suggestion struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// PromptInput carries everything the SEO prompt is built from.
type PromptInput struct {
	Title       string
	Description string
	Tags        []string
	// Persona is the user's free-text channel-style instructions.
	Persona string
	// RecentTitles gives the model the channel's naming conventions.
	RecentTitles []string
}

// BuildSEOPrompt renders the user prompt for a metadata optimization call.
func BuildSEOPrompt(in PromptInput) string {
	tags := "None"
	if len(in.Tags) > 0 {
		tags = strings.Join(in.Tags, ", ")
	}
	persona := in.Persona
	if persona == "" {
		persona = DefaultPersona
	}
	recent := "None available"
	if len(in.RecentTitles) > 0 {
		recent = "- " + strings.Join(in.RecentTitles, "\n- ")
	}
	return fmt.Sprintf(SEOUserPrompt, in.Title, in.Description, tags, persona, recent)
}

// BuildThumbnailPrompt renders an image prompt from a suggested title and
// the channel persona.
func BuildThumbnailPrompt(title, persona string) string {
	style := persona
	if style == "" {
		style = "vibrant and high-contrast"
	}
	return fmt.Sprintf(ThumbnailPromptTemplate, title, style)
}

// stripMarkdownCodeBlock extracts the JSON object from a response that may
// be wrapped in markdown fences or surrounding prose.
func stripMarkdownCodeBlock(response string) string {
	response = strings.TrimSpace(response)

	startIdx := strings.Index(response, "{")
	if startIdx == -1 {
		return response
	}
	endIdx := strings.LastIndex(response, "}")
	if endIdx == -1 || endIdx < startIdx {
		return response
	}
	return response[startIdx : endIdx+1]
}

// ParseSuggestion decodes provider output into a Suggestion. Output that
// cannot be decoded, or that is missing a title, yields a ParseError
// carrying the raw text.
func ParseSuggestion(raw string) (*Suggestion, error) {
	var s Suggestion
	if err := json.Unmarshal([]byte(stripMarkdownCodeBlock(raw)), &s); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	if strings.TrimSpace(s.Title) == "" {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("missing title")}
	}
	return &s, nil
}
