package generation

// Metadata optimization prompts
const (
	SEOSystemPrompt = `You are a YouTube SEO expert. You optimize video metadata for high click-through rate and discoverability without misrepresenting the content.

Guidelines:
- Titles under 100 characters, front-load the strongest keyword
- Descriptions formatted for readability: short paragraphs, line breaks, a few emojis to highlight key points, bullet points for takeaways
- A clear call to action near the end of the description
- Hashtags grouped at the very bottom of the description
- 15-20 high-ranking, relevant tags
- Stay faithful to what the video is actually about`

	SEOUserPrompt = `Optimize the following video metadata.

Current Title: %s
Current Description: %s
Current Tags: %s

Channel style instructions:
%s

Recent videos on this channel (for tone and naming consistency):
%s

Respond in JSON format:
{
  "title": "<new optimized title>",
  "description": "<new optimized description with proper spacing and formatting>",
  "tags": ["<tag1>", "<tag2>", "..."]
}`

	// DefaultPersona is used when the user has not set channel-style
	// instructions.
	DefaultPersona = "No specific style defined. Use best practices for high CTR and engagement."
)

// Thumbnail prompts
const (
	ThumbnailPromptTemplate = `YouTube thumbnail for a video titled "%s". %s, photorealistic, 8k, highly detailed, cinematic lighting, bold composition, no text`
)
