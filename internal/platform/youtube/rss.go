package youtube

import (
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"

	"github.com/tubeseo-agent/pkg/logger"
	"github.com/tubeseo-agent/pkg/ratelimit"
)

const channelFeedURL = "https://www.youtube.com/feeds/videos.xml?channel_id=%s"

// ChannelContext fetches a channel's recent upload titles through the public
// Atom feed. The feed carries only the 15 most recent videos, which is
// plenty for style context, and costs zero API quota.
type ChannelContext struct {
	parser      *gofeed.Parser
	rateLimiter *ratelimit.MultiLimiter
	log         *logger.Logger
}

// NewChannelContext creates a feed-backed context fetcher.
func NewChannelContext(limiter *ratelimit.MultiLimiter, log *logger.Logger) *ChannelContext {
	return &ChannelContext{
		parser:      gofeed.NewParser(),
		rateLimiter: limiter,
		log:         log.WithComponent("channel-feed"),
	}
}

// RecentTitles returns the titles of the channel's most recent uploads,
// newest first. Failures are soft: callers treat an empty slice as "no
// context available".
func (c *ChannelContext) RecentTitles(ctx context.Context, channelID string, limit int) ([]string, error) {
	if err := c.rateLimiter.Wait(ctx, ratelimit.LimiterRSS); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	feed, err := c.parser.ParseURLWithContext(fmt.Sprintf(channelFeedURL, channelID), ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channel feed: %w", err)
	}

	titles := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		if limit > 0 && len(titles) >= limit {
			break
		}
		titles = append(titles, item.Title)
	}

	c.log.Debug().Str("channel_id", channelID).Int("titles", len(titles)).Msg("Fetched channel feed")
	return titles, nil
}
