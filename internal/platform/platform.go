// Package platform defines the video-hosting platform capability consumed by
// the scheduler and review queue. Implementations live in subpackages.
package platform

import (
	"context"
	"time"
)

// Video is a summary of a hosted video's public metadata.
type Video struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	PublishedAt time.Time `json:"published_at"`
	// CategoryID must be carried through metadata updates; the platform
	// rejects snippet updates that drop it.
	CategoryID string `json:"category_id"`
	Thumbnail  string `json:"thumbnail"`
}

// VideoStats carries per-video performance counters.
type VideoStats struct {
	Views    uint64 `json:"views"`
	Likes    uint64 `json:"likes"`
	Comments uint64 `json:"comments"`
}

// AnalyticsReport aggregates channel analytics over a date range.
type AnalyticsReport struct {
	WatchTimeMinutes int64            `json:"watch_time_minutes"`
	Views            int64            `json:"views"`
	TrafficSources   map[string]int64 `json:"traffic_sources"`
	StartDate        time.Time        `json:"start_date"`
	EndDate          time.Time        `json:"end_date"`
}

// MetadataUpdate is the payload for a metadata change.
type MetadataUpdate struct {
	Title       string
	Description string
	Tags        []string
}

// Client is an authenticated, single-user connection to the platform.
type Client interface {
	// ChannelID returns the ID of the user's channel.
	ChannelID(ctx context.Context) (string, error)
	// ListUploads returns all videos on the user's channel, most recent
	// first (the platform's natural order).
	ListUploads(ctx context.Context) ([]*Video, error)
	GetVideo(ctx context.Context, videoID string) (*Video, *VideoStats, error)
	UpdateVideo(ctx context.Context, videoID string, update MetadataUpdate) error
	SetThumbnail(ctx context.Context, videoID string, image []byte) error
	GetAnalytics(ctx context.Context, start, end time.Time) (*AnalyticsReport, error)
}

// Factory builds per-user clients. Authentication happens here; a user
// without a valid stored token yields an AuthError.
type Factory interface {
	ForUser(ctx context.Context, userID string) (Client, error)
}
