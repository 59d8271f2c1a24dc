package youtube

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/youtube/v3"
	youtubeanalytics "google.golang.org/api/youtubeanalytics/v2"

	"github.com/tubeseo-agent/internal/platform"
	"github.com/tubeseo-agent/pkg/logger"
	"github.com/tubeseo-agent/pkg/ratelimit"
)

const listPageSize = 50

// Client implements platform.Client against the YouTube Data and Analytics
// APIs for a single authenticated user.
type Client struct {
	userID      string
	service     *youtube.Service
	analytics   *youtubeanalytics.Service
	rateLimiter *ratelimit.MultiLimiter
	log         *logger.Logger

	channelID string
}

// ChannelID returns the user's channel ID, fetching it on first use.
func (c *Client) ChannelID(ctx context.Context) (string, error) {
	if c.channelID != "" {
		return c.channelID, nil
	}
	if err := c.rateLimiter.Wait(ctx, ratelimit.LimiterYouTube); err != nil {
		return "", fmt.Errorf("rate limit error: %w", err)
	}
	channels, err := c.service.Channels.List([]string{"id"}).
		Mine(true).Context(ctx).Do()
	if err != nil {
		return "", c.classify(err)
	}
	if len(channels.Items) == 0 {
		return "", fmt.Errorf("no channel for authenticated user")
	}
	c.channelID = channels.Items[0].Id
	return c.channelID, nil
}

// ListUploads fetches every video on the user's uploads playlist, most
// recent first.
func (c *Client) ListUploads(ctx context.Context) ([]*platform.Video, error) {
	if err := c.rateLimiter.Wait(ctx, ratelimit.LimiterYouTube); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	channels, err := c.service.Channels.List([]string{"contentDetails"}).
		Mine(true).Context(ctx).Do()
	if err != nil {
		return nil, c.classify(err)
	}
	if len(channels.Items) == 0 {
		return nil, nil
	}

	playlistID := channels.Items[0].ContentDetails.RelatedPlaylists.Uploads

	var videoIDs []string
	pageToken := ""
	for {
		call := c.service.PlaylistItems.List([]string{"contentDetails"}).
			PlaylistId(playlistID).
			MaxResults(listPageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		page, err := call.Do()
		if err != nil {
			return nil, c.classify(err)
		}
		for _, item := range page.Items {
			videoIDs = append(videoIDs, item.ContentDetails.VideoId)
		}
		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	// videos.list accepts up to 50 IDs per call
	videos := make([]*platform.Video, 0, len(videoIDs))
	for start := 0; start < len(videoIDs); start += listPageSize {
		end := start + listPageSize
		if end > len(videoIDs) {
			end = len(videoIDs)
		}
		resp, err := c.service.Videos.List([]string{"snippet"}).
			Id(videoIDs[start:end]...).Context(ctx).Do()
		if err != nil {
			return nil, c.classify(err)
		}
		for _, v := range resp.Items {
			videos = append(videos, fromSnippet(v))
		}
	}

	c.log.Debug().Int("videos", len(videos)).Msg("Listed channel uploads")
	return videos, nil
}

// GetVideo fetches one video's metadata and statistics.
func (c *Client) GetVideo(ctx context.Context, videoID string) (*platform.Video, *platform.VideoStats, error) {
	if err := c.rateLimiter.Wait(ctx, ratelimit.LimiterYouTube); err != nil {
		return nil, nil, fmt.Errorf("rate limit error: %w", err)
	}

	resp, err := c.service.Videos.List([]string{"snippet", "statistics"}).
		Id(videoID).Context(ctx).Do()
	if err != nil {
		return nil, nil, c.classify(err)
	}
	if len(resp.Items) == 0 {
		return nil, nil, &platform.NotFoundError{VideoID: videoID}
	}

	item := resp.Items[0]
	stats := &platform.VideoStats{}
	if item.Statistics != nil {
		stats.Views = item.Statistics.ViewCount
		stats.Likes = item.Statistics.LikeCount
		stats.Comments = item.Statistics.CommentCount
	}
	return fromSnippet(item), stats, nil
}

// UpdateVideo overwrites the video's title, description and tags. The rest
// of the snippet is fetched first and preserved.
func (c *Client) UpdateVideo(ctx context.Context, videoID string, update platform.MetadataUpdate) error {
	if err := c.rateLimiter.Wait(ctx, ratelimit.LimiterYouTube); err != nil {
		return fmt.Errorf("rate limit error: %w", err)
	}

	resp, err := c.service.Videos.List([]string{"snippet"}).
		Id(videoID).Context(ctx).Do()
	if err != nil {
		return c.classify(err)
	}
	if len(resp.Items) == 0 {
		return &platform.NotFoundError{VideoID: videoID}
	}

	snippet := resp.Items[0].Snippet
	snippet.Title = update.Title
	snippet.Description = update.Description
	snippet.Tags = update.Tags

	_, err = c.service.Videos.Update([]string{"snippet"}, &youtube.Video{
		Id:      videoID,
		Snippet: snippet,
	}).Context(ctx).Do()
	if err != nil {
		return c.classify(err)
	}

	c.log.Info().Str("video_id", videoID).Str("title", update.Title).Msg("Video metadata updated")
	return nil
}

// SetThumbnail uploads a custom thumbnail for the video.
func (c *Client) SetThumbnail(ctx context.Context, videoID string, image []byte) error {
	if err := c.rateLimiter.Wait(ctx, ratelimit.LimiterYouTube); err != nil {
		return fmt.Errorf("rate limit error: %w", err)
	}

	_, err := c.service.Thumbnails.Set(videoID).
		Media(bytes.NewReader(image)).
		Context(ctx).Do()
	if err != nil {
		return c.classify(err)
	}

	c.log.Info().Str("video_id", videoID).Int("size_bytes", len(image)).Msg("Thumbnail uploaded")
	return nil
}

// GetAnalytics queries channel watch time, views and traffic sources over
// the given date range.
func (c *Client) GetAnalytics(ctx context.Context, start, end time.Time) (*platform.AnalyticsReport, error) {
	if err := c.rateLimiter.Wait(ctx, ratelimit.LimiterYouTube); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	report := &platform.AnalyticsReport{
		TrafficSources: make(map[string]int64),
		StartDate:      start,
		EndDate:        end,
	}

	totals, err := c.analytics.Reports.Query().
		Ids("channel==MINE").
		StartDate(start.Format("2006-01-02")).
		EndDate(end.Format("2006-01-02")).
		Metrics("views,estimatedMinutesWatched").
		Context(ctx).Do()
	if err != nil {
		return nil, c.classify(err)
	}
	if len(totals.Rows) > 0 && len(totals.Rows[0]) >= 2 {
		report.Views = toInt64(totals.Rows[0][0])
		report.WatchTimeMinutes = toInt64(totals.Rows[0][1])
	}

	traffic, err := c.analytics.Reports.Query().
		Ids("channel==MINE").
		StartDate(start.Format("2006-01-02")).
		EndDate(end.Format("2006-01-02")).
		Metrics("views").
		Dimensions("insightTrafficSourceType").
		Context(ctx).Do()
	if err != nil {
		return nil, c.classify(err)
	}
	for _, row := range traffic.Rows {
		if len(row) >= 2 {
			source, _ := row[0].(string)
			report.TrafficSources[source] = toInt64(row[1])
		}
	}

	return report, nil
}

// classify maps Google API errors onto the platform error taxonomy.
func (c *Client) classify(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.Code {
	case 401:
		return &platform.AuthError{UserID: c.userID, Err: err}
	case 403:
		for _, item := range apiErr.Errors {
			switch item.Reason {
			case "quotaExceeded", "rateLimitExceeded", "userRateLimitExceeded", "dailyLimitExceeded":
				return &platform.QuotaExceededError{Err: err}
			}
		}
		return &platform.AuthError{UserID: c.userID, Err: err}
	case 404:
		return &platform.NotFoundError{}
	}
	return err
}

func fromSnippet(v *youtube.Video) *platform.Video {
	publishedAt, _ := time.Parse(time.RFC3339, v.Snippet.PublishedAt)
	thumb := ""
	if v.Snippet.Thumbnails != nil && v.Snippet.Thumbnails.High != nil {
		thumb = v.Snippet.Thumbnails.High.Url
	}
	return &platform.Video{
		ID:          v.Id,
		Title:       v.Snippet.Title,
		Description: v.Snippet.Description,
		Tags:        v.Snippet.Tags,
		PublishedAt: publishedAt,
		CategoryID:  v.Snippet.CategoryId,
		Thumbnail:   thumb,
	}
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	}
	return 0
}
