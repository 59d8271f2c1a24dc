package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tubeseo-agent/internal/history"
	"github.com/tubeseo-agent/internal/models"
	"github.com/tubeseo-agent/internal/platform"
	"github.com/tubeseo-agent/internal/storage"
	"github.com/tubeseo-agent/internal/storage/sqlite"
	"github.com/tubeseo-agent/pkg/logger"
)

// fakeClient scripts platform behavior for approval tests.
type fakeClient struct {
	updateErr    error
	thumbnailErr error

	updates    []platform.MetadataUpdate
	thumbnails [][]byte
}

func (c *fakeClient) ChannelID(ctx context.Context) (string, error) { return "chan-1", nil }

func (c *fakeClient) ListUploads(ctx context.Context) ([]*platform.Video, error) { return nil, nil }

func (c *fakeClient) GetVideo(ctx context.Context, videoID string) (*platform.Video, *platform.VideoStats, error) {
	return &platform.Video{ID: videoID}, &platform.VideoStats{}, nil
}

func (c *fakeClient) UpdateVideo(ctx context.Context, videoID string, update platform.MetadataUpdate) error {
	if c.updateErr != nil {
		return c.updateErr
	}
	c.updates = append(c.updates, update)
	return nil
}

func (c *fakeClient) SetThumbnail(ctx context.Context, videoID string, image []byte) error {
	if c.thumbnailErr != nil {
		return c.thumbnailErr
	}
	c.thumbnails = append(c.thumbnails, image)
	return nil
}

func (c *fakeClient) GetAnalytics(ctx context.Context, start, end time.Time) (*platform.AnalyticsReport, error) {
	return &platform.AnalyticsReport{}, nil
}

type fakeFactory struct {
	client *fakeClient
	err    error
}

func (f *fakeFactory) ForUser(ctx context.Context, userID string) (platform.Client, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.client, nil
}

func newTestQueue(t *testing.T, factory platform.Factory) (*Queue, storage.Repository) {
	t.Helper()

	repo, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, repo.Migrate())
	t.Cleanup(func() { repo.Close() })

	log := logger.New(logger.Config{Level: "error", Format: "json", Output: "stdout"})
	return NewQueue(repo, factory, history.New(repo, log), log), repo
}

func pendingRow(userID, videoID string) *models.PendingReview {
	return &models.PendingReview{
		UserID:             userID,
		VideoID:            videoID,
		CurrentTitle:       "old title",
		CurrentDescription: "old description",
		CurrentTags:        models.StringSlice{"old"},
		NewTitle:           "new title",
		NewDescription:     "new description",
		NewTags:            models.StringSlice{"new", "tags"},
		Provider:           "gemini",
	}
}

func TestInsertReplacesExistingSuggestion(t *testing.T) {
	ctx := context.Background()
	queue, _ := newTestQueue(t, &fakeFactory{client: &fakeClient{}})

	require.NoError(t, queue.Insert(ctx, pendingRow("u1", "v1")))

	second := pendingRow("u1", "v1")
	second.NewTitle = "revised title"
	require.NoError(t, queue.Insert(ctx, second))

	rows, err := queue.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "revised title", rows[0].NewTitle)
}

func TestGetNotFound(t *testing.T) {
	ctx := context.Background()
	queue, _ := newTestQueue(t, &fakeFactory{client: &fakeClient{}})

	_, err := queue.Get(ctx, "u1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApproveAppliesAndClears(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	queue, repo := newTestQueue(t, &fakeFactory{client: client})

	require.NoError(t, queue.Insert(ctx, pendingRow("u1", "v1")))
	require.NoError(t, queue.Approve(ctx, "u1", "v1", nil))

	// Metadata applied as suggested.
	require.Len(t, client.updates, 1)
	assert.Equal(t, "new title", client.updates[0].Title)
	assert.Equal(t, []string{"new", "tags"}, client.updates[0].Tags)

	// Row gone, optimization recorded.
	_, err := queue.Get(ctx, "u1", "v1")
	assert.ErrorIs(t, err, ErrNotFound)

	entries, err := repo.ListHistory(ctx, "u1", storage.DefaultHistoryFilter())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.ActionOptimized, entries[0].ActionTaken)
}

func TestApproveWithEdits(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	queue, _ := newTestQueue(t, &fakeFactory{client: client})

	require.NoError(t, queue.Insert(ctx, pendingRow("u1", "v1")))
	require.NoError(t, queue.Approve(ctx, "u1", "v1", &Edits{Title: "edited title"}))

	require.Len(t, client.updates, 1)
	assert.Equal(t, "edited title", client.updates[0].Title)
	// Unedited fields fall back to the stored suggestion.
	assert.Equal(t, "new description", client.updates[0].Description)
}

func TestApprovePlatformFailureKeepsRow(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{updateErr: errors.New("api down")}
	queue, repo := newTestQueue(t, &fakeFactory{client: client})

	require.NoError(t, queue.Insert(ctx, pendingRow("u1", "v1")))

	err := queue.Approve(ctx, "u1", "v1", nil)
	require.Error(t, err)

	// The row survives for a retry and no history was written.
	row, err := queue.Get(ctx, "u1", "v1")
	require.NoError(t, err)
	assert.Equal(t, "new title", row.NewTitle)

	entries, err := repo.ListHistory(ctx, "u1", storage.DefaultHistoryFilter())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestApproveAuthFailureKeepsRow(t *testing.T) {
	ctx := context.Background()
	factory := &fakeFactory{err: &platform.AuthError{UserID: "u1", Err: errors.New("token revoked")}}
	queue, _ := newTestQueue(t, factory)

	require.NoError(t, queue.Insert(ctx, pendingRow("u1", "v1")))

	err := queue.Approve(ctx, "u1", "v1", nil)
	require.True(t, platform.IsAuth(err))

	_, err = queue.Get(ctx, "u1", "v1")
	assert.NoError(t, err)
}

func TestApproveNotFound(t *testing.T) {
	ctx := context.Background()
	queue, _ := newTestQueue(t, &fakeFactory{client: &fakeClient{}})

	err := queue.Approve(ctx, "u1", "missing", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRejectDiscardsWithoutHistory(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	queue, repo := newTestQueue(t, &fakeFactory{client: client})

	require.NoError(t, queue.Insert(ctx, pendingRow("u1", "v1")))
	require.NoError(t, queue.Reject(ctx, "u1", "v1"))

	_, err := queue.Get(ctx, "u1", "v1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Rejection leaves no trace: the video stays immediately eligible.
	entries, err := repo.ListHistory(ctx, "u1", storage.DefaultHistoryFilter())
	require.NoError(t, err)
	assert.Empty(t, entries)

	// And the platform was never touched.
	assert.Empty(t, client.updates)
}

func TestRejectNotFound(t *testing.T) {
	ctx := context.Background()
	queue, _ := newTestQueue(t, &fakeFactory{client: &fakeClient{}})

	err := queue.Reject(ctx, "u1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
