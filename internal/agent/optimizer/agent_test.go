package optimizer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tubeseo-agent/internal/candidate"
	"github.com/tubeseo-agent/internal/generation"
	"github.com/tubeseo-agent/internal/history"
	"github.com/tubeseo-agent/internal/models"
	"github.com/tubeseo-agent/internal/platform"
	"github.com/tubeseo-agent/internal/review"
	"github.com/tubeseo-agent/internal/storage"
	"github.com/tubeseo-agent/internal/storage/sqlite"
	"github.com/tubeseo-agent/pkg/logger"
)

type fakeClient struct {
	videos    []*platform.Video
	listErr   error
	updateErr error
}

func (c *fakeClient) ChannelID(ctx context.Context) (string, error) { return "chan-1", nil }

func (c *fakeClient) ListUploads(ctx context.Context) ([]*platform.Video, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.videos, nil
}

func (c *fakeClient) GetVideo(ctx context.Context, videoID string) (*platform.Video, *platform.VideoStats, error) {
	for _, v := range c.videos {
		if v.ID == videoID {
			return v, &platform.VideoStats{}, nil
		}
	}
	return nil, nil, &platform.NotFoundError{VideoID: videoID}
}

func (c *fakeClient) UpdateVideo(ctx context.Context, videoID string, update platform.MetadataUpdate) error {
	return c.updateErr
}

func (c *fakeClient) SetThumbnail(ctx context.Context, videoID string, image []byte) error {
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

// stubProvider returns a fixed response or error.
type stubProvider struct {
	response string
	err      error
	calls    int
}

func (p *stubProvider) Name() string    { return "stub" }
func (p *stubProvider) Priority() int   { return 1 }
func (p *stubProvider) Available() bool { return true }

func (p *stubProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}

func (p *stubProvider) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return []byte(p.response), nil
}

const goodResponse = `{"title":"Optimized Title","description":"Optimized description.","tags":["go","testing"]}`

type testEnv struct {
	agent *Agent
	repo  storage.Repository
}

func newTestEnv(t *testing.T, factory platform.Factory, text *stubProvider) *testEnv {
	t.Helper()

	repo, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, repo.Migrate())
	t.Cleanup(func() { repo.Close() })

	log := logger.New(logger.Config{Level: "error", Format: "json", Output: "stdout"})
	ledger := history.New(repo, log)
	queue := review.NewQueue(repo, factory, ledger, log)

	buildChains := func(creds []*models.ProviderCredential) (*generation.Chain, *generation.Chain) {
		return generation.NewChain([]generation.Provider{text}, 0, log),
			generation.NewChain(nil, 0, log)
	}

	agent := NewAgent(repo, factory, ledger, queue, buildChains, nil, Config{
		Policy:            candidate.DefaultPolicy(),
		CandidatesPerTick: 1,
		CallTimeout:       5 * time.Second,
	}, log)

	return &testEnv{agent: agent, repo: repo}
}

func enableAutomation(t *testing.T, repo storage.Repository, userID string, lastRun time.Time) *models.AutomationSettings {
	t.Helper()

	settings := &models.AutomationSettings{
		UserID:         userID,
		Active:         true,
		FrequencyHours: 24,
	}
	if !lastRun.IsZero() {
		settings.MarkRun(lastRun)
	}
	require.NoError(t, repo.SaveAutomationSettings(context.Background(), settings))
	return settings
}

func TestTickProcessesDueUser(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	client := &fakeClient{videos: []*platform.Video{
		{ID: "v1", Title: "Old Title", PublishedAt: now.Add(-48 * time.Hour)},
	}}
	env := newTestEnv(t, &fakeFactory{client: client}, &stubProvider{response: goodResponse})
	enableAutomation(t, env.repo, "u1", time.Time{})

	result, err := env.agent.Tick(ctx, now)
	require.NoError(t, err)

	assert.Equal(t, 1, result.UsersDue)
	assert.Equal(t, 1, result.UsersProcessed)
	assert.Equal(t, 1, result.SuggestionsQueued)

	// Suggestion queued for review.
	row, err := env.repo.GetPendingReview(ctx, "u1", "v1")
	require.NoError(t, err)
	assert.Equal(t, "Optimized Title", row.NewTitle)
	assert.Equal(t, "Old Title", row.CurrentTitle)

	// Analysis recorded in the ledger.
	entries, err := env.repo.ListHistory(ctx, "u1", storage.DefaultHistoryFilter())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.ActionAnalyzed, entries[0].ActionTaken)

	// User rescheduled a full frequency out.
	settings, err := env.repo.GetAutomationSettings(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, settings.NextRun)
	assert.WithinDuration(t, now.Add(24*time.Hour), *settings.NextRun, time.Second)
}

func TestTickSkipsUserNotYetDue(t *testing.T) {
	ctx := context.Background()
	lastRun := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	client := &fakeClient{videos: []*platform.Video{
		{ID: "v1", Title: "Old Title", PublishedAt: lastRun.Add(-96 * time.Hour)},
	}}
	env := newTestEnv(t, &fakeFactory{client: client}, &stubProvider{response: goodResponse})
	enableAutomation(t, env.repo, "u1", lastRun)

	// One hour after the last run: not due yet.
	result, err := env.agent.Tick(ctx, lastRun.Add(time.Hour))
	require.NoError(t, err)

	assert.Zero(t, result.UsersDue)
	assert.Zero(t, result.SuggestionsQueued)

	settings, err := env.repo.GetAutomationSettings(ctx, "u1")
	require.NoError(t, err)
	assert.WithinDuration(t, lastRun.Add(24*time.Hour), *settings.NextRun, time.Second)

	// Twenty-five hours after the last run: due, processed, rescheduled.
	later := lastRun.Add(25 * time.Hour)
	result, err = env.agent.Tick(ctx, later)
	require.NoError(t, err)

	assert.Equal(t, 1, result.UsersProcessed)

	settings, err = env.repo.GetAutomationSettings(ctx, "u1")
	require.NoError(t, err)
	assert.WithinDuration(t, later.Add(24*time.Hour), *settings.NextRun, time.Second)
}

func TestTickAuthFailureSkipsWithoutReschedule(t *testing.T) {
	ctx := context.Background()
	lastRun := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	now := lastRun.Add(25 * time.Hour)

	factory := &fakeFactory{err: &platform.AuthError{UserID: "u1", Err: errors.New("token revoked")}}
	env := newTestEnv(t, factory, &stubProvider{response: goodResponse})
	enableAutomation(t, env.repo, "u1", lastRun)

	result, err := env.agent.Tick(ctx, now)
	require.NoError(t, err)

	assert.Equal(t, 1, result.UsersDue)
	assert.Equal(t, 1, result.UsersSkipped)
	assert.Zero(t, result.UsersProcessed)

	// Schedule untouched so the next tick retries immediately.
	settings, err := env.repo.GetAutomationSettings(ctx, "u1")
	require.NoError(t, err)
	assert.WithinDuration(t, lastRun.Add(24*time.Hour), *settings.NextRun, time.Second)
}

func TestTickQuotaFailureSkipsWithoutReschedule(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	client := &fakeClient{listErr: &platform.QuotaExceededError{Err: errors.New("daily limit")}}
	env := newTestEnv(t, &fakeFactory{client: client}, &stubProvider{response: goodResponse})
	enableAutomation(t, env.repo, "u1", time.Time{})

	result, err := env.agent.Tick(ctx, now)
	require.NoError(t, err)

	assert.Equal(t, 1, result.UsersSkipped)

	settings, err := env.repo.GetAutomationSettings(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, settings.NextRun)
}

func TestTickNoCandidatesStillReschedules(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	// Only a too-young video: nothing to optimize.
	client := &fakeClient{videos: []*platform.Video{
		{ID: "v1", Title: "Fresh Upload", PublishedAt: now.Add(-2 * time.Hour)},
	}}
	env := newTestEnv(t, &fakeFactory{client: client}, &stubProvider{response: goodResponse})
	enableAutomation(t, env.repo, "u1", time.Time{})

	result, err := env.agent.Tick(ctx, now)
	require.NoError(t, err)

	assert.Equal(t, 1, result.UsersProcessed)
	assert.Zero(t, result.SuggestionsQueued)

	settings, err := env.repo.GetAutomationSettings(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, settings.NextRun)
	assert.WithinDuration(t, now.Add(24*time.Hour), *settings.NextRun, time.Second)
}

func TestTickProcessesOneVideoPerCycle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	client := &fakeClient{videos: []*platform.Video{
		{ID: "v1", Title: "First", PublishedAt: now.Add(-48 * time.Hour)},
		{ID: "v2", Title: "Second", PublishedAt: now.Add(-72 * time.Hour)},
	}}
	text := &stubProvider{response: goodResponse}
	env := newTestEnv(t, &fakeFactory{client: client}, text)
	enableAutomation(t, env.repo, "u1", time.Time{})

	result, err := env.agent.Tick(ctx, now)
	require.NoError(t, err)

	assert.Equal(t, 1, result.SuggestionsQueued)
	assert.Equal(t, 1, text.calls)

	// Only the first (most recent eligible) video was touched.
	_, err = env.repo.GetPendingReview(ctx, "u1", "v1")
	assert.NoError(t, err)
	_, err = env.repo.GetPendingReview(ctx, "u1", "v2")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTickCooldownSkipsRecentlyAnalyzed(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	client := &fakeClient{videos: []*platform.Video{
		{ID: "v1", Title: "First", PublishedAt: now.Add(-48 * time.Hour)},
	}}
	text := &stubProvider{response: goodResponse}
	env := newTestEnv(t, &fakeFactory{client: client}, text)
	enableAutomation(t, env.repo, "u1", time.Time{})

	_, err := env.agent.Tick(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 1, text.calls)

	// Force the user due again within the cooldown window.
	settings, err := env.repo.GetAutomationSettings(ctx, "u1")
	require.NoError(t, err)
	settings.NextRun = nil
	settings.Active = true
	require.NoError(t, env.repo.SaveAutomationSettings(ctx, settings))

	result, err := env.agent.Tick(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)

	// The user runs cleanly; the only video is cooling down, so nothing
	// new is generated.
	assert.Equal(t, 1, result.UsersProcessed)
	assert.Zero(t, result.UsersSkipped)
	assert.Zero(t, result.SuggestionsQueued)
	assert.Equal(t, 1, text.calls)
}

func TestTickUnparseableResponseQueuedRaw(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	client := &fakeClient{videos: []*platform.Video{
		{ID: "v1", Title: "Old Title", PublishedAt: now.Add(-48 * time.Hour)},
	}}
	env := newTestEnv(t, &fakeFactory{client: client}, &stubProvider{response: "not json at all"})
	enableAutomation(t, env.repo, "u1", time.Time{})

	result, err := env.agent.Tick(ctx, now)
	require.NoError(t, err)

	assert.Equal(t, 1, result.SuggestionsQueued)

	row, err := env.repo.GetPendingReview(ctx, "u1", "v1")
	require.NoError(t, err)
	assert.True(t, row.NeedsManualParse())
	assert.Equal(t, "not json at all", row.RawResponse)
	assert.Empty(t, row.NewTitle)
}

func TestTickGenerationFailureStillReschedules(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	client := &fakeClient{videos: []*platform.Video{
		{ID: "v1", Title: "Old Title", PublishedAt: now.Add(-48 * time.Hour)},
	}}
	provider := &stubProvider{err: &generation.ProviderError{Provider: "stub", Err: errors.New("down")}}
	env := newTestEnv(t, &fakeFactory{client: client}, provider)
	enableAutomation(t, env.repo, "u1", time.Time{})

	result, err := env.agent.Tick(ctx, now)
	require.NoError(t, err)

	assert.Equal(t, 1, result.UsersProcessed)
	assert.Zero(t, result.SuggestionsQueued)

	// No row, no history: the video stays eligible next cycle.
	_, err = env.repo.GetPendingReview(ctx, "u1", "v1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	entries, err := env.repo.ListHistory(ctx, "u1", storage.DefaultHistoryFilter())
	require.NoError(t, err)
	assert.Empty(t, entries)

	// But the user was rescheduled, not retried immediately.
	settings, err := env.repo.GetAutomationSettings(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, settings.NextRun)
}

func TestTickIgnoresInactiveUsers(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	env := newTestEnv(t, &fakeFactory{client: &fakeClient{}}, &stubProvider{response: goodResponse})

	settings := &models.AutomationSettings{UserID: "u1", Active: false, FrequencyHours: 24}
	require.NoError(t, env.repo.SaveAutomationSettings(ctx, settings))

	result, err := env.agent.Tick(ctx, now)
	require.NoError(t, err)

	assert.Zero(t, result.UsersDue)
}

func TestOptimizeNowBypassesFilters(t *testing.T) {
	ctx := context.Background()

	// A brand-new video: the scheduler would never pick it.
	client := &fakeClient{videos: []*platform.Video{
		{ID: "v1", Title: "Just Uploaded", PublishedAt: time.Now().Add(-10 * time.Minute)},
	}}
	env := newTestEnv(t, &fakeFactory{client: client}, &stubProvider{response: goodResponse})

	row, err := env.agent.OptimizeNow(ctx, "u1", "v1")
	require.NoError(t, err)

	assert.Equal(t, "Optimized Title", row.NewTitle)
	assert.Equal(t, "Just Uploaded", row.CurrentTitle)

	entries, err := env.repo.ListHistory(ctx, "u1", storage.DefaultHistoryFilter())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.ActionAnalyzed, entries[0].ActionTaken)

	// Manual runs never touch the automation schedule.
	_, err = env.repo.GetAutomationSettings(ctx, "u1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestOptimizeNowUnknownVideo(t *testing.T) {
	ctx := context.Background()

	env := newTestEnv(t, &fakeFactory{client: &fakeClient{}}, &stubProvider{response: goodResponse})

	_, err := env.agent.OptimizeNow(ctx, "u1", "missing")
	require.True(t, platform.IsNotFound(err))
}
