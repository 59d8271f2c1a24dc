// Package optimizer drives the automated optimization cycle: picking due
// users, selecting a candidate video, generating a suggestion, and queueing
// it for review.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tubeseo-agent/internal/candidate"
	"github.com/tubeseo-agent/internal/generation"
	"github.com/tubeseo-agent/internal/history"
	"github.com/tubeseo-agent/internal/models"
	"github.com/tubeseo-agent/internal/platform"
	"github.com/tubeseo-agent/internal/review"
	"github.com/tubeseo-agent/internal/storage"
	"github.com/tubeseo-agent/pkg/logger"
)

// ChainBuilder constructs a user's text and image generation chains from
// their credential vault rows.
type ChainBuilder func(creds []*models.ProviderCredential) (text, image *generation.Chain)

// TitleFetcher provides recent upload titles for prompt context. May be nil.
type TitleFetcher interface {
	RecentTitles(ctx context.Context, channelID string, limit int) ([]string, error)
}

// Config holds scheduler policy. Every threshold here is deliberately
// configuration rather than a constant.
type Config struct {
	Policy candidate.Policy
	// CandidatesPerTick bounds how many videos are processed per user per
	// tick. One is the quota-conserving default.
	CandidatesPerTick int
	// CallTimeout bounds each generation call.
	CallTimeout time.Duration
	// GenerateThumbnails enables image generation for suggestions.
	GenerateThumbnails bool
	// MediaDir is where generated thumbnails are written.
	MediaDir string
	// RecentTitleCount is how many recent upload titles feed the prompt.
	RecentTitleCount int
}

// DefaultConfig returns the standard scheduler policy.
func DefaultConfig() Config {
	return Config{
		Policy:             candidate.DefaultPolicy(),
		CandidatesPerTick:  1,
		CallTimeout:        30 * time.Second,
		GenerateThumbnails: false,
		MediaDir:           "./data/media",
		RecentTitleCount:   10,
	}
}

// Agent is the automation scheduler.
type Agent struct {
	repo        storage.Repository
	factory     platform.Factory
	ledger      *history.Ledger
	queue       *review.Queue
	buildChains ChainBuilder
	titles      TitleFetcher
	config      Config
	log         *logger.Logger
}

// NewAgent creates an optimizer agent.
func NewAgent(
	repo storage.Repository,
	factory platform.Factory,
	ledger *history.Ledger,
	queue *review.Queue,
	buildChains ChainBuilder,
	titles TitleFetcher,
	config Config,
	log *logger.Logger,
) *Agent {
	return &Agent{
		repo:        repo,
		factory:     factory,
		ledger:      ledger,
		queue:       queue,
		buildChains: buildChains,
		titles:      titles,
		config:      config,
		log:         log.WithComponent("optimizer"),
	}
}

// TickResult summarizes one scheduler pass.
type TickResult struct {
	UsersDue          int
	UsersProcessed    int
	UsersSkipped      int
	SuggestionsQueued int
}

// Tick runs one scheduler pass at the given time. Users are processed
// sequentially; a user whose platform authentication fails, or who hits the
// platform quota, is skipped without being marked as run so the next tick
// retries them. Every successfully processed user is rescheduled whether or
// not a candidate was found.
func (a *Agent) Tick(ctx context.Context, now time.Time) (*TickResult, error) {
	result := &TickResult{}

	automations, err := a.repo.ListActiveAutomations(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list active automations: %w", err)
	}

	a.log.Info().Int("active", len(automations)).Msg("Scheduler tick")

	for _, settings := range automations {
		if !settings.IsDue(now) {
			continue
		}
		result.UsersDue++

		queued, err := a.processUser(ctx, now, settings)
		if err != nil {
			result.UsersSkipped++
			a.log.Warn().
				Err(err).
				Str("user_id", settings.UserID).
				Msg("User skipped this tick")
			continue
		}

		result.UsersProcessed++
		if queued {
			result.SuggestionsQueued++
		}
	}

	a.log.Info().
		Int("due", result.UsersDue).
		Int("processed", result.UsersProcessed).
		Int("skipped", result.UsersSkipped).
		Int("queued", result.SuggestionsQueued).
		Msg("Scheduler tick completed")

	return result, nil
}

// processUser runs one user's cycle. A returned error means the user was
// skipped and their schedule left untouched.
func (a *Agent) processUser(ctx context.Context, now time.Time, settings *models.AutomationSettings) (bool, error) {
	log := a.log.WithUserID(settings.UserID)

	client, err := a.factory.ForUser(ctx, settings.UserID)
	if err != nil {
		return false, err
	}

	videos, err := client.ListUploads(ctx)
	if err != nil {
		return false, err
	}

	latest, err := a.ledger.LatestFor(ctx, settings.UserID)
	if err != nil {
		return false, err
	}

	candidates := candidate.Select(now, videos, latest, a.config.Policy)
	log.Debug().
		Int("videos", len(videos)).
		Int("candidates", len(candidates)).
		Msg("Candidates selected")

	limit := a.config.CandidatesPerTick
	if limit <= 0 {
		limit = 1
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	queued := false
	for _, cand := range candidates {
		video := findVideo(videos, cand.VideoID)
		if video == nil {
			continue
		}
		if err := a.optimizeVideo(ctx, client, settings, video); err != nil {
			if platform.IsQuotaExceeded(err) || platform.IsAuth(err) {
				return false, err
			}
			// Generation failures do not block the reschedule; the video
			// stays eligible next cycle because no history was written.
			log.Error().
				Err(err).
				Str("video_id", cand.VideoID).
				Msg("Failed to generate suggestion")
			continue
		}
		queued = true
	}

	settings.MarkRun(now)
	if err := a.repo.SaveAutomationSettings(ctx, settings); err != nil {
		return queued, fmt.Errorf("failed to reschedule user: %w", err)
	}

	log.Info().
		Bool("suggestion_queued", queued).
		Time("next_run", *settings.NextRun).
		Msg("User cycle completed")

	return queued, nil
}

// OptimizeNow runs the generation pipeline for one explicitly chosen video,
// outside the automation schedule. The user's cooldown and age filters are
// deliberately not applied.
func (a *Agent) OptimizeNow(ctx context.Context, userID, videoID string) (*models.PendingReview, error) {
	client, err := a.factory.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	video, _, err := client.GetVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}

	settings, err := a.repo.GetAutomationSettings(ctx, userID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if settings == nil {
		settings = &models.AutomationSettings{UserID: userID}
	}

	if err := a.optimizeVideo(ctx, client, settings, video); err != nil {
		return nil, err
	}

	row, err := a.repo.GetPendingReview(ctx, userID, videoID)
	if err != nil {
		return nil, err
	}
	return row, nil
}

// optimizeVideo generates a suggestion for one video, queues it, and
// records the analysis in the ledger.
func (a *Agent) optimizeVideo(ctx context.Context, client platform.Client, settings *models.AutomationSettings, video *platform.Video) error {
	log := a.log.WithUserID(settings.UserID).WithVideoID(video.ID)

	creds, err := a.repo.GetCredentials(ctx, settings.UserID)
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}
	textChain, imageChain := a.buildChains(creds)

	prompt := generation.BuildSEOPrompt(generation.PromptInput{
		Title:        video.Title,
		Description:  video.Description,
		Tags:         video.Tags,
		Persona:      settings.Persona,
		RecentTitles: a.recentTitles(ctx, client),
	})

	genCtx, cancel := context.WithTimeout(ctx, a.config.CallTimeout)
	defer cancel()

	result, err := textChain.Generate(genCtx, generation.Request{Kind: generation.KindText, Prompt: prompt})
	if err != nil {
		return err
	}

	row := &models.PendingReview{
		UserID:             settings.UserID,
		VideoID:            video.ID,
		CurrentTitle:       video.Title,
		CurrentDescription: video.Description,
		CurrentTags:        video.Tags,
		Provider:           result.Provider,
	}

	suggestion, err := generation.ParseSuggestion(result.Text)
	if err != nil {
		var parseErr *generation.ParseError
		if !errors.As(err, &parseErr) {
			return err
		}
		// Unparseable output still reaches the reviewer, raw, instead of
		// being discarded.
		row.RawResponse = parseErr.Raw
		log.Warn().Err(err).Msg("Suggestion not parseable, queueing raw text")
	} else {
		row.NewTitle = suggestion.Title
		row.NewDescription = suggestion.Description
		row.NewTags = suggestion.Tags

		if a.config.GenerateThumbnails {
			if path, err := a.generateThumbnail(ctx, imageChain, settings.UserID, video.ID, suggestion.Title, settings.Persona); err != nil {
				log.Warn().Err(err).Msg("Thumbnail generation failed, continuing without")
			} else {
				row.ThumbnailPath = path
			}
		}
	}

	if err := a.queue.Insert(ctx, row); err != nil {
		return err
	}

	return a.ledger.Append(ctx, settings.UserID, video.ID, video.Title, models.ActionAnalyzed, models.JSON{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"provider":  result.Provider,
	})
}

func (a *Agent) generateThumbnail(ctx context.Context, imageChain *generation.Chain, userID, videoID, title, persona string) (string, error) {
	imgCtx, cancel := context.WithTimeout(ctx, a.config.CallTimeout)
	defer cancel()

	result, err := imageChain.Generate(imgCtx, generation.Request{
		Kind:   generation.KindImage,
		Prompt: generation.BuildThumbnailPrompt(title, persona),
	})
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(a.config.MediaDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create media dir: %w", err)
	}
	path := filepath.Join(a.config.MediaDir, fmt.Sprintf("%s_%s.png", userID, videoID))
	if err := os.WriteFile(path, result.Image, 0644); err != nil {
		return "", fmt.Errorf("failed to write thumbnail: %w", err)
	}
	return path, nil
}

func (a *Agent) recentTitles(ctx context.Context, client platform.Client) []string {
	if a.titles == nil || a.config.RecentTitleCount <= 0 {
		return nil
	}
	channelID, err := client.ChannelID(ctx)
	if err != nil {
		a.log.Debug().Err(err).Msg("Channel ID unavailable, skipping title context")
		return nil
	}
	titles, err := a.titles.RecentTitles(ctx, channelID, a.config.RecentTitleCount)
	if err != nil {
		a.log.Debug().Err(err).Msg("Channel feed unavailable, skipping title context")
		return nil
	}
	return titles
}

func findVideo(videos []*platform.Video, id string) *platform.Video {
	for _, v := range videos {
		if v.ID == id {
			return v
		}
	}
	return nil
}
