// Package review holds AI metadata suggestions until a human approves or
// rejects them.
package review

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/tubeseo-agent/internal/history"
	"github.com/tubeseo-agent/internal/models"
	"github.com/tubeseo-agent/internal/platform"
	"github.com/tubeseo-agent/internal/storage"
	"github.com/tubeseo-agent/pkg/logger"
)

// ErrNotFound is returned when no pending review exists for the requested
// (user, video).
var ErrNotFound = errors.New("pending review not found")

// Queue is the pending-review state machine. A suggestion is pending while
// its row exists; Approve and Reject both remove the row, so there is no
// third state.
type Queue struct {
	repo    storage.Repository
	factory platform.Factory
	ledger  *history.Ledger
	log     *logger.Logger
}

// NewQueue creates a review queue.
func NewQueue(repo storage.Repository, factory platform.Factory, ledger *history.Ledger, log *logger.Logger) *Queue {
	return &Queue{
		repo:    repo,
		factory: factory,
		ledger:  ledger,
		log:     log.WithComponent("review"),
	}
}

// Insert queues a suggestion for review. A suggestion already pending for
// the same (user, video) is silently replaced; insertion never fails on a
// duplicate.
func (q *Queue) Insert(ctx context.Context, reviewRow *models.PendingReview) error {
	if err := q.repo.UpsertPendingReview(ctx, reviewRow); err != nil {
		return fmt.Errorf("failed to queue review: %w", err)
	}

	q.log.Info().
		Str("user_id", reviewRow.UserID).
		Str("video_id", reviewRow.VideoID).
		Str("provider", reviewRow.Provider).
		Msg("Suggestion queued for review")
	return nil
}

// List returns the user's pending reviews, oldest first.
func (q *Queue) List(ctx context.Context, userID string) ([]*models.PendingReview, error) {
	return q.repo.ListPendingReviews(ctx, userID)
}

// Get returns one pending review.
func (q *Queue) Get(ctx context.Context, userID, videoID string) (*models.PendingReview, error) {
	row, err := q.repo.GetPendingReview(ctx, userID, videoID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
		}
		return nil, err
	}
	return row, nil
}

// Edits carries reviewer changes applied on approval. Empty fields fall
// back to the stored suggestion.
type Edits struct {
	Title       string
	Description string
	Tags        []string
}

// Approve applies the (possibly edited) suggestion to the platform, records
// the optimization in the history ledger, and removes the pending row, in
// that order. If the platform update fails, the row stays and no history is
// written, so the operation can be retried safely.
func (q *Queue) Approve(ctx context.Context, userID, videoID string, edits *Edits) error {
	row, err := q.Get(ctx, userID, videoID)
	if err != nil {
		return err
	}

	update := platform.MetadataUpdate{
		Title:       row.NewTitle,
		Description: row.NewDescription,
		Tags:        row.NewTags,
	}
	if edits != nil {
		if edits.Title != "" {
			update.Title = edits.Title
		}
		if edits.Description != "" {
			update.Description = edits.Description
		}
		if len(edits.Tags) > 0 {
			update.Tags = edits.Tags
		}
	}

	client, err := q.factory.ForUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := client.UpdateVideo(ctx, videoID, update); err != nil {
		return fmt.Errorf("platform update failed: %w", err)
	}

	// The metadata is live from here on. The thumbnail is best-effort: a
	// failed upload must not leave the row pending, or a retry would
	// re-apply the metadata.
	if row.ThumbnailPath != "" {
		if image, err := os.ReadFile(row.ThumbnailPath); err != nil {
			q.log.Warn().Err(err).Str("video_id", videoID).Msg("Failed to read thumbnail, skipping upload")
		} else if err := client.SetThumbnail(ctx, videoID, image); err != nil {
			q.log.Warn().Err(err).Str("video_id", videoID).Msg("Thumbnail upload failed")
		}
	}

	if err := q.ledger.Append(ctx, userID, videoID, update.Title, models.ActionOptimized, models.JSON{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		// Row intentionally kept: retrying surfaces the missed history
		// write instead of swallowing an "applied but still pending" state.
		return err
	}

	if err := q.repo.DeletePendingReview(ctx, userID, videoID); err != nil {
		return fmt.Errorf("failed to remove pending review: %w", err)
	}

	q.log.Info().
		Str("user_id", userID).
		Str("video_id", videoID).
		Str("title", update.Title).
		Msg("Suggestion approved and applied")
	return nil
}

// Reject discards the suggestion. No history entry is written: a rejected
// video stays immediately eligible for future selection.
func (q *Queue) Reject(ctx context.Context, userID, videoID string) error {
	if _, err := q.Get(ctx, userID, videoID); err != nil {
		return err
	}

	if err := q.repo.DeletePendingReview(ctx, userID, videoID); err != nil {
		return fmt.Errorf("failed to remove pending review: %w", err)
	}

	q.log.Info().
		Str("user_id", userID).
		Str("video_id", videoID).
		Msg("Suggestion rejected")
	return nil
}
