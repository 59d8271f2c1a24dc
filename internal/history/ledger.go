// Package history implements the append-only per-user optimization ledger.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/tubeseo-agent/internal/models"
	"github.com/tubeseo-agent/internal/storage"
	"github.com/tubeseo-agent/pkg/logger"
)

// Ledger records per-video actions and answers "when was this video last
// touched". Entries are never mutated or deleted; a duplicate append is a
// new event, not an error.
type Ledger struct {
	repo storage.Repository
	log  *logger.Logger
}

// New creates a ledger over the repository.
func New(repo storage.Repository, log *logger.Logger) *Ledger {
	return &Ledger{
		repo: repo,
		log:  log.WithComponent("history"),
	}
}

// Append records an action for a video. It fails only on storage
// unavailability; the caller decides whether to retry or surface.
func (l *Ledger) Append(ctx context.Context, userID, videoID, videoTitle, action string, details models.JSON) error {
	entry := &models.HistoryEntry{
		UserID:      userID,
		VideoID:     videoID,
		VideoTitle:  videoTitle,
		ActionTaken: action,
		Details:     details,
	}
	if err := l.repo.AppendHistory(ctx, entry); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}

	l.log.Debug().
		Str("user_id", userID).
		Str("video_id", videoID).
		Str("action", action).
		Msg("History entry appended")
	return nil
}

// LatestFor returns, for every video with at least one entry, the most
// recent entry's timestamp. Used for cooldown checks only.
func (l *Ledger) LatestFor(ctx context.Context, userID string) (map[string]time.Time, error) {
	return l.repo.LatestHistoryByVideo(ctx, userID)
}

// List returns the user's history, newest first.
func (l *Ledger) List(ctx context.Context, userID string, filter storage.HistoryFilter) ([]*models.HistoryEntry, error) {
	return l.repo.ListHistory(ctx, userID, filter)
}
