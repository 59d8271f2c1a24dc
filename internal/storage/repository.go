package storage

import (
	"context"
	"errors"
	"time"

	"github.com/tubeseo-agent/internal/models"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Repository defines the interface for data persistence
type Repository interface {
	// Automation settings operations
	SaveAutomationSettings(ctx context.Context, settings *models.AutomationSettings) error
	GetAutomationSettings(ctx context.Context, userID string) (*models.AutomationSettings, error)
	ListActiveAutomations(ctx context.Context) ([]*models.AutomationSettings, error)

	// Pending review operations. Upsert replaces any existing row for the
	// same (user, video).
	UpsertPendingReview(ctx context.Context, review *models.PendingReview) error
	GetPendingReview(ctx context.Context, userID, videoID string) (*models.PendingReview, error)
	ListPendingReviews(ctx context.Context, userID string) ([]*models.PendingReview, error)
	DeletePendingReview(ctx context.Context, userID, videoID string) error

	// History operations. AppendHistory never rejects duplicates; the
	// history is an event log, not a set.
	AppendHistory(ctx context.Context, entry *models.HistoryEntry) error
	ListHistory(ctx context.Context, userID string, filter HistoryFilter) ([]*models.HistoryEntry, error)
	LatestHistoryByVideo(ctx context.Context, userID string) (map[string]time.Time, error)

	// Provider credential vault operations
	SaveCredential(ctx context.Context, cred *models.ProviderCredential) error
	GetCredentials(ctx context.Context, userID string) ([]*models.ProviderCredential, error)
	DeleteCredential(ctx context.Context, userID, provider string) error

	// OAuth token operations
	SaveToken(ctx context.Context, token *models.OAuthToken) error
	GetToken(ctx context.Context, userID string) (*models.OAuthToken, error)
	DeleteToken(ctx context.Context, userID string) error

	// Maintenance
	Close() error
	Migrate() error
}

// HistoryFilter defines filtering options for history entries
type HistoryFilter struct {
	VideoID     *string
	ActionTaken *string
	Limit       int
	Offset      int
}

// DefaultHistoryFilter returns a filter with sensible defaults
func DefaultHistoryFilter() HistoryFilter {
	return HistoryFilter{
		Limit: 50,
	}
}
