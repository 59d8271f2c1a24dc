package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/tubeseo-agent/internal/models"
	"github.com/tubeseo-agent/internal/storage"
)

// Repository implements storage.Repository using SQLite
type Repository struct {
	db *gorm.DB
}

// New creates a new SQLite repository
func New(dsn string) (*Repository, error) {
	// Ensure directory exists
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" && dsn != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Repository{db: db}, nil
}

// Migrate runs database migrations
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(
		&models.AutomationSettings{},
		&models.PendingReview{},
		&models.HistoryEntry{},
		&models.ProviderCredential{},
		&models.OAuthToken{},
	)
}

// Close closes the database connection
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Automation settings operations

func (r *Repository) SaveAutomationSettings(ctx context.Context, settings *models.AutomationSettings) error {
	if settings.ID != 0 {
		return r.db.WithContext(ctx).Save(settings).Error
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"active", "frequency_hours", "last_run", "next_run", "persona", "updated_at",
		}),
	}).Create(settings).Error
}

func (r *Repository) GetAutomationSettings(ctx context.Context, userID string) (*models.AutomationSettings, error) {
	var settings models.AutomationSettings
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&settings).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &settings, nil
}

func (r *Repository) ListActiveAutomations(ctx context.Context) ([]*models.AutomationSettings, error) {
	var settings []*models.AutomationSettings
	if err := r.db.WithContext(ctx).Where("active = ?", true).Find(&settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}

// Pending review operations

func (r *Repository) UpsertPendingReview(ctx context.Context, review *models.PendingReview) error {
	if review.ID != 0 {
		return r.db.WithContext(ctx).Save(review).Error
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "video_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"current_title", "current_description", "current_tags",
			"new_title", "new_description", "new_tags",
			"thumbnail_path", "raw_response", "provider", "updated_at",
		}),
	}).Create(review).Error
}

func (r *Repository) GetPendingReview(ctx context.Context, userID, videoID string) (*models.PendingReview, error) {
	var review models.PendingReview
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND video_id = ?", userID, videoID).
		First(&review).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &review, nil
}

func (r *Repository) ListPendingReviews(ctx context.Context, userID string) ([]*models.PendingReview, error) {
	var reviews []*models.PendingReview
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&reviews).Error
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *Repository) DeletePendingReview(ctx context.Context, userID, videoID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND video_id = ?", userID, videoID).
		Delete(&models.PendingReview{}).Error
}

// History operations

func (r *Repository) AppendHistory(ctx context.Context, entry *models.HistoryEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *Repository) ListHistory(ctx context.Context, userID string, filter storage.HistoryFilter) ([]*models.HistoryEntry, error) {
	var entries []*models.HistoryEntry
	query := r.db.WithContext(ctx).Model(&models.HistoryEntry{}).Where("user_id = ?", userID)

	if filter.VideoID != nil {
		query = query.Where("video_id = ?", *filter.VideoID)
	}
	if filter.ActionTaken != nil {
		query = query.Where("action_taken = ?", *filter.ActionTaken)
	}

	query = query.Order("created_at DESC")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *Repository) LatestHistoryByVideo(ctx context.Context, userID string) (map[string]time.Time, error) {
	// The sqlite driver returns aggregate expression columns as strings, so
	// MAX(created_at) cannot be scanned into a time.Time directly. Scanning
	// whole model rows keeps GORM's normal column conversion in play; the
	// ascending order makes the last write per video win.
	var entries []models.HistoryEntry
	err := r.db.WithContext(ctx).
		Select("video_id", "created_at").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	latest := make(map[string]time.Time)
	for _, e := range entries {
		latest[e.VideoID] = e.CreatedAt
	}
	return latest, nil
}

// Provider credential vault operations

func (r *Repository) SaveCredential(ctx context.Context, cred *models.ProviderCredential) error {
	if cred.ID != 0 {
		return r.db.WithContext(ctx).Save(cred).Error
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "provider"}},
		DoUpdates: clause.AssignmentColumns([]string{"api_key", "model", "updated_at"}),
	}).Create(cred).Error
}

func (r *Repository) GetCredentials(ctx context.Context, userID string) ([]*models.ProviderCredential, error) {
	var creds []*models.ProviderCredential
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&creds).Error; err != nil {
		return nil, err
	}
	return creds, nil
}

func (r *Repository) DeleteCredential(ctx context.Context, userID, provider string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		Delete(&models.ProviderCredential{}).Error
}

// OAuth token operations

func (r *Repository) SaveToken(ctx context.Context, token *models.OAuthToken) error {
	if token.ID != 0 {
		return r.db.WithContext(ctx).Save(token).Error
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token", "refresh_token", "token_type", "scope", "expires_at", "updated_at",
		}),
	}).Create(token).Error
}

func (r *Repository) GetToken(ctx context.Context, userID string) (*models.OAuthToken, error) {
	var token models.OAuthToken
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &token, nil
}

func (r *Repository) DeleteToken(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.OAuthToken{}).Error
}
