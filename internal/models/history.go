package models

import (
	"time"
)

// Actions recorded in the optimization history.
const (
	// ActionAnalyzed marks that a suggestion was generated and queued for
	// review. It is what enforces the per-video cooldown.
	ActionAnalyzed = "analyzed"
	// ActionOptimized marks that an approved suggestion was applied on the
	// platform.
	ActionOptimized = "optimized"
)

// HistoryEntry is one event in the per-user optimization ledger. Entries are
// append-only; they are never updated or deleted. The latest entry per
// (user, video) drives candidate cooldown.
type HistoryEntry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      string    `gorm:"index:idx_history_user_video;not null" json:"user_id"`
	VideoID     string    `gorm:"index:idx_history_user_video;not null" json:"video_id"`
	VideoTitle  string    `gorm:"size:500" json:"video_title"`
	ActionTaken string    `gorm:"size:50;not null" json:"action_taken"`
	Details     JSON      `gorm:"type:json" json:"details"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
