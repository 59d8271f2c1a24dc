package models

import (
	"time"
)

// PendingReview is an unreviewed AI suggestion for a video's metadata.
// At most one row exists per (user, video); a fresh suggestion for the same
// video replaces the previous one. Approval and rejection both remove the
// row, so presence in this table means "awaiting review".
type PendingReview struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	UserID string `gorm:"uniqueIndex:idx_review_user_video;not null" json:"user_id"`
	VideoID string `gorm:"uniqueIndex:idx_review_user_video;not null" json:"video_id"`

	CurrentTitle       string      `gorm:"size:500" json:"current_title"`
	CurrentDescription string      `gorm:"type:text" json:"current_description"`
	CurrentTags        StringSlice `gorm:"type:json" json:"current_tags"`

	NewTitle       string      `gorm:"size:500" json:"new_title"`
	NewDescription string      `gorm:"type:text" json:"new_description"`
	NewTags        StringSlice `gorm:"type:json" json:"new_tags"`

	// ThumbnailPath points at a locally generated thumbnail to upload on
	// approval. Empty when no image was generated.
	ThumbnailPath string `json:"thumbnail_path"`

	// RawResponse preserves the provider's unparsed output when structured
	// parsing failed, so the reviewer can correct it by hand.
	RawResponse string `gorm:"type:text" json:"raw_response"`

	Provider  string    `gorm:"size:50" json:"provider"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// NeedsManualParse returns true if generation produced output the parser
// could not turn into a structured suggestion.
func (r *PendingReview) NeedsManualParse() bool {
	return r.RawResponse != "" && r.NewTitle == ""
}
