package models

import (
	"time"
)

// Known generation providers. The vault stores one credential per
// (user, provider); providers a user has no credential for are simply
// unavailable in that user's fallback chain.
const (
	ProviderAnthropic    = "anthropic"
	ProviderGemini       = "gemini"
	ProviderOpenAI       = "openai"
	ProviderHuggingFace  = "huggingface"
	ProviderPollinations = "pollinations"
)

// ProviderCredential is one entry in the per-user API-key vault.
type ProviderCredential struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	UserID   string `gorm:"uniqueIndex:idx_cred_user_provider;not null" json:"user_id"`
	Provider string `gorm:"uniqueIndex:idx_cred_user_provider;not null;size:50" json:"provider"`
	APIKey   string `gorm:"type:text" json:"-"`
	// Model overrides the provider's default model when set.
	Model     string    `gorm:"size:100" json:"model"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
