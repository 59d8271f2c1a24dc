package models

import (
	"time"
)

// AutomationSettings controls whether and how often the scheduler optimizes
// a user's channel. One row per user.
type AutomationSettings struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         string     `gorm:"uniqueIndex;not null" json:"user_id"`
	Active         bool       `gorm:"default:false" json:"active"`
	FrequencyHours int        `gorm:"default:24" json:"frequency_hours"`
	LastRun        *time.Time `json:"last_run"`
	NextRun        *time.Time `gorm:"index" json:"next_run"`
	// Persona holds free-text channel-style instructions injected into
	// generation prompts.
	Persona   string    `gorm:"type:text" json:"persona"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsDue returns true if an active automation should run at the given time.
// An unset NextRun means the user has never been processed and is due.
func (s *AutomationSettings) IsDue(now time.Time) bool {
	if !s.Active {
		return false
	}
	if s.NextRun == nil {
		return true
	}
	return !now.Before(*s.NextRun)
}

// MarkRun records a completed cycle and schedules the next one.
func (s *AutomationSettings) MarkRun(now time.Time) {
	next := now.Add(time.Duration(s.FrequencyHours) * time.Hour)
	s.LastRun = &now
	s.NextRun = &next
}

// Disable deactivates the automation. NextRun is cleared so no further
// ticks are scheduled for the user.
func (s *AutomationSettings) Disable() {
	s.Active = false
	s.NextRun = nil
}
