package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsDue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("inactive never due", func(t *testing.T) {
		s := &AutomationSettings{Active: false}
		assert.False(t, s.IsDue(now))
	})

	t.Run("active with no next run is due immediately", func(t *testing.T) {
		s := &AutomationSettings{Active: true}
		assert.True(t, s.IsDue(now))
	})

	t.Run("due exactly at next run", func(t *testing.T) {
		next := now
		s := &AutomationSettings{Active: true, NextRun: &next}
		assert.True(t, s.IsDue(now))
	})

	t.Run("not due before next run", func(t *testing.T) {
		next := now.Add(time.Minute)
		s := &AutomationSettings{Active: true, NextRun: &next}
		assert.False(t, s.IsDue(now))
	})
}

func TestMarkRun(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s := &AutomationSettings{Active: true, FrequencyHours: 24}
	s.MarkRun(now)

	assert.Equal(t, now, *s.LastRun)
	assert.Equal(t, now.Add(24*time.Hour), *s.NextRun)

	// A custom frequency shifts the next run accordingly.
	s.FrequencyHours = 6
	s.MarkRun(now)
	assert.Equal(t, now.Add(6*time.Hour), *s.NextRun)
}

func TestDisableClearsSchedule(t *testing.T) {
	now := time.Now()
	s := &AutomationSettings{Active: true, FrequencyHours: 24}
	s.MarkRun(now)

	s.Disable()

	assert.False(t, s.Active)
	assert.Nil(t, s.NextRun)
	assert.False(t, s.IsDue(now.Add(48*time.Hour)))
}
