// Package candidate picks which videos are eligible for optimization in a
// scheduling cycle.
package candidate

import (
	"time"

	"github.com/tubeseo-agent/internal/platform"
)

// Policy holds the selection thresholds.
type Policy struct {
	// MinAge excludes videos published too recently; early metrics are
	// noise and the upload may still be settling.
	MinAge time.Duration
	// Cooldown excludes videos whose latest history entry is too fresh.
	Cooldown time.Duration
	// CTRThreshold is reserved for a low-performer selection mode. It takes
	// effect only once the platform exposes bulk CTR data; today selection
	// is purely age + cooldown.
	CTRThreshold float64
}

// DefaultPolicy returns the standard thresholds.
func DefaultPolicy() Policy {
	return Policy{
		MinAge:   24 * time.Hour,
		Cooldown: 24 * time.Hour,
	}
}

// Candidate is a video eligible for optimization this cycle. Candidates are
// transient; they are produced fresh each cycle and never stored.
type Candidate struct {
	VideoID     string
	Title       string
	PublishedAt time.Time
}

// Select filters the user's videos down to the ordered set eligible for
// optimization. Input order (the platform's most-recent-first order) is
// preserved. latest maps video ID to the most recent history timestamp.
// This is a pure filter: no I/O.
func Select(now time.Time, videos []*platform.Video, latest map[string]time.Time, policy Policy) []Candidate {
	candidates := make([]Candidate, 0, len(videos))
	for _, v := range videos {
		if now.Sub(v.PublishedAt) < policy.MinAge {
			continue
		}
		if touched, ok := latest[v.ID]; ok && now.Sub(touched) < policy.Cooldown {
			continue
		}
		candidates = append(candidates, Candidate{
			VideoID:     v.ID,
			Title:       v.Title,
			PublishedAt: v.PublishedAt,
		})
	}
	return candidates
}
