package mood

import (
	"time"

	"github.com/kalambet/feelbuddy/internal/feeling"
)

// Report bundles everything the analytics screen shows.
type Report struct {
	Stability      int             `json:"stability"`
	StabilityLabel string          `json:"stability_label"`
	DominantMood   string          `json:"dominant_mood"`
	ChartReady     bool            `json:"chart_ready"`
	Chart          []Point         `json:"chart"`
	RecentSwings   []feeling.Entry `json:"recent_swings"`
	TotalEntries   int             `json:"total_entries"`
}

// Summarize computes a Report over the full log. Nothing is cached; the
// report is recomputed on every call.
func Summarize(entries []feeling.Entry, loc *time.Location) Report {
	score := Stability(entries)
	return Report{
		Stability:      score,
		StabilityLabel: StabilityLabel(score),
		DominantMood:   DominantMood(entries),
		ChartReady:     ChartReady(entries),
		Chart:          ChartSeries(entries, loc),
		RecentSwings:   RecentSwings(entries, SwingsWindow),
		TotalEntries:   len(entries),
	}
}
