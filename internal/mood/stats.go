// Package mood derives analytics from the feeling log. Every function is
// total: empty and near-empty logs produce defined sentinel values.
package mood

import (
	"math"
	"time"

	"github.com/kalambet/feelbuddy/internal/feeling"
)

const (
	// NeutralMood is reported as the dominant mood of an empty log.
	NeutralMood = "Neutral"

	// ChartWindow is the number of most recent entries plotted.
	ChartWindow = 10

	// SwingsWindow is the number of entries listed under recent swings.
	SwingsWindow = 5

	// varianceScale maps the maximum variance of a 1..5 scale (4) to zero.
	varianceScale = 20
)

// Stability scores how steady intensities have been across the whole log,
// from 0 (wild swings) to 100 (flat). It is a heuristic: 100 minus twenty
// times the population variance, clamped and rounded.
func Stability(entries []feeling.Entry) int {
	if len(entries) < 2 {
		return 100
	}

	var sum float64
	for _, e := range entries {
		sum += float64(e.Intensity)
	}
	mean := sum / float64(len(entries))

	var sq float64
	for _, e := range entries {
		d := float64(e.Intensity) - mean
		sq += d * d
	}
	variance := sq / float64(len(entries))

	score := 100 - variance*varianceScale
	score = math.Max(0, math.Min(100, score))
	return int(math.Round(score))
}

// StabilityLabel describes a stability score for display.
func StabilityLabel(score int) string {
	switch {
	case score > 80:
		return "Very Balanced"
	case score > 50:
		return "Fluctuating"
	default:
		return "High Swings"
	}
}

// DominantMood returns the most frequently logged type over the entire
// history. On a tie the type that appeared first wins.
func DominantMood(entries []feeling.Entry) string {
	if len(entries) == 0 {
		return NeutralMood
	}

	counts := make(map[string]int)
	var order []string
	for _, e := range entries {
		if _, seen := counts[e.Type]; !seen {
			order = append(order, e.Type)
		}
		counts[e.Type]++
	}

	best := order[0]
	for _, typ := range order[1:] {
		if counts[typ] > counts[best] {
			best = typ
		}
	}
	return best
}

// Point is one sample of the mood flow chart.
type Point struct {
	Time      string `json:"time"`
	Date      string `json:"date"`
	Intensity int    `json:"intensity"`
	Type      string `json:"type"`
	Color     string `json:"color"`
	Timestamp int64  `json:"full_date"`
}

// ChartSeries returns the last ChartWindow entries, oldest first, as raw
// chart points rendered in loc.
func ChartSeries(entries []feeling.Entry, loc *time.Location) []Point {
	if loc == nil {
		loc = time.Local
	}
	window := Tail(entries, ChartWindow)
	points := make([]Point, len(window))
	for i, e := range window {
		t := e.Time().In(loc)
		points[i] = Point{
			Time:      t.Format("15:04"),
			Date:      t.Format("Mon"),
			Intensity: e.Intensity,
			Type:      e.Type,
			Color:     e.Color,
			Timestamp: e.Timestamp,
		}
	}
	return points
}

// ChartReady reports whether there is enough data to draw a curve. Callers
// show a placeholder otherwise.
func ChartReady(entries []feeling.Entry) bool {
	return len(entries) >= 2
}

// RecentSwings returns up to n of the newest entries, newest first.
func RecentSwings(entries []feeling.Entry, n int) []feeling.Entry {
	window := Tail(entries, n)
	out := make([]feeling.Entry, len(window))
	for i, e := range window {
		out[len(window)-1-i] = e
	}
	return out
}

// Tail returns the last n entries in their original order. The result
// shares no memory with entries.
func Tail(entries []feeling.Entry, n int) []feeling.Entry {
	if n <= 0 {
		return []feeling.Entry{}
	}
	start := len(entries) - n
	if start < 0 {
		start = 0
	}
	out := make([]feeling.Entry, len(entries)-start)
	copy(out, entries[start:])
	return out
}
