package graphs

import (
	"time"

	"github.com/engels74/tgraph-bot-go/internal/analytics"
)

// Dataset is the renderer input: the play-history window and the separate
// monthly-plays series the monthly graph needs, each fetched independently.
type Dataset struct {
	Plays       []analytics.Play
	Monthly     []analytics.MonthlyCount
	UserFilter  string // non-empty restricts Plays to one user (my_stats)
	GeneratedAt time.Time
}

// ForUser returns a copy of d restricted to plays by userID, for the
// per-user subset my_stats renders.
func (d Dataset) ForUser(userID string) Dataset {
	filtered := make([]analytics.Play, 0, len(d.Plays))
	for _, p := range d.Plays {
		if p.User == userID {
			filtered = append(filtered, p)
		}
	}
	out := d
	out.Plays = filtered
	out.UserFilter = userID
	return out
}

// bucketByMediaType groups plays by their media type bucket, so every
// per-media-type graph kind uses the same rule.
func bucketByMediaType(plays []analytics.Play) map[analytics.MediaType][]analytics.Play {
	buckets := make(map[analytics.MediaType][]analytics.Play, 4)
	for _, p := range plays {
		buckets[p.MediaType] = append(buckets[p.MediaType], p)
	}
	return buckets
}

func countByDay(plays []analytics.Play) map[string]int {
	counts := make(map[string]int)
	for _, p := range plays {
		counts[p.Timestamp.Format("2006-01-02")]++
	}
	return counts
}

func countByDayOfWeek(plays []analytics.Play) [7]int {
	var counts [7]int
	for _, p := range plays {
		counts[int(p.Timestamp.Weekday())]++
	}
	return counts
}

func countByHourOfDay(plays []analytics.Play) [24]int {
	var counts [24]int
	for _, p := range plays {
		counts[p.Timestamp.Hour()]++
	}
	return counts
}

// RankedEntry is one row of a top-N bar chart.
type RankedEntry struct {
	Label string
	Count int
}

func topN(counts map[string]int, n int) []RankedEntry {
	pairs := make([]RankedEntry, 0, len(counts))
	for label, count := range counts {
		pairs = append(pairs, RankedEntry{label, count})
	}
	// Simple insertion sort descending by count: the operator-visible lists
	// here are small (top 10), so an O(n^2) sort keeps this dependency-free.
	for i := 1; i < len(pairs); i++ {
		for j := i; j > 0 && pairs[j].Count > pairs[j-1].Count; j-- {
			pairs[j], pairs[j-1] = pairs[j-1], pairs[j]
		}
	}
	if len(pairs) > n {
		pairs = pairs[:n]
	}
	return pairs
}

func countByPlatform(plays []analytics.Play) map[string]int {
	counts := make(map[string]int)
	for _, p := range plays {
		counts[p.Platform]++
	}
	return counts
}

func countByUser(plays []analytics.Play) map[string]int {
	counts := make(map[string]int)
	for _, p := range plays {
		counts[p.User]++
	}
	return counts
}
