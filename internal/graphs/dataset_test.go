package graphs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/engels74/tgraph-bot-go/internal/analytics"
)

func samplePlays() []analytics.Play {
	return []analytics.Play{
		{Timestamp: time.Date(2025, 7, 14, 20, 0, 0, 0, time.UTC), User: "alice", MediaType: analytics.Movie, Platform: "web"},
		{Timestamp: time.Date(2025, 7, 14, 21, 0, 0, 0, time.UTC), User: "bob", MediaType: analytics.TV, Platform: "mobile"},
		{Timestamp: time.Date(2025, 7, 15, 9, 0, 0, 0, time.UTC), User: "alice", MediaType: analytics.Movie, Platform: "web"},
	}
}

func TestDataset_ForUser(t *testing.T) {
	ds := Dataset{Plays: samplePlays()}
	filtered := ds.ForUser("alice")

	assert.Len(t, filtered.Plays, 2)
	assert.Equal(t, "alice", filtered.UserFilter)
	for _, p := range filtered.Plays {
		assert.Equal(t, "alice", p.User)
	}
}

func TestBucketByMediaType(t *testing.T) {
	buckets := bucketByMediaType(samplePlays())
	assert.Len(t, buckets[analytics.Movie], 2)
	assert.Len(t, buckets[analytics.TV], 1)
}

func TestCountByDay(t *testing.T) {
	counts := countByDay(samplePlays())
	assert.Equal(t, 2, counts["2025-07-14"])
	assert.Equal(t, 1, counts["2025-07-15"])
}

func TestCountByDayOfWeek(t *testing.T) {
	counts := countByDayOfWeek(samplePlays())
	assert.Equal(t, 2, counts[time.Monday])
	assert.Equal(t, 1, counts[time.Tuesday])
}

func TestCountByHourOfDay(t *testing.T) {
	counts := countByHourOfDay(samplePlays())
	assert.Equal(t, 1, counts[20])
	assert.Equal(t, 1, counts[21])
	assert.Equal(t, 1, counts[9])
}

func TestTopN(t *testing.T) {
	counts := map[string]int{"a": 1, "b": 5, "c": 3}
	ranked := topN(counts, 2)

	assert.Len(t, ranked, 2)
	assert.Equal(t, "b", ranked[0].Label)
	assert.Equal(t, "c", ranked[1].Label)
}

func TestCountByPlatformAndUser(t *testing.T) {
	plays := samplePlays()
	assert.Equal(t, 2, countByPlatform(plays)["web"])
	assert.Equal(t, 2, countByUser(plays)["alice"])
}
