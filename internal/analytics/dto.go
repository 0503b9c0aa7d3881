package analytics

import (
	"encoding/json"
	"time"
)

// playDTO is the wire shape of one play-history entry.
type playDTO struct {
	Timestamp  time.Time `json:"timestamp"`
	User       string    `json:"user"`
	MediaType  string    `json:"media_type"`
	Platform   string    `json:"platform"`
	DurationMs *int64    `json:"duration_ms"`
}

func (d playDTO) toPlay() Play {
	p := Play{
		Timestamp: d.Timestamp,
		User:      d.User,
		MediaType: normalizeMediaType(d.MediaType),
		Platform:  d.Platform,
	}
	if d.DurationMs != nil {
		dur := time.Duration(*d.DurationMs) * time.Millisecond
		p.Duration = &dur
	}
	return p
}

// monthlyDTO is the wire shape of one monthly-plays bucket.
type monthlyDTO struct {
	Month     string `json:"month"`
	MediaType string `json:"media_type"`
	Count     int    `json:"count"`
}

func (d monthlyDTO) toMonthlyCount() MonthlyCount {
	month, _ := time.Parse("2006-01", d.Month)
	return MonthlyCount{
		Month:     month,
		MediaType: normalizeMediaType(d.MediaType),
		Count:     d.Count,
	}
}

func normalizeMediaType(s string) MediaType {
	switch MediaType(s) {
	case Movie, TV, Music:
		return MediaType(s)
	default:
		return Other
	}
}

func decodeJSON(body []byte, target any) error {
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, target)
}
