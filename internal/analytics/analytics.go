// Package analytics is the client for the external media-analytics service.
// Only the three operations the orchestrator and commands depend on form
// the load-bearing contract (Fetcher); everything else about the service's
// HTTP surface is an implementation detail of Client. Client is one
// conforming adapter, built on resty with a gobreaker-gated request path.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
)

// MediaType buckets a play by content kind.
type MediaType string

const (
	Movie MediaType = "movie"
	TV    MediaType = "tv"
	Music MediaType = "music"
	Other MediaType = "other"
)

// Play is one playback event.
type Play struct {
	Timestamp time.Time
	User      string
	MediaType MediaType
	Platform  string
	Duration  *time.Duration
}

// MonthlyCount is one bucket of the monthly-plays series.
type MonthlyCount struct {
	Month     time.Time
	MediaType MediaType
	Count     int
}

// TimeRange bounds a play-history fetch (time_range_days / time_range_months
// config keys).
type TimeRange struct {
	Days   int
	Months int
}

// Fetcher is the contract UpdateOrchestrator (C9) and CommandSurface's
// my_stats (C10) depend on.
type Fetcher interface {
	FetchPlayHistory(ctx context.Context, rng TimeRange) ([]Play, error)
	LookupUser(ctx context.Context, identifier string) (userID string, err error)
	FetchMonthlyPlays(ctx context.Context, months int) ([]MonthlyCount, error)
}

// Client is a resty-backed Fetcher with one circuit breaker shared by all of
// its requests.
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// NewClient builds a Client targeting baseURL with apiKey as a bearer
// credential. baseURL must already have passed ConfigStore's URL-safety
// validation (http(s) only, no loopback).
func NewClient(baseURL, apiKey string) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Authorization", "Bearer "+apiKey).
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "analytics",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{http: http, breaker: breaker}
}

// FetchPlayHistory pages through the service's play-history endpoint for
// the requested range and returns the flattened result.
func (c *Client) FetchPlayHistory(ctx context.Context, rng TimeRange) ([]Play, error) {
	var plays []Play
	const pageSize = 500

	for page := 0; ; page++ {
		body, err := c.do(ctx, func(req *resty.Request) (*resty.Response, error) {
			return req.
				SetQueryParam("days", fmt.Sprint(rng.Days)).
				SetQueryParam("months", fmt.Sprint(rng.Months)).
				SetQueryParam("offset", fmt.Sprint(page*pageSize)).
				SetQueryParam("limit", fmt.Sprint(pageSize)).
				Get("/api/v2/history")
		})
		if err != nil {
			return nil, err
		}
		var page500 []playDTO
		if err := decodeJSON(body, &page500); err != nil {
			return nil, err
		}
		for _, dto := range page500 {
			plays = append(plays, dto.toPlay())
		}
		if len(page500) < pageSize {
			break
		}
	}
	return plays, nil
}

// LookupUser resolves identifier (a platform username or email, matching
// whatever the operator typed to my_stats) to the service's internal user
// id.
func (c *Client) LookupUser(ctx context.Context, identifier string) (string, error) {
	body, err := c.do(ctx, func(req *resty.Request) (*resty.Response, error) {
		return req.SetQueryParam("query", identifier).Get("/api/v2/users/lookup")
	})
	if err != nil {
		return "", err
	}
	var dto struct {
		UserID string `json:"user_id"`
	}
	if err := decodeJSON(body, &dto); err != nil {
		return "", err
	}
	return dto.UserID, nil
}

// FetchMonthlyPlays returns the monthly-plays series used by the monthly
// graph.
func (c *Client) FetchMonthlyPlays(ctx context.Context, months int) ([]MonthlyCount, error) {
	body, err := c.do(ctx, func(req *resty.Request) (*resty.Response, error) {
		return req.SetQueryParam("months", fmt.Sprint(months)).Get("/api/v2/plays/monthly")
	})
	if err != nil {
		return nil, err
	}
	var dtos []monthlyDTO
	if err := decodeJSON(body, &dtos); err != nil {
		return nil, err
	}
	out := make([]MonthlyCount, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toMonthlyCount())
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, call func(*resty.Request) (*resty.Response, error)) ([]byte, error) {
	return c.breaker.Execute(func() ([]byte, error) {
		resp, err := call(c.http.R().SetContext(ctx))
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("analytics: %s returned %s", resp.Request.URL, resp.Status())
		}
		return resp.Body(), nil
	})
}
