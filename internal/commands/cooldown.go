package commands

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/engels74/tgraph-bot-go/internal/clock"
)

// CooldownTracker enforces a per-user-plus-global rate limit ahead of a
// command body, ported from CommandMixin.check_cooldowns/update_cooldowns:
// a per-caller window in minutes and a window shared by every caller in
// seconds. Either window is disabled by passing a non-positive value, and
// both disabled skips the check entirely.
type CooldownTracker struct {
	clk clock.Clock

	mu     sync.Mutex
	global time.Time
	users  map[string]time.Time
}

// NewCooldownTracker returns a tracker with no active cooldowns.
func NewCooldownTracker(clk clock.Clock) *CooldownTracker {
	return &CooldownTracker{clk: clk, users: make(map[string]time.Time)}
}

// Check reports whether userID may proceed. When it may not, retryAfter is
// the remaining wait.
func (c *CooldownTracker) Check(userID string, userMinutes, globalSeconds int) (ok bool, retryAfter time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if globalSeconds <= 0 && userMinutes <= 0 {
		return true, 0
	}

	now := c.clk.Now()

	if globalSeconds > 0 && now.Before(c.global) {
		return false, c.global.Sub(now)
	}

	if userMinutes > 0 {
		if until, ok := c.users[userID]; ok && now.Before(until) {
			return false, until.Sub(now)
		}
	}

	return true, 0
}

// Record starts both windows following a successful invocation.
func (c *CooldownTracker) Record(userID string, userMinutes, globalSeconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clk.Now()
	if userMinutes > 0 {
		c.users[userID] = now.Add(time.Duration(userMinutes) * time.Minute)
	}
	if globalSeconds > 0 {
		c.global = now.Add(time.Duration(globalSeconds) * time.Second)
	}
}

// FormatRetry renders retryAfter as the chat service's relative timestamp
// token, matching _format_cooldown_timestamp's "<t:...:R>" format.
func (c *CooldownTracker) FormatRetry(retryAfter time.Duration) string {
	return c.clk.FormatForChat(c.clk.Now().Add(retryAfter), clock.StyleRelative)
}

// sweep discards expired per-user entries, mirroring _cleanup_cooldowns so
// the map doesn't grow without bound across a long-running process.
func (c *CooldownTracker) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clk.Now()
	for id, until := range c.users {
		if !until.After(now) {
			delete(c.users, id)
		}
	}
}

// StartSweeper runs a periodic sweep on a cron schedule. The returned stop
// func blocks until the sweeper's current run (if any) completes.
func (c *CooldownTracker) StartSweeper() (stop func()) {
	sched := cron.New()
	_, _ = sched.AddFunc("@every 10m", c.sweep)
	sched.Start()
	return func() { <-sched.Stop().Done() }
}
