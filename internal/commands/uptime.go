package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/engels74/tgraph-bot-go/internal/clock"
)

// UptimeCommand answers /uptime with elapsed time since construction.
type UptimeCommand struct {
	clk   clock.Clock
	start time.Time
}

// NewUptimeCommand stamps the current time as the uptime baseline.
func NewUptimeCommand(clk clock.Clock) *UptimeCommand {
	return &UptimeCommand{clk: clk, start: clk.Now()}
}

func (c *UptimeCommand) Name() string { return "uptime" }

func (c *UptimeCommand) Handle(ctx context.Context, in Interaction, _ Args) error {
	elapsed := c.clk.Now().Sub(c.start)
	return in.Respond(ctx, Response{
		Ephemeral: true,
		Content:   fmt.Sprintf("Uptime: %s", FormatUptime(elapsed)),
	})
}

// FormatUptime renders d as a comma-joined list of non-zero day/hour/
// minute/second components with proper pluralization. Seconds are always
// shown when every other component is zero.
func FormatUptime(d time.Duration) string {
	total := int64(d.Seconds())
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	var parts []string
	if days > 0 {
		parts = append(parts, pluralizeUnit(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, pluralizeUnit(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, pluralizeUnit(minutes, "minute"))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, pluralizeUnit(seconds, "second"))
	}
	return strings.Join(parts, ", ")
}

func pluralizeUnit(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
