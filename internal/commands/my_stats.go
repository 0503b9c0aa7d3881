package commands

import (
	"context"

	"github.com/engels74/tgraph-bot-go/internal/analytics"
	"github.com/engels74/tgraph-bot-go/internal/chat"
	"github.com/engels74/tgraph-bot-go/internal/config"
	"github.com/engels74/tgraph-bot-go/internal/graphs"
	"github.com/engels74/tgraph-bot-go/internal/orchestrate"
)

// MyStatsCommand answers /my_stats: resolve the caller's media-service
// identity from an email address, render their personal graphs, and
// deliver them by direct message rather than posting to the shared
// channel.
type MyStatsCommand struct {
	store        *config.Store
	fetcher      analytics.Fetcher
	orchestrator *orchestrate.Orchestrator
	cooldowns    *CooldownTracker
	artifactDir  string
	dimensions   graphs.Dimensions
}

// NewMyStatsCommand wires a my_stats command. orchestrator must already be
// built over a chat.Poster capable of SendDM.
func NewMyStatsCommand(store *config.Store, fetcher analytics.Fetcher, orchestrator *orchestrate.Orchestrator, cooldowns *CooldownTracker, artifactDir string) *MyStatsCommand {
	return &MyStatsCommand{
		store:        store,
		fetcher:      fetcher,
		orchestrator: orchestrator,
		cooldowns:    cooldowns,
		artifactDir:  artifactDir,
		dimensions:   graphs.DefaultDimensions(),
	}
}

func (c *MyStatsCommand) Name() string { return "my_stats" }

func (c *MyStatsCommand) Handle(ctx context.Context, in Interaction, args Args) error {
	cfg := c.store.Current()
	cd := cfg.Cooldowns
	if ok, retry := c.cooldowns.Check(in.UserID(), cd.MyStatsPerUserMinutes, cd.MyStatsGlobalSeconds); !ok {
		return in.Respond(ctx, cooldownResponse(c.cooldowns.FormatRetry(retry)))
	}
	if err := in.Defer(ctx, true); err != nil {
		return err
	}

	email := args.Get("email")
	userID, err := c.fetcher.LookupUser(ctx, email)
	if err != nil {
		return in.Edit(ctx, Response{Ephemeral: true, Content: "Could not look up that user. Check the email address and try again."})
	}
	if userID == "" {
		return in.Edit(ctx, Response{Ephemeral: true, Content: "No user found for that email address."})
	}

	runCfg := orchestrate.Config{
		TimeRange:   cfg.TimeRange(),
		Enabled:     cfg.GraphsEnabled(),
		Colours:     cfg.ColorConfig(),
		Dimensions:  c.dimensions,
		ArtifactDir: c.artifactDir,
		KeepDays:    cfg.Schedule.KeepDays,
	}

	result, err := c.orchestrator.Run(ctx, runCfg, orchestrate.Target{DMUserID: in.UserID()}, userID)
	if err != nil {
		if isChatPermissionError(err) {
			return in.Edit(ctx, Response{Ephemeral: true, Content: "Could not deliver your graphs by direct message; check that your DMs are open to server members."})
		}
		return in.Edit(ctx, Response{Ephemeral: true, Content: "Failed to generate your graphs. Please try again later."})
	}
	_ = result

	if err := in.Edit(ctx, Response{Ephemeral: true, Content: "Your graphs have been sent via direct message."}); err != nil {
		return err
	}
	c.cooldowns.Record(in.UserID(), cd.MyStatsPerUserMinutes, cd.MyStatsGlobalSeconds)
	return nil
}

// isChatPermissionError reports whether err (or something it wraps) is a
// *chat.PermissionError: a permission failure gets a user-facing
// explanation, not a retry.
func isChatPermissionError(err error) bool {
	var permErr *chat.PermissionError
	for err != nil {
		if pe, ok := err.(*chat.PermissionError); ok {
			permErr = pe
			break
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return permErr != nil
}
