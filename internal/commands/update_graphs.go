package commands

import (
	"context"
	"fmt"

	"github.com/engels74/tgraph-bot-go/internal/config"
	"github.com/engels74/tgraph-bot-go/internal/orchestrate"
)

// GraphUpdateRunner is the contract the scheduler (C7) exposes for a manual
// trigger: run one orchestration pass out of band from its own cadence,
// serialized against any in-flight scheduled run, and fold the result into
// last_update/next_update exactly as a scheduled run would (the "natural
// cadence continues" decision recorded in DESIGN.md for the manual-vs-
// scheduled open question).
type GraphUpdateRunner interface {
	RunNow(ctx context.Context) (orchestrate.Result, error)
	NextUpdateReadable() string
}

// UpdateGraphsCommand answers /update_graphs: defer immediately since the
// full fetch/render/post pipeline can run long, then edit the placeholder
// with the outcome once it completes.
type UpdateGraphsCommand struct {
	runner    GraphUpdateRunner
	store     *config.Store
	cooldowns *CooldownTracker
}

// NewUpdateGraphsCommand wires an update_graphs command against runner.
func NewUpdateGraphsCommand(runner GraphUpdateRunner, store *config.Store, cooldowns *CooldownTracker) *UpdateGraphsCommand {
	return &UpdateGraphsCommand{runner: runner, store: store, cooldowns: cooldowns}
}

func (c *UpdateGraphsCommand) Name() string { return "update_graphs" }

func (c *UpdateGraphsCommand) Handle(ctx context.Context, in Interaction, _ Args) error {
	cd := c.store.Current().Cooldowns
	if ok, retry := c.cooldowns.Check(in.UserID(), cd.UpdateGraphsPerUserMinutes, cd.UpdateGraphsGlobalSeconds); !ok {
		return in.Respond(ctx, cooldownResponse(c.cooldowns.FormatRetry(retry)))
	}
	if err := in.Defer(ctx, true); err != nil {
		return err
	}

	result, err := c.runner.RunNow(ctx)
	if err != nil {
		if isChatPermissionError(err) {
			return in.Edit(ctx, Response{Ephemeral: true, Content: "Could not post graphs to the configured channel; check the bot's permissions there."})
		}
		return in.Edit(ctx, Response{Ephemeral: true, Content: "Failed to update graphs. Please try again later."})
	}

	message := fmt.Sprintf("Posted %d graph(s). Next scheduled update: %s.", len(result.PostedFiles), c.runner.NextUpdateReadable())
	if len(result.RenderFailures) > 0 {
		message += fmt.Sprintf(" (%d graph(s) failed to render.)", len(result.RenderFailures))
	}

	if err := in.Edit(ctx, Response{Ephemeral: true, Content: message}); err != nil {
		return err
	}
	c.cooldowns.Record(in.UserID(), cd.UpdateGraphsPerUserMinutes, cd.UpdateGraphsGlobalSeconds)
	return nil
}
