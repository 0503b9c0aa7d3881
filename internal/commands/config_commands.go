package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/engels74/tgraph-bot-go/internal/config"
)

// ConfigViewCommand answers /config view: a single masked key/value line
// when a key is given, or a categorized embed of every configurable value
// otherwise.
type ConfigViewCommand struct {
	store     *config.Store
	cooldowns *CooldownTracker
}

// NewConfigViewCommand wires a view command against store.
func NewConfigViewCommand(store *config.Store, cooldowns *CooldownTracker) *ConfigViewCommand {
	return &ConfigViewCommand{store: store, cooldowns: cooldowns}
}

func (c *ConfigViewCommand) Name() string { return "config_view" }

func (c *ConfigViewCommand) Handle(ctx context.Context, in Interaction, args Args) error {
	cd := c.store.Current().Cooldowns
	if ok, retry := c.cooldowns.Check(in.UserID(), cd.ConfigPerUserMinutes, cd.ConfigGlobalSeconds); !ok {
		return in.Respond(ctx, cooldownResponse(c.cooldowns.FormatRetry(retry)))
	}

	key := args.Get("key")
	view := c.store.View()

	var resp Response
	switch {
	case key == "":
		resp = Response{Ephemeral: true, Embed: buildConfigEmbed(view)}
	default:
		if _, known := config.Metadata[key]; !known {
			resp = Response{Ephemeral: true, Content: fmt.Sprintf("%q is not a known configuration key.", key)}
		} else {
			resp = Response{Ephemeral: true, Content: fmt.Sprintf("%s: %s", key, view[key])}
		}
	}

	if err := in.Respond(ctx, resp); err != nil {
		return err
	}
	c.cooldowns.Record(in.UserID(), cd.ConfigPerUserMinutes, cd.ConfigGlobalSeconds)
	return nil
}

// buildConfigEmbed groups a flattened view by its dotted-key prefix,
// mirroring create_config_embed's per-category field layout.
func buildConfigEmbed(view map[string]string) *Embed {
	categories := make(map[string][]string)
	for key := range view {
		cat := key
		if idx := strings.IndexByte(key, '.'); idx >= 0 {
			cat = key[:idx]
		}
		categories[cat] = append(categories[cat], key)
	}

	catNames := make([]string, 0, len(categories))
	for cat := range categories {
		catNames = append(catNames, cat)
	}
	sort.Strings(catNames)

	embed := &Embed{Title: "Bot Configuration", Description: "Current configuration values:"}
	for _, cat := range catNames {
		keys := categories[cat]
		sort.Strings(keys)
		lines := make([]string, 0, len(keys))
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("**%s:** %s", k, view[k]))
		}
		embed.Fields = append(embed.Fields, EmbedField{
			Name:  categoryDisplayName(cat),
			Value: strings.Join(lines, "\n"),
		})
	}
	return embed
}

func categoryDisplayName(cat string) string {
	switch cat {
	case "analytics":
		return "Analytics"
	case "chat":
		return "Chat"
	case "schedule":
		return "Schedule"
	case "graphs":
		return "Graphs"
	case "cooldowns":
		return "Cooldowns"
	case "language":
		return "Language"
	default:
		return strings.ToUpper(cat[:1]) + cat[1:]
	}
}

// ConfigEditCommand answers /config edit: validate, persist, and report
// whether the change takes effect immediately, requires a restart, or
// disabled fixed-time scheduling.
type ConfigEditCommand struct {
	store     *config.Store
	cooldowns *CooldownTracker
}

// NewConfigEditCommand wires an edit command against store.
func NewConfigEditCommand(store *config.Store, cooldowns *CooldownTracker) *ConfigEditCommand {
	return &ConfigEditCommand{store: store, cooldowns: cooldowns}
}

func (c *ConfigEditCommand) Name() string { return "config_edit" }

func (c *ConfigEditCommand) Handle(ctx context.Context, in Interaction, args Args) error {
	cd := c.store.Current().Cooldowns
	if ok, retry := c.cooldowns.Check(in.UserID(), cd.ConfigPerUserMinutes, cd.ConfigGlobalSeconds); !ok {
		return in.Respond(ctx, cooldownResponse(c.cooldowns.FormatRetry(retry)))
	}
	if err := in.Defer(ctx, true); err != nil {
		return err
	}

	key, value := args.Get("key"), args.Get("value")
	if _, known := config.Metadata[key]; !known {
		return in.Edit(ctx, Response{Ephemeral: true, Content: fmt.Sprintf("%q is not an editable configuration key.", key)})
	}

	restartRequired, err := c.store.EditValue(key, value)
	if err != nil {
		return in.Edit(ctx, Response{Ephemeral: true, Content: fmt.Sprintf("Could not update %s: %v", key, err)})
	}

	if err := in.Edit(ctx, Response{Ephemeral: true, Content: buildEditConfirmation(key, value, restartRequired)}); err != nil {
		return err
	}
	c.cooldowns.Record(in.UserID(), cd.ConfigPerUserMinutes, cd.ConfigGlobalSeconds)
	return nil
}

func buildEditConfirmation(key, value string, restartRequired bool) string {
	if key == "schedule.fixed_update_time" && (strings.EqualFold(value, "disabled") || strings.EqualFold(value, "xx:xx")) {
		return fmt.Sprintf("%s disabled; reverting to day-interval scheduling.", key)
	}
	if restartRequired {
		return fmt.Sprintf("%s updated to %s. Restart required for this change to take effect.", key, value)
	}
	return fmt.Sprintf("%s updated to %s.", key, value)
}
