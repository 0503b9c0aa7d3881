package main

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/engels74/tgraph-bot-go/internal/commands"
)

// discordInteraction adapts one discordgo.InteractionCreate event to
// commands.Interaction.
type discordInteraction struct {
	session *discordgo.Session
	event   *discordgo.InteractionCreate
}

func (d *discordInteraction) UserID() string {
	if d.event.Member != nil && d.event.Member.User != nil {
		return d.event.Member.User.ID
	}
	if d.event.User != nil {
		return d.event.User.ID
	}
	return ""
}

func (d *discordInteraction) GuildID() string   { return d.event.GuildID }
func (d *discordInteraction) ChannelID() string { return d.event.ChannelID }

func (d *discordInteraction) Respond(_ context.Context, msg commands.Response) error {
	data := &discordgo.InteractionResponseData{
		Content: msg.Content,
		Embeds:  toDiscordEmbeds(msg.Embed),
	}
	if msg.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return d.session.InteractionRespond(d.event.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

func (d *discordInteraction) Defer(_ context.Context, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return d.session.InteractionRespond(d.event.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	})
}

func (d *discordInteraction) Edit(_ context.Context, msg commands.Response) error {
	content := msg.Content
	embeds := toDiscordEmbeds(msg.Embed)
	_, err := d.session.InteractionResponseEdit(d.event.Interaction, &discordgo.WebhookEdit{
		Content: &content,
		Embeds:  &embeds,
	})
	return err
}

func toDiscordEmbeds(e *commands.Embed) []*discordgo.MessageEmbed {
	if e == nil {
		return nil
	}
	fields := make([]*discordgo.MessageEmbedField, 0, len(e.Fields))
	for _, f := range e.Fields {
		fields = append(fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return []*discordgo.MessageEmbed{{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
		Fields:      fields,
	}}
}

// slashCommandDefinitions lists every application command this bot
// registers, along with the options each command's Args expects.
func slashCommandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{Name: "about", Description: "Show information about the bot."},
		{Name: "uptime", Description: "Show how long the bot has been running."},
		{
			Name:        "config_view",
			Description: "View the current bot configuration.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "key", Description: "Dotted config key, e.g. schedule.update_days", Required: false},
			},
		},
		{
			Name:        "config_edit",
			Description: "Edit a bot configuration value.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "key", Description: "Dotted config key, e.g. schedule.update_days", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "value", Description: "New value", Required: true},
			},
		},
		{
			Name:        "my_stats",
			Description: "Get your personal playback statistics as a direct message.",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "email", Description: "Account email on the media server", Required: true},
			},
		},
		{Name: "update_graphs", Description: "Trigger an immediate graph update."},
	}
}

// registerSlashCommands upserts every command definition for guildID (empty
// registers them globally).
func registerSlashCommands(session *discordgo.Session, guildID string) error {
	for _, def := range slashCommandDefinitions() {
		if _, err := session.ApplicationCommandCreate(session.State.User.ID, guildID, def); err != nil {
			return fmt.Errorf("register slash command %q: %w", def.Name, err)
		}
	}
	return nil
}

// interactionArgs flattens a slash command's resolved options into
// commands.Args.
func interactionArgs(event *discordgo.InteractionCreate) commands.Args {
	data := event.ApplicationCommandData()
	args := make(commands.Args, len(data.Options))
	for _, opt := range data.Options {
		args[opt.Name] = opt.StringValue()
	}
	return args
}

// handleInteraction routes one InteractionCreate event into the registry,
// reporting handler errors through an ephemeral reply.
func handleInteraction(ctx context.Context, registry *commands.Registry, session *discordgo.Session, event *discordgo.InteractionCreate) {
	if event.Type != discordgo.InteractionApplicationCommand {
		return
	}
	name := event.ApplicationCommandData().Name
	in := &discordInteraction{session: session, event: event}
	args := interactionArgs(event)

	if err := registry.Dispatch(ctx, name, in, args); err != nil {
		_ = in.Respond(ctx, commands.Response{Content: fmt.Sprintf("command failed: %v", err), Ephemeral: true})
	}
}
