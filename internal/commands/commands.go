// Package commands implements one Go type per chat slash command,
// dispatched through a shared Command interface with cooldown enforcement,
// deferred responses, and ephemeral replies handled uniformly for every
// command rather than duplicated per handler.
package commands

import (
	"context"
	"fmt"
	"sync"
)

// Response is one reply to an interaction: either plain content, an embed,
// or both.
type Response struct {
	Content   string
	Embed     *Embed
	Ephemeral bool
}

// Embed is a transport-independent rendering of a chat embed.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
}

// EmbedField is one named section of an Embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Interaction is the subset of a single chat interaction every command
// needs: caller identity and the three ways to answer it. The live
// implementation adapts discordgo's InteractionCreate; tests use a fake.
type Interaction interface {
	UserID() string
	GuildID() string
	ChannelID() string
	// Respond sends the interaction's first and only reply. Commands that
	// finish within the chat platform's immediate-response window use this
	// alone.
	Respond(ctx context.Context, msg Response) error
	// Defer acknowledges the interaction without a visible reply, extending
	// the reply window for commands whose body may run long (config edit
	// validation round-trips, update_graphs' full pipeline).
	Defer(ctx context.Context, ephemeral bool) error
	// Edit replaces the deferred placeholder with msg. Only valid after
	// Defer.
	Edit(ctx context.Context, msg Response) error
}

// Args carries a command's parsed string arguments, keyed by parameter
// name.
type Args map[string]string

// Get returns args[key], or "" if absent.
func (a Args) Get(key string) string { return a[key] }

// Command is one chat slash command.
type Command interface {
	// Name is the command's invocation name (e.g. "my_stats", or
	// "config_view" for the config group's view subcommand).
	Name() string
	Handle(ctx context.Context, in Interaction, args Args) error
}

// Registry dispatches an interaction to the Command registered under its
// name.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds cmd, replacing any existing command of the same name.
func (r *Registry) Register(cmd Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[cmd.Name()] = cmd
}

// Dispatch routes to the command registered as name.
func (r *Registry) Dispatch(ctx context.Context, name string, in Interaction, args Args) error {
	r.mu.RLock()
	cmd, ok := r.commands[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("commands: no handler registered for %q", name)
	}
	return cmd.Handle(ctx, in, args)
}

// Names lists every registered command name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.commands))
	for name := range r.commands {
		out = append(out, name)
	}
	return out
}

// cooldownResponse builds the standard rate-limit reply, carrying a
// chat-service relative timestamp token the way
// CommandMixin._format_cooldown_timestamp does.
func cooldownResponse(token string) Response {
	return Response{
		Ephemeral: true,
		Content:   fmt.Sprintf("This command is on cooldown. Try again %s.", token),
	}
}
