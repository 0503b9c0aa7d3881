package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInteraction is a test double for Interaction that records every call.
type fakeInteraction struct {
	userID, guildID, channelID string

	responded bool
	deferred  bool
	edited    bool
	last      Response

	respondErr error
	deferErr   error
	editErr    error
}

func (f *fakeInteraction) UserID() string    { return f.userID }
func (f *fakeInteraction) GuildID() string   { return f.guildID }
func (f *fakeInteraction) ChannelID() string { return f.channelID }

func (f *fakeInteraction) Respond(ctx context.Context, msg Response) error {
	f.responded = true
	f.last = msg
	return f.respondErr
}

func (f *fakeInteraction) Defer(ctx context.Context, ephemeral bool) error {
	f.deferred = true
	return f.deferErr
}

func (f *fakeInteraction) Edit(ctx context.Context, msg Response) error {
	f.edited = true
	f.last = msg
	return f.editErr
}

type stubCommand struct {
	name   string
	called bool
}

func (s *stubCommand) Name() string { return s.name }
func (s *stubCommand) Handle(ctx context.Context, in Interaction, args Args) error {
	s.called = true
	return nil
}

func TestRegistry_DispatchRoutesToRegisteredCommand(t *testing.T) {
	r := NewRegistry()
	cmd := &stubCommand{name: "about"}
	r.Register(cmd)

	err := r.Dispatch(context.Background(), "about", &fakeInteraction{}, Args{})
	require.NoError(t, err)
	assert.True(t, cmd.called)
}

func TestRegistry_DispatchUnknownCommandErrors(t *testing.T) {
	r := NewRegistry()
	err := r.Dispatch(context.Background(), "nonexistent", &fakeInteraction{}, Args{})
	assert.Error(t, err)
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubCommand{name: "about"})
	r.Register(&stubCommand{name: "uptime"})
	assert.ElementsMatch(t, []string{"about", "uptime"}, r.Names())
}

func TestArgs_Get(t *testing.T) {
	a := Args{"key": "schedule.update_days"}
	assert.Equal(t, "schedule.update_days", a.Get("key"))
	assert.Equal(t, "", a.Get("missing"))
}
