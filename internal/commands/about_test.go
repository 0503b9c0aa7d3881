package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAboutCommand_UsesProvidedColorAndURL(t *testing.T) {
	cmd := NewAboutCommand(0xAABBCC, "https://example.com/repo")
	in := &fakeInteraction{}

	err := cmd.Handle(context.Background(), in, Args{})
	require.NoError(t, err)
	require.NotNil(t, in.last.Embed)
	assert.Equal(t, "TGraph Bot", in.last.Embed.Title)
	assert.Equal(t, 0xAABBCC, in.last.Embed.Color)
	assert.True(t, in.last.Ephemeral)

	var githubField *EmbedField
	for i := range in.last.Embed.Fields {
		if in.last.Embed.Fields[i].Name == "GitHub" {
			githubField = &in.last.Embed.Fields[i]
		}
	}
	require.NotNil(t, githubField)
	assert.Equal(t, "https://example.com/repo", githubField.Value)
}

func TestAboutCommand_FallsBackToDefaults(t *testing.T) {
	cmd := NewAboutCommand(0, "")
	in := &fakeInteraction{}

	err := cmd.Handle(context.Background(), in, Args{})
	require.NoError(t, err)
	assert.Equal(t, defaultEmbedColor, in.last.Embed.Color)

	found := false
	for _, f := range in.last.Embed.Fields {
		if f.Name == "License" && f.Value == "AGPLv3" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAboutCommand_Name(t *testing.T) {
	assert.Equal(t, "about", NewAboutCommand(0, "").Name())
}
