package commands

import "context"

// aboutDescription is the static blurb shown by /about.
const aboutDescription = "TGraph Bot generates playback statistics graphs for your media server and posts them on a configurable schedule, or on demand."

const defaultEmbedColor = 0x3498DB

const defaultGitHubURL = "https://github.com/engels74/tgraph-bot-source"

// AboutCommand answers /about with a static embed describing the bot.
type AboutCommand struct {
	embedColor int
	githubURL  string
}

// NewAboutCommand returns an AboutCommand. A zero embedColor or empty
// githubURL falls back to package defaults.
func NewAboutCommand(embedColor int, githubURL string) *AboutCommand {
	if embedColor == 0 {
		embedColor = defaultEmbedColor
	}
	if githubURL == "" {
		githubURL = defaultGitHubURL
	}
	return &AboutCommand{embedColor: embedColor, githubURL: githubURL}
}

func (c *AboutCommand) Name() string { return "about" }

func (c *AboutCommand) Handle(ctx context.Context, in Interaction, _ Args) error {
	return in.Respond(ctx, Response{
		Ephemeral: true,
		Embed: &Embed{
			Title: "TGraph Bot",
			Color: c.embedColor,
			Fields: []EmbedField{
				{Name: "Description", Value: aboutDescription},
				{Name: "GitHub", Value: c.githubURL},
				{Name: "License", Value: "AGPLv3"},
			},
		},
	})
}
