// Package chat is the thin adapter over the chat platform (Discord).
// Command dispatch and embed rendering live in the bot's
// interaction-handling layer, not here; this package only carries the
// transport contract the orchestrator and command surface depend on:
// posting files, pruning prior bot messages, and opening DMs.
package chat

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/engels74/tgraph-bot-go/internal/errclass"
)

// UploadFile is one artifact ready to be attached to a message.
type UploadFile struct {
	Path string
	Name string
}

// PermissionError reports a chat-service permission failure: a closed DM,
// or the bot lacking a permission it needs. It always classifies as
// Permanent — retrying does not help.
type PermissionError struct {
	Op  string
	Err error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("chat: %s: %v", e.Op, e.Err)
}

func (e *PermissionError) Unwrap() error { return e.Err }

func (e *PermissionError) ErrorClass() errclass.Class { return errclass.Permanent }

// Poster is the contract the orchestrator depends on for the posting step
// of its pipeline.
type Poster interface {
	// PostFiles uploads files to channelID in as few messages as the chat
	// service's batch-size limits allow.
	PostFiles(ctx context.Context, channelID string, files []UploadFile) error
	// DeletePriorArtifacts deletes the bot's own prior artifact messages in
	// channelID, looking back at most lookback messages.
	DeletePriorArtifacts(ctx context.Context, channelID string, lookback int) error
	// SendDM uploads files to a direct message with userID. Returns a
	// *PermissionError if the user's DMs are closed.
	SendDM(ctx context.Context, userID string, files []UploadFile) error
}

// maxBatchSize is the chat service's per-message attachment cap.
const maxBatchSize = 10

// Client implements Poster over a discordgo session.
type Client struct {
	session   *discordgo.Session
	botUserID string
}

// NewClient wraps an already-authenticated session. botUserID identifies
// the bot's own messages for DeletePriorArtifacts.
func NewClient(session *discordgo.Session, botUserID string) *Client {
	return &Client{session: session, botUserID: botUserID}
}

func (c *Client) PostFiles(ctx context.Context, channelID string, files []UploadFile) error {
	for start := 0; start < len(files); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(files) {
			end = len(files)
		}
		if err := c.postBatch(ctx, channelID, files[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) postBatch(ctx context.Context, channelID string, batch []UploadFile) error {
	sends := make([]*discordgo.File, 0, len(batch))
	closers := make([]func() error, 0, len(batch))
	defer func() {
		for _, closeFn := range closers {
			_ = closeFn()
		}
	}()

	for _, f := range batch {
		opened, closeFn, err := openFile(f.Path)
		if err != nil {
			return fmt.Errorf("chat: open %s: %w", f.Path, err)
		}
		closers = append(closers, closeFn)
		sends = append(sends, &discordgo.File{Name: f.Name, Reader: opened})
	}

	_, err := c.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Files: sends,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return classifyDiscordErr("post files", err)
	}
	return nil
}

func (c *Client) DeletePriorArtifacts(ctx context.Context, channelID string, lookback int) error {
	messages, err := c.session.ChannelMessages(channelID, lookback, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return classifyDiscordErr("list prior messages", err)
	}

	botUserID := c.botUserID
	if botUserID == "" && c.session.State != nil && c.session.State.User != nil {
		botUserID = c.session.State.User.ID
	}
	if botUserID == "" {
		return nil
	}

	var ids []string
	for _, m := range messages {
		if m.Author != nil && m.Author.ID == botUserID && len(m.Attachments) > 0 {
			ids = append(ids, m.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	if len(ids) == 1 {
		return classifyDiscordErr("delete prior message", c.session.ChannelMessageDelete(channelID, ids[0], discordgo.WithContext(ctx)))
	}
	return classifyDiscordErr("bulk delete prior messages", c.session.ChannelMessagesBulkDelete(channelID, ids, discordgo.WithContext(ctx)))
}

func (c *Client) SendDM(ctx context.Context, userID string, files []UploadFile) error {
	dm, err := c.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return &PermissionError{Op: "open DM channel", Err: err}
	}
	if err := c.PostFiles(ctx, dm.ID, files); err != nil {
		var permErr *PermissionError
		if asPermissionError(err, &permErr) {
			return permErr
		}
		return &PermissionError{Op: "send DM", Err: err}
	}
	return nil
}

func classifyDiscordErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if restErr, ok := err.(*discordgo.RESTError); ok && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case 401, 403:
			return &PermissionError{Op: op, Err: err}
		}
	}
	return fmt.Errorf("chat: %s: %w", op, err)
}

func asPermissionError(err error, target **PermissionError) bool {
	if pe, ok := err.(*PermissionError); ok {
		*target = pe
		return true
	}
	return false
}
