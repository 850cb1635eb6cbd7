package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/brensch/uploader/discord"
	"github.com/brensch/uploader/metrics"
)

const (
	CancelledText = "❌ Upload cancelled (no confirmation)."
	UploadingText = "📤 Uploading your image(s)..."
)

// ErrNotConfirmed means the author did not react in time; the prompt has
// already been edited to say so.
var ErrNotConfirmed = errors.New("upload not confirmed")

// Gate asks the author of a message to confirm with a reaction before anything is uploaded.
type Gate struct {
	session discord.Session
	waiter  *discord.ReactionWaiter
	emoji   string
	timeout time.Duration
	metrics *metrics.Metrics
}

func NewGate(session discord.Session, waiter *discord.ReactionWaiter, emoji string, timeout time.Duration, m *metrics.Metrics) *Gate {
	return &Gate{
		session: session,
		waiter:  waiter,
		emoji:   emoji,
		timeout: timeout,
		metrics: m,
	}
}

// PromptText is the reply that asks for confirmation.
func (g *Gate) PromptText() string {
	return fmt.Sprintf("⚠️ React with %s within %s to confirm image upload.", g.emoji, humanDuration(g.timeout))
}

// Confirm replies to m with a prompt carrying a single reaction and waits
// for the author to add that same reaction to the prompt. On success the
// prompt reads UploadingText; on timeout it reads CancelledText and
// ErrNotConfirmed is returned.
func (g *Gate) Confirm(ctx context.Context, m *discordgo.Message) (*discordgo.Message, error) {
	prompt, err := g.session.ChannelMessageSendReply(m.ChannelID, g.PromptText(), m.Reference())
	if err != nil {
		return nil, fmt.Errorf("failed to send confirmation prompt: %w", err)
	}

	authorID := m.Author.ID
	exp := g.waiter.Expect(func(r *discordgo.MessageReaction) bool {
		return r.MessageID == prompt.ID && r.UserID == authorID && r.Emoji.Name == g.emoji
	})
	defer exp.Cancel()

	if err := g.session.MessageReactionAdd(m.ChannelID, prompt.ID, g.emoji); err != nil {
		return prompt, fmt.Errorf("failed to add confirmation reaction: %w", err)
	}

	_, err = exp.Wait(ctx, g.timeout)
	switch {
	case errors.Is(err, discord.ErrWaitTimeout):
		g.metrics.Confirmation(metrics.OutcomeExpired)
		g.edit(m.ChannelID, prompt.ID, CancelledText)
		return prompt, ErrNotConfirmed
	case err != nil:
		return prompt, fmt.Errorf("waiting for confirmation: %w", err)
	}

	g.metrics.Confirmation(metrics.OutcomeConfirmed)
	g.edit(m.ChannelID, prompt.ID, UploadingText)
	return prompt, nil
}

// edit failures only cost the user a stale prompt, so they are logged and dropped.
func (g *Gate) edit(channelID, messageID, content string) {
	if _, err := g.session.ChannelMessageEdit(channelID, messageID, content); err != nil {
		slog.Error("failed to edit confirmation prompt", "message_id", messageID, "error", err)
	}
}

func humanDuration(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	switch {
	case secs == 1:
		return "1 second"
	case secs > 1:
		return fmt.Sprintf("%d seconds", secs)
	default:
		return d.String()
	}
}
