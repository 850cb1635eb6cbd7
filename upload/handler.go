package upload

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/brensch/uploader/discord"
	"github.com/brensch/uploader/metrics"
)

// Config carries the settings the handler needs from the application config.
type Config struct {
	ChannelID      string
	Emoji          string
	ConfirmTimeout time.Duration
	Imgbb          PipelineConfig
}

// Handler runs one qualifying message through confirmation, upload and reply.
// It keeps no state between messages, so concurrent calls are independent.
type Handler struct {
	channelID string
	session   discord.Session
	gate      *Gate
	pipeline  *Pipeline
}

var _ discord.MessageHandler = (*Handler)(nil)

func NewHandler(session discord.Session, waiter *discord.ReactionWaiter, cfg Config, m *metrics.Metrics) *Handler {
	return &Handler{
		channelID: cfg.ChannelID,
		session:   session,
		gate:      NewGate(session, waiter, cfg.Emoji, cfg.ConfirmTimeout, m),
		pipeline:  NewPipeline(cfg.Imgbb, m),
	}
}

func (h *Handler) HandleMessage(ctx context.Context, m *discordgo.Message) {
	if !Qualifies(m, h.channelID) {
		return
	}

	logger := slog.With("message_id", m.ID, "author_id", m.Author.ID)
	logger.Info("qualifying message, asking for confirmation", "attachments", len(m.Attachments))

	if _, err := h.gate.Confirm(ctx, m); err != nil {
		if errors.Is(err, ErrNotConfirmed) {
			logger.Info("upload cancelled, no confirmation")
			return
		}
		logger.Error("confirmation failed", "error", err)
		return
	}

	// Once confirmed the batch runs to completion even if the bot is shutting down.
	results := h.pipeline.Run(context.WithoutCancel(ctx), m.Attachments)

	embed := BuildEmbed(results, DisplayName(m))
	if embed == nil {
		logger.Info("no image attachments to upload")
		return
	}

	_, err := h.session.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Embeds:    []*discordgo.MessageEmbed{embed},
		Reference: m.Reference(),
	})
	if err != nil {
		logger.Error("failed to send upload summary", "error", err)
		return
	}
	logger.Info("upload summary sent", "results", len(results))
}
