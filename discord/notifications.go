package discord

import "log/slog"

// SendMessage posts a plain text message to the watched channel.
func (b *Bot) SendMessage(content string) {
	msg, err := b.api.ChannelMessageSend(b.config.ChannelID, content)
	if err != nil {
		slog.Error("Failed to send message", "channel", b.config.ChannelID, "error", err)
		return
	}
	slog.Info("Message sent", "channel", b.config.ChannelID, "content", msg.Content)
}
