// Package upload turns an image post in the watched channel into ImgBB
// links: confirm with the author, upload each image, reply with an embed.
package upload

import "github.com/bwmarrin/discordgo"

// Qualifies reports whether m should get a confirmation prompt: a human
// author, the watched channel, and at least one attachment. The bot's own
// messages are already dropped before handlers see them.
func Qualifies(m *discordgo.Message, channelID string) bool {
	if m == nil || m.Author == nil {
		return false
	}
	if m.Author.Bot || m.Author.System || m.WebhookID != "" {
		return false
	}
	if m.ChannelID != channelID {
		return false
	}
	return len(m.Attachments) > 0
}
