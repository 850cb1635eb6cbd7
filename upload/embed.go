package upload

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	embedTitle = "📤 Image Uploaded Successfully!"
	colorGreen = 0x2ECC71
	// Discord rejects embed field values longer than this.
	maxFieldValue = 1024
)

// BuildEmbed summarises results as one numbered field each, previewing the
// first successful URL. It returns nil when there is nothing to report.
func BuildEmbed(results []Result, uploader string) *discordgo.MessageEmbed {
	if len(results) == 0 {
		return nil
	}

	description := "Here is your image:"
	if len(results) > 1 {
		description = "Here are your images:"
	}

	embed := &discordgo.MessageEmbed{
		Title:       embedTitle,
		Description: description,
		Color:       colorGreen,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Uploaded by " + uploader,
		},
	}

	for i, r := range results {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("Image %d", i+1),
			Value:  truncate(r.String(), maxFieldValue),
			Inline: false,
		})
		if embed.Thumbnail == nil && r.OK() {
			embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: r.URL}
		}
	}

	return embed
}

// DisplayName prefers the server nickname, then the global display name, then the username.
func DisplayName(m *discordgo.Message) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author == nil {
		return ""
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
