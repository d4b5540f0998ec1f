package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/tunebot/internal/bot"
)

// Embed colors.
const (
	colorSuccess = 0x08c404
	colorError   = 0xE74C3C
	colorInfo    = 0x0099FF
	colorWarning = 0xFF9900
	colorNotice  = 0xFFFF00
)

func embed(title, description string, color int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
	}
}

func respondEmbed(r bot.Responder, e *discordgo.MessageEmbed) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{e},
		},
	})
}

func respondEphemeral(r bot.Responder, e *discordgo.MessageEmbed) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{e},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
}

// respondError answers with an ephemeral error embed.
func respondError(r bot.Responder, message string) error {
	return respondEphemeral(r, embed("Error", message, colorError))
}

func respondSuccess(r bot.Responder, message string) error {
	return respondEmbed(r, embed("", message, colorSuccess))
}

func deferResponse(r bot.Responder) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

func editEmbed(r bot.Responder, e *discordgo.MessageEmbed) error {
	return r.Edit(&discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{e},
	})
}

func followUpEmbed(r bot.Responder, e *discordgo.MessageEmbed) error {
	return r.FollowUp(&discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{e},
	})
}

// truncate cuts s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

func checkmark(ok bool) string {
	if ok {
		return "✅"
	}
	return "❌"
}
