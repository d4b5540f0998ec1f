package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/tunebot/internal/modules/music/application/usecases"
)

// Commands returns all slash commands for the music module.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "play",
			Description: "Play a song or playlist",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "query",
					Description: "The song URL or search query",
					Required:    true,
				},
			},
		},
		{
			Name:        "search",
			Description: "Search for a song and play it",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "query",
					Description: "Search query for the song",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "source",
					Description: "Search source",
					Required:    false,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "YouTube", Value: "youtube"},
						{Name: "Spotify", Value: "spotify"},
						{Name: "SoundCloud", Value: "soundcloud"},
					},
				},
			},
		},
		{
			Name:        "stop",
			Description: "Stop playing music and clear the queue",
		},
		{
			Name:        "leave",
			Description: "Leave the voice channel",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "delay",
					Description: "Delay in seconds before leaving (0-300)",
					Required:    false,
					MinValue:    floatPtr(0),
					MaxValue:    usecases.MaxLeaveDelay.Seconds(),
				},
			},
		},
		{
			Name:        "disconnect",
			Description: "Disconnect the bot from the voice channel",
		},
		{
			Name:        "voicestatus",
			Description: "Check bot voice connection status (for debugging)",
		},
	}
}

func floatPtr(f float64) *float64 {
	return &f
}
