package ports

import (
	"github.com/disgoorg/snowflake/v2"
)

// VoiceStateProvider defines the interface for reading Discord voice state information.
type VoiceStateProvider interface {
	// UserVoiceChannel returns the voice channel ID the user is currently in.
	// Returns 0 if the user is not in a voice channel.
	UserVoiceChannel(guildID, userID snowflake.ID) (snowflake.ID, error)

	// BotVoiceChannel returns the voice channel the bot is in, or 0.
	BotVoiceChannel(guildID snowflake.ID) (snowflake.ID, error)

	// ChannelName returns the channel's display name, or an empty string if unknown.
	ChannelName(channelID snowflake.ID) string

	// CanConnectAndSpeak reports whether the bot may join and speak in the channel.
	CanConnectAndSpeak(channelID snowflake.ID) (bool, error)
}
