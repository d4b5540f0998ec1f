package usecases

import (
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/modules/music/application/ports"
)

// voiceGuard checks the voice-channel preconditions shared by the commands.
type voiceGuard struct {
	voiceState ports.VoiceStateProvider
	voices     ports.VoiceManager
}

// requireListener returns the user's voice channel, or ErrUserNotInVoice.
func (g voiceGuard) requireListener(guildID, userID snowflake.ID) (snowflake.ID, error) {
	channelID, err := g.voiceState.UserVoiceChannel(guildID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get user voice channel: %w", err)
	}
	if channelID == 0 {
		return 0, ErrUserNotInVoice
	}
	return channelID, nil
}

// requirePlayable returns the user's voice channel if the bot may join and speak in it.
func (g voiceGuard) requirePlayable(guildID, userID snowflake.ID) (snowflake.ID, error) {
	channelID, err := g.requireListener(guildID, userID)
	if err != nil {
		return 0, err
	}

	ok, err := g.voiceState.CanConnectAndSpeak(channelID)
	if err != nil {
		return 0, fmt.Errorf("failed to check voice permissions: %w", err)
	}
	if !ok {
		return 0, ErrMissingVoicePermissions
	}
	return channelID, nil
}

// botChannel returns the bot's voice channel as seen by Discord,
// falling back to the engine's own connection.
func (g voiceGuard) botChannel(guildID snowflake.ID) (snowflake.ID, error) {
	channelID, err := g.voiceState.BotVoiceChannel(guildID)
	if err != nil {
		return 0, fmt.Errorf("failed to get bot voice channel: %w", err)
	}
	if channelID != 0 {
		return channelID, nil
	}
	if channelID, ok := g.voices.Get(guildID); ok {
		return channelID, nil
	}
	return 0, nil
}

// requireSharedChannel checks that the user and the bot share a voice channel.
// It returns the bot's channel.
func (g voiceGuard) requireSharedChannel(guildID, userID snowflake.ID) (snowflake.ID, error) {
	userChannel, err := g.requireListener(guildID, userID)
	if err != nil {
		return 0, err
	}

	botChannel, err := g.botChannel(guildID)
	if err != nil {
		return 0, err
	}
	if botChannel == 0 {
		return 0, ErrBotNotInVoice
	}
	if botChannel != userChannel {
		return 0, ErrNotSameChannel
	}
	return botChannel, nil
}
