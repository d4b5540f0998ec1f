package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/modules/music/domain"
)

// PlayOptions describes where a play request came from.
type PlayOptions struct {
	GuildID        snowflake.ID
	VoiceChannelID snowflake.ID
	TextChannelID  snowflake.ID
	RequesterID    snowflake.ID
	RequesterName  string
}

// QueueEngine defines the music-queue engine the commands and the scheduler drive.
type QueueEngine interface {
	// GetQueue returns a snapshot of the guild's queue, or nil if the guild has none.
	GetQueue(guildID snowflake.ID) *domain.Queue

	// Play resolves query and adds the result to the guild's queue,
	// joining the voice channel first if needed.
	Play(ctx context.Context, query string, opts PlayOptions) error

	// Stop stops playback and drops the guild's queue.
	Stop(ctx context.Context, guildID snowflake.ID) error

	// Pause pauses playback.
	Pause(ctx context.Context, guildID snowflake.ID) error

	// Truncate drops every upcoming song, keeping the current one.
	Truncate(guildID snowflake.ID) error

	// Skip ends the current song and starts the next one, if any.
	Skip(ctx context.Context, guildID snowflake.ID) error
}

// VoiceManager defines the engine's voice connection operations.
type VoiceManager interface {
	// Join connects the bot to the voice channel.
	Join(ctx context.Context, guildID, channelID snowflake.ID) error

	// Leave disconnects the bot from the guild's voice channel.
	Leave(ctx context.Context, guildID snowflake.ID) error

	// Get returns the voice channel the engine is connected to.
	Get(guildID snowflake.ID) (snowflake.ID, bool)
}

// ListenerChecker reports whether the bot's voice channel has human listeners.
type ListenerChecker interface {
	HasListeners(guildID snowflake.ID) bool
}

// VoiceDisconnector disconnects the bot through the gateway without going through the engine.
type VoiceDisconnector interface {
	ForceDisconnect(ctx context.Context, guildID snowflake.ID) error
}
