package discord

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
)

// VoiceEventForwarder relays raw voice events to the audio node.
type VoiceEventForwarder interface {
	OnVoiceStateUpdate(event *discordgo.VoiceStateUpdate)
	OnVoiceServerUpdate(event *discordgo.VoiceServerUpdate)
}

// VoiceStateListener reacts to voice channel membership changes.
type VoiceStateListener interface {
	// HandleBotVoiceChannel is called with the bot's new channel, or nil when it was disconnected.
	HandleBotVoiceChannel(guildID snowflake.ID, channelID *snowflake.ID)

	// HandleListenersChanged is called when another user joins, leaves or moves.
	HandleListenersChanged(guildID snowflake.ID)
}

// EventHandlers handles Discord gateway events for the music module.
type EventHandlers struct {
	botID     snowflake.ID
	forwarder VoiceEventForwarder
	listener  VoiceStateListener
}

// NewEventHandlers creates a new EventHandlers.
func NewEventHandlers(
	botID snowflake.ID,
	forwarder VoiceEventForwarder,
	listener VoiceStateListener,
) *EventHandlers {
	return &EventHandlers{
		botID:     botID,
		forwarder: forwarder,
		listener:  listener,
	}
}

// HandleVoiceServerUpdate forwards voice server updates to the audio node.
func (h *EventHandlers) HandleVoiceServerUpdate(
	_ *discordgo.Session,
	event *discordgo.VoiceServerUpdate,
) {
	h.forwarder.OnVoiceServerUpdate(event)
}

// HandleVoiceStateUpdate forwards the bot's own voice state to the audio node and
// reports channel membership changes to the listener.
func (h *EventHandlers) HandleVoiceStateUpdate(
	_ *discordgo.Session,
	event *discordgo.VoiceStateUpdate,
) {
	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return
	}

	if event.UserID != h.botID.String() {
		h.listener.HandleListenersChanged(guildID)
		return
	}

	h.forwarder.OnVoiceStateUpdate(event)

	// Parse the channel ID - nil means disconnected
	var channelID *snowflake.ID
	if event.ChannelID != "" {
		id, err := snowflake.Parse(event.ChannelID)
		if err != nil {
			slog.Error("failed to parse channel ID in voice state update", "error", err)
			return
		}
		channelID = &id
	}

	h.listener.HandleBotVoiceChannel(guildID, channelID)
}
