package domain

import (
	"github.com/disgoorg/snowflake/v2"
)

// Event is a lifecycle event emitted by the queue engine.
type Event interface {
	Guild() snowflake.ID
}

// PlaySongEvent is published when a song starts playing.
type PlaySongEvent struct {
	Queue *Queue
	Song  Song
}

// Guild implements Event.
func (e PlaySongEvent) Guild() snowflake.ID { return e.Queue.GuildID() }

// AddSongEvent is published when a song is added to a queue that is already playing.
type AddSongEvent struct {
	Queue *Queue
	Song  Song
}

// Guild implements Event.
func (e AddSongEvent) Guild() snowflake.ID { return e.Queue.GuildID() }

// AddListEvent is published when a playlist is added to a queue.
type AddListEvent struct {
	Queue    *Queue
	Playlist Playlist
}

// Guild implements Event.
func (e AddListEvent) Guild() snowflake.ID { return e.Queue.GuildID() }

// ErrorEvent is published when playback fails.
// TextChannelID is zero when the originating channel is unknown.
type ErrorEvent struct {
	GuildID       snowflake.ID
	TextChannelID snowflake.ID
	Err           error
}

// Guild implements Event.
func (e ErrorEvent) Guild() snowflake.ID { return e.GuildID }

// FinishEvent is published when the last song of a queue ends.
type FinishEvent struct {
	Queue *Queue
}

// Guild implements Event.
func (e FinishEvent) Guild() snowflake.ID { return e.Queue.GuildID() }

// EmptyEvent is published when the bot's voice channel has no listeners left.
type EmptyEvent struct {
	Queue *Queue
}

// Guild implements Event.
func (e EmptyEvent) Guild() snowflake.ID { return e.Queue.GuildID() }

// ListenersReturnedEvent is published when a listener joins the bot's channel after it was empty.
type ListenersReturnedEvent struct {
	GuildID snowflake.ID
}

// Guild implements Event.
func (e ListenersReturnedEvent) Guild() snowflake.ID { return e.GuildID }

// DisconnectEvent is published when the bot is disconnected from a voice channel.
type DisconnectEvent struct {
	Queue *Queue
}

// Guild implements Event.
func (e DisconnectEvent) Guild() snowflake.ID { return e.Queue.GuildID() }

// SearchNoResultEvent is published when a search yields no songs.
type SearchNoResultEvent struct {
	GuildID       snowflake.ID
	TextChannelID snowflake.ID
	Query         string
}

// Guild implements Event.
func (e SearchNoResultEvent) Guild() snowflake.ID { return e.GuildID }

// SearchInvalidAnswerEvent is published when a search request cannot be understood.
type SearchInvalidAnswerEvent struct {
	GuildID       snowflake.ID
	TextChannelID snowflake.ID
	Query         string
}

// Guild implements Event.
func (e SearchInvalidAnswerEvent) Guild() snowflake.ID { return e.GuildID }
