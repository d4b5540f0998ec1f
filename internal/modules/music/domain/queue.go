package domain

import (
	"errors"
	"strings"

	"github.com/disgoorg/snowflake/v2"
)

// DefaultVolume is the volume a new queue starts with.
const DefaultVolume = 100

// ErrQueueNotFound is returned when a guild has no queue.
var ErrQueueNotFound = errors.New("queue not found")

// Queue is the playback queue of a guild.
// The first song is the one currently playing; the rest are upcoming.
type Queue struct {
	guildID        snowflake.ID
	voiceChannelID snowflake.ID // Voice channel the bot plays in
	textChannelID  snowflake.ID // Text channel the queue was created from
	songs          []Song
	paused         bool
	volume         int
	filters        []string
}

// NewQueue creates an empty queue for the given guild and channels.
func NewQueue(guildID, voiceChannelID, textChannelID snowflake.ID) *Queue {
	return &Queue{
		guildID:        guildID,
		voiceChannelID: voiceChannelID,
		textChannelID:  textChannelID,
		songs:          make([]Song, 0),
		volume:         DefaultVolume,
	}
}

// GuildID returns the guild ID.
func (q *Queue) GuildID() snowflake.ID {
	// guildID must not be modified after initialization
	return q.guildID
}

// VoiceChannelID returns the voice channel the queue plays in.
func (q *Queue) VoiceChannelID() snowflake.ID {
	return q.voiceChannelID
}

// SetVoiceChannelID updates the voice channel ID.
func (q *Queue) SetVoiceChannelID(channelID snowflake.ID) {
	q.voiceChannelID = channelID
}

// TextChannelID returns the text channel that receives queue notifications.
func (q *Queue) TextChannelID() snowflake.ID {
	return q.textChannelID
}

// SetTextChannelID updates the text channel ID.
func (q *Queue) SetTextChannelID(channelID snowflake.ID) {
	q.textChannelID = channelID
}

// Len returns the number of songs, including the current one.
func (q *Queue) Len() int {
	return len(q.songs)
}

// IsEmpty returns true if the queue has no songs.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// Songs returns a copy of all songs, current first.
func (q *Queue) Songs() []Song {
	result := make([]Song, len(q.songs))
	copy(result, q.songs)
	return result
}

// Current returns the song at the head of the queue, or nil if the queue is empty.
func (q *Queue) Current() *Song {
	if q.IsEmpty() {
		return nil
	}
	song := q.songs[0]
	return &song
}

// Append adds songs to the end of the queue.
func (q *Queue) Append(songs ...Song) {
	q.songs = append(q.songs, songs...)
}

// Advance drops the current song and returns the new current one,
// or nil if nothing is left.
func (q *Queue) Advance() *Song {
	if q.IsEmpty() {
		return nil
	}
	q.songs = q.songs[1:]
	return q.Current()
}

// Truncate keeps only the first n songs.
func (q *Queue) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n >= q.Len() {
		return
	}
	q.songs = q.songs[:n]
}

// Clear removes every song.
func (q *Queue) Clear() {
	q.songs = make([]Song, 0)
	q.paused = false
}

// IsPaused returns true if playback is paused.
func (q *Queue) IsPaused() bool {
	return q.paused
}

// SetPaused sets the paused flag.
func (q *Queue) SetPaused(paused bool) {
	q.paused = paused
}

// IsPlaying returns true if a song is loaded and playback is not paused.
func (q *Queue) IsPlaying() bool {
	return !q.IsEmpty() && !q.paused
}

// Volume returns the playback volume in percent.
func (q *Queue) Volume() int {
	return q.volume
}

// SetVolume sets the playback volume in percent.
func (q *Queue) SetVolume(volume int) {
	q.volume = volume
}

// Filters returns the names of the active audio filters.
func (q *Queue) Filters() []string {
	result := make([]string, len(q.filters))
	copy(result, q.filters)
	return result
}

// SetFilters replaces the active audio filter names.
func (q *Queue) SetFilters(names ...string) {
	q.filters = append([]string(nil), names...)
}

// FilterSummary returns the active filter names joined by commas, or "Off".
func (q *Queue) FilterSummary() string {
	if len(q.filters) == 0 {
		return "Off"
	}
	return strings.Join(q.filters, ", ")
}

// Clone returns a deep copy of the queue.
func (q *Queue) Clone() *Queue {
	c := *q
	c.songs = q.Songs()
	c.filters = q.Filters()
	return &c
}

// QueueRepository stores guild queues.
type QueueRepository interface {
	// Get returns a copy of the queue for the given guild, or ErrQueueNotFound.
	Get(guildID snowflake.ID) (*Queue, error)

	// Save stores a copy of the queue.
	Save(queue *Queue)

	// Delete removes the queue for the given guild.
	Delete(guildID snowflake.ID)
}
