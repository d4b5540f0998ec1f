package domain

import (
	"strconv"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Song represents a playable audio track resolved by the audio node.
type Song struct {
	Encoded       string // Lavalink encoded track data
	Identifier    string
	Name          string
	Artist        string
	URL           string
	Thumbnail     string
	Duration      time.Duration
	IsLive        bool
	SourceName    string // e.g., "youtube", "spotify", "soundcloud"
	RequesterID   snowflake.ID
	RequesterName string
}

// IsValid returns true if the song has the minimum required fields.
func (s Song) IsValid() bool {
	return s.Encoded != "" && s.Name != ""
}

// RequesterMention returns a Discord mention for the requester, or the
// requester's name when no ID is known.
func (s Song) RequesterMention() string {
	if s.RequesterID == 0 {
		if s.RequesterName == "" {
			return "Unknown"
		}
		return s.RequesterName
	}
	return "<@" + s.RequesterID.String() + ">"
}

// FormattedDuration returns the duration as mm:ss or hh:mm:ss, or "Live" for streams.
func (s Song) FormattedDuration() string {
	if s.IsLive {
		return "Live"
	}
	return FormatDuration(s.Duration)
}

// FormatDuration formats d as mm:ss or hh:mm:ss.
func FormatDuration(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return pad(hours) + ":" + pad(minutes) + ":" + pad(seconds)
	}
	return pad(minutes) + ":" + pad(seconds)
}

func pad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// Playlist is a named group of songs added to a queue in one request.
type Playlist struct {
	Name        string
	URL         string
	Thumbnail   string
	RequesterID snowflake.ID
	Songs       []Song
}

// Len returns the number of songs in the playlist.
func (p Playlist) Len() int {
	return len(p.Songs)
}
