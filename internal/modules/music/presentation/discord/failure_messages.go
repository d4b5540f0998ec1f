package discord

import (
	"errors"
	"strings"

	"github.com/sglre6355/tunebot/internal/modules/music/application/usecases"
	"github.com/sglre6355/tunebot/internal/modules/music/domain"
)

// maxErrorDetail is the longest error text shown in an embed field.
const maxErrorDetail = 1000

// maxErrorDescription keeps event error descriptions within Discord's embed limit.
const maxErrorDescription = 1997

type playFailure struct {
	title       string
	suggestions []string
}

var playFailures = map[domain.FailureKind]playFailure{
	domain.FailureYouTube: {
		title: "YouTube content unavailable",
		suggestions: []string{
			"Try searching by song title instead of URL",
			"Use Spotify or SoundCloud links",
			"Search for: `artist - song title`",
		},
	},
	domain.FailureAgeRestricted: {
		title: "Age-restricted content",
		suggestions: []string{
			"This video is age-restricted",
			"Try a different version of the song",
		},
	},
	domain.FailurePrivate: {
		title: "Private or unavailable content",
		suggestions: []string{
			"This content is private or removed",
			"Try searching for the song instead",
		},
	},
	domain.FailureRegionBlocked: {
		title: "Content not available in this region",
		suggestions: []string{
			"This content is geo-blocked",
			"Try using Spotify or SoundCloud instead",
		},
	},
	domain.FailureNoVoiceConnection: {
		title: "Could not connect to the voice channel",
		suggestions: []string{
			"Rejoin the voice channel and try again",
			"Check `/voicestatus` for details",
		},
	},
}

var genericPlayFailure = playFailure{
	title: "Error playing music",
	suggestions: []string{
		"Check your search term",
		"Try a different song",
		"Use a direct Spotify/SoundCloud link",
	},
}

// describePlayFailure returns the title and suggestions shown when /play fails.
// Only the engine error is classified, never the user's query.
func describePlayFailure(err error) playFailure {
	if failure, ok := playFailures[domain.ClassifyError(usecases.EngineError(err))]; ok {
		return failure
	}
	return genericPlayFailure
}

// describeEventError returns the explanation posted for an engine error event.
func describeEventError(err error) string {
	switch domain.ClassifyError(err) {
	case domain.FailureAgeRestricted:
		return "This video is age-restricted and cannot be played."
	case domain.FailurePrivate:
		return "This content is private or has been removed."
	case domain.FailureRegionBlocked:
		return "This content is not available in this region."
	case domain.FailureNoVoiceConnection:
		return "I'm not connected to a voice channel. Use `/play` to connect."
	case domain.FailureYouTube:
		return "YouTube refused to serve this content. Try a search term or another source."
	}

	message := "unknown error"
	if err != nil {
		message = err.Error()
	}
	return "An error occurred: " + truncate(message, maxErrorDescription)
}

// preconditionMessage returns the user-facing text for a failed command precondition.
func preconditionMessage(err error) string {
	switch {
	case errors.Is(err, usecases.ErrUserNotInVoice):
		return "You need to be in a voice channel to use this command!"
	case errors.Is(err, usecases.ErrMissingVoicePermissions):
		return "I need permissions to join and speak in your voice channel!"
	case errors.Is(err, usecases.ErrBotNotInVoice):
		return "I'm not connected to any voice channel!"
	case errors.Is(err, usecases.ErrNotSameChannel):
		return "You need to be in the same voice channel as me!"
	case errors.Is(err, usecases.ErrEmptyQuery):
		return "Please tell me what to play."
	default:
		return err.Error()
	}
}

func bulletList(items []string) string {
	var sb strings.Builder
	for i, item := range items {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("• ")
		sb.WriteString(item)
	}
	return sb.String()
}
