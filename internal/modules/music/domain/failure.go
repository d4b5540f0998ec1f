package domain

import (
	"strings"
)

// FailureKind classifies why a song could not be played.
type FailureKind int

const (
	FailureUnknown FailureKind = iota
	FailureAgeRestricted
	FailureRegionBlocked
	FailurePrivate // private, removed or otherwise unavailable
	FailureNoVoiceConnection
	FailureYouTube // YouTube refused to serve the content
)

// String returns a stable name for logging.
func (k FailureKind) String() string {
	switch k {
	case FailureAgeRestricted:
		return "age_restricted"
	case FailureRegionBlocked:
		return "region_blocked"
	case FailurePrivate:
		return "private"
	case FailureNoVoiceConnection:
		return "no_voice_connection"
	case FailureYouTube:
		return "youtube"
	default:
		return "unknown"
	}
}

// failureKeywords is checked in order; the first matching kind wins.
var failureKeywords = []struct {
	kind     FailureKind
	keywords []string
}{
	{FailureAgeRestricted, []string{
		"age-restricted", "age restricted", "age restriction", "confirm your age",
		"inappropriate for some users",
	}},
	{FailureRegionBlocked, []string{
		"region", "your country", "geo-restricted", "geoblocked", "geo-blocked",
	}},
	{FailurePrivate, []string{
		"private", "unavailable", "has been removed", "no longer available", "not available",
	}},
	{FailureNoVoiceConnection, []string{
		"voice connection", "not connected", "voice channel",
	}},
	{FailureYouTube, []string{
		"youtube", "ytdlp", "yt-dlp",
	}},
}

// ClassifyFailure maps an engine error message to a FailureKind.
func ClassifyFailure(message string) FailureKind {
	lower := strings.ToLower(message)
	for _, entry := range failureKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(lower, keyword) {
				return entry.kind
			}
		}
	}
	return FailureUnknown
}

// ClassifyError is ClassifyFailure for an error value. A nil error is unknown.
func ClassifyError(err error) FailureKind {
	if err == nil {
		return FailureUnknown
	}
	return ClassifyFailure(err.Error())
}
