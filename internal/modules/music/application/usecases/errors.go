package usecases

import "errors"

// Precondition errors for the music commands. They are answered privately
// and never reach the queue engine.
var (
	// ErrUserNotInVoice is returned when the user is not in a voice channel.
	ErrUserNotInVoice = errors.New("you need to be in a voice channel to use this command")

	// ErrMissingVoicePermissions is returned when the bot cannot connect or speak in the user's channel.
	ErrMissingVoicePermissions = errors.New("missing permissions to join and speak in the voice channel")

	// ErrBotNotInVoice is returned when an operation requires the bot to be in a voice channel.
	ErrBotNotInVoice = errors.New("not connected to any voice channel")

	// ErrNotSameChannel is returned when the user and the bot are in different voice channels.
	ErrNotSameChannel = errors.New("you need to be in the same voice channel as the bot")

	// ErrEmptyQuery is returned when a play or search request has nothing to look up.
	ErrEmptyQuery = errors.New("query must not be empty")
)

var preconditionErrors = []error{
	ErrUserNotInVoice,
	ErrMissingVoicePermissions,
	ErrBotNotInVoice,
	ErrNotSameChannel,
	ErrEmptyQuery,
}

// IsPrecondition reports whether err is a precondition failure rather than an engine failure.
func IsPrecondition(err error) bool {
	for _, target := range preconditionErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
