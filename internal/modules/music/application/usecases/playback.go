package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/modules/music/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/music/domain"
)

// PlayInput contains the input for the Play use case.
type PlayInput struct {
	GuildID       snowflake.ID
	UserID        snowflake.ID
	UserName      string
	TextChannelID snowflake.ID
	Query         string
}

// SearchInput contains the input for the Search use case.
type SearchInput struct {
	PlayInput
	Source domain.SearchSource
}

// PlayRequest is a checked play request, ready to be handed to the engine.
type PlayRequest struct {
	Query   string // Forwarded to the engine as is
	Options ports.PlayOptions
}

// StopInput contains the input for the Stop use case.
type StopInput struct {
	GuildID snowflake.ID
	UserID  snowflake.ID
}

// StopOutcome describes how a stop request was carried out.
type StopOutcome int

const (
	// StopOutcomeStopped means the engine stopped and dropped the queue.
	StopOutcomeStopped StopOutcome = iota
	// StopOutcomeNothingPlaying means there was no queue to stop.
	StopOutcomeNothingPlaying
	// StopOutcomeForceStopped means the engine stop failed and the queue was
	// cleared by pausing, truncating and skipping instead.
	StopOutcomeForceStopped
)

// PlaybackService handles play, search and stop.
type PlaybackService struct {
	engine ports.QueueEngine
	guard  voiceGuard
}

// NewPlaybackService creates a new PlaybackService.
func NewPlaybackService(
	engine ports.QueueEngine,
	voices ports.VoiceManager,
	voiceState ports.VoiceStateProvider,
) *PlaybackService {
	return &PlaybackService{
		engine: engine,
		guard:  voiceGuard{voiceState: voiceState, voices: voices},
	}
}

// PreparePlay checks that the user can be played to and builds the engine request.
// The query is kept verbatim.
func (p *PlaybackService) PreparePlay(input PlayInput) (*PlayRequest, error) {
	channelID, err := p.guard.requirePlayable(input.GuildID, input.UserID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(input.Query) == "" {
		return nil, ErrEmptyQuery
	}

	return &PlayRequest{
		Query: input.Query,
		Options: ports.PlayOptions{
			GuildID:        input.GuildID,
			VoiceChannelID: channelID,
			TextChannelID:  input.TextChannelID,
			RequesterID:    input.UserID,
			RequesterName:  input.UserName,
		},
	}, nil
}

// PrepareSearch is PreparePlay with the query prefixed for the chosen source.
func (p *PlaybackService) PrepareSearch(input SearchInput) (*PlayRequest, error) {
	req, err := p.PreparePlay(input.PlayInput)
	if err != nil {
		return nil, err
	}
	req.Query = input.Source.Prefix(input.Query)
	return req, nil
}

// PlayError is returned when the engine fails to play a request.
// Err is the engine error alone; Query is kept apart from it.
type PlayError struct {
	Query string
	Err   error
}

func (e *PlayError) Error() string {
	return fmt.Sprintf("failed to play %q: %v", e.Query, e.Err)
}

func (e *PlayError) Unwrap() error {
	return e.Err
}

// EngineError returns the engine error behind err, without any query text.
func EngineError(err error) error {
	var playErr *PlayError
	if errors.As(err, &playErr) {
		return playErr.Err
	}
	return err
}

// Play hands a prepared request to the engine.
func (p *PlaybackService) Play(ctx context.Context, req *PlayRequest) error {
	if err := p.engine.Play(ctx, req.Query, req.Options); err != nil {
		return &PlayError{Query: req.Query, Err: err}
	}
	return nil
}

// Stop stops playback and clears the queue.
// If the engine cannot stop, the queue is cleared by pausing, truncating and skipping.
func (p *PlaybackService) Stop(ctx context.Context, input StopInput) (StopOutcome, error) {
	if _, err := p.guard.requireSharedChannel(input.GuildID, input.UserID); err != nil {
		return 0, err
	}

	queue := p.engine.GetQueue(input.GuildID)
	if queue == nil {
		return StopOutcomeNothingPlaying, nil
	}

	stopErr := p.engine.Stop(ctx, input.GuildID)
	if stopErr == nil {
		return StopOutcomeStopped, nil
	}

	slog.Warn(
		"failed to stop queue, clearing it manually",
		"guild", input.GuildID,
		"error", stopErr,
	)

	if err := p.forceStop(ctx, queue); err != nil {
		return 0, fmt.Errorf("failed to stop playback: %w", errors.Join(stopErr, err))
	}
	return StopOutcomeForceStopped, nil
}

func (p *PlaybackService) forceStop(ctx context.Context, queue *domain.Queue) error {
	guildID := queue.GuildID()

	if !queue.IsPaused() {
		if err := p.engine.Pause(ctx, guildID); err != nil {
			return err
		}
	}
	if err := p.engine.Truncate(guildID); err != nil {
		return err
	}
	return p.engine.Skip(ctx, guildID)
}
