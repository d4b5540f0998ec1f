package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/modules/music/application/ports"
)

// MaxLeaveDelay is the longest delay accepted by a delayed leave.
const MaxLeaveDelay = 300 * time.Second

const delayedLeaveTimeout = 15 * time.Second

// LeaveInput contains the input for the Leave use case.
type LeaveInput struct {
	GuildID snowflake.ID
	UserID  snowflake.ID
}

// LeaveOutput contains the result of the Leave use case.
type LeaveOutput struct {
	// WasConnected is false when the bot had no voice connection and nothing was done.
	WasConnected bool
}

// StatusInput contains the input for the Status use case.
type StatusInput struct {
	GuildID snowflake.ID
	UserID  snowflake.ID
}

// StatusOutput describes the voice and queue state of a guild from the user's point of view.
type StatusOutput struct {
	UserChannelID   snowflake.ID // 0 if the user is not in a voice channel
	UserChannelName string
	BotChannelID    snowflake.ID // 0 if the bot is not in a voice channel
	BotChannelName  string
	EngineConnected bool // Whether the engine holds a voice connection
	HasQueue        bool
	QueueLength     int
	IsPlaying       bool
	SameChannel     bool
}

// VoiceChannelServiceOption configures a VoiceChannelService.
type VoiceChannelServiceOption func(*VoiceChannelService)

// WithAfterFunc replaces time.AfterFunc for delayed leaves.
func WithAfterFunc(afterFunc func(time.Duration, func())) VoiceChannelServiceOption {
	return func(v *VoiceChannelService) {
		v.afterFunc = afterFunc
	}
}

// VoiceChannelService handles leaving voice channels and reporting voice status.
type VoiceChannelService struct {
	engine       ports.QueueEngine
	voices       ports.VoiceManager
	disconnector ports.VoiceDisconnector
	guard        voiceGuard
	afterFunc    func(time.Duration, func())
}

// NewVoiceChannelService creates a new VoiceChannelService.
func NewVoiceChannelService(
	engine ports.QueueEngine,
	voices ports.VoiceManager,
	voiceState ports.VoiceStateProvider,
	disconnector ports.VoiceDisconnector,
	opts ...VoiceChannelServiceOption,
) *VoiceChannelService {
	v := &VoiceChannelService{
		engine:       engine,
		voices:       voices,
		disconnector: disconnector,
		guard:        voiceGuard{voiceState: voiceState, voices: voices},
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// CheckLeave verifies that the user may make the bot leave.
// A bot without a voice connection is not an error; WasConnected is false instead.
func (v *VoiceChannelService) CheckLeave(input LeaveInput) (*LeaveOutput, error) {
	_, err := v.guard.requireSharedChannel(input.GuildID, input.UserID)
	if errors.Is(err, ErrBotNotInVoice) {
		return &LeaveOutput{WasConnected: false}, nil
	}
	if err != nil {
		return nil, err
	}
	return &LeaveOutput{WasConnected: true}, nil
}

// Leave stops the queue, if any, and leaves the voice channel immediately.
func (v *VoiceChannelService) Leave(ctx context.Context, input LeaveInput) (*LeaveOutput, error) {
	output, err := v.CheckLeave(input)
	if err != nil || !output.WasConnected {
		return output, err
	}

	if err := v.leave(ctx, input.GuildID); err != nil {
		return nil, err
	}
	return output, nil
}

// LeaveAfter checks the preconditions now and leaves after delay.
// done is called exactly once with the result of the delayed leave; it is not called
// when the preconditions fail or the bot is not connected.
func (v *VoiceChannelService) LeaveAfter(
	input LeaveInput,
	delay time.Duration,
	done func(error),
) (*LeaveOutput, error) {
	if delay < 0 || delay > MaxLeaveDelay {
		return nil, fmt.Errorf("leave delay %s out of range [0, %s]", delay, MaxLeaveDelay)
	}

	output, err := v.CheckLeave(input)
	if err != nil || !output.WasConnected {
		return output, err
	}

	v.afterFunc(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), delayedLeaveTimeout)
		defer cancel()

		err := v.leave(ctx, input.GuildID)
		if err != nil {
			slog.Error(
				"failed to leave voice channel after delay",
				"guild", input.GuildID,
				"delay", delay,
				"error", err,
			)
		}
		done(err)
	})

	return output, nil
}

// leave stops the queue and leaves, falling back to a raw gateway disconnect
// when the engine cannot leave.
func (v *VoiceChannelService) leave(ctx context.Context, guildID snowflake.ID) error {
	if v.engine.GetQueue(guildID) != nil {
		if err := v.engine.Stop(ctx, guildID); err != nil {
			slog.Warn("failed to stop queue before leaving", "guild", guildID, "error", err)
		}
	}

	leaveErr := v.voices.Leave(ctx, guildID)
	if leaveErr == nil {
		return nil
	}

	slog.Warn(
		"failed to leave through the engine, forcing disconnect",
		"guild", guildID,
		"error", leaveErr,
	)

	if err := v.disconnector.ForceDisconnect(ctx, guildID); err != nil {
		return fmt.Errorf("failed to leave voice channel: %w", errors.Join(leaveErr, err))
	}
	return nil
}

// Status reports the voice and queue state without changing anything.
func (v *VoiceChannelService) Status(input StatusInput) (*StatusOutput, error) {
	voiceState := v.guard.voiceState

	userChannel, err := voiceState.UserVoiceChannel(input.GuildID, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user voice channel: %w", err)
	}

	botChannel, err := v.guard.botChannel(input.GuildID)
	if err != nil {
		return nil, err
	}

	_, engineConnected := v.voices.Get(input.GuildID)

	output := &StatusOutput{
		UserChannelID:   userChannel,
		BotChannelID:    botChannel,
		EngineConnected: engineConnected,
		SameChannel:     userChannel != 0 && userChannel == botChannel,
	}
	if userChannel != 0 {
		output.UserChannelName = voiceState.ChannelName(userChannel)
	}
	if botChannel != 0 {
		output.BotChannelName = voiceState.ChannelName(botChannel)
	}

	if queue := v.engine.GetQueue(input.GuildID); queue != nil {
		output.HasQueue = true
		output.QueueLength = queue.Len()
		output.IsPlaying = queue.IsPlaying()
	}

	return output, nil
}
