package application

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/modules/music/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/music/domain"
)

const (
	// DefaultIdleDisconnectDelay is how long the bot stays after a queue finishes.
	DefaultIdleDisconnectDelay = 5 * time.Second

	// DefaultEmptyDisconnectDelay is how long the bot stays in a channel without listeners.
	DefaultEmptyDisconnectDelay = 30 * time.Second

	leaveTimeout = 10 * time.Second
)

type disconnectReason string

const (
	reasonIdle  disconnectReason = "idle"
	reasonEmpty disconnectReason = "empty"
)

// DisconnectScheduler leaves voice channels some time after a queue finishes
// or the channel runs out of listeners. At most one disconnect is pending per guild.
type DisconnectScheduler struct {
	engine     ports.QueueEngine
	voices     ports.VoiceManager
	listeners  ports.ListenerChecker
	idleDelay  time.Duration
	emptyDelay time.Duration

	mu      sync.Mutex
	pending map[snowflake.ID]*pendingDisconnect
	stopped bool
}

type pendingDisconnect struct {
	timer  *time.Timer
	reason disconnectReason
}

// DisconnectSchedulerOption configures a DisconnectScheduler.
type DisconnectSchedulerOption func(*DisconnectScheduler)

// WithListenerChecker makes empty-channel disconnects skip channels that have
// listeners again when the timer fires.
func WithListenerChecker(listeners ports.ListenerChecker) DisconnectSchedulerOption {
	return func(s *DisconnectScheduler) {
		s.listeners = listeners
	}
}

// NewDisconnectScheduler creates a new DisconnectScheduler.
// Non-positive delays fall back to the defaults.
func NewDisconnectScheduler(
	engine ports.QueueEngine,
	voices ports.VoiceManager,
	idleDelay time.Duration,
	emptyDelay time.Duration,
	opts ...DisconnectSchedulerOption,
) *DisconnectScheduler {
	if idleDelay <= 0 {
		idleDelay = DefaultIdleDisconnectDelay
	}
	if emptyDelay <= 0 {
		emptyDelay = DefaultEmptyDisconnectDelay
	}

	s := &DisconnectScheduler{
		engine:     engine,
		voices:     voices,
		idleDelay:  idleDelay,
		emptyDelay: emptyDelay,
		pending:    make(map[snowflake.ID]*pendingDisconnect),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start registers both the cancelling and the arming handlers with the subscriber.
func (s *DisconnectScheduler) Start(subscriber ports.EventSubscriber) error {
	if err := s.SubscribeCancellations(subscriber); err != nil {
		return err
	}
	return s.SubscribeArming(subscriber)
}

// SubscribeCancellations registers the handlers that cancel pending disconnects.
// Subscribe them before slow handlers such as the event formatter so a starting
// song cancels its guild's timer without waiting on chat sends.
func (s *DisconnectScheduler) SubscribeCancellations(subscriber ports.EventSubscriber) error {
	return subscribeAll(subscriber, []subscription{
		{reflect.TypeFor[domain.PlaySongEvent](), func(_ context.Context, e domain.Event) {
			s.Cancel(e.Guild())
		}},
		{reflect.TypeFor[domain.DisconnectEvent](), func(_ context.Context, e domain.Event) {
			s.Cancel(e.Guild())
		}},
		{reflect.TypeFor[domain.ListenersReturnedEvent](), func(_ context.Context, e domain.Event) {
			s.CancelEmpty(e.Guild())
		}},
	})
}

// SubscribeArming registers the handlers that arm disconnects.
// Subscribe them after the event formatter so notices are sent before the timers are armed.
func (s *DisconnectScheduler) SubscribeArming(subscriber ports.EventSubscriber) error {
	err := subscribeAll(subscriber, []subscription{
		{reflect.TypeFor[domain.FinishEvent](), func(_ context.Context, e domain.Event) {
			s.ScheduleIdle(e.Guild())
		}},
		{reflect.TypeFor[domain.EmptyEvent](), func(_ context.Context, e domain.Event) {
			s.ScheduleEmpty(e.Guild())
		}},
	})
	if err != nil {
		return err
	}

	slog.Debug("disconnect scheduler properly registered")

	return nil
}

type subscription struct {
	eventType reflect.Type
	handler   func(context.Context, domain.Event)
}

func subscribeAll(subscriber ports.EventSubscriber, subs []subscription) error {
	for _, sub := range subs {
		if err := subscriber.Subscribe(sub.eventType, sub.handler); err != nil {
			return err
		}
	}
	return nil
}

// ScheduleIdle arms the disconnect that follows a finished queue.
func (s *DisconnectScheduler) ScheduleIdle(guildID snowflake.ID) {
	s.arm(guildID, s.idleDelay, reasonIdle)
}

// ScheduleEmpty arms the disconnect that follows the last listener leaving.
// The bot only leaves if the guild still has a queue when the timer fires.
func (s *DisconnectScheduler) ScheduleEmpty(guildID snowflake.ID) {
	s.arm(guildID, s.emptyDelay, reasonEmpty)
}

// Cancel drops the pending disconnect for the guild, if any.
// It reports whether a disconnect was pending.
func (s *DisconnectScheduler) Cancel(guildID snowflake.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.pending[guildID]
	if !ok {
		return false
	}
	entry.timer.Stop()
	delete(s.pending, guildID)

	slog.Debug("cancelled pending disconnect", "guild", guildID)

	return true
}

// CancelEmpty drops the guild's pending empty-channel disconnect.
// A pending idle disconnect is kept. It reports whether a disconnect was cancelled.
func (s *DisconnectScheduler) CancelEmpty(guildID snowflake.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.pending[guildID]
	if !ok || entry.reason != reasonEmpty {
		return false
	}
	entry.timer.Stop()
	delete(s.pending, guildID)

	slog.Debug("cancelled empty-channel disconnect", "guild", guildID)

	return true
}

// Pending reports whether a disconnect is armed for the guild.
func (s *DisconnectScheduler) Pending(guildID snowflake.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.pending[guildID]
	return ok
}

// Stop cancels every pending disconnect. Later calls to Schedule* are ignored.
func (s *DisconnectScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for guildID, entry := range s.pending {
		entry.timer.Stop()
		delete(s.pending, guildID)
	}
}

func (s *DisconnectScheduler) arm(
	guildID snowflake.ID,
	delay time.Duration,
	reason disconnectReason,
) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	if previous, ok := s.pending[guildID]; ok {
		previous.timer.Stop()
	}

	entry := &pendingDisconnect{reason: reason}
	entry.timer = time.AfterFunc(delay, func() {
		s.fire(guildID, entry)
	})
	s.pending[guildID] = entry

	slog.Debug(
		"scheduled disconnect",
		"guild", guildID,
		"reason", reason,
		"delay", delay,
	)
}

func (s *DisconnectScheduler) fire(guildID snowflake.ID, entry *pendingDisconnect) {
	s.mu.Lock()
	if s.pending[guildID] != entry {
		// Replaced or cancelled after the timer already fired.
		s.mu.Unlock()
		return
	}
	delete(s.pending, guildID)
	s.mu.Unlock()

	reason := entry.reason

	if reason == reasonEmpty {
		if s.engine.GetQueue(guildID) == nil {
			slog.Debug("queue is gone, skipping empty-channel disconnect", "guild", guildID)
			return
		}
		if s.listeners != nil && s.listeners.HasListeners(guildID) {
			slog.Debug("listeners returned, skipping empty-channel disconnect", "guild", guildID)
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
	defer cancel()

	if err := s.voices.Leave(ctx, guildID); err != nil {
		slog.Error(
			"failed to leave voice channel",
			"guild", guildID,
			"reason", reason,
			"error", err,
		)
		return
	}

	slog.Info("left voice channel", "guild", guildID, "reason", reason)
}
