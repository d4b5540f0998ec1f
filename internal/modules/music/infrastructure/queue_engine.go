package infrastructure

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/modules/music/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/music/domain"
)

// ErrInvalidQuery is returned when a play request has nothing to search for.
var ErrInvalidQuery = errors.New("invalid query")

const trackEventTimeout = 10 * time.Second

// trackBackend loads and plays tracks. LavalinkBackend implements it.
type trackBackend interface {
	LoadTracks(ctx context.Context, identifier string) (*lavalink.LoadResult, error)
	PlayTrack(ctx context.Context, guildID snowflake.ID, encoded string, volume int) error
	StopTrack(ctx context.Context, guildID snowflake.ID) error
	SetPaused(ctx context.Context, guildID snowflake.ID, paused bool) error
	DestroyPlayer(ctx context.Context, guildID snowflake.ID) error
}

// voiceConnector joins and leaves voice channels. VoiceConnection implements it.
type voiceConnector interface {
	JoinVoice(ctx context.Context, guildID, channelID snowflake.ID) error
	LeaveVoice(ctx context.Context, guildID snowflake.ID) error
}

// listenerCounter counts the humans in a voice channel.
type listenerCounter interface {
	HumanListeners(guildID, channelID snowflake.ID) (int, error)
}

// QueueEngine keeps a song queue per guild on top of Lavalink and publishes
// the queue lifecycle events.
type QueueEngine struct {
	repo      domain.QueueRepository
	backend   trackBackend
	voice     voiceConnector
	listeners listenerCounter
	users     ports.UserInfoProvider
	publisher ports.EventPublisher

	mu          sync.Mutex
	connections map[snowflake.ID]snowflake.ID // guildID -> voice channel
	empty       map[snowflake.ID]bool         // guilds whose channel has no listeners
}

// NewQueueEngine creates a new QueueEngine.
func NewQueueEngine(
	repo domain.QueueRepository,
	backend trackBackend,
	voice voiceConnector,
	listeners listenerCounter,
	users ports.UserInfoProvider,
	publisher ports.EventPublisher,
) *QueueEngine {
	return &QueueEngine{
		repo:        repo,
		backend:     backend,
		voice:       voice,
		listeners:   listeners,
		users:       users,
		publisher:   publisher,
		connections: make(map[snowflake.ID]snowflake.ID),
		empty:       make(map[snowflake.ID]bool),
	}
}

// GetQueue returns a snapshot of the guild's queue, or nil.
func (e *QueueEngine) GetQueue(guildID snowflake.ID) *domain.Queue {
	queue, err := e.repo.Get(guildID)
	if err != nil {
		return nil
	}
	return queue
}

// Play resolves query and appends the result to the guild's queue.
// The voice channel is joined only once the query resolved; if this call joined
// and playback then fails to start, the channel is left again.
// Playback starts right away when the queue was idle.
func (e *QueueEngine) Play(ctx context.Context, query string, opts ports.PlayOptions) error {
	searchQuery := domain.NewSearchQuery(query)
	if !searchQuery.IsValid() {
		e.publish(domain.SearchInvalidAnswerEvent{
			GuildID:       opts.GuildID,
			TextChannelID: opts.TextChannelID,
			Query:         query,
		})
		return ErrInvalidQuery
	}

	result, err := e.backend.LoadTracks(ctx, searchQuery.Identifier())
	if err != nil {
		return err
	}

	loaded, err := convertLoadResult(result, searchQuery)
	if errors.Is(err, ErrNoResults) {
		e.publish(domain.SearchNoResultEvent{
			GuildID:       opts.GuildID,
			TextChannelID: opts.TextChannelID,
			Query:         searchQuery.Query,
		})
		return ErrNoResults
	}
	if err != nil {
		return err
	}

	current, connected := e.Get(opts.GuildID)
	joined := !connected || current != opts.VoiceChannelID
	if err := e.Join(ctx, opts.GuildID, opts.VoiceChannelID); err != nil {
		return err
	}

	requesterName := e.requesterName(opts)
	for i := range loaded.songs {
		loaded.songs[i].RequesterID = opts.RequesterID
		loaded.songs[i].RequesterName = requesterName
	}

	e.mu.Lock()
	queue, err := e.repo.Get(opts.GuildID)
	if err != nil {
		queue = domain.NewQueue(opts.GuildID, opts.VoiceChannelID, opts.TextChannelID)
	}
	queue.SetVoiceChannelID(opts.VoiceChannelID)
	queue.SetTextChannelID(opts.TextChannelID)
	wasIdle := queue.IsEmpty()
	queue.Append(loaded.songs...)
	e.repo.Save(queue)
	e.mu.Unlock()

	if loaded.playlist != nil {
		playlist := *loaded.playlist
		playlist.RequesterID = opts.RequesterID
		playlist.Songs = loaded.songs
		e.publish(domain.AddListEvent{Queue: queue, Playlist: playlist})
	} else if !wasIdle {
		e.publish(domain.AddSongEvent{Queue: queue, Song: loaded.songs[0]})
	}

	if !wasIdle {
		return nil
	}

	if err := e.backend.PlayTrack(ctx, opts.GuildID, loaded.songs[0].Encoded, queue.Volume()); err != nil {
		e.repo.Delete(opts.GuildID)
		if joined {
			if leaveErr := e.Leave(ctx, opts.GuildID); leaveErr != nil {
				slog.Warn("failed to leave after playback failed", "guild", opts.GuildID, "error", leaveErr)
			}
		}
		return err
	}
	return nil
}

// Stop stops playback and drops the guild's queue.
func (e *QueueEngine) Stop(ctx context.Context, guildID snowflake.ID) error {
	if e.GetQueue(guildID) == nil {
		return domain.ErrQueueNotFound
	}

	if err := e.backend.StopTrack(ctx, guildID); err != nil {
		return err
	}

	e.repo.Delete(guildID)
	return nil
}

// Pause pauses playback.
func (e *QueueEngine) Pause(ctx context.Context, guildID snowflake.ID) error {
	if e.GetQueue(guildID) == nil {
		return domain.ErrQueueNotFound
	}

	if err := e.backend.SetPaused(ctx, guildID, true); err != nil {
		return err
	}

	return e.update(guildID, func(q *domain.Queue) { q.SetPaused(true) })
}

// Truncate drops every upcoming song, keeping the current one.
func (e *QueueEngine) Truncate(guildID snowflake.ID) error {
	return e.update(guildID, func(q *domain.Queue) { q.Truncate(1) })
}

// Skip ends the current song. The next song starts, or the queue finishes.
func (e *QueueEngine) Skip(ctx context.Context, guildID snowflake.ID) error {
	e.mu.Lock()
	queue, err := e.repo.Get(guildID)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	next := queue.Advance()
	if next == nil {
		e.repo.Delete(guildID)
	} else {
		queue.SetPaused(false)
		e.repo.Save(queue)
	}
	e.mu.Unlock()

	if next == nil {
		if err := e.backend.StopTrack(ctx, guildID); err != nil {
			return err
		}
		e.publish(domain.FinishEvent{Queue: queue})
		return nil
	}

	return e.backend.PlayTrack(ctx, guildID, next.Encoded, queue.Volume())
}

// Join connects to the voice channel unless the bot is already there.
func (e *QueueEngine) Join(ctx context.Context, guildID, channelID snowflake.ID) error {
	if current, ok := e.Get(guildID); ok && current == channelID {
		return nil
	}

	if err := e.voice.JoinVoice(ctx, guildID, channelID); err != nil {
		return err
	}

	e.mu.Lock()
	e.connections[guildID] = channelID
	delete(e.empty, guildID)
	e.mu.Unlock()

	return nil
}

// Leave destroys the guild's player, drops its queue and leaves the voice channel.
func (e *QueueEngine) Leave(ctx context.Context, guildID snowflake.ID) error {
	if err := e.backend.DestroyPlayer(ctx, guildID); err != nil {
		slog.Warn("failed to destroy player", "guild", guildID, "error", err)
	}

	e.repo.Delete(guildID)

	if err := e.voice.LeaveVoice(ctx, guildID); err != nil {
		return err
	}

	e.mu.Lock()
	delete(e.connections, guildID)
	delete(e.empty, guildID)
	e.mu.Unlock()

	return nil
}

// Get returns the voice channel the engine is connected to.
func (e *QueueEngine) Get(guildID snowflake.ID) (snowflake.ID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	channelID, ok := e.connections[guildID]
	return channelID, ok
}

// HandleTrackStart publishes the song that just started.
func (e *QueueEngine) HandleTrackStart(guildID snowflake.ID) {
	queue := e.GetQueue(guildID)
	if queue == nil {
		slog.Debug("track started without a queue", "guild", guildID)
		return
	}

	current := queue.Current()
	if current == nil {
		return
	}

	e.publish(domain.PlaySongEvent{Queue: queue, Song: *current})
}

// HandleTrackEnd advances the queue after a song finished or failed to load.
// Ends caused by stop, replace or cleanup are ignored.
func (e *QueueEngine) HandleTrackEnd(guildID snowflake.ID, mayStartNext bool) {
	if !mayStartNext {
		return
	}

	e.mu.Lock()
	queue, err := e.repo.Get(guildID)
	if err != nil {
		e.mu.Unlock()
		slog.Debug("track ended without a queue", "guild", guildID)
		return
	}
	next := queue.Advance()
	if next == nil {
		e.repo.Delete(guildID)
	} else {
		e.repo.Save(queue)
	}
	e.mu.Unlock()

	if next == nil {
		slog.Debug("queue finished", "guild", guildID)
		e.publish(domain.FinishEvent{Queue: queue})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), trackEventTimeout)
	defer cancel()

	if err := e.backend.PlayTrack(ctx, guildID, next.Encoded, queue.Volume()); err != nil {
		slog.Error("failed to play next song", "guild", guildID, "error", err)
		e.publish(domain.ErrorEvent{
			GuildID:       guildID,
			TextChannelID: queue.TextChannelID(),
			Err:           err,
		})
	}
}

// HandleTrackException reports a playback failure to the queue's text channel.
func (e *QueueEngine) HandleTrackException(guildID snowflake.ID, message string) {
	var textChannelID snowflake.ID
	if queue := e.GetQueue(guildID); queue != nil {
		textChannelID = queue.TextChannelID()
	}

	e.publish(domain.ErrorEvent{
		GuildID:       guildID,
		TextChannelID: textChannelID,
		Err:           errors.New(message),
	})
}

// HandleBotVoiceChannel records where the bot is. A nil channel means the bot was
// disconnected: the queue is dropped and a disconnect event is published.
func (e *QueueEngine) HandleBotVoiceChannel(guildID snowflake.ID, channelID *snowflake.ID) {
	if channelID != nil {
		e.mu.Lock()
		e.connections[guildID] = *channelID
		e.mu.Unlock()

		_ = e.update(guildID, func(q *domain.Queue) { q.SetVoiceChannelID(*channelID) })
		e.HandleListenersChanged(guildID)
		return
	}

	e.mu.Lock()
	delete(e.connections, guildID)
	delete(e.empty, guildID)
	queue, err := e.repo.Get(guildID)
	if err == nil {
		e.repo.Delete(guildID)
	}
	e.mu.Unlock()

	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), trackEventTimeout)
	defer cancel()
	if err := e.backend.DestroyPlayer(ctx, guildID); err != nil {
		slog.Warn("failed to destroy player after disconnect", "guild", guildID, "error", err)
	}

	e.publish(domain.DisconnectEvent{Queue: queue})
}

// HandleListenersChanged publishes an empty event when the bot's channel has
// just lost its last human listener, and a listeners-returned event when
// someone joins it again.
func (e *QueueEngine) HandleListenersChanged(guildID snowflake.ID) {
	channelID, ok := e.Get(guildID)
	if !ok {
		return
	}

	count, err := e.listeners.HumanListeners(guildID, channelID)
	if err != nil {
		slog.Warn("failed to count voice channel listeners", "guild", guildID, "error", err)
		return
	}

	e.mu.Lock()
	wasEmpty := e.empty[guildID]
	if count == 0 {
		e.empty[guildID] = true
	} else {
		delete(e.empty, guildID)
	}
	e.mu.Unlock()

	if count > 0 {
		if wasEmpty {
			e.publish(domain.ListenersReturnedEvent{GuildID: guildID})
		}
		return
	}
	if wasEmpty {
		return
	}

	queue := e.GetQueue(guildID)
	if queue == nil {
		return
	}

	e.publish(domain.EmptyEvent{Queue: queue})
}

// HasListeners reports whether the bot's voice channel has human listeners.
// Without a connection it reports false. If the count fails, the last known state is used.
func (e *QueueEngine) HasListeners(guildID snowflake.ID) bool {
	channelID, ok := e.Get(guildID)
	if !ok {
		return false
	}

	count, err := e.listeners.HumanListeners(guildID, channelID)
	if err != nil {
		slog.Warn("failed to count voice channel listeners", "guild", guildID, "error", err)
		e.mu.Lock()
		defer e.mu.Unlock()
		return !e.empty[guildID]
	}
	return count > 0
}

// update applies fn to the guild's queue and saves it.
func (e *QueueEngine) update(guildID snowflake.ID, fn func(*domain.Queue)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	queue, err := e.repo.Get(guildID)
	if err != nil {
		return err
	}
	fn(queue)
	e.repo.Save(queue)
	return nil
}

func (e *QueueEngine) requesterName(opts ports.PlayOptions) string {
	if opts.RequesterName != "" || e.users == nil || opts.RequesterID == 0 {
		return opts.RequesterName
	}

	info, err := e.users.GetUserInfo(opts.GuildID, opts.RequesterID)
	if err != nil {
		slog.Debug("failed to fetch requester info", "user", opts.RequesterID, "error", err)
		return ""
	}
	return info.DisplayName
}

func (e *QueueEngine) publish(event domain.Event) {
	if err := e.publisher.Publish(event); err != nil {
		slog.Warn("failed to publish event", "guild", event.Guild(), "error", err)
	}
}

// Ensure QueueEngine implements port interfaces.
var (
	_ ports.QueueEngine     = (*QueueEngine)(nil)
	_ ports.VoiceManager    = (*QueueEngine)(nil)
	_ ports.ListenerChecker = (*QueueEngine)(nil)
	_ TrackEventHandler     = (*QueueEngine)(nil)
)
