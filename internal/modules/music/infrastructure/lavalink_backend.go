package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
)

// ErrNoNode is returned when no Lavalink node is available.
var ErrNoNode = errors.New("no available Lavalink node")

// LavalinkConfig contains Lavalink connection configuration.
type LavalinkConfig struct {
	Address  string
	Password string
	Secure   bool
}

// TrackEventHandler receives player events from Lavalink.
type TrackEventHandler interface {
	HandleTrackStart(guildID snowflake.ID)
	HandleTrackEnd(guildID snowflake.ID, mayStartNext bool)
	HandleTrackException(guildID snowflake.ID, message string)
}

// LavalinkBackend wraps DisGoLink: it loads tracks, drives players and
// forwards player events to a TrackEventHandler.
type LavalinkBackend struct {
	link disgolink.Client

	mu      sync.RWMutex
	handler TrackEventHandler
}

// NewLavalinkBackend creates a DisGoLink client for botID and connects it to the node.
func NewLavalinkBackend(
	ctx context.Context,
	botID snowflake.ID,
	config LavalinkConfig,
) (*LavalinkBackend, error) {
	backend := &LavalinkBackend{}

	backend.link = disgolink.New(botID,
		disgolink.WithListenerFunc(backend.onTrackStart),
		disgolink.WithListenerFunc(backend.onTrackEnd),
		disgolink.WithListenerFunc(backend.onTrackException),
		disgolink.WithListenerFunc(backend.onTrackStuck),
	)

	node, err := backend.link.AddNode(ctx, disgolink.NodeConfig{
		Name:     "main",
		Address:  config.Address,
		Password: config.Password,
		Secure:   config.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add Lavalink node: %w", err)
	}

	slog.Info("connected to Lavalink", "node", node.Config().Name, "address", config.Address)

	return backend, nil
}

// Link returns the underlying DisGoLink client.
func (b *LavalinkBackend) Link() disgolink.Client {
	return b.link
}

// SetTrackEventHandler sets the receiver of player events.
func (b *LavalinkBackend) SetTrackEventHandler(handler TrackEventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = handler
}

// LoadTracks resolves an identifier (URL or prefixed search) on the best node.
func (b *LavalinkBackend) LoadTracks(
	ctx context.Context,
	identifier string,
) (*lavalink.LoadResult, error) {
	node := b.link.BestNode()
	if node == nil {
		return nil, ErrNoNode
	}

	result, err := node.LoadTracks(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracks: %w", err)
	}
	return result, nil
}

// PlayTrack starts the encoded track on the guild's player, replacing whatever is playing.
func (b *LavalinkBackend) PlayTrack(
	ctx context.Context,
	guildID snowflake.ID,
	encoded string,
	volume int,
) error {
	player := b.link.Player(guildID)

	// Use WithEncodedTrack to avoid userData:null issue
	err := player.Update(ctx,
		lavalink.WithEncodedTrack(encoded),
		lavalink.WithPaused(false),
		lavalink.WithVolume(volume),
	)
	if err != nil {
		return fmt.Errorf("failed to play track: %w", err)
	}
	return nil
}

// StopTrack stops the current track.
func (b *LavalinkBackend) StopTrack(ctx context.Context, guildID snowflake.ID) error {
	player := b.link.ExistingPlayer(guildID)
	if player == nil {
		return nil
	}

	if err := player.Update(ctx, lavalink.WithNullTrack()); err != nil {
		return fmt.Errorf("failed to stop playback: %w", err)
	}
	return nil
}

// SetPaused pauses or resumes the current track.
func (b *LavalinkBackend) SetPaused(ctx context.Context, guildID snowflake.ID, paused bool) error {
	player := b.link.ExistingPlayer(guildID)
	if player == nil {
		return fmt.Errorf("no player for guild %s", guildID)
	}

	if err := player.Update(ctx, lavalink.WithPaused(paused)); err != nil {
		return fmt.Errorf("failed to pause playback: %w", err)
	}
	return nil
}

// DestroyPlayer destroys the guild's player, if any.
func (b *LavalinkBackend) DestroyPlayer(ctx context.Context, guildID snowflake.ID) error {
	player := b.link.ExistingPlayer(guildID)
	if player == nil {
		return nil
	}

	if err := player.Destroy(ctx); err != nil {
		return fmt.Errorf("failed to destroy player: %w", err)
	}
	return nil
}

// Close closes the Lavalink connection.
func (b *LavalinkBackend) Close() {
	b.link.Close()
}

func (b *LavalinkBackend) trackEventHandler() TrackEventHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.handler
}

func (b *LavalinkBackend) onTrackStart(player disgolink.Player, event lavalink.TrackStartEvent) {
	slog.Debug("track started", "guild", player.GuildID(), "track", event.Track.Info.Title)

	if handler := b.trackEventHandler(); handler != nil {
		handler.HandleTrackStart(player.GuildID())
	}
}

func (b *LavalinkBackend) onTrackEnd(player disgolink.Player, event lavalink.TrackEndEvent) {
	slog.Debug("track ended", "guild", player.GuildID(), "reason", event.Reason)

	if handler := b.trackEventHandler(); handler != nil {
		handler.HandleTrackEnd(player.GuildID(), event.Reason.MayStartNext())
	}
}

func (b *LavalinkBackend) onTrackException(
	player disgolink.Player,
	event lavalink.TrackExceptionEvent,
) {
	slog.Warn("track exception", "guild", player.GuildID(), "error", event.Exception.Message)

	if handler := b.trackEventHandler(); handler != nil {
		handler.HandleTrackException(player.GuildID(), event.Exception.Message)
	}
}

func (b *LavalinkBackend) onTrackStuck(player disgolink.Player, event lavalink.TrackStuckEvent) {
	slog.Warn("track stuck", "guild", player.GuildID(), "threshold", event.Threshold)

	if handler := b.trackEventHandler(); handler != nil {
		handler.HandleTrackException(player.GuildID(), "the track got stuck while playing")
	}
}
