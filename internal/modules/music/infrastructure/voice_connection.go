package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/modules/music/application/ports"
)

// voiceConnectionTimeout is the maximum time to wait for voice connection to be established.
const voiceConnectionTimeout = 10 * time.Second

// voiceGateway sends voice state updates over the Discord gateway.
type voiceGateway interface {
	ChannelVoiceJoinManual(gID, cID string, mute, deaf bool) error
}

// voiceForwarder receives complete voice updates. disgolink.Client implements it.
type voiceForwarder interface {
	OnVoiceStateUpdate(ctx context.Context, guildID snowflake.ID, channelID *snowflake.ID, sessionID string)
	OnVoiceServerUpdate(ctx context.Context, guildID snowflake.ID, token string, endpoint string)
}

// pendingVoiceConnection tracks the state of a pending voice connection.
type pendingVoiceConnection struct {
	mu             sync.Mutex
	hasVoiceState  bool
	hasVoiceServer bool
	ready          chan struct{}
}

// onEvent marks an event as received and signals ready if both events are present.
func (p *pendingVoiceConnection) onEvent(isVoiceState bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if isVoiceState {
		p.hasVoiceState = true
	} else {
		p.hasVoiceServer = true
	}

	if p.hasVoiceState && p.hasVoiceServer {
		select {
		case <-p.ready:
			// Already closed
		default:
			close(p.ready)
		}
	}
}

// voiceEventBuffer holds the halves of a voice update until both arrived.
// Lavalink rejects partial voice states, and Discord sends the halves in any order.
type voiceEventBuffer struct {
	hasVoiceState bool
	channelID     *snowflake.ID
	sessionID     string

	hasVoiceServer bool
	token          string
	endpoint       string
}

func (b *voiceEventBuffer) complete() bool {
	return b.hasVoiceState && b.hasVoiceServer
}

// VoiceConnection joins and leaves voice channels through the Discord gateway
// and relays the resulting voice updates to Lavalink.
type VoiceConnection struct {
	gateway   voiceGateway
	forwarder voiceForwarder
	botID     snowflake.ID

	mu      sync.Mutex
	pending map[snowflake.ID]*pendingVoiceConnection
	buffers map[snowflake.ID]*voiceEventBuffer
}

// NewVoiceConnection creates a new VoiceConnection.
func NewVoiceConnection(
	gateway voiceGateway,
	forwarder voiceForwarder,
	botID snowflake.ID,
) *VoiceConnection {
	return &VoiceConnection{
		gateway:   gateway,
		forwarder: forwarder,
		botID:     botID,
		pending:   make(map[snowflake.ID]*pendingVoiceConnection),
		buffers:   make(map[snowflake.ID]*voiceEventBuffer),
	}
}

// JoinVoice connects to a voice channel.
// It waits for both VoiceStateUpdate and VoiceServerUpdate events before returning.
func (c *VoiceConnection) JoinVoice(ctx context.Context, guildID, channelID snowflake.ID) error {
	pending := &pendingVoiceConnection{
		ready: make(chan struct{}),
	}

	c.mu.Lock()
	c.pending[guildID] = pending
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.pending[guildID] == pending {
			delete(c.pending, guildID)
		}
		c.mu.Unlock()
	}()

	err := c.gateway.ChannelVoiceJoinManual(guildID.String(), channelID.String(), false, true)
	if err != nil {
		return fmt.Errorf("failed to join voice channel: %w", err)
	}

	select {
	case <-pending.ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context cancelled while waiting for voice connection: %w", ctx.Err())
	case <-time.After(voiceConnectionTimeout):
		return fmt.Errorf("timeout waiting for voice connection")
	}
}

// LeaveVoice disconnects from the guild's voice channel.
func (c *VoiceConnection) LeaveVoice(_ context.Context, guildID snowflake.ID) error {
	c.clearBuffer(guildID)

	err := c.gateway.ChannelVoiceJoinManual(guildID.String(), "", false, false)
	if err != nil {
		return fmt.Errorf("failed to leave voice channel: %w", err)
	}
	return nil
}

// ForceDisconnect sends a raw gateway voice leave, bypassing the queue engine.
func (c *VoiceConnection) ForceDisconnect(ctx context.Context, guildID snowflake.ID) error {
	slog.Warn("forcing voice disconnect", "guild", guildID)
	return c.LeaveVoice(ctx, guildID)
}

// OnVoiceServerUpdate handles Discord voice server updates.
func (c *VoiceConnection) OnVoiceServerUpdate(event *discordgo.VoiceServerUpdate) {
	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice server update", "error", err)
		return
	}

	c.mu.Lock()
	buffer := c.buffer(guildID)
	buffer.hasVoiceServer = true
	buffer.token = event.Token
	buffer.endpoint = event.Endpoint
	ready := c.takeIfComplete(guildID)
	pending := c.pending[guildID]
	c.mu.Unlock()

	if ready != nil {
		c.forward(guildID, ready)
	}
	if pending != nil {
		pending.onEvent(false)
	}
}

// OnVoiceStateUpdate handles Discord voice state updates for the bot.
func (c *VoiceConnection) OnVoiceStateUpdate(event *discordgo.VoiceStateUpdate) {
	if event.UserID != c.botID.String() {
		return
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return
	}

	channelID, err := parseOptionalID(event.ChannelID)
	if err != nil {
		slog.Error("failed to parse channel ID in voice state update", "error", err)
		return
	}

	// Disconnects need no server half.
	if channelID == nil {
		c.clearBuffer(guildID)
		c.forwarder.OnVoiceStateUpdate(context.Background(), guildID, nil, event.SessionID)
		return
	}

	c.mu.Lock()
	buffer := c.buffer(guildID)
	buffer.hasVoiceState = true
	buffer.channelID = channelID
	buffer.sessionID = event.SessionID
	ready := c.takeIfComplete(guildID)
	pending := c.pending[guildID]
	c.mu.Unlock()

	if ready != nil {
		c.forward(guildID, ready)
	}
	if pending != nil {
		pending.onEvent(true)
	}
}

// buffer returns the guild's buffer, creating it. Callers hold c.mu.
func (c *VoiceConnection) buffer(guildID snowflake.ID) *voiceEventBuffer {
	buffer, ok := c.buffers[guildID]
	if !ok {
		buffer = &voiceEventBuffer{}
		c.buffers[guildID] = buffer
	}
	return buffer
}

// takeIfComplete removes and returns the guild's buffer once both halves arrived.
// Callers hold c.mu.
func (c *VoiceConnection) takeIfComplete(guildID snowflake.ID) *voiceEventBuffer {
	buffer := c.buffers[guildID]
	if buffer == nil || !buffer.complete() {
		return nil
	}
	delete(c.buffers, guildID)
	return buffer
}

func (c *VoiceConnection) clearBuffer(guildID snowflake.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.buffers, guildID)
}

// forward sends a complete voice update to Lavalink, state first.
func (c *VoiceConnection) forward(guildID snowflake.ID, buffer *voiceEventBuffer) {
	slog.Debug("forwarding buffered voice events to Lavalink",
		"guild", guildID,
		"channel", buffer.channelID,
		"hasSessionID", buffer.sessionID != "",
	)

	ctx := context.Background()
	c.forwarder.OnVoiceStateUpdate(ctx, guildID, buffer.channelID, buffer.sessionID)
	c.forwarder.OnVoiceServerUpdate(ctx, guildID, buffer.token, buffer.endpoint)
}

func parseOptionalID(raw string) (*snowflake.ID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := snowflake.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

var _ ports.VoiceDisconnector = (*VoiceConnection)(nil)
