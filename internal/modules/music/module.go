package music

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/tunebot/internal/bot"
	"github.com/sglre6355/tunebot/internal/modules/music/application"
	"github.com/sglre6355/tunebot/internal/modules/music/application/usecases"
	"github.com/sglre6355/tunebot/internal/modules/music/infrastructure"
	"github.com/sglre6355/tunebot/internal/modules/music/presentation/discord"
)

const lavalinkConnectTimeout = 15 * time.Second

// Compile-time interface checks.
var (
	_ bot.Module             = (*Module)(nil)
	_ bot.ConfigurableModule = (*Module)(nil)
)

// Module provides music playback commands backed by Lavalink.
type Module struct {
	config          *Config
	commandHandlers *discord.CommandHandlers
	eventHandlers   *discord.EventHandlers

	eventBus  *infrastructure.ChannelEventBus
	backend   *infrastructure.LavalinkBackend
	scheduler *application.DisconnectScheduler
}

// New creates a new music Module.
func New() *Module {
	return &Module{}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "music"
}

// Commands returns the slash commands for this module.
func (m *Module) Commands() []*discordgo.ApplicationCommand {
	return discord.Commands()
}

// CommandHandlers returns the command handlers for this module.
func (m *Module) CommandHandlers() map[string]bot.InteractionHandler {
	if m.commandHandlers == nil {
		return nil
	}
	return m.commandHandlers.Handlers()
}

// EventHandlers returns the event handlers for this module.
func (m *Module) EventHandlers() []bot.EventHandler {
	if m.eventHandlers == nil {
		return nil
	}
	return []bot.EventHandler{
		m.eventHandlers.HandleVoiceServerUpdate,
		m.eventHandlers.HandleVoiceStateUpdate,
	}
}

// LoadConfig loads module-specific configuration from environment variables.
func (m *Module) LoadConfig() error {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return err
	}
	m.config = cfg
	return nil
}

// Init connects to Lavalink and wires the module components.
func (m *Module) Init(deps bot.ModuleDependencies) error {
	if deps.Session == nil || deps.Session.State == nil || deps.Session.State.User == nil {
		return fmt.Errorf("music module requires a ready Discord session")
	}
	if m.config == nil {
		if err := m.LoadConfig(); err != nil {
			return err
		}
	}

	botID, err := snowflake.Parse(deps.Session.State.User.ID)
	if err != nil {
		return fmt.Errorf("failed to parse bot user ID: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), lavalinkConnectTimeout)
	defer cancel()

	backend, err := infrastructure.NewLavalinkBackend(ctx, botID, infrastructure.LavalinkConfig{
		Address:  m.config.LavalinkAddress,
		Password: m.config.LavalinkPassword,
		Secure:   m.config.LavalinkSecure,
	})
	if err != nil {
		return err
	}
	m.backend = backend
	m.eventBus = infrastructure.NewChannelEventBus(infrastructure.DefaultEventBufferSize)

	// Infrastructure
	repo := infrastructure.NewMemoryRepository()
	voiceConn := infrastructure.NewVoiceConnection(deps.Session, backend.Link(), botID)
	voiceState := infrastructure.NewVoiceStateProvider(deps.Session.State)
	users := infrastructure.NewDiscordUserInfoProvider(deps.Session)
	engine := infrastructure.NewQueueEngine(repo, backend, voiceConn, voiceState, users, m.eventBus)
	backend.SetTrackEventHandler(engine)

	m.scheduler = application.NewDisconnectScheduler(
		engine,
		engine,
		m.config.IdleDisconnectDelay,
		m.config.EmptyDisconnectDelay,
		application.WithListenerChecker(engine),
	)
	formatter := discord.NewEventFormatter(
		infrastructure.NewNotifier(deps.Session),
		m.config.IdleDisconnectDelay,
		m.config.EmptyDisconnectDelay,
	)

	// Handlers run in subscription order: cancellations, then chat notices, then timers.
	if err := m.scheduler.SubscribeCancellations(m.eventBus); err != nil {
		return err
	}
	if err := formatter.Start(m.eventBus); err != nil {
		return err
	}
	if err := m.scheduler.SubscribeArming(m.eventBus); err != nil {
		return err
	}

	// Use cases and presentation
	playback := usecases.NewPlaybackService(engine, engine, voiceState)
	voiceChannel := usecases.NewVoiceChannelService(engine, engine, voiceState, voiceConn)

	m.commandHandlers = discord.NewCommandHandlers(playback, voiceChannel)
	m.eventHandlers = discord.NewEventHandlers(botID, voiceConn, engine)

	slog.Info("initialized music module",
		"lavalink_address", m.config.LavalinkAddress,
		"idle_disconnect_delay", m.config.IdleDisconnectDelay,
		"empty_disconnect_delay", m.config.EmptyDisconnectDelay,
	)

	return nil
}

// Shutdown stops pending disconnects and closes the Lavalink connection.
func (m *Module) Shutdown() error {
	if m.scheduler != nil {
		m.scheduler.Stop()
	}
	if m.eventBus != nil {
		m.eventBus.Close()
	}
	if m.backend != nil {
		m.backend.Close()
	}
	return nil
}
