package bot

import (
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// intents are the gateway intents the bot subscribes to.
const intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildVoiceStates |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsMessageContent

// Bot manages the Discord bot lifecycle and module coordination.
type Bot struct {
	config    *Config
	session   *discordgo.Session
	registry  *Registry
	startedAt time.Time

	mu       sync.RWMutex
	handlers map[string]InteractionHandler
}

// NewBot creates a new Bot instance with the given configuration and modules.
func NewBot(cfg *Config, modules ...Module) (*Bot, error) {
	b := &Bot{
		config:    cfg,
		registry:  NewRegistry(),
		startedAt: time.Now(),
		handlers:  make(map[string]InteractionHandler),
	}

	for _, mod := range modules {
		if err := b.registry.Register(mod); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// Start initializes the bot, connects to Discord, and registers commands.
func (b *Bot) Start() error {
	// Load module configuration before connecting
	if err := b.loadModuleConfigs(); err != nil {
		return fmt.Errorf("failed to load module config: %w", err)
	}

	// Create Discord session
	session, err := discordgo.New("Bot " + b.config.Token)
	if err != nil {
		return fmt.Errorf("failed to create Discord session: %w", err)
	}
	session.Identify.Intents = intents
	b.session = session

	// Register interaction handler
	b.session.AddHandler(b.handleInteraction)

	// Open connection; the ready event has populated State.User once this returns
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	// Initialize modules
	deps := ModuleDependencies{
		Session:   b.session,
		StartedAt: b.startedAt,
		ReadyAt:   time.Now(),
	}
	if err := b.initModules(deps); err != nil {
		return fmt.Errorf("failed to initialize modules: %w", err)
	}

	// Build handler map
	b.buildHandlerMap()

	// Register module event handlers
	b.registerEventHandlers()

	// Register commands
	if err := b.registerCommands(); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	slog.Info("started bot",
		"user_id", b.session.State.User.ID,
		"username", b.session.State.User.Username,
	)

	return nil
}

// Stop gracefully shuts down the bot.
func (b *Bot) Stop() error {
	b.shutdownModules()

	// Close Discord session
	if b.session != nil {
		return b.session.Close()
	}

	return nil
}

// loadModuleConfigs loads the configuration of every configurable module.
func (b *Bot) loadModuleConfigs() error {
	for _, mod := range b.registry.Modules() {
		configurable, ok := mod.(ConfigurableModule)
		if !ok {
			continue
		}
		if err := configurable.LoadConfig(); err != nil {
			return fmt.Errorf("%s module: %w", mod.Name(), err)
		}
	}
	return nil
}

// initModules initializes all registered modules.
func (b *Bot) initModules(deps ModuleDependencies) error {
	for _, mod := range b.registry.Modules() {
		if err := mod.Init(deps); err != nil {
			return fmt.Errorf("failed to initialize %s module: %w", mod.Name(), err)
		}
		slog.Debug("initialized module", "module", mod.Name())
	}

	slog.Info("initialized modules", "modules", b.registry.Names())

	return nil
}

// shutdownModules shuts modules down in reverse registration order.
func (b *Bot) shutdownModules() {
	modules := b.registry.Modules()
	for i := len(modules) - 1; i >= 0; i-- {
		if err := modules[i].Shutdown(); err != nil {
			slog.Warn("failed to shutdown module", "module", modules[i].Name(), "error", err)
		}
	}
}

// buildHandlerMap builds the command name to handler mapping.
func (b *Bot) buildHandlerMap() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, mod := range b.registry.Modules() {
		maps.Copy(b.handlers, mod.CommandHandlers())
	}
}

// handler returns the handler for a command name.
func (b *Bot) handler(name string) (InteractionHandler, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	h, ok := b.handlers[name]
	return h, ok
}

// registerEventHandlers registers all module event handlers with the session.
func (b *Bot) registerEventHandlers() {
	for _, mod := range b.registry.Modules() {
		for _, handler := range mod.EventHandlers() {
			b.session.AddHandler(handler)
		}
	}
}

// collectCommands gathers all commands from registered modules.
func (b *Bot) collectCommands() []*discordgo.ApplicationCommand {
	var commands []*discordgo.ApplicationCommand
	for _, mod := range b.registry.Modules() {
		commands = append(commands, mod.Commands()...)
	}
	return commands
}

// registerCommands replaces the application's global commands with the module commands.
func (b *Bot) registerCommands() error {
	commands := b.collectCommands()

	registered, err := b.session.ApplicationCommandBulkOverwrite(
		b.config.ClientID,
		"", // Empty string registers commands globally
		commands,
	)
	if err != nil {
		return err
	}

	slog.Info("registered commands", "count", len(registered))

	return nil
}

// Embed colors for responses.
const (
	colorYellow = 0xFFFF00
	colorRed    = 0xFF0000
)

// handleInteraction routes incoming interactions to the appropriate handler.
func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	b.dispatch(s, i, NewDiscordResponder(s, i.Interaction))
}

// dispatch runs the command handler, answering unknown commands, errors and panics.
func (b *Bot) dispatch(s *discordgo.Session, i *discordgo.InteractionCreate, r Responder) {
	cmdName := i.ApplicationCommandData().Name

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("recovered from command panic", "command", cmdName, "panic", rec)
			respondWithEmbed(r, "Error", "An error occurred while processing your command.", colorRed)
		}
	}()

	handler, ok := b.handler(cmdName)
	if !ok {
		slog.Warn("found no handler for command", "command", cmdName)
		respondWithEmbed(r, "Unknown Command", "This command is not recognized.", colorYellow)
		return
	}

	if err := handler(s, i, r); err != nil {
		slog.Error("failed to handle command", "command", cmdName, "error", err)
		respondWithEmbed(r, "Error", "An error occurred while processing your command.", colorRed)
	}
}

// respondWithEmbed sends an ephemeral embed response to an interaction.
func respondWithEmbed(r Responder, title, description string, color int) {
	err := r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       title,
					Description: description,
					Color:       color,
				},
			},
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		slog.Error("failed to send embed response", "error", err)
	}
}
