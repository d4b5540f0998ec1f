package health

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"
	"github.com/gin-gonic/gin"
	"github.com/sglre6355/tunebot/internal/bot"
	"github.com/sglre6355/tunebot/internal/modules/health/application"
	"github.com/sglre6355/tunebot/internal/modules/health/infrastructure"
	"github.com/sglre6355/tunebot/internal/modules/health/presentation"
)

const shutdownTimeout = 5 * time.Second

// Compile-time interface checks.
var (
	_ bot.Module             = (*Module)(nil)
	_ bot.ConfigurableModule = (*Module)(nil)
)

// Module serves the HTTP status and health endpoints.
type Module struct {
	config *Config
	server *presentation.Server
}

// New creates a new health Module.
func New() *Module {
	return &Module{}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "health"
}

// Commands returns no slash commands.
func (m *Module) Commands() []*discordgo.ApplicationCommand {
	return nil
}

// CommandHandlers returns no command handlers.
func (m *Module) CommandHandlers() map[string]bot.InteractionHandler {
	return nil
}

// EventHandlers returns no event handlers.
func (m *Module) EventHandlers() []bot.EventHandler {
	return nil
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

// Init starts the HTTP server.
func (m *Module) Init(deps bot.ModuleDependencies) error {
	if m.config == nil {
		if err := m.LoadConfig(); err != nil {
			return err
		}
	}

	gin.SetMode(gin.ReleaseMode)

	stats := infrastructure.NewSessionStats(deps.Session, deps.ReadyAt)
	interactor := application.NewStatusInteractor(stats, deps.StartedAt)
	handler := presentation.NewHandler(interactor)

	m.server = presentation.NewServer(fmt.Sprintf(":%d", m.config.Port), handler.Router())
	return m.server.Start()
}

// Shutdown stops the HTTP server.
func (m *Module) Shutdown() error {
	if m.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return m.server.Shutdown(ctx)
}
