package presentation

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sglre6355/tunebot/internal/modules/health/application"
)

// Handler serves the status endpoints.
type Handler struct {
	interactor *application.StatusInteractor
}

// NewHandler creates a new Handler.
func NewHandler(interactor *application.StatusInteractor) *Handler {
	return &Handler{interactor: interactor}
}

// Router returns a gin engine with the status routes registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/", h.handleStatus)
	r.GET("/health", h.handleHealth)
	return r
}

func (h *Handler) handleStatus(c *gin.Context) {
	report := h.interactor.Status()

	bot := gin.H{"ready": report.Bot.Ready}
	if report.Bot.Ready {
		bot["guilds"] = report.Bot.Guilds
		bot["users"] = report.Bot.Users
		bot["uptime"] = report.Bot.Uptime.Milliseconds()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    report.Status,
		"message":   report.Message,
		"timestamp": report.Timestamp.UTC().Format(time.RFC3339Nano),
		"bot":       bot,
	})
}

func (h *Handler) handleHealth(c *gin.Context) {
	result := h.interactor.Health()

	c.JSON(http.StatusOK, gin.H{
		"status":    result.Status,
		"timestamp": result.Timestamp.UTC().Format(time.RFC3339Nano),
		"uptime":    result.Uptime.Seconds(),
	})
}
