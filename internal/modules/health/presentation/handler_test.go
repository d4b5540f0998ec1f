package presentation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sglre6355/tunebot/internal/modules/health/application"
	"github.com/sglre6355/tunebot/internal/modules/health/domain"
)

type stubStats struct {
	stats domain.BotStats
}

func (s stubStats) BotStats() domain.BotStats { return s.stats }

func newTestRouter(stats domain.BotStats) *gin.Engine {
	gin.SetMode(gin.TestMode)
	interactor := application.NewStatusInteractor(stubStats{stats: stats}, time.Now().Add(-time.Minute))
	return NewHandler(interactor).Router()
}

func serve(t *testing.T, router http.Handler, path string) map[string]any {
	t.Helper()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	return body
}

func TestHandler_Health(t *testing.T) {
	body := serve(t, newTestRouter(domain.BotStats{}), "/health")

	if body["status"] != "OK" {
		t.Errorf("expected status %q, got %v", "OK", body["status"])
	}
	uptime, ok := body["uptime"].(float64)
	if !ok || uptime < 59 {
		t.Errorf("expected uptime of about a minute, got %v", body["uptime"])
	}
	if _, err := time.Parse(time.RFC3339Nano, body["timestamp"].(string)); err != nil {
		t.Errorf("expected RFC 3339 timestamp: %v", err)
	}
}

func TestHandler_StatusReady(t *testing.T) {
	body := serve(t, newTestRouter(domain.BotStats{
		Ready:  true,
		Guilds: 2,
		Users:  30,
		Uptime: 1500 * time.Millisecond,
	}), "/")

	if body["status"] != "online" {
		t.Errorf("expected status %q, got %v", "online", body["status"])
	}

	bot, ok := body["bot"].(map[string]any)
	if !ok {
		t.Fatalf("expected bot object, got %v", body["bot"])
	}
	if bot["ready"] != true || bot["guilds"] != float64(2) || bot["users"] != float64(30) {
		t.Errorf("unexpected bot stats %v", bot)
	}
	if bot["uptime"] != float64(1500) {
		t.Errorf("expected uptime in milliseconds, got %v", bot["uptime"])
	}
}

func TestHandler_StatusNotReady(t *testing.T) {
	body := serve(t, newTestRouter(domain.BotStats{}), "/")

	bot := body["bot"].(map[string]any)
	if bot["ready"] != false {
		t.Errorf("expected ready false, got %v", bot["ready"])
	}
	if _, ok := bot["guilds"]; ok {
		t.Error("expected no guild count before the bot is ready")
	}
}

func TestHandler_UnknownRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(domain.BotStats{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
