package application

import (
	"time"

	"github.com/sglre6355/tunebot/internal/modules/health/domain"
)

// BotStatsSource reports the current Discord statistics.
type BotStatsSource interface {
	BotStats() domain.BotStats
}

// StatusInteractor handles the status and health use cases.
type StatusInteractor struct {
	source    BotStatsSource
	startedAt time.Time
	now       func() time.Time
}

// NewStatusInteractor creates a new StatusInteractor for a process started at startedAt.
func NewStatusInteractor(source BotStatsSource, startedAt time.Time) *StatusInteractor {
	return &StatusInteractor{
		source:    source,
		startedAt: startedAt,
		now:       time.Now,
	}
}

// Status returns the detailed bot status.
func (s *StatusInteractor) Status() *domain.StatusReport {
	var stats domain.BotStats
	if s.source != nil {
		stats = s.source.BotStats()
	}
	return domain.NewStatusReport(stats, s.now())
}

// Health returns the liveness result.
func (s *StatusInteractor) Health() *domain.HealthResult {
	now := s.now()
	return domain.NewHealthResult(now.Sub(s.startedAt), now)
}
