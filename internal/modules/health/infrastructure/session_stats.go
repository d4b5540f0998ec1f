package infrastructure

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/tunebot/internal/modules/health/application"
	"github.com/sglre6355/tunebot/internal/modules/health/domain"
)

// SessionStats reads bot statistics from the discordgo state cache.
type SessionStats struct {
	session *discordgo.Session
	readyAt time.Time
}

// NewSessionStats creates a new SessionStats for a session that became ready at readyAt.
func NewSessionStats(session *discordgo.Session, readyAt time.Time) *SessionStats {
	return &SessionStats{
		session: session,
		readyAt: readyAt,
	}
}

// BotStats returns the guild and member counts of the cached guilds.
func (s *SessionStats) BotStats() domain.BotStats {
	if s.session == nil || s.session.State == nil {
		return domain.BotStats{}
	}

	state := s.session.State
	state.RLock()
	defer state.RUnlock()

	if state.User == nil {
		return domain.BotStats{}
	}

	users := 0
	for _, guild := range state.Guilds {
		users += guild.MemberCount
	}

	return domain.BotStats{
		Ready:  true,
		Guilds: len(state.Guilds),
		Users:  users,
		Uptime: time.Since(s.readyAt),
	}
}

// Ensure SessionStats implements BotStatsSource.
var _ application.BotStatsSource = (*SessionStats)(nil)
