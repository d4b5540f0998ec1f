package domain

import "time"

// BotStats describes the Discord side of the process.
type BotStats struct {
	Ready  bool
	Guilds int
	Users  int
	Uptime time.Duration // Time since the gateway session became ready
}

// StatusReport is the detailed status served at the root endpoint.
type StatusReport struct {
	Status    string
	Message   string
	Timestamp time.Time
	Bot       BotStats
}

// NewStatusReport creates an online StatusReport for the given bot stats.
func NewStatusReport(stats BotStats, now time.Time) *StatusReport {
	return &StatusReport{
		Status:    "online",
		Message:   "Discord Music Bot is running!",
		Timestamp: now,
		Bot:       stats,
	}
}

// HealthResult is the liveness result served at the health endpoint.
type HealthResult struct {
	Status    string
	Timestamp time.Time
	Uptime    time.Duration // Time since the process started
}

// NewHealthResult creates a HealthResult.
func NewHealthResult(uptime time.Duration, now time.Time) *HealthResult {
	return &HealthResult{
		Status:    "OK",
		Timestamp: now,
		Uptime:    uptime,
	}
}
