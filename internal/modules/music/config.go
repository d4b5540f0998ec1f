package music

import "time"

// Config holds the music module configuration.
type Config struct {
	LavalinkAddress      string        `env:"LAVALINK_ADDRESS"       envDefault:"localhost:2333"`
	LavalinkPassword     string        `env:"LAVALINK_PASSWORD"      envDefault:"youshallnotpass"`
	LavalinkSecure       bool          `env:"LAVALINK_SECURE"        envDefault:"false"`
	IdleDisconnectDelay  time.Duration `env:"IDLE_DISCONNECT_DELAY"  envDefault:"5s"`
	EmptyDisconnectDelay time.Duration `env:"EMPTY_DISCONNECT_DELAY" envDefault:"30s"`
}
