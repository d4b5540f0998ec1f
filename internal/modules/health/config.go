package health

// Config holds the health module configuration.
type Config struct {
	Port int `env:"PORT" envDefault:"3000"`
}
