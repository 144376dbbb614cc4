package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	DatabaseURL   string `env:"DATABASE_URL,notEmpty"`
	RedisURL      string `env:"REDIS_URL,notEmpty"`
	MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"db/migrations"`

	GeocoderURL string `env:"GEOCODER_URL" envDefault:"https://nominatim.openstreetmap.org"`

	ReconcileSpec         string        `env:"RECONCILE_SPEC" envDefault:"@every 1h"`
	NotificationRetention time.Duration `env:"NOTIFICATION_RETENTION" envDefault:"720h"`
}

// Load reads .env if present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse environment")
	}
	return cfg, nil
}
