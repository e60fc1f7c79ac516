package config

import (
	"fmt"
	"os"
	"time"

	"yukifiles/internal/MinIO"
	"yukifiles/internal/reputation"
	"yukifiles/internal/service/riskService"
	"yukifiles/pkg/database/postgres"
	"yukifiles/pkg/database/redis"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	AppEnv   string `env:"APP_ENV" env-default:"production"`
	HTTPPort string `env:"HTTP_PORT" env-default:"8080"`

	JWTSecret string `env:"JWT_TOKEN" env-required:"true"`

	DefaultQuotaLimit int64  `env:"DEFAULT_QUOTA_LIMIT_BYTES" env-default:"1073741824"`
	DefaultVisibility string `env:"DEFAULT_FILE_VISIBILITY" env-default:"private"`
	MaxUploadSize     int64  `env:"MAX_UPLOAD_SIZE_BYTES" env-default:"104857600"`

	RateLimit       int           `env:"AUTH_RATE_LIMIT" env-default:"10"`
	RateLimitWindow time.Duration `env:"AUTH_RATE_LIMIT_WINDOW" env-default:"1h"`

	Risk       riskService.Weights
	Reputation reputation.Config
	Postgres   postgres.Config
	Redis      redis.Config
	MinIO      MinIO.Config
}

// Load reads .env when present and falls back to the process environment.
func Load() (*Config, error) {
	var cfg Config

	if _, err := os.Stat(".env"); err == nil {
		if err := cleanenv.ReadConfig(".env", &cfg); err != nil {
			return nil, fmt.Errorf("cannot read config: %w", err)
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	return &cfg, nil
}

// Development reports whether the app runs in development mode.
func (c *Config) Development() bool {
	return c.AppEnv == "development"
}
