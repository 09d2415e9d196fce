package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"predicta/internal/auth"
)

// Config holds all application configuration.
type Config struct {
	Env      string `env:"APP_ENV" env-default:"local" env-description:"local, dev or prod"`
	Database DatabaseConfig
	GRPC     GRPCConfig
	Metrics  MetricsConfig
	Auth     AuthConfig
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Path string `env:"DB_PATH" env-default:"predicta.db" env-description:"SQLite credential database file"`
}

// GRPCConfig contains gRPC server settings.
type GRPCConfig struct {
	Address string `env:"GRPC_ADDRESS" env-default:"127.0.0.1:50051"`
}

// MetricsConfig controls the Prometheus endpoint; an empty address disables it.
type MetricsConfig struct {
	Address string `env:"METRICS_ADDRESS" env-default:""`
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	JWTSecret    string        `env:"JWT_SECRET" env-description:"session token signing secret"`
	SessionTTL   time.Duration `env:"SESSION_TTL" env-default:"24h"`
	PasswordCost int           `env:"PASSWORD_COST" env-default:"10"`
	LoginRate    float64       `env:"LOGIN_RATE" env-default:"5" env-description:"login attempts per second"`
	LoginBurst   int           `env:"LOGIN_BURST" env-default:"10"`
}

// Load reads configuration from environment variables and requires JWT_SECRET.
func Load() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is not set; required for production")
	}
	return cfg, nil
}

// LoadWithDefaults is like Load but generates a random per-process secret when
// JWT_SECRET is unset. Sessions then end with the process.
func LoadWithDefaults() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if cfg.Auth.JWTSecret == "" {
		secret, err := auth.RandomSecret()
		if err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		cfg.Auth.JWTSecret = secret
	}
	return cfg, nil
}

func read() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	if cfg.Auth.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive, got %s", cfg.Auth.SessionTTL)
	}
	if cfg.Auth.LoginRate <= 0 || cfg.Auth.LoginBurst <= 0 {
		return nil, errors.New("LOGIN_RATE and LOGIN_BURST must be positive")
	}
	return &cfg, nil
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	return fmt.Sprintf("Config{Env: %s, DB: %s, gRPC: %s, Metrics: %q, SessionTTL: %s, Auth: *** (masked) ***}",
		c.Env, c.Database.Path, c.GRPC.Address, c.Metrics.Address, c.Auth.SessionTTL)
}
