package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	devJWTSecret     = "dev-insecure-secret-change"
	devAdminPassword = "admin12345"
)

// Config holds runtime settings. Every field is read from the environment;
// a local .env file is loaded first without overriding variables that are
// already set.
type Config struct {
	Addr            string        `env:"RUN_ADDRESS" env-default:":8081"`
	AppEnv          string        `env:"APP_ENV" env-default:"development"`
	DatabaseDSN     string        `env:"DB_DSN"`
	AutoMigrate     bool          `env:"DB_AUTO_MIGRATE" env-default:"true"`
	DBLogLevel      string        `env:"DB_LOG_LEVEL" env-default:"error"`
	JWTSecret       string        `env:"JWT_SECRET"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" env-default:"24h"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" env-default:"720h"`
	UploadBase      string        `env:"UPLOAD_BASE" env-default:"uploads"`
	MaxUploadMB     int64         `env:"MAX_UPLOAD_MB" env-default:"5"`
	PublicURL       string        `env:"PUBLIC_URL"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" env-separator:"," env-default:"http://localhost:3000"`
	LogLevel        string        `env:"LOG_LEVEL" env-default:"info"`
	SeedFile        string        `env:"SEED_FILE"`
	AdminEmail      string        `env:"ADMIN_EMAIL" env-default:"admin@banksampah.local"`
	AdminPassword   string        `env:"ADMIN_PASSWORD"`
}

// Load reads .env (if present) and the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("couldn't read .env: %w", err)
	}
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("couldn't read environment variables: %w", err)
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) finish() error {
	if c.JWTSecret == "" {
		if c.IsProduction() {
			return errors.New("JWT_SECRET must be set when APP_ENV=production")
		}
		c.JWTSecret = devJWTSecret
	}
	if c.AdminPassword == "" {
		if c.IsProduction() {
			return errors.New("ADMIN_PASSWORD must be set when APP_ENV=production")
		}
		c.AdminPassword = devAdminPassword
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.MaxUploadMB <= 0 {
		return errors.New("MAX_UPLOAD_MB must be positive")
	}
	c.PublicURL = strings.TrimRight(c.PublicURL, "/")
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// MaxUploadBytes is the per-file upload ceiling.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB * 1024 * 1024
}
