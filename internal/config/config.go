// Package config загружает конфигурацию сервиса из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Поддерживаемые бекенды хранилища
const (
	StorageSQLite = "sqlite"
	StorageMongo  = "mongo"
)

// Config holds runtime configuration for the service.
type Config struct {
	Address  string `envconfig:"ADDRESS" default:":8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Хранилище: sqlite (встроенное) или mongo
	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"sqlite"`
	SQLitePath     string `envconfig:"SQLITE_PATH" default:"authkeeper.db"`
	MongoURI       string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDatabase  string `envconfig:"MONGO_DATABASE" default:"authkeeper"`

	// Секреты подписи токенов, у каждого вида свой
	AccessTokenSecret  string        `envconfig:"ACCESS_TOKEN_SECRET" required:"true"`
	RefreshTokenSecret string        `envconfig:"REFRESH_TOKEN_SECRET" required:"true"`
	AccessTokenTTL     time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"15m"`
	RefreshTokenTTL    time.Duration `envconfig:"REFRESH_TOKEN_TTL" default:"720h"`
	TokenIssuer        string        `envconfig:"TOKEN_ISSUER" default:"authkeeper"`

	// Стоимость bcrypt; 0 — значение по умолчанию библиотеки
	BcryptCost int `envconfig:"BCRYPT_COST" default:"0"`

	// Secure атрибут cookie; выключается только для локальной разработки
	CookieSecure bool `envconfig:"COOKIE_SECURE" default:"true"`
}

// Load reads configuration from environment variables with the AUTHKEEPER prefix.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("authkeeper", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет согласованность конфигурации
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageSQLite, StorageMongo:
	default:
		return fmt.Errorf("unknown storage backend: %q", c.StorageBackend)
	}

	if c.AccessTokenSecret == "" {
		return fmt.Errorf("access token secret must be provided")
	}
	if c.RefreshTokenSecret == "" {
		return fmt.Errorf("refresh token secret must be provided")
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return fmt.Errorf("access and refresh token secrets must differ")
	}

	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}

	return nil
}

// SlogLevel переводит текстовый уровень логирования в slog.Level
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
