package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken string `mapstructure:"TELEGRAM_TOKEN"`
	DBDSN         string `mapstructure:"DB_DSN"`
	Environment   string `mapstructure:"ENV"`

	MigrationsPath   string  `mapstructure:"MIGRATIONS_PATH"`
	AdminTelegramIDs []int64 `mapstructure:"ADMIN_TELEGRAM_IDS"`

	StorageDir       string   `mapstructure:"STORAGE_DIR"`
	StorageBaseURL   string   `mapstructure:"STORAGE_BASE_URL"`
	MaxUploadMB      int64    `mapstructure:"MAX_UPLOAD_MB"`
	AllowedMIMETypes []string `mapstructure:"ALLOWED_MIME_TYPES"`

	LateAfter          time.Duration `mapstructure:"LATE_AFTER_MINUTES"`
	NotifyPollInterval time.Duration `mapstructure:"NOTIFY_POLL_INTERVAL"`
	NotifyBatchSize    int           `mapstructure:"NOTIFY_BATCH_SIZE"`
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	log.Printf("Config loaded (env=%s, admins=%d)\n", cfg.Environment, len(cfg.AdminTelegramIDs))

	return cfg, nil
}

// FromEnv читает конфигурацию из переменных окружения
func FromEnv() (*Config, error) {
	cfg := &Config{
		DBDSN:          os.Getenv("DB_DSN"),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		Environment:    envOr("ENV", "development"),
		MigrationsPath: envOr("MIGRATIONS_PATH", "migrations"),
		StorageDir:     envOr("STORAGE_DIR", "data/files"),
		StorageBaseURL: envOr("STORAGE_BASE_URL", "/files"),
	}

	// Проверяем обязательные поля
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is required but not set")
	}

	var err error
	if cfg.AdminTelegramIDs, err = int64List("ADMIN_TELEGRAM_IDS"); err != nil {
		return nil, err
	}

	if cfg.MaxUploadMB, err = positiveInt("MAX_UPLOAD_MB", 10); err != nil {
		return nil, err
	}

	lateMinutes, err := positiveInt("LATE_AFTER_MINUTES", 15)
	if err != nil {
		return nil, err
	}
	cfg.LateAfter = time.Duration(lateMinutes) * time.Minute

	batch, err := positiveInt("NOTIFY_BATCH_SIZE", 50)
	if err != nil {
		return nil, err
	}
	cfg.NotifyBatchSize = int(batch)

	cfg.NotifyPollInterval = 5 * time.Second
	if raw := os.Getenv("NOTIFY_POLL_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("NOTIFY_POLL_INTERVAL must be a positive duration, got %q", raw)
		}
		cfg.NotifyPollInterval = d
	}

	cfg.AllowedMIMETypes = stringList("ALLOWED_MIME_TYPES")

	return cfg, nil
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

// MaxUploadBytes лимит размера одного вложения
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func positiveInt(key string, def int64) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return n, nil
}

func stringList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func int64List(key string) ([]int64, error) {
	var out []int64
	for _, part := range stringList(key) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid id %q", key, part)
		}
		out = append(out, id)
	}
	return out, nil
}
