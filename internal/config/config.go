package config

import (
	"errors"
	"fmt"
	"os"

	"valetcore/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App                AppConfig                  `yaml:"app"`
	Server             ServerConfig               `yaml:"server"`
	Database           DatabaseConfig             `yaml:"database"`
	Redis              RedisConfig                `yaml:"redis"`
	Logging            LoggingConfig              `yaml:"logging"`
	Sync               SyncConfig                 `yaml:"sync"`
	Archive            ArchiveConfig              `yaml:"archive"`
	Notifications      NotificationsConfig        `yaml:"notifications"`
	Booking            BookingConfig              `yaml:"booking"`
	Packages           []models.ServicePackage    `yaml:"packages"`
	AdditionalServices []models.AdditionalService `yaml:"additional_services"`
	Exports            ExportConfig               `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type ServerConfig struct {
	Port      int             `yaml:"port"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type AuthConfig struct {
	Enabled      bool        `yaml:"enabled"`
	HeaderAPIKey string      `yaml:"header_api_key"`
	APIKeys      []ClientKey `yaml:"api_keys"`
}

type ClientKey struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	TTL      int    `yaml:"ttl"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type SyncConfig struct {
	IntervalMinutes int `yaml:"interval_minutes"`
}

type ArchiveConfig struct {
	RetentionDays int `yaml:"retention_days"`
}

type NotificationsConfig struct {
	FeedbackURL string         `yaml:"feedback_url"`
	Telegram    TelegramConfig `yaml:"telegram"`
	SMTP        SMTPConfig     `yaml:"smtp"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

type SMTPConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type BookingConfig struct {
	MaxAdvanceDays         int `yaml:"max_advance_days"`
	DefaultDurationMinutes int `yaml:"default_duration_minutes"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env overrides are optional; a missing file is not an error.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Expand ${VAR} references before parsing so secrets stay out of yaml.
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Notifications.Telegram.Enabled && c.Notifications.Telegram.BotToken == "" {
		return errors.New("telegram notifications enabled without bot token")
	}
	if c.Notifications.SMTP.Enabled && c.Notifications.SMTP.Host == "" {
		return errors.New("smtp notifications enabled without host")
	}

	return ValidatePackages(c.Packages)
}

func ValidatePackages(packages []models.ServicePackage) error {
	types := make(map[string]bool)
	for _, pkg := range packages {
		if pkg.Type == "" {
			return fmt.Errorf("package %q has no type", pkg.Name)
		}
		if types[pkg.Type] {
			return fmt.Errorf("duplicate package type found: %s", pkg.Type)
		}
		types[pkg.Type] = true

		for _, task := range pkg.Tasks {
			if task.AllocatedTime <= 0 {
				return fmt.Errorf("package %s: task %q has no allocated time", pkg.Type, task.Name)
			}
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "valetcore"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Auth.HeaderAPIKey == "" {
		c.Server.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.Server.RateLimit.RPS == 0 {
		c.Server.RateLimit.RPS = models.RateLimitRPS
	}
	if c.Server.RateLimit.Burst == 0 {
		c.Server.RateLimit.Burst = models.RateLimitBurst
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = models.DefaultRedisTTL
	}
	if c.Sync.IntervalMinutes == 0 {
		c.Sync.IntervalMinutes = models.DefaultSyncIntervalMinutes
	}
	if c.Archive.RetentionDays == 0 {
		c.Archive.RetentionDays = models.DefaultRetentionDays
	}
	if c.Booking.MaxAdvanceDays == 0 {
		c.Booking.MaxAdvanceDays = 365
	}
	if c.Booking.DefaultDurationMinutes == 0 {
		c.Booking.DefaultDurationMinutes = models.DefaultServiceDurationMinutes
	}
	if c.Notifications.SMTP.Port == 0 {
		c.Notifications.SMTP.Port = 587
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
