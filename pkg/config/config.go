package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/smith3v/tg-habit-tracker/pkg/logger"
	"gopkg.in/yaml.v3"
)

const (
	DefaultRetentionDays   = 90
	DefaultTelegramTimeout = 10
	DefaultLinkCodeTTL     = 24
	DefaultTimezone        = "UTC"
	DisabledSchedule       = "-"
)

const (
	ConsistencyAllUpdates      = "all_updates"
	ConsistencyScheduleChanges = "schedule_changes"
)

const (
	JobHourlyUpcoming     = "hourly_upcoming"
	JobMorningDigest      = "morning_digest"
	JobInactivityCheck    = "inactivity_check"
	JobRetentionCleanup   = "retention_cleanup"
	JobStatisticsSnapshot = "statistics_snapshot"
)

const (
	defaultDatabaseDriver = "postgres"
	defaultSQLitePath     = "habits.db"
	defaultLogMaxSizeMB   = 50
	defaultLogMaxBackups  = 3
	envTelegramToken      = "TELEGRAM_BOT_TOKEN"
	envDatabaseURL        = "DATABASE_URL"
	envLogLevel           = "HABIT_LOG_LEVEL"
)

type Config struct {
	Database  DatabaseConfig  `json:"database" yaml:"database"`
	Telegram  TelegramConfig  `json:"telegram" yaml:"telegram"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler"`
	Habits    HabitsConfig    `json:"habits" yaml:"habits"`
	HTTP      HTTPConfig      `json:"http" yaml:"http"`
}

type DatabaseConfig struct {
	Driver   string `json:"driver" yaml:"driver"`
	Host     string `json:"host" yaml:"host"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`
	DBName   string `json:"dbname" yaml:"dbname"`
	Port     int    `json:"port" yaml:"port"`
	SSLMode  string `json:"sslmode" yaml:"sslmode"`
	Path     string `json:"path" yaml:"path"` // sqlite only
	DSN      string `json:"dsn" yaml:"dsn"`
}

type TelegramConfig struct {
	Token            string `json:"token" yaml:"token"`
	TimeoutSeconds   int    `json:"timeout_seconds" yaml:"timeout_seconds"`
	LinkCodeTTLHours int    `json:"link_code_ttl_hours" yaml:"link_code_ttl_hours"`
}

type LoggingConfig struct {
	Level       string `json:"level" yaml:"level"`
	File        string `json:"file" yaml:"file"`
	GormLevel   string `json:"gorm_level" yaml:"gorm_level"`
	SlowQueryMS int    `json:"slow_query_ms" yaml:"slow_query_ms"`
	MaxSizeMB   int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups  int    `json:"max_backups" yaml:"max_backups"`
}

func (l LoggingConfig) SlowQueryThreshold() time.Duration {
	return time.Duration(l.SlowQueryMS) * time.Millisecond
}

// SchedulerConfig maps job names to standard five-field cron expressions.
type SchedulerConfig struct {
	Timezone string            `json:"timezone" yaml:"timezone"`
	Jobs     map[string]string `json:"jobs" yaml:"jobs"`
}

type HabitsConfig struct {
	RetentionDays     int    `json:"retention_days" yaml:"retention_days"`
	ConsistencyPolicy string `json:"consistency_policy" yaml:"consistency_policy"`
}

type HTTPConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

var AppConfig Config

func (s SchedulerConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(s.Timezone)
	if name == "" {
		name = DefaultTimezone
	}
	return time.LoadLocation(name)
}

func (t TelegramConfig) Timeout() time.Duration {
	if t.TimeoutSeconds <= 0 {
		return DefaultTelegramTimeout * time.Second
	}
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// LinkCodeTTL is how long a code issued for /start stays redeemable.
func (t TelegramConfig) LinkCodeTTL() time.Duration {
	if t.LinkCodeTTLHours <= 0 {
		return DefaultLinkCodeTTL * time.Hour
	}
	return time.Duration(t.LinkCodeTTLHours) * time.Hour
}

func DefaultSchedule() map[string]string {
	return map[string]string{
		JobHourlyUpcoming:     "0 * * * *",
		JobMorningDigest:      "30 7 * * *",
		JobInactivityCheck:    "0 9 * * *",
		JobRetentionCleanup:   "0 3 * * 1",
		JobStatisticsSnapshot: "0 23 * * *",
	}
}

func LoadConfig(filename string) error {
	raw, err := os.ReadFile(filename)
	if err != nil {
		logger.Error("failed to open config file", "error", err)
		return err
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &cfg)
	default:
		err = json.Unmarshal(raw, &cfg)
	}
	if err != nil {
		logger.Error("failed to decode config file", "error", err)
		return err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		return err
	}

	AppConfig = cfg
	return nil
}

func (c Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Habits.ConsistencyPolicy {
	case ConsistencyAllUpdates, ConsistencyScheduleChanges:
	default:
		return fmt.Errorf("unsupported consistency policy %q", c.Habits.ConsistencyPolicy)
	}
	if c.Habits.RetentionDays <= 0 {
		return fmt.Errorf("retention_days must be positive, got %d", c.Habits.RetentionDays)
	}
	for name := range c.Scheduler.Jobs {
		if _, ok := DefaultSchedule()[name]; !ok {
			return fmt.Errorf("unknown scheduled job %q", name)
		}
	}
	if _, err := c.Scheduler.Location(); err != nil {
		return fmt.Errorf("invalid scheduler timezone: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if token := strings.TrimSpace(os.Getenv(envTelegramToken)); token != "" {
		cfg.Telegram.Token = token
	}
	if dsn := strings.TrimSpace(os.Getenv(envDatabaseURL)); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if level := strings.TrimSpace(os.Getenv(envLogLevel)); level != "" {
		cfg.Logging.Level = level
	}
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Database.Driver) == "" {
		cfg.Database.Driver = defaultDatabaseDriver
	}
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	if cfg.Database.Driver == "sqlite" && cfg.Database.Path == "" {
		cfg.Database.Path = defaultSQLitePath
	}
	if cfg.Telegram.TimeoutSeconds <= 0 {
		cfg.Telegram.TimeoutSeconds = DefaultTelegramTimeout
	}
	if cfg.Telegram.LinkCodeTTLHours <= 0 {
		cfg.Telegram.LinkCodeTTLHours = DefaultLinkCodeTTL
	}
	if cfg.Logging.MaxSizeMB <= 0 {
		cfg.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if cfg.Logging.MaxBackups <= 0 {
		cfg.Logging.MaxBackups = defaultLogMaxBackups
	}
	if strings.TrimSpace(cfg.Scheduler.Timezone) == "" {
		cfg.Scheduler.Timezone = DefaultTimezone
	}
	schedule := DefaultSchedule()
	for name, expr := range cfg.Scheduler.Jobs {
		schedule[name] = strings.TrimSpace(expr)
	}
	cfg.Scheduler.Jobs = schedule
	if cfg.Habits.RetentionDays == 0 {
		cfg.Habits.RetentionDays = DefaultRetentionDays
	}
	if strings.TrimSpace(cfg.Habits.ConsistencyPolicy) == "" {
		cfg.Habits.ConsistencyPolicy = ConsistencyAllUpdates
	}
}
