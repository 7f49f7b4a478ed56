package db

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/smith3v/tg-habit-tracker/pkg/config"
	"github.com/smith3v/tg-habit-tracker/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Export DB variable
var DB *gorm.DB

var (
	ErrNotFound            = errors.New("record not found")
	ErrDuplicateCompletion = errors.New("completion already recorded for this date")
)

func InitDB(cfg config.DatabaseConfig) error {
	logCfg := config.AppConfig.Logging
	gormLogger, gormErr := newGormLogger(logCfg.GormLevel, logCfg.SlowQueryThreshold())
	if gormErr != nil {
		logger.Error("invalid gorm log level", "value", logCfg.GormLevel, "error", gormErr)
	}

	dialector, err := dialectorFor(cfg)
	if err != nil {
		logger.Error("failed to select database driver", "error", err)
		return err
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger, TranslateError: true})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return err
	}
	if err := Migrate(gdb); err != nil {
		logger.Error("failed to auto-migrate database", "error", err)
		return err
	}
	DB = gdb
	return nil
}

// Migrate creates or updates the schema. SQLite needs foreign keys switched on
// per connection for the cascade rules to apply.
func Migrate(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	if gdb.Dialector.Name() == "sqlite" {
		if err := gdb.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	}
	return gdb.AutoMigrate(allModels()...)
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "sqlite":
		return sqlite.Open(sqliteDSN(cfg.Path)), nil
	case "postgres", "":
		return postgres.Open(postgresDSN(cfg)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// sqliteDSN turns foreign keys on for every pooled connection, not only the one
// Migrate happens to use.
func sqliteDSN(path string) string {
	if strings.Contains(path, "_foreign_keys") {
		return path
	}
	if strings.Contains(path, "?") {
		return path + "&_foreign_keys=on"
	}
	return path + "?_foreign_keys=on"
}

func postgresDSN(cfg config.DatabaseConfig) string {
	if dsn := strings.TrimSpace(cfg.DSN); dsn != "" {
		return dsn
	}
	return "host=" + cfg.Host +
		" user=" + cfg.User +
		" password=" + cfg.Password +
		" dbname=" + cfg.DBName +
		" port=" + strconv.Itoa(cfg.Port) +
		" sslmode=" + cfg.SSLMode
}

func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return ErrDuplicateCompletion
	default:
		return err
	}
}

// isUniqueViolation covers connections opened without TranslateError.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
