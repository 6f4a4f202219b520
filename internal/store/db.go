// Package store keeps the directory and the ledger in a SQL database through
// gorm. MySQL is used in production; sqlite backs tests and local runs.
package store

import (
	"fmt"
	"time"

	"golang-move-import-service/pkg/errors"
	"golang-move-import-service/pkg/logger"
	"golang-move-import-service/pkg/validation"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Supported drivers
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Config holds the database connection settings
type Config struct {
	Driver          string        `mapstructure:"driver" validate:"required,oneof=mysql sqlite"`
	DSN             string        `mapstructure:"dsn" validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

var validate = validation.New("mapstructure")

// Validate checks the settings against their tags
func (c Config) Validate() error {
	return validate.Struct("database", c)
}

// MySQLDSN builds a DSN from the usual connection parts
func MySQLDSN(user, password, host, port, name string) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", user, password, host, port, name)
}

// Open connects to the database described by cfg
func Open(cfg Config, log logger.Logger) (*gorm.DB, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("store")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverMySQL:
		dialector = mysql.Open(cfg.DSN)
	case DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "database.driver", cfg.Driver, nil)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(gormWriter{log}, gormlogger.Config{
			SlowThreshold: time.Second,
			LogLevel:      gormlogger.Warn,
			Colorful:      false,
		}),
	})
	if err != nil {
		return nil, errors.PersistenceError(errors.CodeConnectionFailed, "open", err).
			WithContext("driver", cfg.Driver)
	}

	if sqlDB, derr := db.DB(); derr == nil && sqlDB != nil {
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
	}

	if cfg.AutoMigrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}

	log.WithField("driver", cfg.Driver).Debug("Connected to database")
	return db, nil
}

// Migrate creates or updates the tables
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return errors.PersistenceError(errors.CodeQueryFailed, "migrate", err)
	}
	return nil
}

// gormWriter sends gorm's own messages to the application logger
type gormWriter struct {
	log logger.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Warnf(format, args...)
}
