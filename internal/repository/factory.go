package repository

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/circuit-mixer/pkg/config"
	"github.com/circuit-mixer/pkg/errors"
	"github.com/circuit-mixer/pkg/telemetry"
)

// NewFromConfig opens the configured database, runs migrations and returns
// the repository. Returns (nil, nil) when no database is configured: the
// history layer is optional.
func NewFromConfig(cfg *config.DatabaseConfig) (*GormRunRepository, error) {
	if cfg == nil || cfg.Type == "" {
		return nil, nil
	}

	var dialector gorm.Dialector
	switch cfg.Type {
	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = "./mixer-runs.db"
		}
		dialector = sqlite.Open(path)
	case "postgres", "postgresql":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database,
		)
		dialector = postgres.Open(dsn)
	case "mysql":
		dsn := fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=Local",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		)
		dialector = mysql.Open(dsn)
	default:
		return nil, errors.Newf(errors.CodeConfigError, "unsupported database type: %s", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(errors.CodeDatabaseError, "opening database", err)
	}

	if telemetry.Enabled() {
		if err := db.Use(tracing.NewPlugin()); err != nil {
			return nil, errors.Wrap(errors.CodeDatabaseError, "enabling database tracing", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(errors.CodeDatabaseError, "getting sql.DB", err)
	}
	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 10
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns / 2)
	sqlDB.SetConnMaxLifetime(time.Hour)

	repo := NewGormRunRepository(db)
	if err := repo.Migrate(); err != nil {
		return nil, err
	}
	return repo, nil
}
