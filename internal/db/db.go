// Package db opens the workshop's PostgreSQL database and keeps its schema
// migrated to the current model set.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"tintaria/internal/config"
	"tintaria/models"
)

// schemaModels lists every table the app persists. Order matters: parents
// before the rows that reference them.
var schemaModels = []any{
	&models.Item{},
	&models.Measure{},
	&models.Price{},
	&models.Formula{},
	&models.FormulaComponent{},
	&models.Employee{},
	&models.Production{},
	&models.InventoryMovement{},
}

// Initialize opens the PostgreSQL database described by cfg and applies the
// configured connection pool limits.
func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("connection url is empty")
	}

	database, err := gorm.Open(postgres.Open(cfg.URL), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Warn),
		NamingStrategy:         schema.NamingStrategy{SingularTable: false},
		NowFunc:                func() time.Time { return time.Now().UTC() },
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("expose connection pool: %w", err)
	}
	tunePool(sqlDB, cfg)

	return database, nil
}

func tunePool(sqlDB *sql.DB, cfg config.DatabaseConfig) {
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// AutoMigrate brings the schema up to date for every registered model.
func AutoMigrate(database *gorm.DB) error {
	if database == nil {
		return errors.New("nil database handle")
	}
	return database.AutoMigrate(schemaModels...)
}

// Configure opens the database and runs migrations. The server and the
// catalog importer both bootstrap through it.
func Configure(cfg config.DatabaseConfig) (*gorm.DB, error) {
	database, err := Initialize(cfg)
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(database); err != nil {
		return nil, err
	}
	return database, nil
}

// Ping reports whether the underlying connection is still reachable.
func Ping(ctx context.Context, database *gorm.DB) error {
	if database == nil {
		return errors.New("nil database handle")
	}
	sqlDB, err := database.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
