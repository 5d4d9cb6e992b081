package config

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Pool sizing for the shared store. The engine's batch runs are short-lived
// and serialized by the run lock, so a modest pool is enough.
const (
	dbMaxIdleConns    = 10
	dbMaxOpenConns    = 100
	dbConnMaxLifetime = time.Hour
)

// NewDatabase opens the MySQL store shared with the authoring subsystem.
// The DSN pins the session to UTC (see DatabaseConfig.DSN): watermark and
// planned-start comparisons assume every stored timestamp is a UTC instant.
func NewDatabase(cfg *DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Warn),
		DisableForeignKeyConstraintWhenMigrating: true,
		PrepareStmt:                              true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(dbMaxIdleConns)
	sqlDB.SetMaxOpenConns(dbMaxOpenConns)
	sqlDB.SetConnMaxLifetime(dbConnMaxLifetime)

	return db, nil
}
