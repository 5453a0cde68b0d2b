// Package storage handles the embedded database connection and schema
// migration.
package storage

import (
	"fmt"
	"log"
	"os"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/amirphl/Ame-no-Murakumo/config"
	"github.com/amirphl/Ame-no-Murakumo/models"
)

// Open connects to the embedded database. Foreign keys are switched on at
// the connection level so the unified-schema cascade deletes actually fire;
// WAL keeps the background sweep from blocking readers.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=%d",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	logLevel := logger.Silent
	if cfg.SlowQueryLog {
		logLevel = logger.Warn
	}
	gormLogger := logger.New(
		log.New(os.Stdout, "gorm ", log.LstdFlags),
		logger.Config{
			SlowThreshold: cfg.SlowQueryTime,
			LogLevel:      logLevel,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Migrate creates or updates the schema. Parent tables come first so the
// unified-schema foreign keys resolve.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.AdSelection{},
		&models.BuyerDecisionLogic{},
		&models.AdSelectionInitialization{},
		&models.AdSelectionResult{},
		&models.ReportingData{},
		&models.ReportingComputationInfo{},
		&models.RegisteredAdInteraction{},
		&models.EncryptionKey{},
		&models.EncryptionContext{},
		&models.AdSelectionOverride{},
		&models.BuyerDecisionOverride{},
		&models.AdSelectionFromOutcomesOverride{},
		&models.ConsentedDebugConfiguration{},
		&models.AppInstallPermission{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	return nil
}
