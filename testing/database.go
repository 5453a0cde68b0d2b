// Package testing provides test utilities and database setup for testing the ad selection storage system
package testing

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/amirphl/Ame-no-Murakumo/storage"
)

// TestDB represents a test database instance
type TestDB struct {
	DB   *gorm.DB
	Name string
}

// SetupTestDB creates a fresh in-memory database with a unique name and runs
// the migrations. Each test gets its own schema; shared cache keeps the
// database alive across the pooled connections of one test.
func SetupTestDB() (*TestDB, error) {
	dbName := fmt.Sprintf("adselection_test_%d_%d", time.Now().UnixNano(), rand.Intn(10000))
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", dbName)

	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open test database %s: %w", dbName, err)
	}

	// A single connection keeps the in-memory database from vanishing
	// between pool checkouts.
	sqlDB, err := testDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := storage.Migrate(testDB); err != nil {
		return nil, fmt.Errorf("failed to migrate test database %s: %w", dbName, err)
	}

	return &TestDB{
		DB:   testDB,
		Name: dbName,
	}, nil
}

// TeardownTestDB closes the connection, which discards the in-memory database
func (tdb *TestDB) TeardownTestDB() error {
	if tdb.DB == nil {
		return nil
	}

	sqlDB, err := tdb.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ClearAllTables truncates every table without dropping the schema
func (tdb *TestDB) ClearAllTables() error {
	tables := []string{
		"registered_ad_interactions",
		"reporting_data",
		"reporting_computation_info",
		"ad_selection_result",
		"ad_selection_initialization",
		"ad_selection",
		"buyer_decision_logic",
		"encryption_keys",
		"encryption_context",
		"ad_selection_overrides",
		"buyer_decision_overrides",
		"ad_selection_from_outcomes_overrides",
		"consented_debug_configuration",
		"app_install_permissions",
	}

	for _, table := range tables {
		if err := tdb.DB.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear table %s: %w", table, err)
		}
	}

	return nil
}

// TestWithDB sets up a database, runs the test function and tears down
func TestWithDB(testFunc func(*TestDB) error) error {
	tdb, err := SetupTestDB()
	if err != nil {
		return err
	}
	defer tdb.TeardownTestDB()

	return testFunc(tdb)
}

// CreateTestContext returns a context for test operations
func CreateTestContext() context.Context {
	return context.Background()
}
