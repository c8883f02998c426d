// Package testing provides test utilities and database setup for testing the admissions agent
package testing

import (
	"context"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/victorycadets/admissions-agent/models"
	"github.com/victorycadets/admissions-agent/utils"
)

// TestDB represents a test database instance
type TestDB struct {
	DB *gorm.DB
}

// SetupTestDB opens a private in-memory SQLite database and runs migrations.
// The pool is pinned to one connection so every query sees the same memory database.
func SetupTestDB() (*TestDB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return nil, fmt.Errorf("failed to migrate test database: %w", err)
	}

	return &TestDB{DB: db}, nil
}

// Close releases the database
func (tdb *TestDB) Close() error {
	sqlDB, err := tdb.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// TestWithDB runs fn against a fresh database and closes it afterwards
func TestWithDB(fn func(*TestDB) error) error {
	testDB, err := SetupTestDB()
	if err != nil {
		return err
	}
	defer testDB.Close()

	return fn(testDB)
}

// CreateTestContext returns a context carrying test request metadata
func CreateTestContext() context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, utils.RequestIDKey, "test-request-id")
	ctx = context.WithValue(ctx, utils.EndpointKey, "test")
	return ctx
}
