package services

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"northsouth_agency/internal/models"
)

// newTestDB opens an isolated in-memory database. The pool is capped at one
// connection because every sqlite :memory: connection is its own database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.Advisor{},
		&models.Customer{},
		&models.Policy{},
		&models.Payment{},
		&models.Renewal{},
		&models.PolicyPeriodData{},
		&models.CommissionPayment{},
		&models.CommissionRefund{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}
