//go:build integration

package integration

import (
	"fmt"
	"log"
	"os"
	"testing"

	"github.com/alpinetrails/payment-engine/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnv("TEST_DB_HOST", "localhost"),
		getEnv("TEST_DB_PORT", "5434"),
		getEnv("TEST_DB_USER", "postgres"),
		getEnv("TEST_DB_PASSWORD", "postgres"),
		getEnv("TEST_DB_NAME", "payment_engine_test"),
	)

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to connect to test database: %v", err)
	}

	dropTables()

	if err := testDB.AutoMigrate(
		&models.Booking{},
		&models.GiftCard{},
		&models.Redemption{},
		&models.ProcessedEvent{},
		&models.UserProfile{},
	); err != nil {
		log.Fatalf("failed to auto-migrate test database: %v", err)
	}

	testDB.Exec(`
		CREATE INDEX IF NOT EXISTS idx_booking_lookup
		ON bookings (user_id, tour_id, session_id, status, created_at)
	`)

	code := m.Run()

	dropTables()

	os.Exit(code)
}

func dropTables() {
	testDB.Exec("DROP TABLE IF EXISTS redemptions")
	testDB.Exec("DROP TABLE IF EXISTS gift_cards")
	testDB.Exec("DROP TABLE IF EXISTS bookings")
	testDB.Exec("DROP TABLE IF EXISTS processed_events")
	testDB.Exec("DROP TABLE IF EXISTS user_profiles")
}

func cleanTables() {
	testDB.Exec("DELETE FROM redemptions")
	testDB.Exec("DELETE FROM gift_cards")
	testDB.Exec("DELETE FROM bookings")
	testDB.Exec("DELETE FROM processed_events")
	testDB.Exec("DELETE FROM user_profiles")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
