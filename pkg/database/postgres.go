package database

import (
	"log"

	"github.com/alpinetrails/payment-engine/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		// The driver error can echo the DSN, which carries the elevated
		// credential. Log the fact, not the error.
		log.Fatal("failed to connect to database")
	}

	if err := db.AutoMigrate(
		&models.Booking{},
		&models.GiftCard{},
		&models.Redemption{},
		&models.ProcessedEvent{},
		&models.UserProfile{},
	); err != nil {
		log.Fatalf("failed to auto-migrate: %v", err)
	}

	// Supports the balance-settlement lookup: most recent deposit_paid row
	// for a (user, tour, session) triple.
	db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_booking_lookup
		ON bookings (user_id, tour_id, session_id, status, created_at)
	`)

	return db
}
