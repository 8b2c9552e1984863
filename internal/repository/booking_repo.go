package repository

import (
	"context"

	"github.com/alpinetrails/payment-engine/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate adds a row-level lock where the dialect supports it. sqlite
// (used by the unit tests) has no FOR UPDATE; its single-writer model
// serializes those transactions on its own.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

type BookingRepository interface {
	Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	FindLatestDepositPaidForUpdate(ctx context.Context, tx *gorm.DB, userID, tourID, sessionID string) (*models.Booking, error)
	Save(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	UpdateStatus(ctx context.Context, tx *gorm.DB, bookingID string, status models.BookingStatus) error
	GetDB() *gorm.DB
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *bookingRepository) Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	return tx.WithContext(ctx).Create(booking).Error
}

func (r *bookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindLatestDepositPaidForUpdate locks and returns the most recent
// deposit-paid booking for the (user, tour, session) triple. Two balance
// events racing for the same triple settle against the same row.
func (r *bookingRepository) FindLatestDepositPaidForUpdate(ctx context.Context, tx *gorm.DB, userID, tourID, sessionID string) (*models.Booking, error) {
	var booking models.Booking
	err := forUpdate(tx.WithContext(ctx)).
		Where("user_id = ? AND tour_id = ? AND session_id = ? AND status = ?",
			userID, tourID, sessionID, models.StatusDepositPaid).
		Order("created_at DESC").
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) Save(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	return tx.WithContext(ctx).Save(booking).Error
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, bookingID string, status models.BookingStatus) error {
	return tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", bookingID).
		Update("status", status).Error
}
