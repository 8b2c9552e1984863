package repository

import (
	"context"

	"github.com/alpinetrails/payment-engine/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileRepository interface {
	Upsert(ctx context.Context, profile *models.UserProfile) error
	FindByUserID(ctx context.Context, userID string) (*models.UserProfile, error)
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// Upsert inserts or updates the billing fields keyed by user id. Only the
// columns listed here are touched, so enrichment never clears other state.
func (r *profileRepository) Upsert(ctx context.Context, profile *models.UserProfile) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"fiscal_code", "vat_number", "phone",
				"address_line1", "address_line2", "city", "postal_code", "country",
				"updated_at",
			}),
		}).
		Create(profile).Error
}

func (r *profileRepository) FindByUserID(ctx context.Context, userID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}
