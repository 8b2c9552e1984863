package repository

import (
	"context"

	"github.com/alpinetrails/payment-engine/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProcessedEventRepository interface {
	// Claim records the event id if it has not been seen before. It returns
	// false when another delivery already claimed it.
	Claim(ctx context.Context, event *models.ProcessedEvent) (bool, error)
	RecordOutcome(ctx context.Context, eventID, outcome string) error
	FindByEventID(ctx context.Context, eventID string) (*models.ProcessedEvent, error)
}

type processedEventRepository struct {
	db *gorm.DB
}

func NewProcessedEventRepository(db *gorm.DB) ProcessedEventRepository {
	return &processedEventRepository{db: db}
}

func (r *processedEventRepository) Claim(ctx context.Context, event *models.ProcessedEvent) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(event)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *processedEventRepository) RecordOutcome(ctx context.Context, eventID, outcome string) error {
	return r.db.WithContext(ctx).
		Model(&models.ProcessedEvent{}).
		Where("event_id = ?", eventID).
		Update("outcome", outcome).Error
}

func (r *processedEventRepository) FindByEventID(ctx context.Context, eventID string) (*models.ProcessedEvent, error) {
	var event models.ProcessedEvent
	if err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}
