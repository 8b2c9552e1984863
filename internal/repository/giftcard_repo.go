package repository

import (
	"context"

	"github.com/alpinetrails/payment-engine/internal/models"
	"gorm.io/gorm"
)

type GiftCardRepository interface {
	Create(ctx context.Context, tx *gorm.DB, card *models.GiftCard) error
	CodeExists(ctx context.Context, code string) (bool, error)
	FindByCode(ctx context.Context, code string) (*models.GiftCard, error)
	FindByCodeForUpdate(ctx context.Context, tx *gorm.DB, code string) (*models.GiftCard, error)
	UpdateBalance(ctx context.Context, tx *gorm.DB, code string, balance int64, status models.GiftCardStatus) error
	CreateRedemption(ctx context.Context, tx *gorm.DB, redemption *models.Redemption) error
	FindRedemption(ctx context.Context, tx *gorm.DB, code, bookingID string) (*models.Redemption, error)
	ListRedemptions(ctx context.Context, code string) ([]models.Redemption, error)
	GetDB() *gorm.DB
}

type giftCardRepository struct {
	db *gorm.DB
}

func NewGiftCardRepository(db *gorm.DB) GiftCardRepository {
	return &giftCardRepository{db: db}
}

func (r *giftCardRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *giftCardRepository) Create(ctx context.Context, tx *gorm.DB, card *models.GiftCard) error {
	return tx.WithContext(ctx).Create(card).Error
}

func (r *giftCardRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GiftCard{}).
		Where("code = ?", code).
		Count(&count).Error
	return count > 0, err
}

func (r *giftCardRepository) FindByCode(ctx context.Context, code string) (*models.GiftCard, error) {
	var card models.GiftCard
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&card).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

// FindByCodeForUpdate acquires a row-level lock on the card within the given
// transaction. Concurrent redemptions of the same code serialize here, so no
// two of them can both observe the pre-decrement balance.
func (r *giftCardRepository) FindByCodeForUpdate(ctx context.Context, tx *gorm.DB, code string) (*models.GiftCard, error) {
	var card models.GiftCard
	err := forUpdate(tx.WithContext(ctx)).
		Where("code = ?", code).
		First(&card).Error
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *giftCardRepository) UpdateBalance(ctx context.Context, tx *gorm.DB, code string, balance int64, status models.GiftCardStatus) error {
	return tx.WithContext(ctx).
		Model(&models.GiftCard{}).
		Where("code = ?", code).
		Updates(map[string]interface{}{
			"remaining_balance": balance,
			"status":            status,
		}).Error
}

func (r *giftCardRepository) CreateRedemption(ctx context.Context, tx *gorm.DB, redemption *models.Redemption) error {
	return tx.WithContext(ctx).Create(redemption).Error
}

func (r *giftCardRepository) FindRedemption(ctx context.Context, tx *gorm.DB, code, bookingID string) (*models.Redemption, error) {
	var redemption models.Redemption
	err := tx.WithContext(ctx).
		Where("gift_card_code = ? AND booking_id = ?", code, bookingID).
		First(&redemption).Error
	if err != nil {
		return nil, err
	}
	return &redemption, nil
}

func (r *giftCardRepository) ListRedemptions(ctx context.Context, code string) ([]models.Redemption, error) {
	var redemptions []models.Redemption
	err := r.db.WithContext(ctx).
		Where("gift_card_code = ?", code).
		Order("created_at ASC").
		Find(&redemptions).Error
	return redemptions, err
}
