package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alpinetrails/payment-engine/internal/gateway"
	"github.com/alpinetrails/payment-engine/internal/models"
	"github.com/alpinetrails/payment-engine/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrGiftCardNotFound  = errors.New("gift card not found")
	ErrGiftCardNotActive = errors.New("gift card is not active")
	ErrGiftCardExpired   = errors.New("gift card has expired")
	ErrCodeExhausted     = errors.New("could not generate a unique gift card code")
	ErrAlreadyRedeemed   = errors.New("gift card already redeemed against this booking")
	ErrInvalidRedemption = errors.New("redemption amount must be positive")
)

const (
	codePrefix       = "ALPT-"
	codeLength       = 10
	maxCodeAttempts  = 5
	giftCardValidity = 2 // years
)

// codeAlphabet omits 0/O/1/I so codes survive being read over the phone.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

type RedemptionResult struct {
	Discount         int64
	RemainingBalance int64
}

type GiftCardService interface {
	Issue(ctx context.Context, purchase *gateway.GiftCardPurchase) (*models.GiftCard, error)
	Redeem(ctx context.Context, code string, amountPayable int64, userID, bookingID string) (*RedemptionResult, error)
	GetByCode(ctx context.Context, code string) (*models.GiftCard, []models.Redemption, error)
}

type giftCardService struct {
	repo repository.GiftCardRepository
}

func NewGiftCardService(repo repository.GiftCardRepository) GiftCardService {
	return &giftCardService{repo: repo}
}

// Issue mints a new stored-value code for a verified gift-card purchase.
// Code generation retries on collision, bounded: the payment has already
// succeeded at the gateway, so exhausting attempts is an alertable fault
// the operator must retry, not something to loop on forever.
func (s *giftCardService) Issue(ctx context.Context, purchase *gateway.GiftCardPurchase) (*models.GiftCard, error) {
	var code string
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		candidate := generateCode()
		exists, err := s.repo.CodeExists(ctx, candidate)
		if err != nil {
			return nil, fmt.Errorf("check code uniqueness: %w", err)
		}
		if !exists {
			code = candidate
			break
		}
	}
	if code == "" {
		return nil, ErrCodeExhausted
	}

	now := time.Now()
	card := &models.GiftCard{
		ID:                      uuid.NewString(),
		Code:                    code,
		Amount:                  purchase.Amount,
		RemainingBalance:        purchase.Amount,
		Status:                  models.GiftCardActive,
		ExpiresAt:               now.AddDate(giftCardValidity, 0, 0),
		StripeCheckoutSessionID: purchase.CheckoutSessionID,
	}
	if purchase.PurchaserUserID != "" {
		card.PurchaserUserID = &purchase.PurchaserUserID
	}
	if purchase.RecipientEmail != "" {
		card.RecipientEmail = &purchase.RecipientEmail
	}

	if err := s.repo.Create(ctx, s.repo.GetDB(), card); err != nil {
		return nil, fmt.Errorf("persist gift card: %w", err)
	}
	return card, nil
}

// Redeem applies a card's value against a payable amount. The whole
// read-modify-write runs in one transaction holding a row lock on the card,
// so two concurrent redemptions cannot both observe the stale balance.
// A card is redeemed at most once per booking; a replayed event that
// re-references the same code is rejected instead of double-counted.
func (s *giftCardService) Redeem(ctx context.Context, code string, amountPayable int64, userID, bookingID string) (*RedemptionResult, error) {
	if amountPayable <= 0 {
		return nil, ErrInvalidRedemption
	}

	var result *RedemptionResult
	err := s.repo.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		card, err := s.repo.FindByCodeForUpdate(ctx, tx, code)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGiftCardNotFound
			}
			return err
		}

		if card.Status != models.GiftCardActive {
			return ErrGiftCardNotActive
		}
		if time.Now().After(card.ExpiresAt) {
			_ = s.repo.UpdateBalance(ctx, tx, code, card.RemainingBalance, models.GiftCardExpired)
			return ErrGiftCardExpired
		}

		_, err = s.repo.FindRedemption(ctx, tx, code, bookingID)
		if err == nil {
			return ErrAlreadyRedeemed
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		discount := card.RemainingBalance
		if amountPayable < discount {
			discount = amountPayable
		}
		newBalance := card.RemainingBalance - discount

		status := models.GiftCardActive
		if newBalance == 0 {
			status = models.GiftCardDepleted
		}
		if err := s.repo.UpdateBalance(ctx, tx, code, newBalance, status); err != nil {
			return err
		}

		redemption := &models.Redemption{
			ID:           uuid.NewString(),
			GiftCardCode: code,
			BookingID:    bookingID,
			UserID:       userID,
			Amount:       discount,
		}
		if err := s.repo.CreateRedemption(ctx, tx, redemption); err != nil {
			return err
		}

		result = &RedemptionResult{Discount: discount, RemainingBalance: newBalance}
		return nil
	})

	return result, err
}

func (s *giftCardService) GetByCode(ctx context.Context, code string) (*models.GiftCard, []models.Redemption, error) {
	card, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrGiftCardNotFound
		}
		return nil, nil, err
	}
	redemptions, err := s.repo.ListRedemptions(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	return card, redemptions, nil
}

func generateCode() string {
	id := uuid.New()
	buf := make([]byte, codeLength)
	for i := range buf {
		buf[i] = codeAlphabet[int(id[i])%len(codeAlphabet)]
	}
	return codePrefix + string(buf)
}
