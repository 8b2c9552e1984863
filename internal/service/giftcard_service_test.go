package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alpinetrails/payment-engine/internal/gateway"
	"github.com/alpinetrails/payment-engine/internal/models"
	"github.com/alpinetrails/payment-engine/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Booking{},
		&models.GiftCard{},
		&models.Redemption{},
		&models.ProcessedEvent{},
		&models.UserProfile{},
	))
	return db
}

func seedGiftCard(t *testing.T, db *gorm.DB, code string, amount, remaining int64) *models.GiftCard {
	t.Helper()
	card := &models.GiftCard{
		ID:               uuid.NewString(),
		Code:             code,
		Amount:           amount,
		RemainingBalance: remaining,
		Status:           models.GiftCardActive,
		ExpiresAt:        time.Now().AddDate(1, 0, 0),
	}
	require.NoError(t, db.Create(card).Error)
	return card
}

func TestIssue_PersistsActiveCard(t *testing.T) {
	db := newTestDB(t)
	svc := NewGiftCardService(repository.NewGiftCardRepository(db))

	card, err := svc.Issue(context.Background(), &gateway.GiftCardPurchase{
		EventID:           "evt_1",
		CheckoutSessionID: "cs_1",
		Amount:            15000,
		PurchaserUserID:   "user-1",
		RecipientEmail:    "friend@example.com",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(15000), card.Amount)
	assert.Equal(t, int64(15000), card.RemainingBalance)
	assert.Equal(t, models.GiftCardActive, card.Status)
	assert.Contains(t, card.Code, "ALPT-")

	// expiry is issue time + 2 years
	wantExpiry := time.Now().AddDate(2, 0, 0)
	assert.WithinDuration(t, wantExpiry, card.ExpiresAt, time.Minute)

	var stored models.GiftCard
	require.NoError(t, db.Where("code = ?", card.Code).First(&stored).Error)
	assert.Equal(t, card.ID, stored.ID)
}

func TestIssue_CodesNeverCollide(t *testing.T) {
	db := newTestDB(t)
	svc := NewGiftCardService(repository.NewGiftCardRepository(db))

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		card, err := svc.Issue(context.Background(), &gateway.GiftCardPurchase{Amount: 1000})
		require.NoError(t, err)
		assert.False(t, seen[card.Code], "duplicate code %s", card.Code)
		seen[card.Code] = true
	}
}

// --- collision exhaustion needs a repo that always reports a hit ---

type collidingGiftCardRepo struct {
	repository.GiftCardRepository
	checks int
}

func (r *collidingGiftCardRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	r.checks++
	return true, nil
}

func TestIssue_ExhaustsUniquenessAttempts(t *testing.T) {
	db := newTestDB(t)
	repo := &collidingGiftCardRepo{GiftCardRepository: repository.NewGiftCardRepository(db)}
	svc := NewGiftCardService(repo)

	_, err := svc.Issue(context.Background(), &gateway.GiftCardPurchase{Amount: 1000})

	assert.ErrorIs(t, err, ErrCodeExhausted)
	assert.Equal(t, 5, repo.checks)

	var count int64
	db.Model(&models.GiftCard{}).Count(&count)
	assert.Zero(t, count, "no card may be persisted when generation fails")
}

func TestRedeem_DiscountCappedAtRemainingBalance(t *testing.T) {
	db := newTestDB(t)
	svc := NewGiftCardService(repository.NewGiftCardRepository(db))
	seedGiftCard(t, db, "ALPT-CAP", 5000, 3000)

	result, err := svc.Redeem(context.Background(), "ALPT-CAP", 5000, "user-1", "booking-1")

	require.NoError(t, err)
	assert.Equal(t, int64(3000), result.Discount)
	assert.Equal(t, int64(0), result.RemainingBalance)

	var card models.GiftCard
	require.NoError(t, db.Where("code = ?", "ALPT-CAP").First(&card).Error)
	assert.Equal(t, models.GiftCardDepleted, card.Status)
	assert.Equal(t, int64(0), card.RemainingBalance)
}

func TestRedeem_PartialLeavesCardActive(t *testing.T) {
	db := newTestDB(t)
	svc := NewGiftCardService(repository.NewGiftCardRepository(db))
	seedGiftCard(t, db, "ALPT-PART", 10000, 10000)

	result, err := svc.Redeem(context.Background(), "ALPT-PART", 4000, "user-1", "booking-1")

	require.NoError(t, err)
	assert.Equal(t, int64(4000), result.Discount)
	assert.Equal(t, int64(6000), result.RemainingBalance)

	var card models.GiftCard
	require.NoError(t, db.Where("code = ?", "ALPT-PART").First(&card).Error)
	assert.Equal(t, models.GiftCardActive, card.Status)
}

func TestRedeem_BalanceNeverGoesNegative(t *testing.T) {
	db := newTestDB(t)
	svc := NewGiftCardService(repository.NewGiftCardRepository(db))
	seedGiftCard(t, db, "ALPT-FLOOR", 5000, 5000)

	// Spend across several bookings until depleted, then one more.
	for i, payable := range []int64{2000, 2000, 2000} {
		result, err := svc.Redeem(context.Background(), "ALPT-FLOOR", payable, "user-1", fmt.Sprintf("booking-%d", i))
		if i < 2 {
			require.NoError(t, err)
			assert.Equal(t, int64(2000), result.Discount)
		} else {
			// third call gets the final 1000, not 2000
			require.NoError(t, err)
			assert.Equal(t, int64(1000), result.Discount)
			assert.Equal(t, int64(0), result.RemainingBalance)
		}
	}

	_, err := svc.Redeem(context.Background(), "ALPT-FLOOR", 100, "user-1", "booking-9")
	assert.ErrorIs(t, err, ErrGiftCardNotActive)
}

func TestRedeem_OncePerBooking(t *testing.T) {
	db := newTestDB(t)
	svc := NewGiftCardService(repository.NewGiftCardRepository(db))
	seedGiftCard(t, db, "ALPT-ONCE", 10000, 10000)

	_, err := svc.Redeem(context.Background(), "ALPT-ONCE", 2000, "user-1", "booking-1")
	require.NoError(t, err)

	// replayed event re-references the same code against the same booking
	_, err = svc.Redeem(context.Background(), "ALPT-ONCE", 2000, "user-1", "booking-1")
	assert.ErrorIs(t, err, ErrAlreadyRedeemed)

	var card models.GiftCard
	require.NoError(t, db.Where("code = ?", "ALPT-ONCE").First(&card).Error)
	assert.Equal(t, int64(8000), card.RemainingBalance, "balance spent exactly once")
}

func TestRedeem_ExpiredCard(t *testing.T) {
	db := newTestDB(t)
	svc := NewGiftCardService(repository.NewGiftCardRepository(db))
	card := seedGiftCard(t, db, "ALPT-OLD", 5000, 5000)
	require.NoError(t, db.Model(card).Update("expires_at", time.Now().Add(-time.Hour)).Error)

	_, err := svc.Redeem(context.Background(), "ALPT-OLD", 1000, "user-1", "booking-1")

	assert.ErrorIs(t, err, ErrGiftCardExpired)

	var stored models.GiftCard
	require.NoError(t, db.Where("code = ?", "ALPT-OLD").First(&stored).Error)
	assert.Equal(t, models.GiftCardExpired, stored.Status)
	assert.Equal(t, int64(5000), stored.RemainingBalance)
}

func TestRedeem_UnknownCode(t *testing.T) {
	db := newTestDB(t)
	svc := NewGiftCardService(repository.NewGiftCardRepository(db))

	_, err := svc.Redeem(context.Background(), "ALPT-NOPE", 1000, "user-1", "booking-1")
	assert.ErrorIs(t, err, ErrGiftCardNotFound)
}

func TestRedeem_RejectsNonPositiveAmount(t *testing.T) {
	db := newTestDB(t)
	svc := NewGiftCardService(repository.NewGiftCardRepository(db))

	_, err := svc.Redeem(context.Background(), "ALPT-ANY", 0, "user-1", "booking-1")
	assert.ErrorIs(t, err, ErrInvalidRedemption)
}
