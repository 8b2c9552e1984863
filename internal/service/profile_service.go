package service

import (
	"context"
	"errors"
	"log"
	"regexp"

	"github.com/alpinetrails/payment-engine/internal/gateway"
	"github.com/alpinetrails/payment-engine/internal/models"
	"github.com/alpinetrails/payment-engine/internal/repository"
	"gorm.io/gorm"
)

var fiscalCodePattern = regexp.MustCompile(`^[A-Za-z0-9]{16}$`)

var ErrProfileNotFound = errors.New("user profile not found")

type ProfileService interface {
	Enrich(ctx context.Context, userID string, fields gateway.ProfileFields) error
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
}

type profileService struct {
	repo repository.ProfileRepository
}

func NewProfileService(repo repository.ProfileRepository) ProfileService {
	return &profileService{repo: repo}
}

// Enrich copies billing fields captured at checkout onto the user's profile.
// Callers treat failures as best-effort: ledger state never depends on this.
func (s *profileService) Enrich(ctx context.Context, userID string, fields gateway.ProfileFields) error {
	if userID == "" {
		return nil
	}

	fiscalCode := fields.FiscalCode
	if fiscalCode != "" && !fiscalCodePattern.MatchString(fiscalCode) {
		log.Printf("[Profile] dropping malformed fiscal code for user %s", userID)
		fiscalCode = ""
	}

	profile := &models.UserProfile{
		UserID:       userID,
		FiscalCode:   fiscalCode,
		VATNumber:    fields.VATNumber,
		Phone:        fields.Phone,
		AddressLine1: fields.AddressLine1,
		AddressLine2: fields.AddressLine2,
		City:         fields.City,
		PostalCode:   fields.PostalCode,
		Country:      fields.Country,
	}
	if profile.FiscalCode == "" && profile.VATNumber == "" && profile.Phone == "" &&
		profile.AddressLine1 == "" && profile.City == "" {
		return nil
	}

	return s.repo.Upsert(ctx, profile)
}

func (s *profileService) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	profile, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return profile, nil
}
