package models

import "time"

// UserProfile holds the billing fields the gateway's checkout form captures.
// Enrichment upserts whatever the latest payment event carried.
type UserProfile struct {
	UserID       string `gorm:"type:varchar(64);primaryKey" json:"user_id"`
	FiscalCode   string `gorm:"type:varchar(16)" json:"fiscal_code"`
	VATNumber    string `gorm:"type:varchar(32)" json:"vat_number"`
	Phone        string `gorm:"type:varchar(32)" json:"phone"`
	AddressLine1 string `gorm:"type:varchar(255)" json:"address_line1"`
	AddressLine2 string `gorm:"type:varchar(255)" json:"address_line2"`
	City         string `gorm:"type:varchar(128)" json:"city"`
	PostalCode   string `gorm:"type:varchar(16)" json:"postal_code"`
	Country      string `gorm:"type:varchar(2)" json:"country"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
