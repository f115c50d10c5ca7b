package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Customer struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email     string    `gorm:"size:140;uniqueIndex"`
	Name      string    `gorm:"size:140"`
	Phone     string    `gorm:"size:60"`
	Addresses []Address `gorm:"foreignKey:CustomerID"`
	CreatedAt time.Time
}

type Address struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	CustomerID uuid.UUID `gorm:"type:uuid;index"`
	Street     string    `gorm:"size:255"`
	City       string    `gorm:"size:100"`
	Province   string    `gorm:"size:80"`
	PostalCode string    `gorm:"size:20"`
	Country    string    `gorm:"size:80"`
	Phone      string    `gorm:"size:50"`
	CreatedAt  time.Time
}

// Matches compares street/city/postal/country, case-insensitive and trimmed.
// Used to skip saving duplicate addresses.
func (a Address) Matches(other ShippingAddress) bool {
	eq := func(x, y string) bool {
		return strings.EqualFold(strings.TrimSpace(x), strings.TrimSpace(y))
	}
	return eq(a.Street, other.Street) && eq(a.City, other.City) &&
		eq(a.PostalCode, other.PostalCode) && eq(a.Country, other.Country)
}
