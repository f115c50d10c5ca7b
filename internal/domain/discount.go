package domain

import (
	"time"

	"github.com/google/uuid"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type DiscountScope string

const (
	DiscountScopeAll        DiscountScope = "all"
	DiscountScopeProducts   DiscountScope = "products"
	DiscountScopeCategories DiscountScope = "categories"
	DiscountScopeOrders     DiscountScope = "orders"
)

// Discount is a promotional code. Codes are stored as supplied and matched
// case-insensitively. UsedCount only ever increments, guarded by UsageLimit
// when the limit is non-zero.
type Discount struct {
	ID         uuid.UUID     `gorm:"type:uuid;primaryKey"`
	Code       string        `gorm:"uniqueIndex;size:60"`
	Type       DiscountType  `gorm:"type:varchar(20)"`
	Value      float64       `gorm:"type:decimal(12,2)"`
	AppliesTo  DiscountScope `gorm:"type:varchar(20);default:'all'"`
	ProductIDs []uuid.UUID   `gorm:"type:jsonb;serializer:json"`
	Categories []string      `gorm:"type:jsonb;serializer:json"`

	MinOrderAmount float64   `gorm:"type:decimal(12,2);default:0"`
	StartsAt       time.Time `gorm:"index"`
	EndsAt         time.Time `gorm:"index"`
	Active         bool      `gorm:"default:true;index"`

	UsageLimit int `gorm:"default:0"`
	UsedCount  int `gorm:"default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EligibleFor checks every condition a code must meet against one order:
// active, inside the validity window, scope overlap, minimum order amount and
// remaining usage.
func (d *Discount) EligibleFor(orderTotal float64, productIDs []uuid.UUID, categories []string, now time.Time) bool {
	if !d.Active {
		return false
	}
	if now.Before(d.StartsAt) || now.After(d.EndsAt) {
		return false
	}
	if orderTotal < d.MinOrderAmount {
		return false
	}
	if d.UsageLimit > 0 && d.UsedCount >= d.UsageLimit {
		return false
	}
	switch d.AppliesTo {
	case DiscountScopeAll, DiscountScopeOrders:
		return true
	case DiscountScopeProducts:
		for _, want := range d.ProductIDs {
			for _, got := range productIDs {
				if want == got {
					return true
				}
			}
		}
		return false
	case DiscountScopeCategories:
		for _, want := range d.Categories {
			for _, got := range categories {
				if want == got {
					return true
				}
			}
		}
		return false
	}
	return false
}

// AmountFor computes the deduction. Fixed discounts never push the total
// below zero.
func (d *Discount) AmountFor(orderTotal float64) float64 {
	switch d.Type {
	case DiscountPercentage:
		return d.Value / 100 * orderTotal
	case DiscountFixed:
		if d.Value > orderTotal {
			return orderTotal
		}
		return d.Value
	}
	return 0
}
