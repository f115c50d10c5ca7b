package domain

import (
	"time"

	"github.com/google/uuid"
)

// Cart holds one open cart per user. Lines carry no price: the effective
// price is read from the owning product, so it can drift until checkout
// freezes it into an order.
type Cart struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	Items     []CartItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CartItem struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CartID    uuid.UUID  `gorm:"type:uuid;index"`
	ProductID uuid.UUID  `gorm:"type:uuid;index"`
	VariantID *uuid.UUID `gorm:"type:uuid;index"`
	OptionKey string     `gorm:"size:40"`
	Qty       int        `gorm:"not null;default:1"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
