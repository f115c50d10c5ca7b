package domain

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

var legalTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped},
	OrderStatusShipped:    {OrderStatusDelivered},
}

// CanTransition reports whether next is a legal successor of s. Cancellation
// is reachable from pending only; cancelled and delivered are terminal.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range legalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type ShippingAddress struct {
	Street     string `gorm:"size:255"`
	City       string `gorm:"size:100"`
	Province   string `gorm:"size:80"`
	PostalCode string `gorm:"size:20"`
	Country    string `gorm:"size:80"`
	Phone      string `gorm:"size:50"`
}

// Order freezes item pricing at creation. Status is the only field mutated
// afterwards.
type Order struct {
	ID     uuid.UUID   `gorm:"type:uuid;primaryKey"`
	Number string      `gorm:"uniqueIndex;size:40"`
	UserID uuid.UUID   `gorm:"type:uuid;index"`
	Status OrderStatus `gorm:"type:varchar(30);index"`
	Items  []OrderItem

	TotalPrice     float64    `gorm:"type:decimal(12,2)"`
	TotalShipping  float64    `gorm:"type:decimal(12,2);default:0"`
	DiscountID     *uuid.UUID `gorm:"type:uuid"`
	DiscountAmount float64    `gorm:"type:decimal(12,2);default:0"`

	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:ship_"`
	Notified        bool            `gorm:"not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type OrderItem struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OrderID   uuid.UUID  `gorm:"type:uuid;index"`
	ProductID uuid.UUID  `gorm:"type:uuid;index"`
	VariantID *uuid.UUID `gorm:"type:uuid;index"`
	OptionKey string     `gorm:"size:40"`
	Title     string     `gorm:"size:180"`
	Color     string     `gorm:"size:60"`
	SKU       string     `gorm:"size:120"`
	Qty       int        `gorm:"not null"`
	UnitPrice float64    `gorm:"type:decimal(12,2)"`
}

// NewOrderNumber builds the human-readable order id shown to customers,
// e.g. ORD-20260901-3FA2B1.
func NewOrderNumber(now time.Time) string {
	buf := make([]byte, 3)
	_, _ = rand.Read(buf)
	return "ORD-" + now.Format("20060102") + "-" + strings.ToUpper(hex.EncodeToString(buf))
}

// StockAdjustment is one resolved stock mutation of an order placement or
// cancellation. ProductName rides along for error messages.
type StockAdjustment struct {
	Level       StockLevel
	RowID       uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Qty         int
}
