package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ProductRepo interface {
	Save(ctx context.Context, p *Product) error
	ReplaceVariants(ctx context.Context, productID uuid.UUID, variants []Variant) error
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindBySlug(ctx context.Context, slug string) (*Product, error)
	List(ctx context.Context, f ProductFilter) ([]Product, int64, error)
}

// CreateOrderEffects bundles everything that must commit or roll back with
// the order insert: the per-line stock decrements, the discount usage
// increment and the originating cart's items.
type CreateOrderEffects struct {
	Decrements  []StockAdjustment
	DiscountID  *uuid.UUID
	ClearCartID *uuid.UUID
}

type OrderRepo interface {
	// Create persists the order and applies its effects atomically. A line
	// whose stock no longer covers its quantity fails the whole placement
	// with an InsufficientStockError; an exhausted discount fails it with
	// ErrDiscountInvalid.
	Create(ctx context.Context, o *Order, effects CreateOrderEffects) error
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByNumber(ctx context.Context, number string) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error)
	// UpdateStatus flips the status only when the order is still at from,
	// otherwise returns an InvalidTransitionError.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to OrderStatus) error
	// CancelAndRestock marks a pending order cancelled and credits back the
	// given stock adjustments in one transaction. A second cancellation of
	// the same order fails the status guard and restores nothing.
	CancelAndRestock(ctx context.Context, o *Order, increments []StockAdjustment) error
}

type CartRepo interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*Cart, error)
	FindByUser(ctx context.Context, userID uuid.UUID) (*Cart, error)
	UpsertItem(ctx context.Context, cartID uuid.UUID, item CartItem) error
	SetItemQty(ctx context.Context, cartID, itemID uuid.UUID, qty int) error
	RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) error
	Clear(ctx context.Context, cartID uuid.UUID) error
}

type DiscountRepo interface {
	Save(ctx context.Context, d *Discount) error
	FindByCode(ctx context.Context, code string) (*Discount, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Discount, error)
	List(ctx context.Context) ([]Discount, error)
}

type CustomerRepo interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	FindByEmail(ctx context.Context, email string) (*Customer, error)
	Save(ctx context.Context, c *Customer) error
	AddAddress(ctx context.Context, customerID uuid.UUID, addr Address) error
}

// Notifier is the fire-and-forget side channel towards dashboards and the
// placing user. No delivery guarantee.
type Notifier interface {
	OrderCreated(ctx context.Context, o *Order)
	OrderStatusChanged(ctx context.Context, o *Order, previous OrderStatus)
}

type AuditEvent struct {
	Actor  string
	Action string
	Entity string
	Ref    string
	At     time.Time
}

type AuditLog interface {
	Record(ctx context.Context, ev AuditEvent)
}
