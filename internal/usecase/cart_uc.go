package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/mvigliero/celushop/internal/domain"
)

type CartUC struct {
	Carts    domain.CartRepo
	Products domain.ProductRepo
}

// CartLine is a cart item annotated with its current effective price. Prices
// here are informative; the order freezes them at checkout.
type CartLine struct {
	ItemID    uuid.UUID  `json:"itemId"`
	ProductID uuid.UUID  `json:"productId"`
	VariantID *uuid.UUID `json:"variantId,omitempty"`
	OptionKey string     `json:"optionKey,omitempty"`
	Title     string     `json:"title"`
	Qty       int        `json:"qty"`
	UnitPrice float64    `json:"unitPrice"`
	Subtotal  float64    `json:"subtotal"`
	Stock     int        `json:"stock"`
}

func (uc *CartUC) View(ctx context.Context, userID uuid.UUID) ([]CartLine, float64, error) {
	cart, err := uc.Carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	lines := make([]CartLine, 0, len(cart.Items))
	total := 0.0
	for _, it := range cart.Items {
		line := CartLine{
			ItemID:    it.ID,
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			OptionKey: it.OptionKey,
			Qty:       it.Qty,
		}
		p, err := uc.Products.FindByID(ctx, it.ProductID)
		if err == nil {
			line.Title = p.Name
			if res, rerr := domain.ResolvePrice(p, it.VariantID, it.OptionKey); rerr == nil {
				line.UnitPrice = res.EffectiveUnit()
				line.Stock = res.Stock
			}
		}
		line.Subtotal = line.UnitPrice * float64(line.Qty)
		total += line.Subtotal
		lines = append(lines, line)
	}
	return lines, total, nil
}

// AddItem verifies the selection resolves to a real price source before the
// line lands in the cart.
func (uc *CartUC) AddItem(ctx context.Context, userID uuid.UUID, line OrderLineInput) error {
	if line.Qty <= 0 {
		return &domain.ValidationError{Field: "qty", Msg: "must be positive"}
	}
	p, err := uc.Products.FindByID(ctx, line.ProductID)
	if err != nil {
		return err
	}
	if _, err := domain.ResolvePrice(p, line.VariantID, line.OptionKey); err != nil {
		return err
	}
	cart, err := uc.Carts.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	return uc.Carts.UpsertItem(ctx, cart.ID, domain.CartItem{
		ID:        uuid.New(),
		CartID:    cart.ID,
		ProductID: line.ProductID,
		VariantID: line.VariantID,
		OptionKey: line.OptionKey,
		Qty:       line.Qty,
	})
}

func (uc *CartUC) SetQty(ctx context.Context, userID, itemID uuid.UUID, qty int) error {
	cart, err := uc.Carts.FindByUser(ctx, userID)
	if err != nil {
		return err
	}
	if qty <= 0 {
		return uc.Carts.RemoveItem(ctx, cart.ID, itemID)
	}
	return uc.Carts.SetItemQty(ctx, cart.ID, itemID, qty)
}

func (uc *CartUC) Clear(ctx context.Context, userID uuid.UUID) error {
	cart, err := uc.Carts.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	return uc.Carts.Clear(ctx, cart.ID)
}
