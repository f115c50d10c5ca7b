package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvigliero/celushop/internal/domain"
)

type CartRepo struct{ db *gorm.DB }

func NewCartRepo(db *gorm.DB) *CartRepo { return &CartRepo{db: db} }

func (r *CartRepo) FindByUser(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	var c domain.Cart
	err := r.db.WithContext(ctx).Preload("Items").First(&c, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *CartRepo) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	c, err := r.FindByUser(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	c = &domain.Cart{ID: uuid.New(), UserID: userID, CreatedAt: time.Now()}
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		// Lost a create race with another request for the same user.
		if existing, ferr := r.FindByUser(ctx, userID); ferr == nil {
			return existing, nil
		}
		return nil, err
	}
	return c, nil
}

// UpsertItem merges the line into an existing one for the same selection, or
// appends it.
func (r *CartRepo) UpsertItem(ctx context.Context, cartID uuid.UUID, item domain.CartItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&domain.CartItem{}).Where("cart_id = ? AND product_id = ? AND option_key = ?",
			cartID, item.ProductID, item.OptionKey)
		if item.VariantID != nil {
			q = q.Where("variant_id = ?", *item.VariantID)
		} else {
			q = q.Where("variant_id IS NULL")
		}
		res := q.UpdateColumn("qty", gorm.Expr("qty + ?", item.Qty))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		item.CartID = cartID
		return tx.Create(&item).Error
	})
}

func (r *CartRepo) SetItemQty(ctx context.Context, cartID, itemID uuid.UUID, qty int) error {
	res := r.db.WithContext(ctx).Model(&domain.CartItem{}).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		UpdateColumn("qty", qty)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CartRepo) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Delete(&domain.CartItem{}).Error
}

func (r *CartRepo) Clear(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&domain.CartItem{}).Error
}
