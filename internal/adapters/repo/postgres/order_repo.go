package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvigliero/celushop/internal/domain"
)

type OrderRepo struct{ db *gorm.DB }

func NewOrderRepo(db *gorm.DB) *OrderRepo { return &OrderRepo{db: db} }

// Create inserts the order and applies every side effect in one transaction.
// Stock comes down through conditional updates (stock >= qty guard), so two
// concurrent placements can never both take the last unit: the loser's
// update matches zero rows and the whole placement rolls back.
func (r *OrderRepo) Create(ctx context.Context, o *domain.Order, effects domain.CreateOrderEffects) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(o).Error; err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		for _, adj := range effects.Decrements {
			if err := adjustStock(tx, adj, -adj.Qty, true); err != nil {
				return err
			}
		}
		if effects.DiscountID != nil {
			res := tx.Model(&domain.Discount{}).
				Where("id = ? AND active AND (usage_limit = 0 OR used_count < usage_limit)", *effects.DiscountID).
				UpdateColumn("used_count", gorm.Expr("used_count + 1"))
			if res.Error != nil {
				return fmt.Errorf("consume discount: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return domain.ErrDiscountInvalid
			}
		}
		if effects.ClearCartID != nil {
			if err := tx.Where("cart_id = ?", *effects.ClearCartID).Delete(&domain.CartItem{}).Error; err != nil {
				return fmt.Errorf("clear cart: %w", err)
			}
		}
		return nil
	})
}

// adjustStock moves one stock column by delta. With guard set the update only
// matches while enough stock remains and a zero-row result means the line
// lost the race or the count was short.
func adjustStock(tx *gorm.DB, adj domain.StockAdjustment, delta int, guard bool) error {
	var q *gorm.DB
	var col string
	switch adj.Level {
	case domain.StockLevelBase:
		q = tx.Model(&domain.Product{}).Where("id = ?", adj.RowID)
		col = "base_stock"
	case domain.StockLevelVariant:
		q = tx.Model(&domain.Variant{}).Where("id = ?", adj.RowID)
		col = "stock"
	case domain.StockLevelStorage:
		q = tx.Model(&domain.StorageOption{}).Where("id = ?", adj.RowID)
		col = "stock"
	case domain.StockLevelSize:
		q = tx.Model(&domain.SizeOption{}).Where("id = ?", adj.RowID)
		col = "stock"
	default:
		return fmt.Errorf("unknown stock level %q", adj.Level)
	}
	if guard {
		q = q.Where(col+" >= ?", adj.Qty)
	}
	res := q.UpdateColumn(col, gorm.Expr("COALESCE("+col+",0) + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("adjust stock: %w", res.Error)
	}
	if guard && res.RowsAffected == 0 {
		return &domain.InsufficientStockError{ProductName: adj.ProductName}
	}
	return nil
}

func (r *OrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var o domain.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&o, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepo) FindByNumber(ctx context.Context, number string) (*domain.Order, error) {
	var o domain.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&o, "number = ?", number).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	var list []domain.Order
	err := r.db.WithContext(ctx).Preload("Items").
		Where("user_id = ?", userID).Order("created_at desc").Find(&list).Error
	return list, err
}

// UpdateStatus only succeeds while the order still sits at from. The guard
// makes concurrent admin edits and repeated requests harmless.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus) error {
	res := r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("id = ? AND status = ?", id, from).
		UpdateColumn("status", to)
	if res.Error != nil {
		return fmt.Errorf("update status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return &domain.InvalidTransitionError{From: from, To: to}
	}
	return nil
}

// CancelAndRestock flips a pending order to cancelled and credits the stock
// back, all in one transaction. The status guard means a double cancel
// cannot credit stock twice. Increments run unguarded: restoring stock never
// fails validation.
func (r *OrderRepo) CancelAndRestock(ctx context.Context, o *domain.Order, increments []domain.StockAdjustment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Order{}).
			Where("id = ? AND status = ?", o.ID, domain.OrderStatusPending).
			UpdateColumn("status", domain.OrderStatusCancelled)
		if res.Error != nil {
			return fmt.Errorf("cancel order: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return &domain.InvalidTransitionError{From: o.Status, To: domain.OrderStatusCancelled}
		}
		for _, adj := range increments {
			if err := adjustStock(tx, adj, adj.Qty, false); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	o.Status = domain.OrderStatusCancelled
	return nil
}
