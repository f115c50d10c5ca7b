package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvigliero/celushop/internal/domain"
)

type DiscountRepo struct{ db *gorm.DB }

func NewDiscountRepo(db *gorm.DB) *DiscountRepo { return &DiscountRepo{db: db} }

func (r *DiscountRepo) Save(ctx context.Context, d *domain.Discount) error {
	return r.db.WithContext(ctx).Save(d).Error
}

// FindByCode matches case-insensitively; codes are stored as supplied.
func (r *DiscountRepo) FindByCode(ctx context.Context, code string) (*domain.Discount, error) {
	var d domain.Discount
	err := r.db.WithContext(ctx).
		First(&d, "LOWER(code) = LOWER(?)", strings.TrimSpace(code)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *DiscountRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Discount, error) {
	var d domain.Discount
	err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *DiscountRepo) List(ctx context.Context) ([]domain.Discount, error) {
	var list []domain.Discount
	err := r.db.WithContext(ctx).Order("created_at desc").Find(&list).Error
	return list, err
}
