package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mvigliero/celushop/internal/domain"
)

type DiscountInput struct {
	Code           string      `json:"code"`
	Type           string      `json:"type"`
	Value          float64     `json:"value"`
	AppliesTo      string      `json:"appliesTo"`
	ProductIDs     []uuid.UUID `json:"productIds"`
	Categories     []string    `json:"categories"`
	MinOrderAmount float64     `json:"minOrderAmount"`
	StartsAt       time.Time   `json:"startsAt"`
	EndsAt         time.Time   `json:"endsAt"`
	UsageLimit     int         `json:"usageLimit"`
}

type DiscountUC struct {
	Discounts domain.DiscountRepo
}

func (uc *DiscountUC) Create(ctx context.Context, in DiscountInput) (*domain.Discount, error) {
	code := strings.TrimSpace(in.Code)
	if code == "" {
		return nil, &domain.ValidationError{Field: "code", Msg: "is required"}
	}
	typ := domain.DiscountType(in.Type)
	if typ != domain.DiscountPercentage && typ != domain.DiscountFixed {
		return nil, &domain.ValidationError{Field: "type", Msg: "must be percentage or fixed"}
	}
	if in.Value <= 0 {
		return nil, &domain.ValidationError{Field: "value", Msg: "must be positive"}
	}
	if typ == domain.DiscountPercentage && in.Value > 100 {
		return nil, &domain.ValidationError{Field: "value", Msg: "cannot exceed 100"}
	}
	scope := domain.DiscountScope(in.AppliesTo)
	if scope == "" {
		scope = domain.DiscountScopeAll
	}
	switch scope {
	case domain.DiscountScopeAll, domain.DiscountScopeOrders:
	case domain.DiscountScopeProducts:
		if len(in.ProductIDs) == 0 {
			return nil, &domain.ValidationError{Field: "productIds", Msg: "is required for product scope"}
		}
	case domain.DiscountScopeCategories:
		if len(in.Categories) == 0 {
			return nil, &domain.ValidationError{Field: "categories", Msg: "is required for category scope"}
		}
	default:
		return nil, &domain.ValidationError{Field: "appliesTo", Msg: "is not a known scope"}
	}
	if !in.EndsAt.After(in.StartsAt) {
		return nil, &domain.ValidationError{Field: "endsAt", Msg: "must be after startsAt"}
	}
	if in.MinOrderAmount < 0 {
		return nil, &domain.ValidationError{Field: "minOrderAmount", Msg: "must not be negative"}
	}
	if in.UsageLimit < 0 {
		return nil, &domain.ValidationError{Field: "usageLimit", Msg: "must not be negative"}
	}

	d := &domain.Discount{
		ID:             uuid.New(),
		Code:           code,
		Type:           typ,
		Value:          in.Value,
		AppliesTo:      scope,
		ProductIDs:     in.ProductIDs,
		Categories:     in.Categories,
		MinOrderAmount: in.MinOrderAmount,
		StartsAt:       in.StartsAt,
		EndsAt:         in.EndsAt,
		Active:         true,
		UsageLimit:     in.UsageLimit,
	}
	if err := uc.Discounts.Save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (uc *DiscountUC) List(ctx context.Context) ([]domain.Discount, error) {
	return uc.Discounts.List(ctx)
}

func (uc *DiscountUC) Deactivate(ctx context.Context, id uuid.UUID) error {
	d, err := uc.Discounts.FindByID(ctx, id)
	if err != nil {
		return err
	}
	d.Active = false
	return uc.Discounts.Save(ctx, d)
}

// Preview evaluates a code against a hypothetical order without consuming a
// use. All failure modes report the same generic error.
func (uc *DiscountUC) Preview(ctx context.Context, code string, orderTotal float64, productIDs []uuid.UUID, categories []string) (float64, error) {
	d, err := uc.Discounts.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, domain.ErrDiscountInvalid
		}
		return 0, err
	}
	if !d.EligibleFor(orderTotal, productIDs, categories, time.Now()) {
		return 0, domain.ErrDiscountInvalid
	}
	return d.AmountFor(orderTotal), nil
}
