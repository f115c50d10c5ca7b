package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mvigliero/celushop/internal/domain"
)

// VariantInput is the raw variant shape accepted at the product write
// boundary. Price and Stock are pointers so an explicitly supplied zero is
// distinguishable from an absent field.
type VariantInput struct {
	Color         string        `json:"color"`
	SKU           string        `json:"sku"`
	Price         *float64      `json:"price"`
	Stock         *int          `json:"stock"`
	DiscountPrice *float64      `json:"discountPrice"`
	Storages      []OptionInput `json:"storages"`
	Sizes         []OptionInput `json:"sizes"`
}

type OptionInput struct {
	Label         string   `json:"label"`
	Price         float64  `json:"price"`
	Stock         int      `json:"stock"`
	DiscountPrice *float64 `json:"discountPrice"`
	SKU           string   `json:"sku"`
}

// ProductInput is the product write shape. Base pricing and variants are
// mutually exclusive.
type ProductInput struct {
	Name              string         `json:"name"`
	Category          string         `json:"category"`
	Brand             string         `json:"brand"`
	Model             string         `json:"model"`
	ShortDesc         string         `json:"shortDesc"`
	ShippingCost      float64        `json:"shippingCost"`
	BasePrice         *float64       `json:"basePrice"`
	BaseStock         *int           `json:"baseStock"`
	BaseDiscountPrice *float64       `json:"baseDiscountPrice"`
	Variants          []VariantInput `json:"variants"`
}

type ProductUC struct {
	Products domain.ProductRepo
}

// NormalizeVariants validates the raw variants and returns their normalized
// form: exactly one pricing shape per variant, labels and SKUs trimmed and
// uppercased, and only the fields of the chosen shape populated. Errors name
// the variant's 1-based position.
func NormalizeVariants(inputs []VariantInput) ([]domain.Variant, error) {
	out := make([]domain.Variant, 0, len(inputs))
	for i, in := range inputs {
		pos := i + 1
		v, err := normalizeVariant(in, pos)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func normalizeVariant(in VariantInput, pos int) (domain.Variant, error) {
	color := strings.TrimSpace(in.Color)
	if color == "" {
		return domain.Variant{}, &domain.ValidationError{Field: "color", Position: pos, Msg: "is required"}
	}

	hasDirect := in.Price != nil || in.Stock != nil
	hasStorage := len(in.Storages) > 0
	hasSize := len(in.Sizes) > 0

	shapes := 0
	for _, present := range []bool{hasDirect, hasStorage, hasSize} {
		if present {
			shapes++
		}
	}
	if shapes == 0 {
		return domain.Variant{}, &domain.ValidationError{
			Field: "pricing", Position: pos,
			Msg: "must carry a price, storage options or size options",
		}
	}
	if shapes > 1 {
		return domain.Variant{}, &domain.ValidationError{
			Field: "pricing", Position: pos,
			Msg: "carries more than one pricing shape",
		}
	}

	v := domain.Variant{
		ID:    uuid.New(),
		Color: color,
		SKU:   normalizeSKU(in.SKU),
	}

	switch {
	case hasDirect:
		price := 0.0
		if in.Price != nil {
			price = *in.Price
		}
		if price < 0 {
			return domain.Variant{}, &domain.ValidationError{Field: "price", Position: pos, Msg: "must not be negative"}
		}
		stock := 0
		if in.Stock != nil {
			stock = *in.Stock
		}
		if stock < 0 {
			return domain.Variant{}, &domain.ValidationError{Field: "stock", Position: pos, Msg: "must not be negative"}
		}
		if err := checkDiscountPrice(in.DiscountPrice, price, "discountPrice", pos); err != nil {
			return domain.Variant{}, err
		}
		v.Price = &price
		v.Stock = &stock
		v.DiscountPrice = in.DiscountPrice

	case hasStorage:
		for j, o := range in.Storages {
			norm, err := normalizeOption(o, "storages", pos, j)
			if err != nil {
				return domain.Variant{}, err
			}
			v.StorageOptions = append(v.StorageOptions, domain.StorageOption{
				ID:            uuid.New(),
				Capacity:      norm.Label,
				Price:         norm.Price,
				Stock:         norm.Stock,
				DiscountPrice: norm.DiscountPrice,
				SKU:           norm.SKU,
			})
		}

	case hasSize:
		for j, o := range in.Sizes {
			norm, err := normalizeOption(o, "sizes", pos, j)
			if err != nil {
				return domain.Variant{}, err
			}
			v.SizeOptions = append(v.SizeOptions, domain.SizeOption{
				ID:            uuid.New(),
				Size:          norm.Label,
				Price:         norm.Price,
				Stock:         norm.Stock,
				DiscountPrice: norm.DiscountPrice,
				SKU:           norm.SKU,
			})
		}
	}

	return v, nil
}

func normalizeOption(o OptionInput, field string, pos, idx int) (OptionInput, error) {
	label := strings.ToUpper(strings.TrimSpace(o.Label))
	if label == "" {
		return OptionInput{}, &domain.ValidationError{
			Field: fmt.Sprintf("%s[%d].label", field, idx), Position: pos, Msg: "is required",
		}
	}
	if o.Price < 0 {
		return OptionInput{}, &domain.ValidationError{
			Field: fmt.Sprintf("%s[%d].price", field, idx), Position: pos, Msg: "must not be negative",
		}
	}
	if o.Stock < 0 {
		return OptionInput{}, &domain.ValidationError{
			Field: fmt.Sprintf("%s[%d].stock", field, idx), Position: pos, Msg: "must not be negative",
		}
	}
	if err := checkDiscountPrice(o.DiscountPrice, o.Price, fmt.Sprintf("%s[%d].discountPrice", field, idx), pos); err != nil {
		return OptionInput{}, err
	}
	return OptionInput{
		Label:         label,
		Price:         o.Price,
		Stock:         o.Stock,
		DiscountPrice: o.DiscountPrice,
		SKU:           normalizeSKU(o.SKU),
	}, nil
}

func checkDiscountPrice(dp *float64, price float64, field string, pos int) error {
	if dp == nil {
		return nil
	}
	if *dp < 0 {
		return &domain.ValidationError{Field: field, Position: pos, Msg: "must not be negative"}
	}
	if *dp >= price {
		return &domain.ValidationError{Field: field, Position: pos, Msg: "must be lower than price"}
	}
	return nil
}

func normalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

func buildProduct(in ProductInput) (*domain.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, &domain.ValidationError{Field: "name", Msg: "is required"}
	}

	hasBase := in.BasePrice != nil || in.BaseStock != nil
	hasVariants := len(in.Variants) > 0
	if hasBase == hasVariants {
		if hasBase {
			return nil, &domain.ValidationError{Field: "pricing", Msg: "cannot mix base pricing with variants"}
		}
		return nil, &domain.ValidationError{Field: "pricing", Msg: "needs either base pricing or variants"}
	}

	p := &domain.Product{
		ID:           uuid.New(),
		Name:         name,
		Slug:         slugify(name),
		Category:     strings.TrimSpace(in.Category),
		Brand:        strings.TrimSpace(in.Brand),
		Model:        strings.TrimSpace(in.Model),
		ShortDesc:    in.ShortDesc,
		ShippingCost: in.ShippingCost,
		Active:       true,
	}
	if in.ShippingCost < 0 {
		return nil, &domain.ValidationError{Field: "shippingCost", Msg: "must not be negative"}
	}

	if hasBase {
		price := 0.0
		if in.BasePrice != nil {
			price = *in.BasePrice
		}
		if price < 0 {
			return nil, &domain.ValidationError{Field: "basePrice", Msg: "must not be negative"}
		}
		stock := 0
		if in.BaseStock != nil {
			stock = *in.BaseStock
		}
		if stock < 0 {
			return nil, &domain.ValidationError{Field: "baseStock", Msg: "must not be negative"}
		}
		if err := checkDiscountPrice(in.BaseDiscountPrice, price, "baseDiscountPrice", 0); err != nil {
			return nil, err
		}
		p.BasePrice = &price
		p.BaseStock = &stock
		p.BaseDiscountPrice = in.BaseDiscountPrice
		return p, nil
	}

	variants, err := NormalizeVariants(in.Variants)
	if err != nil {
		return nil, err
	}
	for i := range variants {
		variants[i].ProductID = p.ID
	}
	p.Variants = variants
	return p, nil
}

// Create validates the whole product write before anything is persisted; a
// product that would violate the pricing invariants never reaches the repo.
func (uc *ProductUC) Create(ctx context.Context, in ProductInput) (*domain.Product, error) {
	p, err := buildProduct(in)
	if err != nil {
		return nil, err
	}
	if err := uc.Products.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update rebuilds the product from the input and swaps its variants in one
// repo call, so the stored product is never part old, part new.
func (uc *ProductUC) Update(ctx context.Context, id uuid.UUID, in ProductInput) (*domain.Product, error) {
	existing, err := uc.Products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := buildProduct(in)
	if err != nil {
		return nil, err
	}
	p.ID = existing.ID
	p.Slug = existing.Slug
	p.CreatedAt = existing.CreatedAt
	for i := range p.Variants {
		p.Variants[i].ProductID = p.ID
	}
	variants := p.Variants
	p.Variants = nil
	if err := uc.Products.Save(ctx, p); err != nil {
		return nil, err
	}
	if err := uc.Products.ReplaceVariants(ctx, p.ID, variants); err != nil {
		return nil, err
	}
	p.Variants = variants
	return p, nil
}

func (uc *ProductUC) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return uc.Products.FindByID(ctx, id)
}

func (uc *ProductUC) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, domain.ErrNotFound
	}
	return uc.Products.FindBySlug(ctx, slug)
}

func (uc *ProductUC) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	if f.PageSize == 0 {
		f.PageSize = 20
	}
	return uc.Products.List(ctx, f)
}

func slugify(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "-"))
}
