package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Product carries its price and stock either directly (base pricing) or
// through variants, never both.
type Product struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Slug         string    `gorm:"uniqueIndex;size:140"`
	Name         string    `gorm:"size:180"`
	Category     string    `gorm:"size:100;index"`
	Brand        string    `gorm:"size:100"`
	Model        string    `gorm:"size:140"`
	ShortDesc    string    `gorm:"type:text"`
	ShippingCost float64   `gorm:"type:decimal(12,2);default:0"`

	BasePrice         *float64 `gorm:"type:decimal(12,2)"`
	BaseStock         *int     `gorm:"type:int"`
	BaseDiscountPrice *float64 `gorm:"type:decimal(12,2)"`

	Active    bool `gorm:"default:true;index"`
	Variants  []Variant
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *Product) HasBasePricing() bool {
	return p.BasePrice != nil || p.BaseStock != nil
}

func (p *Product) FindVariant(id uuid.UUID) *Variant {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i]
		}
	}
	return nil
}

type PricingMode string

const (
	PricingDirect  PricingMode = "direct"
	PricingStorage PricingMode = "storage"
	PricingSize    PricingMode = "size"
)

// Variant is a color-specific sellable unit. Exactly one pricing mode holds:
// direct price/stock on the variant, storage options, or size options.
type Variant struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"type:uuid;index"`
	Color     string    `gorm:"size:60;not null"`
	SKU       string    `gorm:"size:100;index"`

	Price         *float64 `gorm:"type:decimal(12,2)"`
	Stock         *int     `gorm:"type:int"`
	DiscountPrice *float64 `gorm:"type:decimal(12,2)"`

	StorageOptions []StorageOption
	SizeOptions    []SizeOption

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (v *Variant) HasDirectPricing() bool {
	return v.Price != nil || v.Stock != nil
}

// Mode reports the variant's pricing mode. The bool is false when zero or
// more than one shape carries data, a state validation never lets through.
func (v *Variant) Mode() (PricingMode, bool) {
	modes := make([]PricingMode, 0, 3)
	if v.HasDirectPricing() {
		modes = append(modes, PricingDirect)
	}
	if len(v.StorageOptions) > 0 {
		modes = append(modes, PricingStorage)
	}
	if len(v.SizeOptions) > 0 {
		modes = append(modes, PricingSize)
	}
	if len(modes) != 1 {
		return "", false
	}
	return modes[0], true
}

type StorageOption struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	VariantID     uuid.UUID `gorm:"type:uuid;index"`
	Capacity      string    `gorm:"size:40;not null"`
	Price         float64   `gorm:"type:decimal(12,2)"`
	Stock         int       `gorm:"type:int;default:0"`
	DiscountPrice *float64  `gorm:"type:decimal(12,2)"`
	SKU           string    `gorm:"size:100;index"`
	CreatedAt     time.Time
}

type SizeOption struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	VariantID     uuid.UUID `gorm:"type:uuid;index"`
	Size          string    `gorm:"size:40;not null"`
	Price         float64   `gorm:"type:decimal(12,2)"`
	Stock         int       `gorm:"type:int;default:0"`
	DiscountPrice *float64  `gorm:"type:decimal(12,2)"`
	SKU           string    `gorm:"size:100;index"`
	CreatedAt     time.Time
}

// StockLevel identifies which row holds the stock for a resolved line.
type StockLevel string

const (
	StockLevelBase    StockLevel = "base"
	StockLevelVariant StockLevel = "variant"
	StockLevelStorage StockLevel = "storage_option"
	StockLevelSize    StockLevel = "size_option"
)

// PriceResolution is the outcome of picking the price/stock source for an
// order line. RowID is the row whose stock column gets adjusted.
type PriceResolution struct {
	Price         float64
	DiscountPrice *float64
	Stock         int
	SKU           string
	Level         StockLevel
	RowID         uuid.UUID
}

// EffectiveUnit is the unit price actually charged.
func (r PriceResolution) EffectiveUnit() float64 {
	if r.DiscountPrice != nil {
		return *r.DiscountPrice
	}
	return r.Price
}

// ResolvePrice picks the price/stock source for a line. Priority follows the
// storefront selection flow: size option, then storage option, then the
// variant's direct price, then the product's base price.
func ResolvePrice(p *Product, variantID *uuid.UUID, optionKey string) (PriceResolution, error) {
	if variantID != nil {
		v := p.FindVariant(*variantID)
		if v == nil {
			return PriceResolution{}, ErrNotFound
		}
		key := strings.ToUpper(strings.TrimSpace(optionKey))
		if len(v.SizeOptions) > 0 {
			for i := range v.SizeOptions {
				o := &v.SizeOptions[i]
				if strings.EqualFold(o.Size, key) {
					return PriceResolution{
						Price:         o.Price,
						DiscountPrice: o.DiscountPrice,
						Stock:         o.Stock,
						SKU:           o.SKU,
						Level:         StockLevelSize,
						RowID:         o.ID,
					}, nil
				}
			}
			return PriceResolution{}, ErrNotFound
		}
		if len(v.StorageOptions) > 0 {
			for i := range v.StorageOptions {
				o := &v.StorageOptions[i]
				if strings.EqualFold(o.Capacity, key) {
					return PriceResolution{
						Price:         o.Price,
						DiscountPrice: o.DiscountPrice,
						Stock:         o.Stock,
						SKU:           o.SKU,
						Level:         StockLevelStorage,
						RowID:         o.ID,
					}, nil
				}
			}
			return PriceResolution{}, ErrNotFound
		}
		if v.HasDirectPricing() {
			res := PriceResolution{
				DiscountPrice: v.DiscountPrice,
				SKU:           v.SKU,
				Level:         StockLevelVariant,
				RowID:         v.ID,
			}
			if v.Price != nil {
				res.Price = *v.Price
			}
			if v.Stock != nil {
				res.Stock = *v.Stock
			}
			return res, nil
		}
		return PriceResolution{}, ErrNotFound
	}

	if p.HasBasePricing() {
		res := PriceResolution{
			DiscountPrice: p.BaseDiscountPrice,
			Level:         StockLevelBase,
			RowID:         p.ID,
		}
		if p.BasePrice != nil {
			res.Price = *p.BasePrice
		}
		if p.BaseStock != nil {
			res.Stock = *p.BaseStock
		}
		return res, nil
	}
	return PriceResolution{}, ErrNotFound
}

type ProductFilter struct {
	Category string
	Query    string
	Sort     string
	Page     int
	PageSize int
}
