package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fp(v float64) *float64 { return &v }
func ip(v int) *int         { return &v }

func TestResolvePrice_BaseProduct(t *testing.T) {
	p := &Product{ID: uuid.New(), Name: "Cargador 20W", BasePrice: fp(1500), BaseStock: ip(12)}

	res, err := ResolvePrice(p, nil, "")
	require.NoError(t, err)
	assert.Equal(t, 1500.0, res.Price)
	assert.Equal(t, 12, res.Stock)
	assert.Equal(t, StockLevelBase, res.Level)
	assert.Equal(t, p.ID, res.RowID)
}

func TestResolvePrice_DirectVariant(t *testing.T) {
	vid := uuid.New()
	p := &Product{
		ID: uuid.New(), Name: "Funda Silicona",
		Variants: []Variant{{ID: vid, Color: "Negro", Price: fp(900), Stock: ip(4), DiscountPrice: fp(700)}},
	}

	res, err := ResolvePrice(p, &vid, "")
	require.NoError(t, err)
	assert.Equal(t, 900.0, res.Price)
	assert.Equal(t, 4, res.Stock)
	assert.Equal(t, StockLevelVariant, res.Level)
	assert.Equal(t, 700.0, res.EffectiveUnit())
}

func TestResolvePrice_StorageOption(t *testing.T) {
	vid := uuid.New()
	oid := uuid.New()
	p := &Product{
		ID: uuid.New(), Name: "iPhone 15",
		Variants: []Variant{{
			ID: vid, Color: "Azul",
			StorageOptions: []StorageOption{
				{ID: uuid.New(), Capacity: "128GB", Price: 999, Stock: 3},
				{ID: oid, Capacity: "256GB", Price: 1199, Stock: 5},
			},
		}},
	}

	res, err := ResolvePrice(p, &vid, "256gb")
	require.NoError(t, err)
	assert.Equal(t, 1199.0, res.Price)
	assert.Equal(t, 5, res.Stock)
	assert.Equal(t, StockLevelStorage, res.Level)
	assert.Equal(t, oid, res.RowID)
}

// Size options outrank storage options, which outrank the direct variant
// price, which outranks the base product.
func TestResolvePrice_PriorityOrder(t *testing.T) {
	vid := uuid.New()
	sizeID := uuid.New()
	p := &Product{
		ID: uuid.New(), Name: "Remera Logo",
		BasePrice: fp(10),
		Variants: []Variant{{
			ID: vid, Color: "Blanco",
			Price: fp(20), Stock: ip(1),
			StorageOptions: []StorageOption{{ID: uuid.New(), Capacity: "L", Price: 30, Stock: 2}},
			SizeOptions:    []SizeOption{{ID: sizeID, Size: "L", Price: 40, Stock: 3}},
		}},
	}

	res, err := ResolvePrice(p, &vid, "L")
	require.NoError(t, err)
	assert.Equal(t, 40.0, res.Price)
	assert.Equal(t, StockLevelSize, res.Level)
	assert.Equal(t, sizeID, res.RowID)
}

func TestResolvePrice_NotFound(t *testing.T) {
	vid := uuid.New()
	p := &Product{
		ID: uuid.New(), Name: "Galaxy A54",
		Variants: []Variant{{
			ID: vid, Color: "Verde",
			StorageOptions: []StorageOption{{ID: uuid.New(), Capacity: "128GB", Price: 500, Stock: 1}},
		}},
	}

	other := uuid.New()
	_, err := ResolvePrice(p, &other, "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = ResolvePrice(p, &vid, "512GB")
	assert.ErrorIs(t, err, ErrNotFound)

	// Variant pricing without base pricing: a bare product resolves nothing.
	bare := &Product{ID: uuid.New(), Name: "Sin Precio"}
	_, err = ResolvePrice(bare, nil, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVariantMode(t *testing.T) {
	direct := Variant{Color: "Rojo", Price: fp(100), Stock: ip(2)}
	mode, ok := direct.Mode()
	require.True(t, ok)
	assert.Equal(t, PricingDirect, mode)

	storage := Variant{Color: "Rojo", StorageOptions: []StorageOption{{Capacity: "64GB", Price: 10}}}
	mode, ok = storage.Mode()
	require.True(t, ok)
	assert.Equal(t, PricingStorage, mode)

	both := Variant{Color: "Rojo", Price: fp(100), SizeOptions: []SizeOption{{Size: "M", Price: 10}}}
	_, ok = both.Mode()
	assert.False(t, ok)

	neither := Variant{Color: "Rojo"}
	_, ok = neither.Mode()
	assert.False(t, ok)
}
