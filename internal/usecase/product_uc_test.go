package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvigliero/celushop/internal/domain"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func TestNormalizeVariants_Direct(t *testing.T) {
	out, err := NormalizeVariants([]VariantInput{{
		Color: "  Negro ",
		SKU:   " ip15-blk ",
		Price: fptr(999),
		Stock: iptr(10),
	}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	v := out[0]
	assert.Equal(t, "Negro", v.Color)
	assert.Equal(t, "IP15-BLK", v.SKU)
	require.NotNil(t, v.Price)
	assert.Equal(t, 999.0, *v.Price)
	require.NotNil(t, v.Stock)
	assert.Equal(t, 10, *v.Stock)
	assert.Empty(t, v.StorageOptions)
	assert.Empty(t, v.SizeOptions)
}

func TestNormalizeVariants_ExplicitZeroIsDirect(t *testing.T) {
	// A supplied zero price still counts as direct pricing; only an absent
	// field does not.
	out, err := NormalizeVariants([]VariantInput{{Color: "Gris", Price: fptr(0)}})
	require.NoError(t, err)
	mode, ok := out[0].Mode()
	require.True(t, ok)
	assert.Equal(t, domain.PricingDirect, mode)
}

func TestNormalizeVariants_StorageOptions(t *testing.T) {
	out, err := NormalizeVariants([]VariantInput{{
		Color: "Azul",
		Storages: []OptionInput{
			{Label: " 128gb ", Price: 999, Stock: 5, SKU: "a128"},
			{Label: "256GB", Price: 1199, Stock: 3, DiscountPrice: fptr(1099)},
		},
	}})
	require.NoError(t, err)
	require.Len(t, out[0].StorageOptions, 2)
	assert.Equal(t, "128GB", out[0].StorageOptions[0].Capacity)
	assert.Equal(t, "A128", out[0].StorageOptions[0].SKU)
	assert.Equal(t, "256GB", out[0].StorageOptions[1].Capacity)
	require.NotNil(t, out[0].StorageOptions[1].DiscountPrice)
	assert.Equal(t, 1099.0, *out[0].StorageOptions[1].DiscountPrice)
}

func TestNormalizeVariants_MissingColor(t *testing.T) {
	_, err := NormalizeVariants([]VariantInput{{Color: "  ", Price: fptr(10)}})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "color", verr.Field)
	assert.Equal(t, 1, verr.Position)
}

func TestNormalizeVariants_ShapeConflicts(t *testing.T) {
	t.Run("no shape", func(t *testing.T) {
		_, err := NormalizeVariants([]VariantInput{{Color: "Rojo"}})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "pricing", verr.Field)
	})

	t.Run("direct plus storage", func(t *testing.T) {
		_, err := NormalizeVariants([]VariantInput{
			{Color: "Negro", Price: fptr(10)},
			{
				Color:    "Rojo",
				Price:    fptr(100),
				Storages: []OptionInput{{Label: "64GB", Price: 10, Stock: 1}},
			},
		})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		// The error names the offending variant's 1-based position.
		assert.Equal(t, 2, verr.Position)
	})

	t.Run("storage plus size", func(t *testing.T) {
		_, err := NormalizeVariants([]VariantInput{{
			Color:    "Rojo",
			Storages: []OptionInput{{Label: "64GB", Price: 10}},
			Sizes:    []OptionInput{{Label: "M", Price: 10}},
		}})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
	})
}

func TestNormalizeVariants_NumericRules(t *testing.T) {
	t.Run("negative price", func(t *testing.T) {
		_, err := NormalizeVariants([]VariantInput{{Color: "Rojo", Price: fptr(-1)}})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "price", verr.Field)
	})

	t.Run("negative stock", func(t *testing.T) {
		_, err := NormalizeVariants([]VariantInput{{Color: "Rojo", Stock: iptr(-1)}})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("discount price must be strictly lower", func(t *testing.T) {
		_, err := NormalizeVariants([]VariantInput{{Color: "Rojo", Price: fptr(100), DiscountPrice: fptr(100)}})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)

		_, err = NormalizeVariants([]VariantInput{{Color: "Rojo", Price: fptr(100), DiscountPrice: fptr(120)}})
		require.ErrorAs(t, err, &verr)

		_, err = NormalizeVariants([]VariantInput{{Color: "Rojo", Price: fptr(100), DiscountPrice: fptr(99.99)}})
		require.NoError(t, err)
	})

	t.Run("option label required", func(t *testing.T) {
		_, err := NormalizeVariants([]VariantInput{{Color: "Rojo", Sizes: []OptionInput{{Label: " ", Price: 10}}}})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
	})
}

func TestProductCreate_XOR(t *testing.T) {
	uc := &ProductUC{Products: newMockProductRepo()}
	ctx := context.Background()

	t.Run("base pricing only", func(t *testing.T) {
		p, err := uc.Create(ctx, ProductInput{Name: "Cable USB-C", BasePrice: fptr(500), BaseStock: iptr(30)})
		require.NoError(t, err)
		assert.True(t, p.HasBasePricing())
		assert.Empty(t, p.Variants)
	})

	t.Run("variants only", func(t *testing.T) {
		p, err := uc.Create(ctx, ProductInput{
			Name:     "iPhone 15",
			Variants: []VariantInput{{Color: "Negro", Storages: []OptionInput{{Label: "128GB", Price: 999, Stock: 4}}}},
		})
		require.NoError(t, err)
		assert.False(t, p.HasBasePricing())
		require.Len(t, p.Variants, 1)
		assert.Equal(t, p.ID, p.Variants[0].ProductID)
	})

	t.Run("both rejected", func(t *testing.T) {
		_, err := uc.Create(ctx, ProductInput{
			Name:      "Ambiguo",
			BasePrice: fptr(100),
			Variants:  []VariantInput{{Color: "Negro", Price: fptr(90)}},
		})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("neither rejected", func(t *testing.T) {
		_, err := uc.Create(ctx, ProductInput{Name: "Vacio"})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
	})
}

func TestProductCreate_InvalidVariantNotPersisted(t *testing.T) {
	repo := newMockProductRepo()
	uc := &ProductUC{Products: repo}

	_, err := uc.Create(context.Background(), ProductInput{
		Name: "Mal Variante",
		Variants: []VariantInput{{
			Color:    "Rojo",
			Price:    fptr(100),
			Storages: []OptionInput{{Label: "64GB", Price: 10, Stock: 1}},
		}},
	})
	require.Error(t, err)
	assert.Empty(t, repo.products)
}
