package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/mvigliero/celushop/internal/domain"
)

// handleInventoryExport streams the live stock position as an XLSX workbook,
// one row per stock-bearing unit (base product, direct variant or option).
func (s *Server) handleInventoryExport(w http.ResponseWriter, r *http.Request) {
	products, _, err := s.products.List(r.Context(), domain.ProductFilter{PageSize: 10000})
	if err != nil {
		s.fail(w, err)
		return
	}

	f := excelize.NewFile()
	sheet := "Inventory"
	f.SetSheetName("Sheet1", sheet)
	headers := []string{"Product", "Category", "Color", "Option", "SKU", "Price", "Discount Price", "Stock"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	writeRow := func(name, category, color, option, sku string, price float64, dp *float64, stock int) {
		vals := []any{name, category, color, option, sku, price, "", stock}
		if dp != nil {
			vals[6] = *dp
		}
		for i, v := range vals {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		row++
	}

	for i := range products {
		p := &products[i]
		if p.HasBasePricing() {
			price := 0.0
			if p.BasePrice != nil {
				price = *p.BasePrice
			}
			stock := 0
			if p.BaseStock != nil {
				stock = *p.BaseStock
			}
			writeRow(p.Name, p.Category, "", "", "", price, p.BaseDiscountPrice, stock)
			continue
		}
		for j := range p.Variants {
			v := &p.Variants[j]
			switch {
			case len(v.SizeOptions) > 0:
				for _, o := range v.SizeOptions {
					writeRow(p.Name, p.Category, v.Color, o.Size, o.SKU, o.Price, o.DiscountPrice, o.Stock)
				}
			case len(v.StorageOptions) > 0:
				for _, o := range v.StorageOptions {
					writeRow(p.Name, p.Category, v.Color, o.Capacity, o.SKU, o.Price, o.DiscountPrice, o.Stock)
				}
			default:
				price := 0.0
				if v.Price != nil {
					price = *v.Price
				}
				stock := 0
				if v.Stock != nil {
					stock = *v.Stock
				}
				writeRow(p.Name, p.Category, v.Color, "", v.SKU, price, v.DiscountPrice, stock)
			}
		}
	}

	name := fmt.Sprintf("inventory-%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if err := f.Write(w); err != nil {
		log.Error().Err(err).Msg("write inventory export")
	}
}
