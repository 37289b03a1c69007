package dmart

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/avishek-m/pricecompare/internal/domain"
)

func TestToListing_BuildsListing(t *testing.T) {
	p := product{
		Name:        "Aashirvaad Atta 5kg",
		SeoTokenNtk: "aashirvaad-atta-5kg",
	}
	p.SKUs = []sku{{
		PriceSale:        "249",
		ProductImageKey:  "ABC123",
		ImgCode:          "1",
		VariantTextValue: "5 kg",
	}}

	l, ok := toListing(p)
	assert.True(t, ok)
	assert.Equal(t, domain.DMart, l.Platform)
	assert.Equal(t, int64(249), l.Price)
	assert.True(t, l.PriceOk)
	assert.Equal(t, "https://www.dmart.in/product/aashirvaad-atta-5kg", l.URL)
	assert.Equal(t, "https://cdn.dmart.in/images/products/ABC123_1_B.jpg", l.ImageURL)
	assert.True(t, l.Quantity.Ok)
}

func TestToListing_SkipsMissingName(t *testing.T) {
	p := product{SKUs: []sku{{PriceSale: "10", ProductImageKey: "x", VariantTextValue: "1 kg"}}}
	_, ok := toListing(p)
	assert.False(t, ok)
}

func TestToListing_SkipsNoSKUs(t *testing.T) {
	p := product{Name: "Something"}
	_, ok := toListing(p)
	assert.False(t, ok)
}

func TestToListing_SkipsMissingImageKey(t *testing.T) {
	p := product{Name: "Something", SKUs: []sku{{PriceSale: "10", VariantTextValue: "1 kg"}}}
	_, ok := toListing(p)
	assert.False(t, ok)
}
