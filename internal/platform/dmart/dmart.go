// Package dmart implements the DMart storefront handler. DMart carries no
// durable session auth: the only "credential" is a serviceability verdict
// for the resolved place. A verdict held for the same place is reused
// (a negative one skips the search); otherwise it is checked before the
// search, and re-checked after a failed search attempt.
// Grounded on original_source/backend/utils/Dmart_Handler.py.
package dmart

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/avishek-m/pricecompare/internal/domain"
	"github.com/avishek-m/pricecompare/internal/matching"
	"github.com/avishek-m/pricecompare/internal/platform"
	"github.com/avishek-m/pricecompare/internal/proxyclient"
	apperrors "github.com/avishek-m/pricecompare/pkg/errors"
)

const (
	serviceabilityURL = "https://digital.dmart.in/api/v2/pincodes/details"
	searchURLTemplate = "https://digital.dmart.in/api/v3/search/%s?page=1&size=100&channel=web&storeId=10680"
	maxAttempts       = 3
)

type Handler struct {
	proxy  *proxyclient.Client
	logger *slog.Logger
}

func New(proxy *proxyclient.Client, logger *slog.Logger) *Handler {
	return &Handler{proxy: proxy, logger: logger}
}

func (h *Handler) Platform() domain.Platform { return domain.DMart }

func (h *Handler) Search(ctx context.Context, query string, loc *domain.LocationDescriptor, cred domain.PlatformCredential) ([]domain.ProductListing, domain.PlatformCredential) {
	dm, _ := cred.(*domain.DMartCredential)

	if dm != nil && dm.Ready() && !dm.Serviceable && dm.PlaceID == loc.PlaceID {
		return nil, dm
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if dm == nil || !dm.Ready() || dm.PlaceID != loc.PlaceID {
			acquired, err := h.checkServiceability(ctx, loc)
			if err != nil {
				h.logger.Error("dmart: serviceability check failed", "attempt", attempt, "error", err)
				return nil, cred
			}
			dm = acquired
			if !dm.Serviceable {
				return nil, dm
			}
		}

		listings, err := h.search(ctx, query)
		if err == nil {
			return listings, dm
		}
		h.logger.Warn("dmart: search attempt failed, rechecking serviceability", "attempt", attempt, "error", err)
		dm = nil
	}
	return nil, cred
}

func (h *Handler) checkServiceability(ctx context.Context, loc *domain.LocationDescriptor) (*domain.DMartCredential, error) {
	payload := map[string]string{
		"uniqueId":   loc.PlaceID,
		"apiMode":    "GA",
		"pincode":    "",
		"currentLat": "",
		"currentLng": "",
	}
	resp, err := h.proxy.PostJSON(ctx, serviceabilityURL, baseHeaders(), payload, platform.RandomSessionID())
	if err != nil {
		return nil, err
	}

	var body struct {
		IsPincodeServiceable string `json:"isPincodeServiceable"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, apperrors.Parse("DMART", err)
	}

	return &domain.DMartCredential{
		PlaceID:     loc.PlaceID,
		Serviceable: body.IsPincodeServiceable == "true",
	}, nil
}

type searchResponse struct {
	Products []product `json:"products"`
}

type product struct {
	Name        string `json:"name"`
	SeoTokenNtk string `json:"seo_token_ntk"`
	SKUs        []sku  `json:"sKUs"`
}

type sku struct {
	PriceSale        json.Number `json:"priceSALE"`
	ProductImageKey  string      `json:"productImageKey"`
	ImgCode          string      `json:"imgCode"`
	VariantTextValue string      `json:"variantTextValue"`
}

func (h *Handler) search(ctx context.Context, query string) ([]domain.ProductListing, error) {
	reqURL := fmt.Sprintf(searchURLTemplate, url.QueryEscape(query))
	resp, err := h.proxy.Get(ctx, reqURL, baseHeaders(), platform.RandomSessionID())
	if err != nil {
		return nil, err
	}

	var parsed searchResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, apperrors.Parse("DMART", err)
	}

	var listings []domain.ProductListing
	for _, p := range parsed.Products {
		if l, ok := toListing(p); ok {
			listings = append(listings, l)
		}
	}
	return listings, nil
}

func toListing(p product) (domain.ProductListing, bool) {
	if p.Name == "" || len(p.SKUs) == 0 {
		return domain.ProductListing{}, false
	}
	sku := p.SKUs[0]
	if sku.ProductImageKey == "" || sku.VariantTextValue == "" {
		return domain.ProductListing{}, false
	}
	price, priceOk := matching.ParsePrice(sku.PriceSale.String())
	return domain.ProductListing{
		Platform: domain.DMart,
		Name:     p.Name,
		Price:    price,
		PriceOk:  priceOk,
		RawPrice: sku.PriceSale.String(),
		Quantity: matching.ParseQuantity(sku.VariantTextValue),
		URL:      "https://www.dmart.in/product/" + p.SeoTokenNtk,
		ImageURL: fmt.Sprintf("https://cdn.dmart.in/images/products/%s_%s_B.jpg", sku.ProductImageKey, sku.ImgCode),
	}, true
}

func baseHeaders() map[string]string {
	return map[string]string{
		"accept":          "application/json, text/plain, */*",
		"accept-language": "en-US,en;q=0.9",
		"origin":          "https://www.dmart.in",
		"user-agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/134.0.0.0 Safari/537.36 Edg/134.0.0.0",
	}
}
