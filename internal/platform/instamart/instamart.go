// Package instamart implements the Swiggy Instamart storefront handler:
// cookie acquisition followed by location/store resolution, with a
// non-serviceable verdict persisted and short-circuited on later calls.
// Grounded on original_source/backend/utils/Instamart_Handler.py.
package instamart

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
	baseURL         = "https://www.swiggy.com"
	searchEndpoint  = baseURL + "/api/instamart/search"
	locationEndpoint = baseURL + "/api/instamart/home/select-location"
	initialCookieURL = baseURL + "/instamart/search/"
	maxAttempts     = 3

	nonServiceableMessage = "Sorry! We do not deliver to this location yet."
)

type Handler struct {
	proxy  *proxyclient.Client
	logger *slog.Logger
}

func New(proxy *proxyclient.Client, logger *slog.Logger) *Handler {
	return &Handler{proxy: proxy, logger: logger}
}

func (h *Handler) Platform() domain.Platform { return domain.Instamart }

func (h *Handler) Search(ctx context.Context, query string, loc *domain.LocationDescriptor, cred domain.PlatformCredential) ([]domain.ProductListing, domain.PlatformCredential) {
	im, _ := cred.(*domain.InstamartCredential)

	if im != nil && im.Ready() && !im.Serviceable {
		// Persisted non-serviceable verdict: short-circuit without retrying
		// acquisition, per spec §4.4.3.
		return nil, im
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if im == nil || !im.Ready() {
			acquired, err := h.acquireCredentials(ctx, loc)
			if err != nil {
				if nonServiceable, ok := err.(*nonServiceableError); ok {
					return nil, nonServiceable.credential
				}
				h.logger.Error("instamart: credential acquisition failed", "attempt", attempt, "error", err)
				return nil, cred
			}
			im = acquired
		}

		listings, err := h.search(ctx, query, im)
		if err == nil {
			return listings, im
		}
		h.logger.Warn("instamart: search attempt failed, invalidating credentials", "attempt", attempt, "error", err)
		im = nil
	}
	return nil, cred
}

type nonServiceableError struct {
	credential *domain.InstamartCredential
	inner      error
}

func (e *nonServiceableError) Error() string { return e.inner.Error() }
func (e *nonServiceableError) Unwrap() error { return e.inner }

func (h *Handler) acquireCredentials(ctx context.Context, loc *domain.LocationDescriptor) (*domain.InstamartCredential, error) {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		cred, err := h.acquireOnce(ctx, loc)
		if err == nil {
			return cred, nil
		}
		if _, ok := err.(*nonServiceableError); ok {
			return nil, err
		}
		lastErr = err
	}
	return nil, apperrors.CredentialAcquisition("INSTAMART", lastErr)
}

func (h *Handler) acquireOnce(ctx context.Context, loc *domain.LocationDescriptor) (*domain.InstamartCredential, error) {
	resp, err := h.proxy.Get(ctx, initialCookieURL, baseHeaders(), platform.RandomSessionID())
	if err != nil {
		return nil, err
	}
	if len(resp.CookieDelta) == 0 {
		return nil, apperrors.Parse("INSTAMART", fmt.Errorf("no cookies in response"))
	}

	payload := map[string]any{
		"data": map[string]any{
			"lat":        loc.Lat,
			"lng":        loc.Lon,
			"address":    loc.FormattedAddress,
			"addressId":  "",
			"annotation": loc.FormattedAddress,
			"clientId":   "INSTAMART-APP",
		},
	}
	headers := mergeHeaders(baseHeaders(), map[string]string{
		"referer": baseURL + "/instamart",
		"Cookie":  cookieHeader(resp.CookieDelta),
	})
	locResp, err := h.proxy.PostJSON(ctx, locationEndpoint, headers, payload, platform.RandomSessionID())
	if err != nil {
		if status, ok := proxyclient.StatusCode(err); ok && status >= 400 && status < 500 {
			// The location endpoint answers non-serviceable addresses with a
			// 4xx carrying a statusMessage; treat any client error here as a
			// serviceability verdict rather than a transient failure.
			return nil, &nonServiceableError{
				credential: &domain.InstamartCredential{Serviceable: false},
				inner:      apperrors.NonServiceableLocation("INSTAMART"),
			}
		}
		return nil, err
	}

	var locBody struct {
		Data struct {
			StoreID       string `json:"storeId"`
			StoresDetails []struct {
				ID string `json:"id"`
			} `json:"storesDetails"`
		} `json:"data"`
		StatusMessage string `json:"statusMessage"`
	}
	if err := json.Unmarshal(locResp.Body, &locBody); err != nil {
		return nil, apperrors.Parse("INSTAMART", err)
	}
	if locBody.StatusMessage == nonServiceableMessage {
		return nil, &nonServiceableError{
			credential: &domain.InstamartCredential{Serviceable: false},
			inner:      apperrors.NonServiceableLocation("INSTAMART"),
		}
	}
	if locBody.Data.StoreID == "" {
		return nil, apperrors.Parse("INSTAMART", fmt.Errorf("missing storeId in location response"))
	}

	secondary := ""
	if len(locBody.Data.StoresDetails) > 1 {
		secondary = locBody.Data.StoresDetails[1].ID
	}

	return &domain.InstamartCredential{
		Cookies:          resp.CookieDelta,
		PrimaryStoreID:   locBody.Data.StoreID,
		SecondaryStoreID: secondary,
		Serviceable:      true,
	}, nil
}

type searchResponse struct {
	Data struct {
		Widgets []struct {
			Data []struct {
				ProductID  string `json:"product_id"`
				Variations []struct {
					DisplayName string `json:"display_name"`
					Price       struct {
						OfferPrice json.Number `json:"offer_price"`
					} `json:"price"`
					Images    []string `json:"images"`
					Quantity  string   `json:"quantity"`
					StoreID   string   `json:"store_id"`
					Inventory struct {
						InStock bool `json:"in_stock"`
					} `json:"inventory"`
				} `json:"variations"`
			} `json:"data"`
		} `json:"widgets"`
	} `json:"data"`
}

func (h *Handler) search(ctx context.Context, query string, cred *domain.InstamartCredential) ([]domain.ProductListing, error) {
	searchURL := fmt.Sprintf(
		"%s?pageNumber=0&searchResultsOffset=0&limit=40&query=%s&ageConsent=false&layoutId=2671"+
			"&pageType=INSTAMART_AUTO_SUGGEST_PAGE&isPreSearchTag=false&highConfidencePageNo=0"+
			"&lowConfidencePageNo=0&voiceSearchTrackingId=&storeId=%s&primaryStoreId=%s&secondaryStoreId=%s",
		searchEndpoint, url.QueryEscape(query), cred.PrimaryStoreID, cred.PrimaryStoreID, cred.SecondaryStoreID,
	)

	headers := mergeHeaders(baseHeaders(), map[string]string{
		"referer": fmt.Sprintf("%s/instamart/search?custom_back=true&query=%s", baseURL, url.QueryEscape(query)),
		"Cookie":  cookieHeader(cred.Cookies),
	})

	resp, err := h.proxy.PostJSON(ctx, searchURL, headers, map[string]any{
		"facets":        map[string]any{},
		"sortAttribute": "",
	}, platform.RandomSessionID())
	if err != nil {
		return nil, err
	}

	var parsed searchResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, apperrors.Parse("INSTAMART", err)
	}
	if len(parsed.Data.Widgets) == 0 {
		return nil, nil
	}

	var listings []domain.ProductListing
	for _, item := range parsed.Data.Widgets[0].Data {
		for _, v := range item.Variations {
			if v.DisplayName == "" || len(v.Images) == 0 || v.Quantity == "" {
				continue
			}
			if !v.Inventory.InStock {
				continue
			}
			price, priceOk := matching.ParsePrice(v.Price.OfferPrice.String())
			listings = append(listings, domain.ProductListing{
				Platform: domain.Instamart,
				Name:     v.DisplayName,
				Price:    price,
				PriceOk:  priceOk,
				RawPrice: v.Price.OfferPrice.String(),
				Quantity: matching.ParseQuantity(v.Quantity),
				URL:      fmt.Sprintf("%s/instamart/item/%s?storeId=%s", baseURL, item.ProductID, v.StoreID),
				ImageURL: "https://instamart-media-assets.swiggy.com/swiggy/image/upload/" + v.Images[0],
			})
		}
	}
	return listings, nil
}

func baseHeaders() map[string]string {
	return map[string]string{
		"accept":          "*/*",
		"accept-language": "en-US,en;q=0.9",
		"content-type":    "application/json",
		"origin":          baseURL,
		"user-agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/134.0.0.0 Safari/537.36 Edg/134.0.0.0",
		"x-build-version": "2.258.0",
	}
}

func mergeHeaders(base, extra map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

func cookieHeader(cookies map[string]string) string {
	s := ""
	for k, v := range cookies {
		if s != "" {
			s += "; "
		}
		s += k + "=" + v
	}
	return s
}
