// Package blinkit implements the Blinkit storefront handler: a two-step
// credential acquisition (device identity + auth key exchange) and the
// search call built from the resulting bundle.
// Grounded on original_source/backend/utils/Blinkit_Handler.py.
package blinkit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/avishek-m/pricecompare/internal/domain"
	"github.com/avishek-m/pricecompare/internal/matching"
	"github.com/avishek-m/pricecompare/internal/platform"
	"github.com/avishek-m/pricecompare/internal/proxyclient"
	apperrors "github.com/avishek-m/pricecompare/pkg/errors"
	"github.com/avishek-m/pricecompare/pkg/slug"
)

const (
	rootURL     = "https://blinkit.com"
	authKeyURL  = "https://blinkit.com/v2/accounts/auth_key/"
	searchURL   = "https://blinkit.com/v6/search/products"
	maxAttempts = 3
	userAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36 Edg/133.0.0.0"
)

// Handler implements platform.Handler for Blinkit.
type Handler struct {
	proxy  *proxyclient.Client
	logger *slog.Logger
}

func New(proxy *proxyclient.Client, logger *slog.Logger) *Handler {
	return &Handler{proxy: proxy, logger: logger}
}

func (h *Handler) Platform() domain.Platform { return domain.Blinkit }

func (h *Handler) Search(ctx context.Context, query string, loc *domain.LocationDescriptor, cred domain.PlatformCredential) ([]domain.ProductListing, domain.PlatformCredential) {
	bl, _ := cred.(*domain.BlinkitCredential)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if bl == nil || !bl.Ready() {
			acquired, err := h.acquireCredentials(ctx, loc)
			if err != nil {
				h.logger.Error("blinkit: credential acquisition failed", "attempt", attempt, "error", err)
				return nil, cred
			}
			bl = acquired
		}

		listings, err := h.search(ctx, query, loc, bl)
		if err == nil {
			return listings, bl
		}
		h.logger.Warn("blinkit: search attempt failed, invalidating credentials", "attempt", attempt, "error", err)
		bl = nil
	}
	return nil, cred
}

type configResponse struct {
	RequestKey string `json:"requestKey"`
	AppVersion string `json:"appVersion"`
}

// acquireCredentials runs spec §4.4.2's two-step flow: parse the storefront
// root's embedded config for requestKey/appVersion and the device_id cookie,
// then exchange requestKey for an auth_key.
func (h *Handler) acquireCredentials(ctx context.Context, loc *domain.LocationDescriptor) (*domain.BlinkitCredential, error) {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		cred, err := h.acquireOnce(ctx, loc)
		if err == nil {
			return cred, nil
		}
		lastErr = err
	}
	return nil, apperrors.CredentialAcquisition("BLINKIT", lastErr)
}

func (h *Handler) acquireOnce(ctx context.Context, loc *domain.LocationDescriptor) (*domain.BlinkitCredential, error) {
	resp, err := h.proxy.Get(ctx, rootURL, nil, platform.RandomSessionID())
	if err != nil {
		return nil, err
	}

	cfg, err := parseEmbeddedConfig(resp.Body)
	if err != nil {
		return nil, apperrors.Parse("BLINKIT", err)
	}
	cookieHeaderValue := resp.Headers.Get("Zr-Cookies")
	deviceID := extractDeviceID(cookieHeaderValue)

	authResp, err := h.proxy.Get(ctx, authKeyURL, map[string]string{
		"Cookies": cookieHeaderValue,
		"req_key": cfg.RequestKey,
	}, platform.RandomSessionID())
	if err != nil {
		return nil, err
	}

	var authBody struct {
		Success bool   `json:"success"`
		AuthKey string `json:"auth_key"`
	}
	if err := json.Unmarshal(authResp.Body, &authBody); err != nil || !authBody.Success {
		return nil, apperrors.Parse("BLINKIT", fmt.Errorf("auth_key exchange failed"))
	}

	return &domain.BlinkitCredential{
		DeviceID:   deviceID,
		AppVersion: cfg.AppVersion,
		AuthKey:    authBody.AuthKey,
		Cookies:    map[string]string{"Zr-Cookies": cookieHeaderValue},
		Lat:        loc.Lat,
		Lon:        loc.Lon,
	}, nil
}

// parseEmbeddedConfig extracts the window.grofers.CONFIG JSON object
// embedded in the storefront root's HTML.
func parseEmbeddedConfig(body []byte) (*configResponse, error) {
	const marker = "window.grofers.CONFIG = "
	s := string(body)
	idx := strings.Index(s, marker)
	if idx < 0 {
		return nil, fmt.Errorf("embedded config marker not found")
	}
	rest := s[idx+len(marker):]
	end := strings.Index(rest, "};")
	if end < 0 {
		return nil, fmt.Errorf("embedded config terminator not found")
	}
	var cfg configResponse
	if err := json.Unmarshal([]byte(rest[:end+1]), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func extractDeviceID(cookieHeaderValue string) string {
	const marker = "gr_1_deviceId="
	idx := strings.Index(cookieHeaderValue, marker)
	if idx < 0 {
		return ""
	}
	rest := cookieHeaderValue[idx+len(marker):]
	if semi := strings.Index(rest, ";"); semi >= 0 {
		return rest[:semi]
	}
	return rest
}

type searchResponse struct {
	Objects []struct {
		Tracking struct {
			WidgetMeta struct {
				Title      string `json:"title"`
				ID         string `json:"id"`
				CustomData struct {
					Price json.Number `json:"price"`
				} `json:"custom_data"`
			} `json:"widget_meta"`
		} `json:"tracking"`
		Data struct {
			Product struct {
				Inventory     *int   `json:"inventory"`
				Unit          string `json:"unit"`
				RFCActionsV2  struct {
					Default []struct {
						RemoveFromCart struct {
							CartItem struct {
								ImageURL string `json:"image_url"`
							} `json:"cart_item"`
						} `json:"remove_from_cart"`
					} `json:"default"`
				} `json:"rfc_actions_v2"`
			} `json:"product"`
		} `json:"data"`
	} `json:"objects"`
}

func (h *Handler) search(ctx context.Context, query string, loc *domain.LocationDescriptor, cred *domain.BlinkitCredential) ([]domain.ProductListing, error) {
	locality := ""
	if loc != nil {
		locality = loc.FormattedAddress
	}
	headers := map[string]string{
		"accept":            "*/*",
		"accept-language":   "en-US,en;q=0.9",
		"app_client":        "consumer_web",
		"app_version":       cred.AppVersion,
		"auth_key":          cred.AuthKey,
		"content-type":      "application/json",
		"device_id":         cred.DeviceID,
		"lat":               fmt.Sprintf("%f", cred.Lat),
		"lon":               fmt.Sprintf("%f", cred.Lon),
		"referer":           "https://blinkit.com/s/?q=basmati",
		"session_uuid":      uuid.NewString(),
		"user-agent":        userAgent,
		"cookie":            fmt.Sprintf("%s; gr_1_lat=%v; gr_1_lon=%v; gr_1_locality=%s", cred.Cookies["Zr-Cookies"], cred.Lat, cred.Lon, locality),
	}

	reqURL := fmt.Sprintf("%s?start=0&size=30&search_type=6&q=%s", searchURL, url.QueryEscape(query))
	resp, err := h.proxy.Get(ctx, reqURL, headers, platform.RandomSessionID())
	if err != nil {
		return nil, err
	}

	var parsed searchResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, apperrors.Parse("BLINKIT", err)
	}
	if len(parsed.Objects) <= 1 {
		return nil, nil
	}

	var listings []domain.ProductListing
	for _, obj := range parsed.Objects[1:] {
		meta := obj.Tracking.WidgetMeta
		if meta.Title == "" || meta.ID == "" {
			continue
		}
		if obj.Data.Product.Inventory == nil || *obj.Data.Product.Inventory <= 0 {
			continue
		}
		var imageURL string
		if actions := obj.Data.Product.RFCActionsV2.Default; len(actions) > 0 {
			imageURL = actions[0].RemoveFromCart.CartItem.ImageURL
		}
		if imageURL == "" || obj.Data.Product.Unit == "" {
			continue
		}
		price, priceOk := matching.ParsePrice(meta.CustomData.Price.String())
		listings = append(listings, domain.ProductListing{
			Platform: domain.Blinkit,
			Name:     meta.Title,
			Price:    price,
			PriceOk:  priceOk,
			RawPrice: meta.CustomData.Price.String(),
			Quantity: matching.ParseQuantity(obj.Data.Product.Unit),
			URL:      fmt.Sprintf("https://blinkit.com/prn/%s/prid/%s", slug.Generate(meta.Title), meta.ID),
			ImageURL: imageURL,
		})
	}
	return listings, nil
}
