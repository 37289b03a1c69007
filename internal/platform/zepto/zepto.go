// Package zepto implements the Zepto storefront handler: credential
// acquisition parses store serviceability and device/session identity out
// of the proxy's cookie delta, then drives the search call from that
// bundle. Grounded on original_source/backend/utils/Zepto_Handler.py.
package zepto

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
	searchPageURL = "https://www.zeptonow.com/search"
	searchAPIURL  = "https://api.zeptonow.com/api/v3/search"
	maxAttempts   = 3
	userAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/134.0.0.0 Safari/537.36 Edg/134.0.0.0"

	// featureFlags mirrors the storefront's compatible_components header;
	// the upstream search endpoint rejects requests missing flags it checks.
	featureFlags = "CONVENIENCE_FEE,RAIN_FEE,EXTERNAL_COUPONS,STANDSTILL,BUNDLE,MULTI_SELLER_ENABLED,PIP_V1,ROLLUPS,SCHEDULED_DELIVERY,SAMPLING_ENABLED,HOMEPAGE_V2,AUTOSUGGESTION_PAGE_ENABLED,AUTOSUGGESTION_PIP,SUPER_SAVER:1,SUPERSTORE_V1,24X7_ENABLED_V1,WIDGET_BASED_ETA,PLP_ON_SEARCH,DYNAMIC_FILTERS"
)

type Handler struct {
	proxy  *proxyclient.Client
	logger *slog.Logger
}

func New(proxy *proxyclient.Client, logger *slog.Logger) *Handler {
	return &Handler{proxy: proxy, logger: logger}
}

func (h *Handler) Platform() domain.Platform { return domain.Zepto }

func (h *Handler) Search(ctx context.Context, query string, loc *domain.LocationDescriptor, cred domain.PlatformCredential) ([]domain.ProductListing, domain.PlatformCredential) {
	zp, _ := cred.(*domain.ZeptoCredential)

	if zp != nil && zp.Ready() && !zp.Serviceable {
		return nil, zp
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if zp == nil || !zp.Ready() {
			acquired, err := h.acquireCredentials(ctx, loc)
			if err != nil {
				h.logger.Error("zepto: credential acquisition failed", "attempt", attempt, "error", err)
				return nil, cred
			}
			zp = acquired
			if !zp.Serviceable {
				return nil, zp
			}
		}

		listings, err := h.search(ctx, query, zp)
		if err == nil {
			return listings, zp
		}
		h.logger.Warn("zepto: search attempt failed, invalidating credentials", "attempt", attempt, "error", err)
		zp = nil
	}
	return nil, cred
}

type serviceability struct {
	PrimaryStore struct {
		Serviceable bool   `json:"serviceable"`
		StoreID     string `json:"storeId"`
	} `json:"primaryStore"`
}

func (h *Handler) acquireCredentials(ctx context.Context, loc *domain.LocationDescriptor) (*domain.ZeptoCredential, error) {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		cred, err := h.acquireOnce(ctx, loc)
		if err == nil {
			return cred, nil
		}
		lastErr = err
	}
	return nil, apperrors.CredentialAcquisition("ZEPTO", lastErr)
}

func (h *Handler) acquireOnce(ctx context.Context, loc *domain.LocationDescriptor) (*domain.ZeptoCredential, error) {
	posData := fmt.Sprintf(`{"latitude":%v,"longitude":%v}`, loc.Lat, loc.Lon)
	headers := map[string]string{
		"accept":          "*/*",
		"accept-language": "en-US,en;q=0.9",
		"referer":         searchPageURL,
		"rsc":             "1",
		"user-agent":      userAgent,
		"cookie":          fmt.Sprintf("user_position=%s; latitude=%v; longitude=%v", url.QueryEscape(posData), loc.Lat, loc.Lon),
	}

	resp, err := h.proxy.Get(ctx, searchPageURL, headers, platform.RandomSessionID())
	if err != nil {
		return nil, err
	}

	delta := resp.CookieDelta
	if len(delta) == 0 {
		return nil, apperrors.Parse("ZEPTO", fmt.Errorf("no cookies in response"))
	}

	rawServiceability, err := url.QueryUnescape(delta["serviceability"])
	if err != nil {
		return nil, apperrors.Parse("ZEPTO", err)
	}
	var svc serviceability
	if err := json.Unmarshal([]byte(rawServiceability), &svc); err != nil {
		return nil, apperrors.Parse("ZEPTO", err)
	}

	deviceID := delta["device_id"]
	sessionID := delta["session_id"]
	xsrfToken := delta["XSRF-TOKEN"]

	if !svc.PrimaryStore.Serviceable {
		return &domain.ZeptoCredential{Serviceable: false}, nil
	}

	return &domain.ZeptoCredential{
		StoreID:     svc.PrimaryStore.StoreID,
		DeviceID:    deviceID,
		SessionID:   sessionID,
		XSRFToken:   xsrfToken,
		Serviceable: true,
	}, nil
}

type searchResponse struct {
	Layout []struct {
		WidgetName string `json:"widgetName"`
		Data       struct {
			Resolver struct {
				Data struct {
					Items []struct {
						ProductResponse struct {
							OutOfStock             bool        `json:"outOfStock"`
							SuperSaverSellingPrice json.Number `json:"superSaverSellingPrice"`
							Product                struct {
								Name string `json:"name"`
							} `json:"product"`
							ProductVariant struct {
								ID                 string `json:"id"`
								FormattedPacksize  string `json:"formattedPacksize"`
								Images             []struct {
									Path string `json:"path"`
								} `json:"images"`
							} `json:"productVariant"`
						} `json:"productResponse"`
					} `json:"items"`
				} `json:"data"`
			} `json:"resolver"`
		} `json:"data"`
	} `json:"layout"`
}

func (h *Handler) search(ctx context.Context, query string, cred *domain.ZeptoCredential) ([]domain.ProductListing, error) {
	requestID := uuid.NewString()
	headers := map[string]string{
		"accept":                "application/json, text/plain, */*",
		"accept-language":       "en-US,en;q=0.9",
		"app_sub_platform":      "WEB",
		"app_version":           "12.64.1",
		"appversion":            "12.64.1",
		"auth_revamp_flow":      "v2",
		"compatible_components": featureFlags,
		"content-type":          "application/json",
		"device_id":             cred.DeviceID,
		"deviceid":              cred.DeviceID,
		"marketplace_type":      "ZEPTO_NOW",
		"origin":                "https://www.zeptonow.com",
		"platform":              "WEB",
		"referer":               "https://www.zeptonow.com/",
		"request_id":            requestID,
		"requestid":             requestID,
		"session_id":            cred.SessionID,
		"sessionid":             cred.SessionID,
		"store_etas":            fmt.Sprintf(`{"%s":10}`, cred.StoreID),
		"store_id":              cred.StoreID,
		"store_ids":             cred.StoreID,
		"storeid":               cred.StoreID,
		"tenant":                "ZEPTO",
		"user-agent":            userAgent,
		"x-without-bearer":      "true",
		"x-xsrf-token":          cred.XSRFToken,
	}

	payload := map[string]any{
		"query":         query,
		"pageNumber":    1,
		"intentId":      uuid.NewString(),
		"mode":          "AUTOSUGGEST",
		"userSessionId": cred.SessionID,
	}

	resp, err := h.proxy.PostJSON(ctx, searchAPIURL, headers, payload, platform.RandomSessionID())
	if err != nil {
		return nil, err
	}

	var parsed searchResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, apperrors.Parse("ZEPTO", err)
	}

	var listings []domain.ProductListing
	for _, widget := range parsed.Layout {
		if !strings.HasPrefix(widget.WidgetName, "SEARCHED_PRODUCTS") {
			continue
		}
		for _, item := range widget.Data.Resolver.Data.Items {
			pr := item.ProductResponse
			if pr.OutOfStock {
				continue
			}
			if pr.Product.Name == "" || pr.ProductVariant.ID == "" {
				continue
			}
			listings = append(listings, toListing(pr.Product.Name, pr.ProductVariant.ID, pr.ProductVariant.FormattedPacksize, pr.SuperSaverSellingPrice, imagePath(pr.ProductVariant.Images)))
		}
	}
	return listings, nil
}

func imagePath(images []struct {
	Path string `json:"path"`
}) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].Path
}

func toListing(name, variantID, packSize string, rawPrice json.Number, imgPath string) domain.ProductListing {
	price, priceOk := matching.ParsePrice(divideBy100(rawPrice))
	cleanedName := slug.Generate(name)
	if cleanedName == "" {
		cleanedName = "product"
	}
	return domain.ProductListing{
		Platform: domain.Zepto,
		Name:     name,
		Price:    price,
		PriceOk:  priceOk,
		RawPrice: rawPrice.String(),
		Quantity: matching.ParseQuantity(packSize),
		URL:      fmt.Sprintf("https://www.zeptonow.com/pn/%s/pvid/%s", cleanedName, variantID),
		ImageURL: imageURL(imgPath, name),
	}
}

// divideBy100 renders a paise amount (e.g. "12900") as its integer-rupee
// string, matching the original's `price_raw // 100` truncation.
func divideBy100(raw json.Number) string {
	n, err := raw.Int64()
	if err != nil {
		return raw.String()
	}
	return fmt.Sprintf("%d", n/100)
}

// imageURL ports convert_to_image_url_zepto: the CDN path keeps the image's
// extension but replaces its basename with a slug of the product name.
func imageURL(path, name string) string {
	if path == "" {
		return ""
	}
	base := path
	if idx := strings.Index(path, "."); idx >= 0 {
		base = path[:idx]
	}
	ext := path
	if idx := strings.LastIndex(path, "."); idx >= 0 {
		ext = path[idx+1:]
	}
	formatted := zeptoFormatString(name)
	return fmt.Sprintf("https://cdn.zeptonow.com/production/ik-seo/%s/%s.%s", base, formatted, ext)
}

func zeptoFormatString(s string) string {
	var b strings.Builder
	lastHyphen := false
	for _, r := range s {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if isAlnum {
			b.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.Trim(b.String(), "-")
}
