package bigbasket

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avishek-m/pricecompare/internal/domain"
	"github.com/avishek-m/pricecompare/internal/platform"
	apperrors "github.com/avishek-m/pricecompare/pkg/errors"
)

var buildIDPattern = regexp.MustCompile(`,"buildId":"([^"]+)",`)

func baseHeaders() map[string]string {
	return map[string]string{
		"accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7",
		"accept-language":           "en-US,en;q=0.9",
		"upgrade-insecure-requests": "1",
		"user-agent":                defaultAgent,
	}
}

// acquireCredentials runs the five-step state machine described in spec
// §4.4.1: INIT → COOKIES_OK → CSRF_OK → ADDRESS_SET → BUILDID_KNOWN → READY.
// Each step retries up to maxAttempts times with a fresh proxy session id
// before the whole acquisition fails with CredentialAcquisitionError.
func (h *Handler) acquireCredentials(ctx context.Context, loc *domain.LocationDescriptor) (*domain.BigBasketCredential, error) {
	sessionID := platform.RandomSessionID()
	headers := baseHeaders()

	cookies, err := h.withRetry(func() (map[string]string, error) {
		resp, err := h.proxy.Get(ctx, rootURL, headers, sessionID)
		if err != nil {
			sessionID = platform.RandomSessionID()
			return nil, err
		}
		return resp.CookieDelta, nil
	})
	if err != nil {
		return nil, apperrors.CredentialAcquisition("BIGBASKET", fmt.Errorf("initial cookies: %w", err))
	}

	csrfCookies, err := h.withRetry(func() (map[string]string, error) {
		headerReqURL := fmt.Sprintf("%s?_=%d&send_address_set_by_user=true", headerURL, time.Now().UnixMilli())
		h2 := map[string]string{
			"accept":       "*/*",
			"content-type": "application/json",
			"x-channel":    "BB-WEB",
			"x-tracker":    uuid.NewString(),
		}
		resp, err := h.proxy.Get(ctx, headerReqURL, mergeHeaders(h2, cookieHeader(cookies)), sessionID)
		if err != nil {
			sessionID = platform.RandomSessionID()
			return nil, err
		}
		return resp.CookieDelta, nil
	})
	if err != nil {
		return nil, apperrors.CredentialAcquisition("BIGBASKET", fmt.Errorf("csrf token: %w", err))
	}
	mergeInto(cookies, csrfCookies)

	addrCookies, err := h.withRetry(func() (map[string]string, error) {
		payload := map[string]any{
			"lat":                 loc.Lat,
			"long":                loc.Lon,
			"return_hub_cookies":  false,
			"contact_zipcode":     loc.PostalCode,
		}
		h2 := map[string]string{
			"content-type":          "application/json",
			"x-caller":              "UI-KIRK",
			"x-channel":             "BB-WEB",
			"x-csurftoken":          cookies["csurftoken"],
			"x-entry-context":       "bb-b2c",
			"x-entry-context-id":    "100",
			"x-requested-with":      "XMLHttpRequest",
			"x-tracker":             uuid.NewString(),
		}
		resp, err := h.proxy.PutJSON(ctx, addressURL, mergeHeaders(h2, cookieHeader(cookies)), payload, sessionID)
		if err != nil {
			sessionID = platform.RandomSessionID()
			return nil, err
		}
		headers["x-csurftoken"] = cookies["csurftoken"]
		return resp.CookieDelta, nil
	})
	if err != nil {
		return nil, apperrors.CredentialAcquisition("BIGBASKET", fmt.Errorf("set address: %w", err))
	}
	mergeInto(cookies, addrCookies)

	buildID, verifyCookies, err := h.withRetry2(func() (string, map[string]string, error) {
		resp, err := h.proxy.Get(ctx, rootURL, mergeHeaders(baseHeaders(), cookieHeader(cookies)), sessionID)
		if err != nil {
			sessionID = platform.RandomSessionID()
			return "", nil, err
		}
		m := buildIDPattern.FindSubmatch(resp.Body)
		if m == nil {
			sessionID = platform.RandomSessionID()
			return "", nil, apperrors.Parse("BIGBASKET", fmt.Errorf("buildId not found in response body"))
		}
		return string(m[1]), resp.CookieDelta, nil
	})
	if err != nil {
		return nil, apperrors.CredentialAcquisition("BIGBASKET", fmt.Errorf("verify address / buildId: %w", err))
	}
	mergeInto(cookies, verifyCookies)

	return &domain.BigBasketCredential{
		Cookies: cookies,
		Headers: headers,
		BuildID: buildID,
		Lat:     loc.Lat,
		Lon:     loc.Lon,
	}, nil
}

// withRetry runs fn up to maxAttempts times, returning the first success.
func (h *Handler) withRetry(fn func() (map[string]string, error)) (map[string]string, error) {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (h *Handler) withRetry2(fn func() (string, map[string]string, error)) (string, map[string]string, error) {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		s, m, err := fn()
		if err == nil {
			return s, m, nil
		}
		lastErr = err
	}
	return "", nil, lastErr
}

func mergeInto(dst, src map[string]string) {
	for k, v := range src {
		dst[k] = v
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

func cookieHeader(cookies map[string]string) map[string]string {
	parts := make([]string, 0, len(cookies))
	for k, v := range cookies {
		parts = append(parts, k+"="+v)
	}
	return map[string]string{"Cookie": strings.Join(parts, "; ")}
}
