// Package bigbasket implements the BigBasket storefront handler: its
// five-step credential state machine (cookies, CSRF token, delivery
// address, Next.js buildId) and the search call addressed by that buildId.
// Grounded on original_source/backend/utils/BigBasket_Handler.py.
package bigbasket

import (
	"context"
	"log/slog"

	"github.com/avishek-m/pricecompare/internal/domain"
	"github.com/avishek-m/pricecompare/internal/proxyclient"
)

const (
	rootURL      = "https://www.bigbasket.com/"
	headerURL    = "https://www.bigbasket.com/ui-svc/v2/header"
	addressURL   = "https://www.bigbasket.com/member-svc/v2/member/current-delivery-address/"
	maxAttempts  = 3
	defaultAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/134.0.0.0 Safari/537.36 Edg/134.0.0.0"
)

// Handler implements platform.Handler for BigBasket.
type Handler struct {
	proxy  *proxyclient.Client
	logger *slog.Logger
}

// New builds a BigBasket Handler. proxy should be configured with
// Config.Platform == "BIGBASKET".
func New(proxy *proxyclient.Client, logger *slog.Logger) *Handler {
	return &Handler{proxy: proxy, logger: logger}
}

func (h *Handler) Platform() domain.Platform { return domain.BigBasket }

// Search implements platform.Handler.Search (spec §4.4 / §4.4.1).
func (h *Handler) Search(ctx context.Context, query string, loc *domain.LocationDescriptor, cred domain.PlatformCredential) ([]domain.ProductListing, domain.PlatformCredential) {
	bb, _ := cred.(*domain.BigBasketCredential)
	if bb == nil || !bb.Ready() {
		acquired, err := h.acquireCredentials(ctx, loc)
		if err != nil {
			h.logger.Error("bigbasket: credential acquisition failed", "error", err)
			return nil, cred
		}
		bb = acquired
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		listings, notFound, err := h.search(ctx, query, bb)
		if err == nil && !notFound {
			return listings, bb
		}
		if err == nil && notFound {
			// buildId is stale; the credential must be re-acquired before the
			// next attempt can succeed.
			h.logger.Warn("bigbasket: search returned 404, buildId stale")
		} else {
			h.logger.Warn("bigbasket: search attempt failed", "attempt", attempt, "error", err)
		}
		acquired, acqErr := h.acquireCredentials(ctx, loc)
		if acqErr != nil {
			h.logger.Error("bigbasket: credential re-acquisition failed", "error", acqErr)
			return nil, bb
		}
		bb = acquired
	}
	return nil, bb
}
