// Package platform defines the common contract every storefront handler
// implements, plus small cross-platform helpers (per-platform rate
// limiting). Each concrete handler lives in its own subpackage, grounded on
// the corresponding upstream scraping flow: bigbasket, blinkit, instamart,
// dmart, zepto.
package platform

import (
	"context"

	"github.com/avishek-m/pricecompare/internal/domain"
)

// Handler is the common contract every platform implements (spec §4.4):
// search a query at a location, optionally reusing a credential, and
// always return whatever credential should be retained for next time. A
// Handler never returns an error from Search — exhaustion after 3 attempts
// degrades to an empty listings slice, with the failure logged internally.
type Handler interface {
	Platform() domain.Platform
	Search(ctx context.Context, query string, loc *domain.LocationDescriptor, cred domain.PlatformCredential) ([]domain.ProductListing, domain.PlatformCredential)
}
