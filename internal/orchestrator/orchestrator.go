// Package orchestrator fans a search query out to every platform handler
// concurrently, reassembles their results under partial failure, and feeds
// the combined listings to the matching engine. Grounded on
// original_source/backend/utils/main_functions.py (get_compared_data_async)
// for the fan-out/merge shape, reworked into goroutines/channels per
// spec §4.5 rather than asyncio.gather.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/avishek-m/pricecompare/internal/analytics"
	"github.com/avishek-m/pricecompare/internal/domain"
	"github.com/avishek-m/pricecompare/internal/matching"
	"github.com/avishek-m/pricecompare/internal/platform"
	apperrors "github.com/avishek-m/pricecompare/pkg/errors"
)

// defaultDeadline is the shared budget for all five platform tasks, per
// spec §4.5 step 2.
const defaultDeadline = 45 * time.Second

// Geocoder resolves a coordinate to a LocationDescriptor; satisfied by
// *geocode.Client.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (*domain.LocationDescriptor, error)
}

// taskResult is one platform handler's outcome, always produced even on
// cancellation or panic recovery so the merge step never blocks.
type taskResult struct {
	platform domain.Platform
	listings []domain.ProductListing
	cred     domain.PlatformCredential
	errored  bool
}

// Orchestrator wires every platform handler, the geocoder, the matching
// engine's embedder, and a per-platform rate limiter into the single
// compare() entry point.
type Orchestrator struct {
	geocoder  Geocoder
	handlers  map[domain.Platform]platform.Handler
	limiters  *platform.Limiters
	embedder  matching.Embedder
	analytics *analytics.Publisher
	logger    *slog.Logger
	deadline  time.Duration
}

// New builds an Orchestrator. handlers must carry exactly one entry per
// domain.AllPlatforms; embedder may be nil, in which case the matching
// engine falls back to lexical similarity for every call.
func New(geocoder Geocoder, handlers map[domain.Platform]platform.Handler, embedder matching.Embedder, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		geocoder: geocoder,
		handlers: handlers,
		limiters: platform.NewLimiters(),
		embedder: embedder,
		logger:   logger,
		deadline: defaultDeadline,
	}
}

// WithAnalytics attaches a search_completed publisher, fired after every
// Compare call. Optional — Compare works identically without it.
func (o *Orchestrator) WithAnalytics(pub *analytics.Publisher) *Orchestrator {
	o.analytics = pub
	return o
}

// Compare implements spec §4.5's compare(query, lat, lon, credentials?)
// operation.
func (o *Orchestrator) Compare(ctx context.Context, query string, lat, lon float64, credentials domain.CredentialBundle) (*domain.SearchResult, error) {
	start := time.Now()

	loc, err := o.geocoder.Reverse(ctx, lat, lon)
	if err != nil {
		return nil, apperrors.Geocode("reverse geocode failed: " + err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, o.deadline)
	defer cancel()

	results := make(chan taskResult, len(domain.AllPlatforms))
	for _, p := range domain.AllPlatforms {
		go o.runTask(ctx, p, query, loc, credentials.Get(p), results)
	}

	var allListings []domain.ProductListing
	finalCreds := make(domain.CredentialBundle, len(domain.AllPlatforms))
	outcomes := make(map[domain.Platform]bool, len(domain.AllPlatforms))
	for range domain.AllPlatforms {
		res := <-results
		if res.errored {
			// Keep the prior credential and contribute no listings (spec
			// §4.5 step 3).
			if prior := credentials.Get(res.platform); prior != nil {
				finalCreds[res.platform] = prior
			}
			outcomes[res.platform] = false
			continue
		}
		if res.cred != nil {
			finalCreds[res.platform] = res.cred
		} else if prior := credentials.Get(res.platform); prior != nil {
			finalCreds[res.platform] = prior
		}
		allListings = append(allListings, res.listings...)
		outcomes[res.platform] = len(res.listings) > 0
	}

	groups := matching.Match(ctx, o.embedder, query, allListings)

	if o.analytics != nil {
		o.analytics.Publish(ctx, query, len(groups), time.Since(start), outcomes)
	}

	return &domain.SearchResult{
		Groups:      groups,
		Credentials: finalCreds,
	}, nil
}

// runTask runs one platform's handler and always sends exactly one result,
// even if ctx is already cancelled by the shared deadline before the
// handler returns.
func (o *Orchestrator) runTask(ctx context.Context, p domain.Platform, query string, loc *domain.LocationDescriptor, cred domain.PlatformCredential, results chan<- taskResult) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("orchestrator: platform task panicked", "platform", p, "panic", r)
			results <- taskResult{platform: p, errored: true}
		}
	}()

	h, ok := o.handlers[p]
	if !ok {
		results <- taskResult{platform: p, errored: true}
		return
	}

	if err := o.limiters.Wait(ctx, p); err != nil {
		results <- taskResult{platform: p, errored: true}
		return
	}

	done := make(chan struct {
		listings []domain.ProductListing
		cred     domain.PlatformCredential
	}, 1)
	go func() {
		listings, refreshed := h.Search(ctx, query, loc, cred)
		done <- struct {
			listings []domain.ProductListing
			cred     domain.PlatformCredential
		}{listings, refreshed}
	}()

	select {
	case <-ctx.Done():
		o.logger.Warn("orchestrator: platform task hit shared deadline", "platform", p)
		results <- taskResult{platform: p, errored: true}
	case out := <-done:
		results <- taskResult{platform: p, listings: out.listings, cred: out.cred}
	}
}
