package platform

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/avishek-m/pricecompare/internal/domain"
)

// minRequestGap is the minimum spacing between two outbound calls to the
// same platform's upstream, keeping a single search (credential step +
// search step, each possibly retried 3 times) from bursting the scraping
// proxy with back-to-back requests for one platform.
const minRequestGap = 500 * time.Millisecond

// Limiters holds one rate.Limiter per platform, shared across every
// concurrent search so repeated requests for the same platform (e.g. two
// users searching at once) stay spaced out even though each search itself
// runs in its own goroutine.
type Limiters struct {
	byPlatform map[domain.Platform]*rate.Limiter
}

// NewLimiters builds a Limiters set, one limiter per platform in
// domain.AllPlatforms, each allowing one request every minRequestGap with a
// burst of 1.
func NewLimiters() *Limiters {
	l := &Limiters{byPlatform: make(map[domain.Platform]*rate.Limiter, len(domain.AllPlatforms))}
	for _, p := range domain.AllPlatforms {
		l.byPlatform[p] = rate.NewLimiter(rate.Every(minRequestGap), 1)
	}
	return l
}

// Wait blocks until the named platform's limiter admits the next call, or
// ctx is cancelled.
func (l *Limiters) Wait(ctx context.Context, p domain.Platform) error {
	limiter, ok := l.byPlatform[p]
	if !ok {
		return nil
	}
	return limiter.Wait(ctx)
}
