// Package analytics publishes a search_completed event after every
// compare() call and aggregates the consumed stream into the counters
// GET /api/customer_analytics serves. Grounded on pkg/kafka/producer.go's
// Event envelope and pkg/kafka/consumer.go's Handler shape; the original
// Flask app has no analytics implementation at all, so this is a
// from-scratch but spec-named feature (spec §6).
package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/avishek-m/pricecompare/internal/domain"
	"github.com/avishek-m/pricecompare/pkg/kafka"
)

// Topic is the Kafka topic search_completed events publish to and the
// aggregator consumes from.
var Topic = kafka.Topic("search", "completed")

// SearchCompletedEvent is the payload carried inside the Kafka envelope's
// Data field.
type SearchCompletedEvent struct {
	Query            string                   `json:"query"`
	GroupCount       int                      `json:"group_count"`
	LatencyMS        int64                    `json:"latency_ms"`
	PlatformOutcomes map[domain.Platform]bool `json:"platform_outcomes"`
	Timestamp        time.Time                `json:"timestamp"`
}

// Publisher emits a search_completed event after every compare() call.
// Publish failures are logged and never fail the search request —
// analytics is best-effort, per spec §4.5's concurrency model treating it
// as a side channel, not a request dependency.
type Publisher struct {
	producer *kafka.Producer
	logger   *slog.Logger
}

func NewPublisher(producer *kafka.Producer, logger *slog.Logger) *Publisher {
	return &Publisher{producer: producer, logger: logger}
}

// Publish reports one compare() call's outcome. platformOutcomes maps
// each platform attempted to whether it contributed at least one
// listing.
func (p *Publisher) Publish(ctx context.Context, query string, groupCount int, latency time.Duration, platformOutcomes map[domain.Platform]bool) {
	if p.producer == nil {
		return
	}

	payload := SearchCompletedEvent{
		Query:            query,
		GroupCount:       groupCount,
		LatencyMS:        latency.Milliseconds(),
		PlatformOutcomes: platformOutcomes,
		Timestamp:        time.Now().UTC(),
	}

	event, err := kafka.NewEvent("search_completed", query, "search", "pricecompare-orchestrator", payload)
	if err != nil {
		p.logger.Warn("analytics: failed to build event", "error", err)
		return
	}
	if err := p.producer.Publish(ctx, Topic, event); err != nil {
		p.logger.Warn("analytics: failed to publish search_completed event", "error", err)
	}
}

// Snapshot is the aggregate GET /api/customer_analytics serves: overall
// query volume and a per-platform success rate (fraction of searches in
// which that platform contributed at least one listing).
type Snapshot struct {
	TotalSearches     int64                     `json:"total_searches"`
	TotalGroups       int64                     `json:"total_groups"`
	PlatformSuccesses map[domain.Platform]int64 `json:"platform_successes"`
	PlatformAttempts  map[domain.Platform]int64 `json:"platform_attempts"`
}

// SuccessRate returns the fraction of attempts in which p contributed a
// listing, or 0 if p was never attempted.
func (s *Snapshot) SuccessRate(p domain.Platform) float64 {
	attempts := s.PlatformAttempts[p]
	if attempts == 0 {
		return 0
	}
	return float64(s.PlatformSuccesses[p]) / float64(attempts)
}

// Aggregator consumes search_completed events and keeps a running
// Snapshot in memory, read by the customer_analytics HTTP handler.
type Aggregator struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		snapshot: Snapshot{
			PlatformSuccesses: make(map[domain.Platform]int64),
			PlatformAttempts:  make(map[domain.Platform]int64),
		},
	}
}

// Handle implements kafka.Handler, folding one search_completed event
// into the running snapshot.
func (a *Aggregator) Handle(ctx context.Context, event *kafka.Event) error {
	var payload SearchCompletedEvent
	if err := event.UnmarshalData(&payload); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.snapshot.TotalSearches++
	a.snapshot.TotalGroups += int64(payload.GroupCount)
	for platform, contributed := range payload.PlatformOutcomes {
		a.snapshot.PlatformAttempts[platform]++
		if contributed {
			a.snapshot.PlatformSuccesses[platform]++
		}
	}
	return nil
}

// Snapshot returns a copy of the current aggregate.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := Snapshot{
		TotalSearches:     a.snapshot.TotalSearches,
		TotalGroups:       a.snapshot.TotalGroups,
		PlatformSuccesses: make(map[domain.Platform]int64, len(a.snapshot.PlatformSuccesses)),
		PlatformAttempts:  make(map[domain.Platform]int64, len(a.snapshot.PlatformAttempts)),
	}
	for k, v := range a.snapshot.PlatformSuccesses {
		out.PlatformSuccesses[k] = v
	}
	for k, v := range a.snapshot.PlatformAttempts {
		out.PlatformAttempts[k] = v
	}
	return out
}
