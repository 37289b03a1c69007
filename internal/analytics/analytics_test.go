package analytics

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avishek-m/pricecompare/internal/domain"
	"github.com/avishek-m/pricecompare/pkg/kafka"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublisher_NilProducerIsANoOp(t *testing.T) {
	p := NewPublisher(nil, discardLogger())
	// Must not panic even though no producer is configured.
	p.Publish(context.Background(), "atta", 3, 120*time.Millisecond, map[domain.Platform]bool{domain.BigBasket: true})
}

func TestAggregator_FoldsEventIntoSnapshot(t *testing.T) {
	agg := NewAggregator()

	payload := SearchCompletedEvent{
		Query:      "atta",
		GroupCount: 2,
		LatencyMS:  150,
		PlatformOutcomes: map[domain.Platform]bool{
			domain.BigBasket: true,
			domain.DMart:     false,
		},
	}
	event, err := kafka.NewEvent("search_completed", "atta", "search", "test", payload)
	require.NoError(t, err)

	require.NoError(t, agg.Handle(context.Background(), event))

	snap := agg.Snapshot()
	assert.Equal(t, int64(1), snap.TotalSearches)
	assert.Equal(t, int64(2), snap.TotalGroups)
	assert.Equal(t, int64(1), snap.PlatformAttempts[domain.BigBasket])
	assert.Equal(t, int64(1), snap.PlatformSuccesses[domain.BigBasket])
	assert.Equal(t, int64(1), snap.PlatformAttempts[domain.DMart])
	assert.Equal(t, int64(0), snap.PlatformSuccesses[domain.DMart])
	assert.InDelta(t, 1.0, snap.SuccessRate(domain.BigBasket), 0.0001)
	assert.InDelta(t, 0.0, snap.SuccessRate(domain.DMart), 0.0001)
}

func TestAggregator_AccumulatesAcrossMultipleEvents(t *testing.T) {
	agg := NewAggregator()

	for i := 0; i < 3; i++ {
		payload := SearchCompletedEvent{
			Query:      "rice",
			GroupCount: 1,
			PlatformOutcomes: map[domain.Platform]bool{
				domain.Zepto: i != 1,
			},
		}
		event, err := kafka.NewEvent("search_completed", "rice", "search", "test", payload)
		require.NoError(t, err)
		require.NoError(t, agg.Handle(context.Background(), event))
	}

	snap := agg.Snapshot()
	assert.Equal(t, int64(3), snap.TotalSearches)
	assert.Equal(t, int64(3), snap.PlatformAttempts[domain.Zepto])
	assert.Equal(t, int64(2), snap.PlatformSuccesses[domain.Zepto])
}

func TestSnapshot_SuccessRateZeroWhenNeverAttempted(t *testing.T) {
	snap := Snapshot{
		PlatformAttempts:  map[domain.Platform]int64{},
		PlatformSuccesses: map[domain.Platform]int64{},
	}
	assert.Equal(t, 0.0, snap.SuccessRate(domain.Blinkit))
}
