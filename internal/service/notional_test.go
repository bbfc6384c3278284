package service

import (
	"context"
	"testing"
	"time"

	"github.com/robogate/robogate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
}

func TestTodayNotionalSumsCompletedTrades(t *testing.T) {
	reader := &fakeTradeReader{}
	for i := 0; i < 5; i++ {
		reader.trades = append(reader.trades, &model.Trade{
			AccountID:    "acc-1",
			Status:       model.TradeStatusCompleted,
			StakeUSD:     10,
			OrderPayload: []byte(`{"leverage":2}`),
			CreatedAt:    fixedNow().Add(-time.Hour),
		})
	}

	agg := NewNotionalAggregator(reader, StartOfDayUTC, fixedNow)
	total, err := agg.TodayNotional(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, total) // 5 x (10 x 2)
}

func TestTodayNotionalExcludesNonCompletedAndStale(t *testing.T) {
	reader := &fakeTradeReader{trades: []*model.Trade{
		{AccountID: "acc-1", Status: model.TradeStatusCompleted, StakeUSD: 10,
			OrderPayload: []byte(`{"leverage":2}`), CreatedAt: fixedNow().Add(-time.Hour)},
		{AccountID: "acc-1", Status: model.TradeStatusPending, StakeUSD: 10,
			OrderPayload: []byte(`{"leverage":2}`), CreatedAt: fixedNow().Add(-time.Hour)},
		{AccountID: "acc-1", Status: model.TradeStatusFailed, StakeUSD: 10,
			OrderPayload: []byte(`{"leverage":2}`), CreatedAt: fixedNow().Add(-time.Hour)},
		// yesterday, before UTC midnight
		{AccountID: "acc-1", Status: model.TradeStatusCompleted, StakeUSD: 10,
			OrderPayload: []byte(`{"leverage":2}`), CreatedAt: fixedNow().Add(-16 * time.Hour)},
		// someone else's trade
		{AccountID: "acc-2", Status: model.TradeStatusCompleted, StakeUSD: 10,
			OrderPayload: []byte(`{"leverage":2}`), CreatedAt: fixedNow().Add(-time.Hour)},
	}}

	agg := NewNotionalAggregator(reader, StartOfDayUTC, fixedNow)
	total, err := agg.TodayNotional(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, 20.0, total)
}

func TestTodayNotionalDefaultsLeverageToOne(t *testing.T) {
	reader := &fakeTradeReader{trades: []*model.Trade{
		// legacy row: payload without a leverage field
		{AccountID: "acc-1", Status: model.TradeStatusCompleted, StakeUSD: 50,
			OrderPayload: []byte(`{"usdValue":50}`), CreatedAt: fixedNow().Add(-time.Hour)},
		// no payload at all
		{AccountID: "acc-1", Status: model.TradeStatusCompleted, StakeUSD: 30,
			CreatedAt: fixedNow().Add(-time.Hour)},
	}}

	agg := NewNotionalAggregator(reader, StartOfDayUTC, fixedNow)
	total, err := agg.TodayNotional(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, 80.0, total)
}

func TestStartOfDayUTC(t *testing.T) {
	// 23:59 in UTC+10 is still the previous UTC day
	loc := time.FixedZone("UTC+10", 10*3600)
	now := time.Date(2026, 3, 15, 5, 59, 0, 0, loc) // 2026-03-14 19:59 UTC

	start := StartOfDayUTC(now)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), start)
}
