package service

import (
	"context"
	"time"

	"github.com/robogate/robogate/internal/model"
)

type TradeReader interface {
	ListCompletedSince(ctx context.Context, accountID string, since time.Time) ([]*model.Trade, error)
}

// StartOfDayFunc 统一的 “当日起点” 计算，所有日内窗口逻辑都注入它
type StartOfDayFunc func(now time.Time) time.Time

// StartOfDayUTC is the production day boundary: UTC midnight.
func StartOfDayUTC(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NotionalAggregator 汇总账户当日 completed 交易的名义金额
// 这是读聚合，不是计数器：并发下单会在两次校验之间落库，
// 所以每次校验都必须重算
type NotionalAggregator struct {
	trades     TradeReader
	startOfDay StartOfDayFunc
	now        func() time.Time
}

func NewNotionalAggregator(trades TradeReader, startOfDay StartOfDayFunc, now func() time.Time) *NotionalAggregator {
	if startOfDay == nil {
		startOfDay = StartOfDayUTC
	}
	if now == nil {
		now = time.Now
	}
	return &NotionalAggregator{trades: trades, startOfDay: startOfDay, now: now}
}

// TodayNotional sums stake_usd x leverage over the account's completed
// trades since the start of the current UTC day. Leverage comes from the
// stored order payload; rows without one count as 1x.
func (a *NotionalAggregator) TodayNotional(ctx context.Context, accountID string) (float64, error) {
	since := a.startOfDay(a.now())
	trades, err := a.trades.ListCompletedSince(ctx, accountID, since)
	if err != nil {
		return 0, err
	}

	var total float64
	for _, t := range trades {
		total += t.StakeUSD * t.PayloadLeverage()
	}
	return total, nil
}
