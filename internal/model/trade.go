package model

import (
	"encoding/json"
	"time"
)

// TradeStatus is a 3-state machine: pending -> completed | failed.
// Exactly one terminal update per trade; no other transition is valid.
type TradeStatus string

const (
	TradeStatusPending   TradeStatus = "pending"
	TradeStatusCompleted TradeStatus = "completed"
	TradeStatusFailed    TradeStatus = "failed"
)

// TradeSource 标记下单入口：direct = 用户直连，robo = 委托策略账户
// 两个入口使用不同的杠杆上限，这是刻意保留的差异
type TradeSource string

const (
	TradeSourceDirect TradeSource = "direct"
	TradeSourceRobo   TradeSource = "robo"
)

// AssetWeight is one leg of a long/short basket. Weights on each non-empty
// side must sum to 1 within a 1% tolerance before a record is created.
type AssetWeight struct {
	Symbol string  `json:"symbol"`
	Weight float64 `json:"weight"`
}

// Trade 代表一次下单尝试，由 TradeExecutor 创建与终态更新，永不删除
type Trade struct {
	ID            string          `json:"id" db:"id"`
	AccountID     string          `json:"account_id" db:"account_id"`
	Source        TradeSource     `json:"source" db:"source"`
	LongAssets    []AssetWeight   `json:"long_assets,omitempty" db:"-"`
	ShortAssets   []AssetWeight   `json:"short_assets,omitempty" db:"-"`
	StakeUSD      float64         `json:"stake_usd" db:"stake_usd"`
	Leverage      float64         `json:"leverage" db:"leverage"`
	NotionalUSD   float64         `json:"notional_usd" db:"notional_usd"` // stake * leverage
	Status        TradeStatus     `json:"status" db:"status"`
	OrderPayload  json.RawMessage `json:"order_payload,omitempty" db:"order_payload"`
	VenueResponse json.RawMessage `json:"venue_response,omitempty" db:"venue_response"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// PayloadLeverage extracts the leverage recorded in the stored order payload.
// Old rows may lack the field; they count as 1x in daily aggregates.
func (t *Trade) PayloadLeverage() float64 {
	if len(t.OrderPayload) == 0 {
		return 1
	}
	var payload struct {
		Leverage float64 `json:"leverage"`
	}
	if err := json.Unmarshal(t.OrderPayload, &payload); err != nil || payload.Leverage <= 0 {
		return 1
	}
	return payload.Leverage
}
