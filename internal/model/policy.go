package model

import "time"

// Policy bounds. Out-of-range values are rejected at upsert time, never clamped.
const (
	PolicyMinLeverage      = 1.0
	PolicyMaxLeverage      = 10.0
	PolicyMinDailyNotional = 100.0
	PolicyMaxDailyNotional = 1_000_000.0
	PolicyMinDrawdownPct   = 1.0
	PolicyMaxDrawdownPct   = 50.0
)

// Read-side defaults for legacy rows that predate a field.
const (
	DefaultMaxLeverage      = 10.0
	DefaultMaxDailyNotional = 1_000_000.0
)

// Policy 定义账户维度的风控规则
// 每个账户同一时刻只有一条 current 策略（最新创建的一条生效）
type Policy struct {
	ID                  string    `json:"id" db:"id"`
	AccountID           string    `json:"account_id" db:"account_id"`
	MaxLeverage         float64   `json:"max_leverage" db:"max_leverage"`                     // 杠杆上限 (1-10)
	MaxDailyNotionalUSD float64   `json:"max_daily_notional_usd" db:"max_daily_notional_usd"` // 单日名义金额上限
	AllowedPairs        []string  `json:"allowed_pairs,omitempty" db:"-"`                     // 允许交易的币种，空 = 不限制
	MaxDrawdownPct      float64   `json:"max_drawdown_pct" db:"max_drawdown_pct"`             // 最大回撤百分比 (1-50)，0 = 未设置
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
}

// ApplyDefaults fills legacy/absent fields so an old row never blocks trading.
func (p *Policy) ApplyDefaults() {
	if p.MaxLeverage <= 0 {
		p.MaxLeverage = DefaultMaxLeverage
	}
	if p.MaxDailyNotionalUSD <= 0 {
		p.MaxDailyNotionalUSD = DefaultMaxDailyNotional
	}
}

// PolicyInput is the upsert request body. Pointer fields distinguish
// "not provided" from zero values.
type PolicyInput struct {
	MaxLeverage         *float64 `json:"max_leverage"`
	MaxDailyNotionalUSD *float64 `json:"max_daily_notional_usd"`
	AllowedPairs        []string `json:"allowed_pairs"`
	MaxDrawdownPct      *float64 `json:"max_drawdown_pct"`
}
