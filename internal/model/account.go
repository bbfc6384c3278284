package model

import "time"

// Account 代表一个委托交易账户（与用户主钱包分离的 robo 身份）
type Account struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Address     string    `json:"address" db:"address"` // 面向交易所的地址
	EquityUSD   float64   `json:"equity_usd" db:"equity_usd"`
	PeakEquity  float64   `json:"peak_equity" db:"peak_equity"`
	DrawdownPct float64   `json:"drawdown_pct" db:"drawdown_pct"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// DelegatedCredential 授权网关代表账户下单的交易所凭证
// 签发与刷新流程在核心之外完成，这里只做存取与过期判断
type DelegatedCredential struct {
	AccountAddress string    `json:"account_address" db:"account_address"`
	Token          string    `json:"-" db:"token"`
	ExpiresAt      time.Time `json:"expires_at" db:"expires_at"`
}

// Expired reports whether the credential is unusable at `now`.
func (c *DelegatedCredential) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}
