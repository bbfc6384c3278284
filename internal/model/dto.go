package model

// TradeRequest represents the incoming JSON body for both trade endpoints.
// Source is set by the handler, not the client.
type TradeRequest struct {
	LongAssets  []AssetWeight `json:"long_assets"`
	ShortAssets []AssetWeight `json:"short_assets"`
	StakeUSD    float64       `json:"stake_usd"`
	Leverage    float64       `json:"leverage"`
	Source      TradeSource   `json:"-"`
}

// NumAssets counts legs on both sides.
func (r *TradeRequest) NumAssets() int {
	return len(r.LongAssets) + len(r.ShortAssets)
}

// NotionalUSD is the effective position size of the request.
func (r *TradeRequest) NotionalUSD() float64 {
	return r.StakeUSD * r.Leverage
}

// Symbols returns every requested symbol, long side first.
func (r *TradeRequest) Symbols() []string {
	out := make([]string, 0, r.NumAssets())
	for _, a := range r.LongAssets {
		out = append(out, a.Symbol)
	}
	for _, a := range r.ShortAssets {
		out = append(out, a.Symbol)
	}
	return out
}

// CreateAccountInput onboards a robo account for a user.
type CreateAccountInput struct {
	UserID  string `json:"user_id" binding:"required"`
	Address string `json:"address" binding:"required"`
}

// EquityUpdateInput carries one equity observation for an account.
type EquityUpdateInput struct {
	EquityUSD float64 `json:"equity_usd" binding:"required"`
}

// EquityUpdateResult is returned by the drawdown tracker.
type EquityUpdateResult struct {
	PeakEquity  float64 `json:"peak_equity"`
	DrawdownPct float64 `json:"drawdown_pct"`
}
