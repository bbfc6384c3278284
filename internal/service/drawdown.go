package service

import (
	"context"

	"github.com/robogate/robogate/internal/model"
	"github.com/robogate/robogate/internal/pkg/logger"
)

type AccountStore interface {
	GetByID(ctx context.Context, id string) (*model.Account, error)
	UpdateEquity(ctx context.Context, id string, equity, peak, drawdownPct float64) error
}

// DrawdownTracker 在每次权益更新时维护账户的历史峰值与当前回撤
// 是否因回撤拒单由校验管道判断，这里只负责跟踪，保持两边可独立测试
type DrawdownTracker struct {
	accounts AccountStore
}

func NewDrawdownTracker(accounts AccountStore) *DrawdownTracker {
	return &DrawdownTracker{accounts: accounts}
}

// UpdateEquity records one equity observation: the peak only ever rises, and
// drawdown = (peak - equity) / peak * 100, floored at 0.
func (t *DrawdownTracker) UpdateEquity(ctx context.Context, accountID string, equity float64) (*model.EquityUpdateResult, error) {
	acc, err := t.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	peak := acc.PeakEquity
	if equity > peak {
		peak = equity
	}

	var drawdownPct float64
	if peak > 0 {
		drawdownPct = (peak - equity) / peak * 100
		if drawdownPct < 0 {
			drawdownPct = 0
		}
	}

	if err := t.accounts.UpdateEquity(ctx, accountID, equity, peak, drawdownPct); err != nil {
		return nil, err
	}

	logger.Debug("equity updated",
		"account_id", accountID, "equity", equity, "peak", peak, "drawdown_pct", drawdownPct)

	return &model.EquityUpdateResult{PeakEquity: peak, DrawdownPct: drawdownPct}, nil
}
