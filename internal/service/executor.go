package service

import (
	"context"
	"encoding/json"

	"github.com/robogate/robogate/internal/config"
	"github.com/robogate/robogate/internal/model"
	"github.com/robogate/robogate/internal/pkg/logger"
	"github.com/robogate/robogate/internal/pkg/metrics"
	"github.com/robogate/robogate/internal/venue"
)

type TradeStore interface {
	CreatePending(ctx context.Context, t *model.Trade) error
	SetTerminal(ctx context.Context, id string, status model.TradeStatus, venueResponse json.RawMessage) error
}

type OrderSubmitter interface {
	PlaceOrder(ctx context.Context, cred *model.DelegatedCredential, payload venue.OrderPayload) (*venue.OrderResult, error)
}

// TradeExecutor 驱动交易生命周期：
// 校验通过 -> 写入 pending -> 调用交易所 -> 恰好一次终态更新
// 交易所调用失败也是正常的 API 返回（failed 记录），不是异常
type TradeExecutor struct {
	validator *Validator
	trades    TradeStore
	submitter OrderSubmitter
	venueCfg  config.VenueConfig
}

func NewTradeExecutor(validator *Validator, trades TradeStore, submitter OrderSubmitter, venueCfg config.VenueConfig) *TradeExecutor {
	return &TradeExecutor{
		validator: validator,
		trades:    trades,
		submitter: submitter,
		venueCfg:  venueCfg,
	}
}

// Execute runs the full pipeline. Rejections return before any row exists;
// once a pending row is written, every path applies exactly one terminal
// update, so no trade is left pending under normal operation. Callers
// distinguish execution failure by Trade.Status, not by the error return.
func (e *TradeExecutor) Execute(ctx context.Context, account *model.Account, req *model.TradeRequest) (*model.Trade, error) {
	cred, err := e.validator.Validate(ctx, account, req)
	if err != nil {
		return nil, err
	}

	payload := e.buildPayload(req)
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	trade := &model.Trade{
		AccountID:    account.ID,
		Source:       req.Source,
		LongAssets:   req.LongAssets,
		ShortAssets:  req.ShortAssets,
		StakeUSD:     req.StakeUSD,
		Leverage:     req.Leverage,
		NotionalUSD:  req.NotionalUSD(),
		OrderPayload: payloadJSON,
	}
	if err := e.trades.CreatePending(ctx, trade); err != nil {
		return nil, err
	}

	result, venueErr := e.submitter.PlaceOrder(ctx, cred, payload)
	switch {
	case venueErr != nil:
		// 硬失败：网络/HTTP 错误。不自动重试，把错误原文留在记录里
		errBody, _ := json.Marshal(map[string]string{"error": venueErr.Error()})
		e.finalize(ctx, trade, model.TradeStatusFailed, errBody)
		logger.Warn("venue order failed", "trade_id", trade.ID, "account_id", account.ID, "error", venueErr)

	case !result.Filled():
		// 软失败：受理但没有成交
		e.finalize(ctx, trade, model.TradeStatusFailed, result.Raw)
		logger.Warn("venue accepted order but returned no fills", "trade_id", trade.ID, "account_id", account.ID)

	default:
		e.finalize(ctx, trade, model.TradeStatusCompleted, result.Raw)
		logger.Info("trade completed",
			"trade_id", trade.ID, "account_id", account.ID,
			"notional_usd", trade.NotionalUSD, "fills", len(result.Fills))
	}

	return trade, nil
}

func (e *TradeExecutor) finalize(ctx context.Context, trade *model.Trade, status model.TradeStatus, response json.RawMessage) {
	trade.Status = status
	trade.VenueResponse = response
	metrics.TradesTotal.WithLabelValues(string(status), string(trade.Source)).Inc()

	if err := e.trades.SetTerminal(ctx, trade.ID, status, response); err != nil {
		// 终态写失败只能记录：交易所那边可能已经成交，留给对账处理
		logger.Error("failed to persist terminal trade state",
			"trade_id", trade.ID, "status", status, "error", err)
	}
}

func (e *TradeExecutor) buildPayload(req *model.TradeRequest) venue.OrderPayload {
	return venue.OrderPayload{
		Slippage:      e.venueCfg.DefaultSlippage,
		ExecutionType: e.venueCfg.DefaultExecutionType,
		Leverage:      req.Leverage,
		USDValue:      req.NotionalUSD(),
		LongAssets:    req.LongAssets,
		ShortAssets:   req.ShortAssets,
	}
}
