package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/robogate/robogate/internal/config"
	"github.com/robogate/robogate/internal/model"
	"github.com/robogate/robogate/internal/pkg/apperrors"
	"github.com/robogate/robogate/internal/pkg/metrics"
	"github.com/robogate/robogate/internal/venue"
	"github.com/shopspring/decimal"
)

// Weight sums on each non-empty side must land within 1% of 1.
const weightTolerance = 0.01

// 每条腿至少需要的名义金额（美元）
const perAssetNotionalFloor = 10.0

type ActivationChecker interface {
	ActivationStatus(ctx context.Context, cred *model.DelegatedCredential) (bool, error)
}

type AssetSource interface {
	Snapshot(ctx context.Context) (map[string]venue.AssetInfo, venue.CacheStatus)
}

// Validator 按固定顺序执行下单前的全部检查，首个失败即返回
// 每个拒绝都带稳定分类，调用方据此区分如何恢复
type Validator struct {
	policies    *PolicyService
	notional    *NotionalAggregator
	credentials CredentialProvider
	activation  ActivationChecker
	assets      AssetSource
	risk        config.RiskConfig
}

func NewValidator(policies *PolicyService, notional *NotionalAggregator, credentials CredentialProvider,
	activation ActivationChecker, assets AssetSource, risk config.RiskConfig) *Validator {
	return &Validator{
		policies:    policies,
		notional:    notional,
		credentials: credentials,
		activation:  activation,
		assets:      assets,
		risk:        risk,
	}
}

// Validate 返回通过校验后解析出的委托凭证，供执行阶段复用
// 返回非 nil error 表示带分类的拒绝；校验阶段的拒绝永远不会产生 Trade 记录
func (v *Validator) Validate(ctx context.Context, account *model.Account, req *model.TradeRequest) (*model.DelegatedCredential, error) {
	if err := v.checkStructural(req); err != nil {
		return nil, reject(err)
	}
	if err := v.checkMinNotional(req); err != nil {
		return nil, reject(err)
	}

	cred, rejErr := v.checkCredential(ctx, account)
	if rejErr != nil {
		return nil, reject(rejErr)
	}

	policy, err := v.policies.GetCurrent(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("policy lookup failed: %w", err)
	}
	// 没有策略 = 不限制，这是文档化的宽松默认，不是错误
	if policy != nil {
		if err := v.checkPolicy(ctx, account, policy, req); err != nil {
			return nil, reject(err)
		}
		if err := v.checkDrawdown(account, policy); err != nil {
			return nil, reject(err)
		}
	}

	if err := v.checkAssetMinimums(ctx, req); err != nil {
		return nil, reject(err)
	}

	return cred, nil
}

func reject(err *apperrors.AppError) error {
	if apperrors.IsReject(err) {
		metrics.ValidationRejects.WithLabelValues(string(err.Category)).Inc()
	}
	return err
}

// 1. 结构检查：必填字段、至少一边非空、stake 下限、入口各自的杠杆上限、权重和
func (v *Validator) checkStructural(req *model.TradeRequest) *apperrors.AppError {
	if len(req.LongAssets) == 0 && len(req.ShortAssets) == 0 {
		return apperrors.New(apperrors.CatStructural, "at least one of long_assets or short_assets is required", nil)
	}

	minStake := v.risk.MinStakeUSD
	if minStake <= 0 {
		minStake = 1
	}
	if req.StakeUSD < minStake {
		return apperrors.Newf(apperrors.CatStructural, "stake_usd must be at least $%g, got %g", minStake, req.StakeUSD)
	}

	ceiling := v.leverageCeiling(req.Source)
	if req.Leverage < 1 || req.Leverage > ceiling {
		return apperrors.Newf(apperrors.CatStructural, "leverage must be between 1 and %g for %s trades, got %g",
			ceiling, req.Source, req.Leverage)
	}

	if err := checkWeights("long_assets", req.LongAssets); err != nil {
		return err
	}
	return checkWeights("short_assets", req.ShortAssets)
}

// leverageCeiling 两个入口是两条独立的上限，不要统一
func (v *Validator) leverageCeiling(source model.TradeSource) float64 {
	if source == model.TradeSourceDirect {
		if v.risk.MaxLeverageDirect > 0 {
			return v.risk.MaxLeverageDirect
		}
		return 100
	}
	if v.risk.MaxLeverageRobo > 0 {
		return v.risk.MaxLeverageRobo
	}
	return 20
}

func checkWeights(side string, assets []model.AssetWeight) *apperrors.AppError {
	if len(assets) == 0 {
		return nil
	}
	sum := decimal.Zero
	for _, a := range assets {
		if strings.TrimSpace(a.Symbol) == "" {
			return apperrors.Newf(apperrors.CatStructural, "%s: symbol is required on every leg", side)
		}
		if a.Weight <= 0 {
			return apperrors.Newf(apperrors.CatStructural, "%s: weight for %s must be positive, got %g", side, a.Symbol, a.Weight)
		}
		sum = sum.Add(decimal.NewFromFloat(a.Weight))
	}
	diff := sum.Sub(decimal.NewFromInt(1)).Abs()
	if diff.GreaterThan(decimal.NewFromFloat(weightTolerance)) {
		return apperrors.Newf(apperrors.CatStructural, "%s weights must sum to 1 (within 1%%), got %s", side, sum.String())
	}
	return nil
}

// 2. 总名义金额下限：每条腿都需要至少 $10 名义
func (v *Validator) checkMinNotional(req *model.TradeRequest) *apperrors.AppError {
	required := perAssetNotionalFloor * float64(req.NumAssets())
	if required < perAssetNotionalFloor {
		required = perAssetNotionalFloor
	}
	if req.NotionalUSD() < required {
		return apperrors.Newf(apperrors.CatStructural,
			"total notional $%.2f below minimum $%.2f for %d asset(s)", req.NotionalUSD(), required, req.NumAssets())
	}
	return nil
}

// 3+4. 委托凭证存在且未过期，并已在交易所激活
func (v *Validator) checkCredential(ctx context.Context, account *model.Account) (*model.DelegatedCredential, *apperrors.AppError) {
	cred, err := v.credentials.GetValidCredential(ctx, account.Address)
	if err != nil {
		return nil, apperrors.New(apperrors.CatAuth, "delegated credential lookup failed", err)
	}
	if cred == nil {
		return nil, apperrors.New(apperrors.CatAuth, "no valid delegated trading credential; re-authenticate to trade", nil)
	}

	activated, err := v.activation.ActivationStatus(ctx, cred)
	if err != nil {
		return nil, apperrors.New(apperrors.CatAuth, "could not verify trading activation status", err)
	}
	if !activated {
		return nil, apperrors.New(apperrors.CatAuth, "delegated credential is not activated on the venue", nil)
	}
	return cred, nil
}

// 6. 策略评估：杠杆上限、日内额度、币种白名单
func (v *Validator) checkPolicy(ctx context.Context, account *model.Account, policy *model.Policy, req *model.TradeRequest) *apperrors.AppError {
	if req.Leverage > policy.MaxLeverage {
		return apperrors.Newf(apperrors.CatPolicy, "leverage %g exceeds policy cap %g", req.Leverage, policy.MaxLeverage)
	}

	used, err := v.notional.TodayNotional(ctx, account.ID)
	if err != nil {
		return apperrors.New(apperrors.CatInternal, "daily notional aggregation failed", err)
	}
	if used+req.NotionalUSD() > policy.MaxDailyNotionalUSD {
		return apperrors.Newf(apperrors.CatPolicy,
			"daily notional cap exceeded: used $%.2f + requested $%.2f > cap $%.2f",
			used, req.NotionalUSD(), policy.MaxDailyNotionalUSD)
	}

	if len(policy.AllowedPairs) > 0 {
		var disallowed []string
		for _, sym := range req.Symbols() {
			if !symbolAllowed(sym, policy.AllowedPairs) {
				disallowed = append(disallowed, sym)
			}
		}
		if len(disallowed) > 0 {
			return apperrors.Newf(apperrors.CatPolicy, "asset(s) not in policy allowlist: %s", strings.Join(disallowed, ", "))
		}
	}
	return nil
}

// symbolAllowed 精确匹配或匹配分隔符前的基础币种（如 BTC-PERP 匹配 BTC）
func symbolAllowed(symbol string, allowed []string) bool {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	base := sym
	if i := strings.IndexAny(sym, "-/"); i > 0 {
		base = sym[:i]
	}
	for _, a := range allowed {
		a = strings.ToUpper(strings.TrimSpace(a))
		if sym == a || base == a {
			return true
		}
	}
	return false
}

// 7. 回撤闸门：达到上限则无条件拒绝，无论其他条件如何
func (v *Validator) checkDrawdown(account *model.Account, policy *model.Policy) *apperrors.AppError {
	if policy.MaxDrawdownPct <= 0 {
		return nil
	}
	if account.DrawdownPct >= policy.MaxDrawdownPct {
		return apperrors.Newf(apperrors.CatPolicy,
			"account drawdown %.2f%% has reached the policy cap %.2f%%; trading is paused",
			account.DrawdownPct, policy.MaxDrawdownPct)
	}
	return nil
}

// 8. 逐腿最小下单金额
// 缓存为空（获取失败或币种缺失）时跳过而不是拒绝：可用性优先，已在缓存层记录降级
func (v *Validator) checkAssetMinimums(ctx context.Context, req *model.TradeRequest) *apperrors.AppError {
	assets, status := v.assets.Snapshot(ctx)
	if status == venue.CacheUnavailable || len(assets) == 0 {
		return nil
	}

	notional := decimal.NewFromFloat(req.NotionalUSD())
	var undersized []string
	check := func(legs []model.AssetWeight) {
		for _, leg := range legs {
			info, ok := assets[strings.ToUpper(strings.TrimSpace(leg.Symbol))]
			if !ok {
				continue // fail-open per symbol as well
			}
			legNotional := notional.Mul(decimal.NewFromFloat(leg.Weight))
			min := decimal.NewFromFloat(info.MinOrderUSD)
			if legNotional.LessThan(min) {
				shortfall := min.Sub(legNotional)
				undersized = append(undersized, fmt.Sprintf("%s needs $%s more (leg $%s < min $%s)",
					leg.Symbol, shortfall.StringFixed(2), legNotional.StringFixed(2), min.StringFixed(2)))
			}
		}
	}
	check(req.LongAssets)
	check(req.ShortAssets)

	if len(undersized) > 0 {
		return apperrors.Newf(apperrors.CatSize, "order size below venue minimum: %s", strings.Join(undersized, "; "))
	}
	return nil
}
