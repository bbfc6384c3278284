package service

import (
	"context"
	"testing"
	"time"

	"github.com/robogate/robogate/internal/config"
	"github.com/robogate/robogate/internal/model"
	"github.com/robogate/robogate/internal/pkg/apperrors"
	"github.com/robogate/robogate/internal/repository"
	"github.com/robogate/robogate/internal/venue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- shared fakes ----

type fakePolicyRepo struct {
	current *model.Policy
	created []*model.Policy
}

func (f *fakePolicyRepo) GetCurrent(ctx context.Context, accountID string) (*model.Policy, error) {
	if f.current == nil {
		return nil, repository.ErrNotFound
	}
	return f.current, nil
}

func (f *fakePolicyRepo) Create(ctx context.Context, p *model.Policy) error {
	f.created = append(f.created, p)
	f.current = p
	return nil
}

type fakeTradeReader struct {
	trades []*model.Trade
}

func (f *fakeTradeReader) ListCompletedSince(ctx context.Context, accountID string, since time.Time) ([]*model.Trade, error) {
	var out []*model.Trade
	for _, t := range f.trades {
		if t.AccountID == accountID && t.Status == model.TradeStatusCompleted && !t.CreatedAt.Before(since) {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeCredentials struct {
	cred *model.DelegatedCredential
}

func (f *fakeCredentials) GetValidCredential(ctx context.Context, addr string) (*model.DelegatedCredential, error) {
	return f.cred, nil
}

type fakeActivation struct {
	activated bool
}

func (f *fakeActivation) ActivationStatus(ctx context.Context, cred *model.DelegatedCredential) (bool, error) {
	return f.activated, nil
}

type fakeAssets struct {
	assets map[string]venue.AssetInfo
	status venue.CacheStatus
}

func (f *fakeAssets) Snapshot(ctx context.Context) (map[string]venue.AssetInfo, venue.CacheStatus) {
	if f.assets == nil {
		return map[string]venue.AssetInfo{}, venue.CacheUnavailable
	}
	status := f.status
	if status == "" {
		status = venue.CacheFresh
	}
	return f.assets, status
}

type validatorEnv struct {
	policies *fakePolicyRepo
	trades   *fakeTradeReader
	creds    *fakeCredentials
	assets   *fakeAssets
	v        *Validator
}

func newValidatorEnv() *validatorEnv {
	env := &validatorEnv{
		policies: &fakePolicyRepo{},
		trades:   &fakeTradeReader{},
		creds: &fakeCredentials{cred: &model.DelegatedCredential{
			AccountAddress: "0xabc",
			Token:          "tok",
			ExpiresAt:      time.Now().Add(time.Hour),
		}},
		assets: &fakeAssets{},
	}
	env.v = NewValidator(
		NewPolicyService(env.policies),
		NewNotionalAggregator(env.trades, StartOfDayUTC, nil),
		env.creds,
		&fakeActivation{activated: true},
		env.assets,
		config.RiskConfig{MaxLeverageRobo: 20, MaxLeverageDirect: 100, MinStakeUSD: 1},
	)
	return env
}

func testAccount() *model.Account {
	return &model.Account{ID: "acc-1", UserID: "user-1", Address: "0xabc"}
}

func longOnly(stake, leverage float64, symbols ...string) *model.TradeRequest {
	req := &model.TradeRequest{StakeUSD: stake, Leverage: leverage, Source: model.TradeSourceRobo}
	w := 1.0 / float64(len(symbols))
	for _, s := range symbols {
		req.LongAssets = append(req.LongAssets, model.AssetWeight{Symbol: s, Weight: w})
	}
	return req
}

func requireCategory(t *testing.T, err error, cat apperrors.Category) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok, "expected *apperrors.AppError, got %T: %v", err, err)
	assert.Equal(t, cat, appErr.Category)
}

// ---- structural checks ----

func TestValidateRejectsEmptyAssetLists(t *testing.T) {
	env := newValidatorEnv()
	req := &model.TradeRequest{StakeUSD: 100, Leverage: 2, Source: model.TradeSourceRobo}

	_, err := env.v.Validate(context.Background(), testAccount(), req)
	requireCategory(t, err, apperrors.CatStructural)
}

func TestValidateRejectsStakeBelowMinimum(t *testing.T) {
	env := newValidatorEnv()
	req := longOnly(0.5, 2, "BTC")

	_, err := env.v.Validate(context.Background(), testAccount(), req)
	requireCategory(t, err, apperrors.CatStructural)
}

func TestValidateLeverageCeilingPerSource(t *testing.T) {
	env := newValidatorEnv()

	// robo (delegated) entry point caps at 20x
	robo := longOnly(100, 25, "BTC")
	_, err := env.v.Validate(context.Background(), testAccount(), robo)
	requireCategory(t, err, apperrors.CatStructural)

	// the same leverage passes through the direct entry point (100x cap)
	direct := longOnly(100, 25, "BTC")
	direct.Source = model.TradeSourceDirect
	_, err = env.v.Validate(context.Background(), testAccount(), direct)
	assert.NoError(t, err)

	overDirect := longOnly(100, 101, "BTC")
	overDirect.Source = model.TradeSourceDirect
	_, err = env.v.Validate(context.Background(), testAccount(), overDirect)
	requireCategory(t, err, apperrors.CatStructural)
}

func TestValidateWeightSumTolerance(t *testing.T) {
	env := newValidatorEnv()

	req := &model.TradeRequest{
		StakeUSD: 100, Leverage: 2, Source: model.TradeSourceRobo,
		LongAssets: []model.AssetWeight{
			{Symbol: "BTC", Weight: 0.6},
			{Symbol: "ETH", Weight: 0.3}, // sums to 0.9
		},
	}
	_, err := env.v.Validate(context.Background(), testAccount(), req)
	requireCategory(t, err, apperrors.CatStructural)

	// 0.995 is within the 1% tolerance
	req.LongAssets = []model.AssetWeight{
		{Symbol: "BTC", Weight: 0.6},
		{Symbol: "ETH", Weight: 0.395},
	}
	_, err = env.v.Validate(context.Background(), testAccount(), req)
	assert.NoError(t, err)
}

func TestValidateMinTotalNotional(t *testing.T) {
	env := newValidatorEnv()

	// 2 assets require $20 notional; stake 5 x leverage 2 = $10
	req := longOnly(5, 2, "BTC", "ETH")
	_, err := env.v.Validate(context.Background(), testAccount(), req)
	requireCategory(t, err, apperrors.CatStructural)

	req = longOnly(10, 2, "BTC", "ETH")
	_, err = env.v.Validate(context.Background(), testAccount(), req)
	assert.NoError(t, err)
}

// ---- credential checks ----

func TestValidateRejectsMissingCredential(t *testing.T) {
	env := newValidatorEnv()
	env.creds.cred = nil

	_, err := env.v.Validate(context.Background(), testAccount(), longOnly(100, 2, "BTC"))
	requireCategory(t, err, apperrors.CatAuth)
}

func TestValidateRejectsInactiveCredential(t *testing.T) {
	env := newValidatorEnv()
	env.v.activation = &fakeActivation{activated: false}

	_, err := env.v.Validate(context.Background(), testAccount(), longOnly(100, 2, "BTC"))
	requireCategory(t, err, apperrors.CatAuth)
}

// ---- policy checks ----

func TestValidateNoPolicyMeansUnrestricted(t *testing.T) {
	env := newValidatorEnv()
	// huge trade, no policy row: passes
	_, err := env.v.Validate(context.Background(), testAccount(), longOnly(500000, 10, "BTC"))
	assert.NoError(t, err)
}

func TestValidatePolicyLeverageCap(t *testing.T) {
	env := newValidatorEnv()
	env.policies.current = &model.Policy{AccountID: "acc-1", MaxLeverage: 3, MaxDailyNotionalUSD: 1_000_000}

	_, err := env.v.Validate(context.Background(), testAccount(), longOnly(100, 5, "BTC"))
	requireCategory(t, err, apperrors.CatPolicy)
}

func TestValidateDailyNotionalCap(t *testing.T) {
	env := newValidatorEnv()
	env.policies.current = &model.Policy{AccountID: "acc-1", MaxLeverage: 10, MaxDailyNotionalUSD: 100}

	// $90 of completed notional already today (stake 45 x 2)
	env.trades.trades = []*model.Trade{{
		AccountID:    "acc-1",
		Status:       model.TradeStatusCompleted,
		StakeUSD:     45,
		OrderPayload: []byte(`{"leverage":2}`),
		CreatedAt:    time.Now().UTC(),
	}}

	// requesting $20 more blows the cap
	_, err := env.v.Validate(context.Background(), testAccount(), longOnly(10, 2, "BTC"))
	requireCategory(t, err, apperrors.CatPolicy)

	// $10 more fits exactly
	_, err = env.v.Validate(context.Background(), testAccount(), longOnly(5, 2, "BTC"))
	assert.NoError(t, err)
}

func TestValidateAllowlist(t *testing.T) {
	env := newValidatorEnv()
	env.policies.current = &model.Policy{
		AccountID: "acc-1", MaxLeverage: 10, MaxDailyNotionalUSD: 1_000_000,
		AllowedPairs: []string{"BTC", "ETH"},
	}

	req := &model.TradeRequest{
		StakeUSD: 100, Leverage: 2, Source: model.TradeSourceRobo,
		LongAssets:  []model.AssetWeight{{Symbol: "BTC", Weight: 1}},
		ShortAssets: []model.AssetWeight{{Symbol: "SOL", Weight: 1}},
	}
	_, err := env.v.Validate(context.Background(), testAccount(), req)
	requireCategory(t, err, apperrors.CatPolicy)
	assert.Contains(t, err.Error(), "SOL")

	// base-symbol match: BTC-PERP is allowed by the BTC entry
	req.ShortAssets = []model.AssetWeight{{Symbol: "BTC-PERP", Weight: 1}}
	_, err = env.v.Validate(context.Background(), testAccount(), req)
	assert.NoError(t, err)
}

func TestValidateDrawdownGateBlocksEverything(t *testing.T) {
	env := newValidatorEnv()
	env.policies.current = &model.Policy{
		AccountID: "acc-1", MaxLeverage: 10, MaxDailyNotionalUSD: 1_000_000,
		MaxDrawdownPct: 10,
	}

	acc := testAccount()
	acc.PeakEquity = 1000
	acc.EquityUSD = 850
	acc.DrawdownPct = 15

	// tiny, perfectly valid trade is still rejected
	_, err := env.v.Validate(context.Background(), acc, longOnly(10, 2, "BTC"))
	requireCategory(t, err, apperrors.CatPolicy)
	assert.Contains(t, err.Error(), "drawdown")
}

// ---- per-asset minimum size ----

func TestValidateAssetMinimumSizes(t *testing.T) {
	env := newValidatorEnv()
	env.assets.assets = map[string]venue.AssetInfo{
		"BTC": {Symbol: "BTC", Price: 100, MinOrderUSD: 10},
		"ETH": {Symbol: "ETH", Price: 100, MinOrderUSD: 10},
	}

	// $24 notional split 50/50: each leg $12, above the $10 floor
	_, err := env.v.Validate(context.Background(), testAccount(), longOnly(12, 2, "BTC", "ETH"))
	assert.NoError(t, err)

	// $20 notional with a 10/90 split: BTC leg is $2, short by $8
	req := &model.TradeRequest{
		StakeUSD: 10, Leverage: 2, Source: model.TradeSourceRobo,
		LongAssets: []model.AssetWeight{
			{Symbol: "BTC", Weight: 0.1},
			{Symbol: "ETH", Weight: 0.9},
		},
	}
	_, err = env.v.Validate(context.Background(), testAccount(), req)
	requireCategory(t, err, apperrors.CatSize)
	assert.Contains(t, err.Error(), "BTC")
	assert.Contains(t, err.Error(), "8.00")
}

func TestValidateSizeCheckFailsOpen(t *testing.T) {
	env := newValidatorEnv()

	// unavailable cache: no size rejection at all
	env.assets.assets = nil
	_, err := env.v.Validate(context.Background(), testAccount(), longOnly(6, 2, "BTC"))
	assert.NoError(t, err)

	// symbol absent from the snapshot: that leg is skipped
	env.assets.assets = map[string]venue.AssetInfo{
		"ETH": {Symbol: "ETH", Price: 100, MinOrderUSD: 10},
	}
	_, err = env.v.Validate(context.Background(), testAccount(), longOnly(6, 2, "BTC"))
	assert.NoError(t, err)
}
