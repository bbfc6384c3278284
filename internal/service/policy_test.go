package service

import (
	"context"
	"testing"

	"github.com/robogate/robogate/internal/model"
	"github.com/robogate/robogate/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }

func TestUpsertPolicyBoundsIndependently(t *testing.T) {
	cases := []struct {
		name  string
		input model.PolicyInput
		bad   string
	}{
		{"leverage too low", model.PolicyInput{MaxLeverage: floatPtr(0.5)}, "max_leverage"},
		{"leverage too high", model.PolicyInput{MaxLeverage: floatPtr(11)}, "max_leverage"},
		{"notional too low", model.PolicyInput{MaxDailyNotionalUSD: floatPtr(50)}, "max_daily_notional_usd"},
		{"notional too high", model.PolicyInput{MaxDailyNotionalUSD: floatPtr(2_000_000)}, "max_daily_notional_usd"},
		{"drawdown too low", model.PolicyInput{MaxDrawdownPct: floatPtr(0.5)}, "max_drawdown_pct"},
		{"drawdown too high", model.PolicyInput{MaxDrawdownPct: floatPtr(60)}, "max_drawdown_pct"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewPolicyService(&fakePolicyRepo{})
			_, err := svc.Upsert(context.Background(), "acc-1", tc.input)
			requireCategory(t, err, apperrors.CatStructural)
			assert.Contains(t, err.Error(), tc.bad, "message must name the offending field")
		})
	}
}

func TestUpsertPolicyReportsAllBadFields(t *testing.T) {
	svc := NewPolicyService(&fakePolicyRepo{})
	_, err := svc.Upsert(context.Background(), "acc-1", model.PolicyInput{
		MaxLeverage:         floatPtr(99),
		MaxDailyNotionalUSD: floatPtr(1),
		MaxDrawdownPct:      floatPtr(99),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_leverage")
	assert.Contains(t, err.Error(), "max_daily_notional_usd")
	assert.Contains(t, err.Error(), "max_drawdown_pct")
}

func TestUpsertPolicyDefaultsOmittedFields(t *testing.T) {
	repo := &fakePolicyRepo{}
	svc := NewPolicyService(repo)

	p, err := svc.Upsert(context.Background(), "acc-1", model.PolicyInput{
		MaxDrawdownPct: floatPtr(10),
	})
	require.NoError(t, err)
	assert.Equal(t, model.DefaultMaxLeverage, p.MaxLeverage)
	assert.Equal(t, model.DefaultMaxDailyNotional, p.MaxDailyNotionalUSD)
	assert.Equal(t, 10.0, p.MaxDrawdownPct)
}

func TestUpsertPolicyNormalizesPairs(t *testing.T) {
	svc := NewPolicyService(&fakePolicyRepo{})

	p, err := svc.Upsert(context.Background(), "acc-1", model.PolicyInput{
		AllowedPairs: []string{" btc ", "eth"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC", "ETH"}, p.AllowedPairs)
}

func TestUpsertReplacesCurrentPolicy(t *testing.T) {
	repo := &fakePolicyRepo{}
	svc := NewPolicyService(repo)

	_, err := svc.Upsert(context.Background(), "acc-1", model.PolicyInput{MaxLeverage: floatPtr(5)})
	require.NoError(t, err)
	_, err = svc.Upsert(context.Background(), "acc-1", model.PolicyInput{MaxLeverage: floatPtr(3)})
	require.NoError(t, err)

	// upserts append rows; the latest one is authoritative
	assert.Len(t, repo.created, 2)
	current, err := svc.GetCurrent(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, 3.0, current.MaxLeverage)
}

func TestGetCurrentAppliesLegacyDefaults(t *testing.T) {
	repo := &fakePolicyRepo{current: &model.Policy{
		AccountID:      "acc-1",
		MaxDrawdownPct: 20,
		// legacy row: leverage and notional unset
	}}
	svc := NewPolicyService(repo)

	p, err := svc.GetCurrent(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultMaxLeverage, p.MaxLeverage)
	assert.Equal(t, model.DefaultMaxDailyNotional, p.MaxDailyNotionalUSD)
}

func TestGetCurrentNoPolicyIsNotAnError(t *testing.T) {
	svc := NewPolicyService(&fakePolicyRepo{})

	p, err := svc.GetCurrent(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Nil(t, p)
}
