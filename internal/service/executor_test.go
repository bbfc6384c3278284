package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/robogate/robogate/internal/config"
	"github.com/robogate/robogate/internal/model"
	"github.com/robogate/robogate/internal/pkg/apperrors"
	"github.com/robogate/robogate/internal/venue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTradeStore struct {
	created   []*model.Trade
	terminals map[string]model.TradeStatus
}

func newFakeTradeStore() *fakeTradeStore {
	return &fakeTradeStore{terminals: make(map[string]model.TradeStatus)}
}

func (f *fakeTradeStore) CreatePending(ctx context.Context, t *model.Trade) error {
	t.ID = "trade-1"
	t.Status = model.TradeStatusPending
	f.created = append(f.created, t)
	return nil
}

func (f *fakeTradeStore) SetTerminal(ctx context.Context, id string, status model.TradeStatus, resp json.RawMessage) error {
	if _, done := f.terminals[id]; done {
		return errors.New("terminal update applied twice")
	}
	f.terminals[id] = status
	return nil
}

type fakeSubmitter struct {
	result *venue.OrderResult
	err    error
	calls  int
}

func (f *fakeSubmitter) PlaceOrder(ctx context.Context, cred *model.DelegatedCredential, payload venue.OrderPayload) (*venue.OrderResult, error) {
	f.calls++
	return f.result, f.err
}

func newExecutorEnv(submitter *fakeSubmitter) (*TradeExecutor, *fakeTradeStore, *validatorEnv) {
	venv := newValidatorEnv()
	store := newFakeTradeStore()
	exec := NewTradeExecutor(venv.v, store, submitter, config.VenueConfig{
		DefaultSlippage:      0.05,
		DefaultExecutionType: "market",
	})
	return exec, store, venv
}

func TestExecuteCompletesOnFills(t *testing.T) {
	submitter := &fakeSubmitter{result: &venue.OrderResult{
		Raw:   json.RawMessage(`{"fills":[{"symbol":"BTC","size":"0.002","price":"50000"}]}`),
		Fills: []venue.Fill{{Symbol: "BTC", Size: "0.002", Price: "50000"}},
	}}
	exec, store, _ := newExecutorEnv(submitter)

	trade, err := exec.Execute(context.Background(), testAccount(), longOnly(100, 2, "BTC"))
	require.NoError(t, err)

	assert.Equal(t, model.TradeStatusCompleted, trade.Status)
	assert.Equal(t, model.TradeStatusCompleted, store.terminals["trade-1"])
	assert.Equal(t, 200.0, trade.NotionalUSD)
	assert.JSONEq(t, string(submitter.result.Raw), string(trade.VenueResponse))
}

func TestExecuteFailsOnEmptyFills(t *testing.T) {
	// venue accepted the order but nothing executed: soft failure
	submitter := &fakeSubmitter{result: &venue.OrderResult{
		Raw:   json.RawMessage(`{"fills":[]}`),
		Fills: nil,
	}}
	exec, store, _ := newExecutorEnv(submitter)

	trade, err := exec.Execute(context.Background(), testAccount(), longOnly(100, 2, "BTC"))
	require.NoError(t, err, "a failed trade is a normal response, not an error")

	assert.Equal(t, model.TradeStatusFailed, trade.Status)
	assert.Equal(t, model.TradeStatusFailed, store.terminals["trade-1"])
}

func TestExecuteFailsOnVenueError(t *testing.T) {
	submitter := &fakeSubmitter{err: errors.New("connection refused")}
	exec, store, _ := newExecutorEnv(submitter)

	trade, err := exec.Execute(context.Background(), testAccount(), longOnly(100, 2, "BTC"))
	require.NoError(t, err)

	assert.Equal(t, model.TradeStatusFailed, trade.Status)
	assert.Equal(t, model.TradeStatusFailed, store.terminals["trade-1"])
	assert.Contains(t, string(trade.VenueResponse), "connection refused")
	assert.Equal(t, 1, submitter.calls, "venue errors are never retried here")
}

func TestExecuteRejectionCreatesNoRecord(t *testing.T) {
	submitter := &fakeSubmitter{}
	exec, store, _ := newExecutorEnv(submitter)

	// stake below minimum: structural reject before any row exists
	_, err := exec.Execute(context.Background(), testAccount(), longOnly(0.5, 2, "BTC"))
	require.Error(t, err)
	assert.True(t, apperrors.IsReject(err))
	assert.Empty(t, store.created)
	assert.Zero(t, submitter.calls)
}

func TestExecuteNoTradeLeftPending(t *testing.T) {
	for name, submitter := range map[string]*fakeSubmitter{
		"fills":   {result: &venue.OrderResult{Raw: json.RawMessage(`{"fills":[{"symbol":"BTC"}]}`), Fills: []venue.Fill{{Symbol: "BTC"}}}},
		"nofills": {result: &venue.OrderResult{Raw: json.RawMessage(`{"fills":[]}`)}},
		"error":   {err: errors.New("boom")},
	} {
		exec, store, _ := newExecutorEnv(submitter)
		trade, err := exec.Execute(context.Background(), testAccount(), longOnly(100, 2, "BTC"))
		require.NoError(t, err, name)
		require.Len(t, store.terminals, 1, name)
		assert.NotEqual(t, model.TradeStatusPending, trade.Status, name)
	}
}

func TestExecuteStoresOrderPayload(t *testing.T) {
	submitter := &fakeSubmitter{result: &venue.OrderResult{
		Raw:   json.RawMessage(`{"fills":[{"symbol":"BTC"}]}`),
		Fills: []venue.Fill{{Symbol: "BTC"}},
	}}
	exec, store, _ := newExecutorEnv(submitter)

	_, err := exec.Execute(context.Background(), testAccount(), longOnly(50, 4, "BTC"))
	require.NoError(t, err)
	require.Len(t, store.created, 1)

	var payload venue.OrderPayload
	require.NoError(t, json.Unmarshal(store.created[0].OrderPayload, &payload))
	assert.Equal(t, 4.0, payload.Leverage)
	assert.Equal(t, 200.0, payload.USDValue)
	assert.Equal(t, "market", payload.ExecutionType)
}
