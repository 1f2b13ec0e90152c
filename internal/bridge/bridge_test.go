package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/execcore/internal/events"
	"github.com/sawpanic/execcore/internal/killswitch"
	"github.com/sawpanic/execcore/internal/lifecycle"
	"github.com/sawpanic/execcore/internal/model"
	"github.com/sawpanic/execcore/internal/slippage"
)

type stubAdapter struct {
	response SubmitResponse
	err      error
}

func (s stubAdapter) SubmitOrder(ctx context.Context, req SubmitRequest) (SubmitResponse, error) {
	return s.response, s.err
}
func (s stubAdapter) FetchPosition(ctx context.Context, symbol string) (float64, error) { return 0, nil }
func (s stubAdapter) Ping(ctx context.Context) error                                    { return nil }
func (s stubAdapter) ServerTime(ctx context.Context) (time.Time, error)                 { return time.Time{}, nil }

func newTestBridge(t *testing.T, mode model.Mode, adapter ExchangeAdapter) *Bridge {
	t.Helper()
	cfg := NewConfig(mode, "binance-futures", true, "BTCUSDT", 10, 1_000_000, 100_000, 60000, true)
	kill := killswitch.New(killswitch.Config{})
	spool := events.NewAuditSpool(t.TempDir(), nil)
	return New(cfg, kill, lifecycle.New(), slippage.New(100, 50), adapter, spool, nil)
}

func TestBridge_ShadowModeDoesNotSubmit(t *testing.T) {
	b := newTestBridge(t, model.ModeShadow, stubAdapter{})

	result := b.Execute(context.Background(), PaperExecutionResult{
		BridgeID: "b1", Symbol: "BTCUSDT", Side: model.SideLong, Qty: 1, IntentPrice: 50000,
	}, time.Now())

	assert.Equal(t, StatusShadow, result.Status)
	assert.EqualValues(t, 0, b.LimitsSnapshot().CurrentOrderCount)
}

func TestBridge_KillSwitchPrecedence(t *testing.T) {
	cfg := NewConfig(model.ModeCanary, "binance-futures", true, "BTCUSDT", 10, 1_000_000, 100_000, 60000, true)
	kill := killswitch.New(killswitch.Config{Global: true, Reason: "halt"})
	spool := events.NewAuditSpool(t.TempDir(), nil)
	b := New(cfg, kill, lifecycle.New(), slippage.New(100, 50), stubAdapter{}, spool, nil)

	result := b.Execute(context.Background(), PaperExecutionResult{
		BridgeID: "b1", Symbol: "BTCUSDT", Side: model.SideLong, Qty: 1, IntentPrice: 50000,
	}, time.Now())

	assert.Equal(t, StatusKilled, result.Status)
	assert.EqualValues(t, 0, b.LimitsSnapshot().CurrentOrderCount)
}

func TestBridge_GatedWhenSymbolNotAllowed(t *testing.T) {
	b := newTestBridge(t, model.ModeCanary, stubAdapter{})

	result := b.Execute(context.Background(), PaperExecutionResult{
		BridgeID: "b1", Symbol: "ETHUSDT", Side: model.SideLong, Qty: 1, IntentPrice: 50000,
	}, time.Now())

	assert.Equal(t, StatusGated, result.Status)
}

func TestBridge_CanaryFillUpdatesLimitsAndSlippage(t *testing.T) {
	b := newTestBridge(t, model.ModeCanary, stubAdapter{
		response: SubmitResponse{ExchangeOrderID: "ex1", FilledQty: 1, AvgFillPrice: 50100},
	})

	result := b.Execute(context.Background(), PaperExecutionResult{
		BridgeID: "b1", Symbol: "BTCUSDT", Side: model.SideLong, Qty: 1, IntentPrice: 50000,
	}, time.Now())

	require.Equal(t, StatusFilled, result.Status)

	snapshot := b.LimitsSnapshot()
	assert.EqualValues(t, 1, snapshot.CurrentOrderCount)
	assert.InDelta(t, 50100, snapshot.CurrentNotionalUsd, 0.01)

	stats, ok := b.slippage.Stats("BTCUSDT")
	require.True(t, ok)
	assert.EqualValues(t, 1, stats.Count)
}

func TestBridge_UnfilledOrderStillCountsTowardOrderLimit(t *testing.T) {
	b := newTestBridge(t, model.ModeCanary, stubAdapter{
		response: SubmitResponse{ExchangeOrderID: "ex1", FilledQty: 0, AvgFillPrice: 0},
	})

	result := b.Execute(context.Background(), PaperExecutionResult{
		BridgeID: "b1", Symbol: "BTCUSDT", Side: model.SideLong, Qty: 1, IntentPrice: 50000,
	}, time.Now())

	require.Equal(t, StatusSubmitted, result.Status)

	snapshot := b.LimitsSnapshot()
	assert.EqualValues(t, 1, snapshot.CurrentOrderCount)
	assert.InDelta(t, 0, snapshot.CurrentNotionalUsd, 0.01)
}

func TestBridge_LiveModeClampedToCanaryAtConstruction(t *testing.T) {
	cfg := NewConfig(model.ModeLive, "binance-futures", true, "BTCUSDT", 10, 1_000_000, 100_000, 60000, true)
	assert.Equal(t, model.ModeCanary, cfg.Mode)
}
