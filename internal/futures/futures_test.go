package futures

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/execcore/internal/killswitch"
	"github.com/sawpanic/execcore/internal/model"
)

var clear = killswitch.Result{Outcome: killswitch.OutcomePass}

func TestEvaluateCanary_LeverageRejectScenario(t *testing.T) {
	intent := NewIntentContext("BTCUSDT", model.SideLong, 10, model.MarginIsolated, model.PositionOneWay, true, 500000, 50000, 45000, 0, "hash", model.ModeCanary, 0)

	result := EvaluateCanary(intent, clear, time.Unix(0, 0))

	assert.Equal(t, StageRejected, result.Outcome)
	assert.Equal(t, model.ReasonLeverageExceeded, result.ReasonCode)
}

func TestEvaluateCanary_LiquidationTooCloseScenario(t *testing.T) {
	intent := NewIntentContext("BTCUSDT", model.SideLong, 2, model.MarginIsolated, model.PositionOneWay, true, 100000, 50000, 51000, 0, "hash", model.ModeCanary, 0)

	result := EvaluateCanary(intent, clear, time.Unix(0, 0))

	assert.Equal(t, StageRejected, result.Outcome)
	assert.Equal(t, model.ReasonLiquidationTooClose, result.ReasonCode)
}

func TestEvaluateCanary_LiveUnreachability(t *testing.T) {
	intent := NewIntentContext("BTCUSDT", model.SideLong, 1, model.MarginIsolated, model.PositionOneWay, true, 100000, 50000, 60000, 0, "hash", model.ModeLive, 0)

	result := EvaluateCanary(intent, clear, time.Unix(0, 0))

	require.Equal(t, StageRejected, result.Outcome)
	assert.Equal(t, model.ReasonLiveModeBlocked, result.ReasonCode)
	assert.NotEqual(t, model.ModeLive, result.Mode)
}

func TestEvaluateCanary_KillSwitchPrecedence(t *testing.T) {
	active := killswitch.Result{Outcome: killswitch.OutcomeFail, Reason: killswitch.ReasonGlobalKill, Detail: "incident"}
	// Otherwise a perfectly valid intent.
	intent := NewIntentContext("BTCUSDT", model.SideLong, 1, model.MarginIsolated, model.PositionOneWay, true, 100000, 50000, 60000, 0, "hash", model.ModeCanary, 0)

	result := EvaluateCanary(intent, active, time.Unix(0, 0))

	assert.Equal(t, StageRejected, result.Outcome)
	assert.Equal(t, model.ReasonGlobalKillActive, result.ReasonCode)
}

func TestEvaluateCanary_ReduceOnlyInvariant(t *testing.T) {
	intent := NewIntentContext("BTCUSDT", model.SideLong, 1, model.MarginIsolated, model.PositionOneWay, false, 100000, 50000, 60000, 0, "hash", model.ModeCanary, 0)

	result := EvaluateCanary(intent, clear, time.Unix(0, 0))
	assert.Equal(t, model.ReasonNotReduceOnly, result.ReasonCode)

	adapterGateResult := EvaluateAdapterGate(intent, time.Unix(0, 0))
	assert.Equal(t, model.ReasonNotReduceOnly, adapterGateResult.ReasonCode)
}

func TestIntentID_Idempotent(t *testing.T) {
	a := NewIntentContext("BTCUSDT", model.SideLong, 2, model.MarginIsolated, model.PositionOneWay, true, 100000, 50000, 60000, 0, "hash", model.ModeCanary, 1000)
	b := NewIntentContext("BTCUSDT", model.SideLong, 2, model.MarginIsolated, model.PositionOneWay, true, 999999, 50000, 12345, 0.5, "otherhash", model.ModeShadow, 1000)
	assert.Equal(t, a.IntentID, b.IntentID)

	c := NewIntentContext("ETHUSDT", model.SideLong, 2, model.MarginIsolated, model.PositionOneWay, true, 100000, 50000, 60000, 0, "hash", model.ModeCanary, 1000)
	assert.NotEqual(t, a.IntentID, c.IntentID)
}

func TestSizing_InvariantsHold(t *testing.T) {
	in := SizingInputs{
		EquityUsd:             100000,
		MaxRiskPct:            0.02,
		LeverageCap:           3,
		EntryPrice:            50000,
		StopPrice:             48000,
		MaintenanceMarginRate: 0.005,
		Side:                  model.SideLong,
	}

	result := ComputeSizing(in)

	assert.LessOrEqual(t, result.WorstCaseLossUsd, in.EquityUsd*in.MaxRiskPct*1.01)
	assert.LessOrEqual(t, result.EffectiveLeverage, in.LeverageCap*1.0001)
	assert.Less(t, result.EstimatedLiquidationPrice, in.StopPrice)
}

func TestSizing_ShortInvariantsHold(t *testing.T) {
	in := SizingInputs{
		EquityUsd:             100000,
		MaxRiskPct:            0.02,
		LeverageCap:           3,
		EntryPrice:            50000,
		StopPrice:             52000,
		MaintenanceMarginRate: 0.005,
		Side:                  model.SideShort,
	}

	result := ComputeSizing(in)

	assert.Greater(t, result.EstimatedLiquidationPrice, in.StopPrice)
}

func TestEvaluateRisk_RejectsLeverageBreach(t *testing.T) {
	sizing := SizingResult{EffectiveLeverage: 5, WorstCaseLossUsd: 100, EstimatedLiquidationPrice: 40000}
	in := RiskInputs{Side: model.SideLong, Sizing: sizing, LeverageCap: 3, MaxRiskPct: 0.02, EquityUsd: 100000, StopPrice: 48000, EntryPrice: 50000}

	intent := IntentContext{Mode: model.ModeCanary, PolicySnapshotHash: "h"}
	result := EvaluateRisk(intent, in, time.Unix(0, 0))

	assert.Equal(t, StageRejected, result.Outcome)
	assert.Equal(t, model.ReasonLeverageExceeded, result.ReasonCode)
}

func TestEvaluateFunding_BudgetBreach(t *testing.T) {
	in := FundingInputs{
		Side:                model.SideLong,
		NotionalUsd:         100000,
		FundingRateSnapshot: 0.00001,
		ExpectedHoldHours:   24,
		FundingBudgetPct:    0.000001,
		EquityUsd:           100000,
	}
	intent := IntentContext{Mode: model.ModeCanary, PolicySnapshotHash: "h"}

	result := EvaluateFunding(intent, in, time.Unix(0, 0))

	require.Equal(t, 3, result.FundingPeriods)
	assert.Equal(t, FundingPay, result.Direction)
	assert.Equal(t, StageRejected, result.Outcome)
	assert.Equal(t, model.ReasonBudgetExceeded, result.ReasonCode)
}

func TestEvaluateFunding_ToxicRateRejectsRegardlessOfBudget(t *testing.T) {
	in := FundingInputs{
		Side:                model.SideShort,
		NotionalUsd:         100000,
		FundingRateSnapshot: 0.01,
		ExpectedHoldHours:   8,
		FundingBudgetPct:    1.0,
		EquityUsd:           100000,
	}
	intent := IntentContext{Mode: model.ModeCanary, PolicySnapshotHash: "h"}

	result := EvaluateFunding(intent, in, time.Unix(0, 0))

	assert.Equal(t, StageRejected, result.Outcome)
	assert.Equal(t, model.ReasonToxicFundingRate, result.ReasonCode)
}

func TestEvaluateFunding_ReceiveAlwaysPassesBudget(t *testing.T) {
	in := FundingInputs{
		Side:                model.SideLong,
		NotionalUsd:         100000,
		FundingRateSnapshot: -0.0005,
		ExpectedHoldHours:   16,
		FundingBudgetPct:    0,
		EquityUsd:           100000,
	}
	intent := IntentContext{Mode: model.ModeCanary, PolicySnapshotHash: "h"}

	result := EvaluateFunding(intent, in, time.Unix(0, 0))

	assert.Equal(t, FundingReceive, result.Direction)
	assert.Equal(t, StagePassed, result.Outcome)
}

func TestMapToExchangePayload_PanicsOnLive(t *testing.T) {
	assert.Panics(t, func() {
		MapToExchangePayload(OrderIntent{Mode: model.ModeLive})
	})
}

func TestMapToExchangePayload_OmitsPriceForMarketOrders(t *testing.T) {
	payload := MapToExchangePayload(OrderIntent{
		Symbol:        "BTCUSDT",
		Side:          model.SideLong,
		PositionSide:  model.PositionOneWay,
		Quantity:      1.5,
		Type:          OrderTypeMarket,
		TimeInForce:   TimeInForceGTC,
		ClientOrderID: "cid-1",
		Mode:          model.ModeCanary,
	})

	assert.Equal(t, "", payload.Price)
	assert.Equal(t, "true", payload.ReduceOnly)
	assert.Equal(t, "cid-1", payload.NewClientOrderID)
}

func TestDeterminism_SameInputSameResult(t *testing.T) {
	intent := NewIntentContext("BTCUSDT", model.SideLong, 2, model.MarginIsolated, model.PositionOneWay, true, 100000, 50000, 60000, 0, "hash", model.ModeCanary, 1000)
	now := time.Unix(0, 0)

	a := EvaluateCanary(intent, clear, now)
	b := EvaluateCanary(intent, clear, now)
	assert.Equal(t, a, b)
}
