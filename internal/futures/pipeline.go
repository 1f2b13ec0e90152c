package futures

import (
	"time"

	"github.com/sawpanic/execcore/internal/events"
	"github.com/sawpanic/execcore/internal/killswitch"
	"github.com/sawpanic/execcore/internal/model"
)

// PipelineInputs bundles the facts the chain's non-canary stages need on top
// of the IntentContext itself. Canary only consumes the intent and the
// kill switch verdict; sizing/risk/funding need a few additional knobs the
// intent doesn't carry (equity, caps, stop price, hold duration).
type PipelineInputs struct {
	EquityUsd             float64
	MaxRiskPct            float64
	LeverageCap           float64
	StopPrice             float64
	MaintenanceMarginRate float64
	ExpectedHoldHours     float64
	FundingBudgetPct      float64
	OrderType             OrderType
	TimeInForce           TimeInForce
	ClientOrderAttempt    int
}

// PipelineResult is the frozen outcome of running the full safety chain for
// one intent: the stage that rejected (if any), the computed sizing, and the
// exchange payload if every stage passed.
type PipelineResult struct {
	RejectedAt string // "canary" | "risk" | "funding" | "adapter" | ""
	ReasonCode model.ReasonCode
	Sizing     SizingResult
	Risk       RiskResult
	Funding    FundingResult
	Adapter    AdapterResult
	Payload    ExchangePayload
	Events     []events.Event
}

// Passed reports whether the intent cleared every stage and Payload is
// populated.
func (r PipelineResult) Passed() bool { return r.RejectedAt == "" }

// RunPipeline evaluates canary, sizing, risk, funding, and the adapter gate
// for intent in order, short-circuiting at the first rejection and emitting
// one OPS event per gate actually evaluated (canary, risk, funding, adapter;
// the sizing stage emits none). kill is the caller's
// already-evaluated kill switch verdict for intent.Symbol.
func RunPipeline(intent IntentContext, in PipelineInputs, kill killswitch.Result, now time.Time) PipelineResult {
	result := PipelineResult{}

	canary := EvaluateCanary(intent, kill, now)
	result.Events = append(result.Events, events.Emit(
		events.TypeFuturesCanaryEvaluated, intent.IntentID, intent.Symbol,
		string(canary.Outcome), canary.ReasonCode, canary.EvaluatedAt, canary.PolicySnapshotHash, canary.Mode, nil,
	))
	if canary.Outcome != StagePassed {
		result.RejectedAt = "canary"
		result.ReasonCode = canary.ReasonCode
		return result
	}

	result.Sizing = ComputeSizing(SizingInputs{
		EquityUsd:             in.EquityUsd,
		MaxRiskPct:            in.MaxRiskPct,
		LeverageCap:           in.LeverageCap,
		EntryPrice:            intent.EntryPrice,
		StopPrice:             in.StopPrice,
		MaintenanceMarginRate: in.MaintenanceMarginRate,
		Side:                  intent.Side,
	})

	risk := EvaluateRisk(intent, RiskInputs{
		Side:        intent.Side,
		Sizing:      result.Sizing,
		LeverageCap: in.LeverageCap,
		MaxRiskPct:  in.MaxRiskPct,
		EquityUsd:   in.EquityUsd,
		StopPrice:   in.StopPrice,
		EntryPrice:  intent.EntryPrice,
	}, now)
	result.Risk = risk
	result.Events = append(result.Events, events.Emit(
		events.TypeFuturesRiskEvaluated, intent.IntentID, intent.Symbol,
		string(risk.Outcome), risk.ReasonCode, risk.EvaluatedAt, risk.PolicySnapshotHash, risk.Mode, nil,
	))
	if risk.Outcome != StagePassed {
		result.RejectedAt = "risk"
		result.ReasonCode = risk.ReasonCode
		return result
	}

	funding := EvaluateFunding(intent, FundingInputs{
		Side:                intent.Side,
		NotionalUsd:         result.Sizing.NotionalUsd,
		FundingRateSnapshot: intent.FundingRateSnapshot,
		ExpectedHoldHours:   in.ExpectedHoldHours,
		FundingBudgetPct:    in.FundingBudgetPct,
		EquityUsd:           in.EquityUsd,
	}, now)
	result.Funding = funding
	result.Events = append(result.Events, events.Emit(
		events.TypeFuturesFundingEvaluated, intent.IntentID, intent.Symbol,
		string(funding.Outcome), funding.ReasonCode, funding.EvaluatedAt, funding.PolicySnapshotHash, funding.Mode,
		map[string]string{"funding_periods": model.FormatFloat(float64(funding.FundingPeriods)), "direction": string(funding.Direction)},
	))
	if funding.Outcome != StagePassed {
		result.RejectedAt = "funding"
		result.ReasonCode = funding.ReasonCode
		return result
	}

	adapterGate := EvaluateAdapterGate(intent, now)
	result.Adapter = adapterGate
	result.Events = append(result.Events, events.Emit(
		events.TypeFuturesOrderIntentMapped, intent.IntentID, intent.Symbol,
		string(adapterGate.Outcome), adapterGate.ReasonCode, adapterGate.EvaluatedAt, adapterGate.PolicySnapshotHash, adapterGate.Mode, nil,
	))
	if adapterGate.Outcome != StagePassed {
		result.RejectedAt = "adapter"
		result.ReasonCode = adapterGate.ReasonCode
		return result
	}

	result.Payload = MapToExchangePayload(OrderIntent{
		Symbol:        intent.Symbol,
		Side:          intent.Side,
		PositionSide:  intent.PositionSide,
		Quantity:      result.Sizing.Qty,
		Price:         intent.EntryPrice,
		Type:          in.OrderType,
		TimeInForce:   in.TimeInForce,
		ReduceOnly:    intent.ReduceOnly,
		MarginMode:    intent.MarginMode,
		ClientOrderID: ClientOrderID(intent.IntentID, in.ClientOrderAttempt),
		Mode:          intent.Mode,
	})

	return result
}
