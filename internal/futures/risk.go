package futures

import (
	"time"

	"github.com/sawpanic/execcore/internal/model"
)

// RiskInputs bundles the sizing output back in with the facts needed to
// re-check each invariant independently of how sizing arrived at them.
type RiskInputs struct {
	Side       model.Side
	Sizing     SizingResult
	LeverageCap float64
	MaxRiskPct  float64
	EquityUsd   float64
	StopPrice   float64
	EntryPrice  float64
}

// RiskResult is the frozen outcome of the risk gate (C4c).
type RiskResult struct {
	Outcome            StageOutcome
	ReasonCode         model.ReasonCode
	EvaluatedAt        int64
	PolicySnapshotHash string
	Mode               model.Mode
}

// EvaluateRisk rejects with a dedicated reason when leverage, loss cap,
// liquidation ordering, or stop direction are violated. Numeric slack of 1%
// absorbs floating-point rounding from the sizing stage.
func EvaluateRisk(intent IntentContext, in RiskInputs, now time.Time) RiskResult {
	base := RiskResult{
		EvaluatedAt:        now.UnixMilli(),
		PolicySnapshotHash: intent.PolicySnapshotHash,
		Mode:               clampMode(intent.Mode),
	}

	const slack = 1.01

	if in.Sizing.EffectiveLeverage > in.LeverageCap*slack {
		base.Outcome = StageRejected
		base.ReasonCode = model.ReasonLeverageExceeded
		return base
	}

	maxLossUsd := in.EquityUsd * in.MaxRiskPct
	if in.Sizing.WorstCaseLossUsd > maxLossUsd*slack {
		base.Outcome = StageRejected
		base.ReasonCode = model.ReasonLossExceedsLimit
		return base
	}

	switch in.Side {
	case model.SideLong:
		if in.StopPrice >= in.EntryPrice {
			base.Outcome = StageRejected
			base.ReasonCode = model.ReasonInvalidStopDirection
			return base
		}
		if in.Sizing.EstimatedLiquidationPrice >= in.StopPrice {
			base.Outcome = StageRejected
			base.ReasonCode = model.ReasonLiquidationBeforeStop
			return base
		}
	case model.SideShort:
		if in.StopPrice <= in.EntryPrice {
			base.Outcome = StageRejected
			base.ReasonCode = model.ReasonInvalidStopDirection
			return base
		}
		if in.Sizing.EstimatedLiquidationPrice <= in.StopPrice {
			base.Outcome = StageRejected
			base.ReasonCode = model.ReasonLiquidationBeforeStop
			return base
		}
	}

	base.Outcome = StagePassed
	base.ReasonCode = model.ReasonPassed
	return base
}
