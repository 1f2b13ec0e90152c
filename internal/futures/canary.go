package futures

import (
	"time"

	"github.com/sawpanic/execcore/internal/killswitch"
	"github.com/sawpanic/execcore/internal/model"
)

// CanaryResult is the frozen outcome of the canary gate (C4a).
type CanaryResult struct {
	Outcome            StageOutcome
	ReasonCode         model.ReasonCode
	EvaluatedAt        int64
	PolicySnapshotHash string
	Mode               model.Mode
}

// EvaluateCanary runs rules R0-R6 in order, each short-circuiting. kill is
// the kill switch's verdict for this symbol, evaluated by the caller before
// entering the chain so the chain itself stays a pure function.
func EvaluateCanary(intent IntentContext, kill killswitch.Result, now time.Time) CanaryResult {
	base := CanaryResult{
		EvaluatedAt:        now.UnixMilli(),
		PolicySnapshotHash: intent.PolicySnapshotHash,
		Mode:               clampMode(intent.Mode),
	}

	// R0: kill switch has absolute precedence.
	if !kill.Passed() {
		base.Outcome = StageRejected
		if kill.Reason == killswitch.ReasonGlobalKill {
			base.ReasonCode = model.ReasonGlobalKillActive
		} else {
			base.ReasonCode = model.ReasonSymbolKillActive
		}
		return base
	}

	// R1: mode.
	if intent.Mode == model.ModeLive {
		base.Outcome = StageRejected
		base.ReasonCode = model.ReasonLiveModeBlocked
		return base
	}

	// R2: leverage.
	if intent.Leverage > CanaryMaxLeverage {
		base.Outcome = StageRejected
		base.ReasonCode = model.ReasonLeverageExceeded
		return base
	}

	// R3: margin mode.
	if intent.MarginMode != model.MarginIsolated {
		base.Outcome = StageRejected
		base.ReasonCode = model.ReasonNotIsolated
		return base
	}

	// R4: reduce-only.
	if !intent.ReduceOnly {
		base.Outcome = StageRejected
		base.ReasonCode = model.ReasonNotReduceOnly
		return base
	}

	// R5: position side.
	if intent.PositionSide != model.PositionOneWay {
		base.Outcome = StageRejected
		base.ReasonCode = model.ReasonNotOneWay
		return base
	}

	// R6: liquidation proximity.
	worstCaseWindow := intent.EntryPrice * CanaryWorstCaseMovePct
	distance := intent.EstimatedLiquidationPrice - intent.EntryPrice
	if distance < 0 {
		distance = -distance
	}
	if distance <= worstCaseWindow {
		base.Outcome = StageRejected
		base.ReasonCode = model.ReasonLiquidationTooClose
		return base
	}

	base.Outcome = StagePassed
	base.ReasonCode = model.ReasonPassed
	return base
}
