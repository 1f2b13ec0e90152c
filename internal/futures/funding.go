package futures

import (
	"math"
	"time"

	"github.com/sawpanic/execcore/internal/model"
)

// ToxicFundingRateCap is the hard per-8h rate ceiling regardless of budget.
const ToxicFundingRateCap = 0.001

// FundingDirection is whether the position pays or receives funding.
type FundingDirection string

const (
	FundingPay     FundingDirection = "PAY"
	FundingReceive FundingDirection = "RECEIVE"
)

// FundingInputs bundles the facts the funding gate evaluates.
type FundingInputs struct {
	Side                model.Side
	NotionalUsd         float64
	FundingRateSnapshot float64
	ExpectedHoldHours   float64
	FundingBudgetPct    float64
	EquityUsd           float64
}

// FundingResult is the frozen outcome of the funding gate (C4d), plus the
// computed cost fields an OPS event carries.
type FundingResult struct {
	Outcome            StageOutcome
	ReasonCode         model.ReasonCode
	EvaluatedAt        int64
	PolicySnapshotHash string
	Mode               model.Mode
	FundingPeriods      int
	Direction           FundingDirection
	FundingCostUsd      float64
	CostPctEquity       float64
}

// EvaluateFunding computes the funding cost over the expected hold and
// rejects with BUDGET_EXCEEDED (pay direction only, over budget) or
// TOXIC_FUNDING_RATE (raw rate over the hard cap, either direction).
func EvaluateFunding(intent IntentContext, in FundingInputs, now time.Time) FundingResult {
	base := FundingResult{
		EvaluatedAt:        now.UnixMilli(),
		PolicySnapshotHash: intent.PolicySnapshotHash,
		Mode:               clampMode(intent.Mode),
	}

	periods := 0
	if in.ExpectedHoldHours != 0 {
		periods = int(math.Ceil(in.ExpectedHoldHours / 8))
	}
	base.FundingPeriods = periods

	direction := fundingDirection(in.Side, in.FundingRateSnapshot)
	base.Direction = direction

	effectiveRate := math.Abs(in.FundingRateSnapshot)
	costUsd := in.NotionalUsd * effectiveRate * float64(periods)
	base.FundingCostUsd = costUsd

	costPctEquity := 0.0
	if in.EquityUsd != 0 {
		costPctEquity = costUsd / in.EquityUsd
	}
	base.CostPctEquity = costPctEquity

	if effectiveRate > ToxicFundingRateCap {
		base.Outcome = StageRejected
		base.ReasonCode = model.ReasonToxicFundingRate
		return base
	}

	if direction == FundingPay && costPctEquity > in.FundingBudgetPct {
		base.Outcome = StageRejected
		base.ReasonCode = model.ReasonBudgetExceeded
		return base
	}

	base.Outcome = StagePassed
	base.ReasonCode = model.ReasonPassed
	return base
}

// fundingDirection mirrors LONG/SHORT against the sign of the raw rate: a
// LONG pays when the rate is positive and receives when negative; SHORT is
// the mirror image.
func fundingDirection(side model.Side, rate float64) FundingDirection {
	positive := rate > 0
	switch side {
	case model.SideLong:
		if positive {
			return FundingPay
		}
		return FundingReceive
	case model.SideShort:
		if positive {
			return FundingReceive
		}
		return FundingPay
	default:
		return FundingReceive
	}
}
