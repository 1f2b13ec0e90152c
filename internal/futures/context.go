// Package futures implements the futures safety chain (C4): a fixed
// pipeline of pure stages over a FuturesIntentContext — canary gate,
// sizing, risk gate, funding gate, and adapter mapping. Every stage returns
// a frozen result and may short-circuit the chain; none of them mutate the
// context they receive.
package futures

import (
	"github.com/sawpanic/execcore/internal/model"
)

const (
	// CanaryMaxLeverage is the hard leverage ceiling enforced in CANARY mode.
	CanaryMaxLeverage = 3
	// CanaryWorstCaseMovePct is the minimum fractional distance the
	// estimated liquidation price must keep from the entry price.
	CanaryWorstCaseMovePct = 0.05
)

// IntentContext is the frozen input to the safety chain. The constructor
// deterministically derives IntentID from the fields the spec names;
// nothing else may influence it, so the id is stable across re-construction
// with the same five fields regardless of any other context field.
type IntentContext struct {
	Symbol                    string
	Side                      model.Side
	Leverage                  float64
	MarginMode                model.MarginMode
	PositionSide              model.PositionSide
	ReduceOnly                bool
	NotionalUsd               float64
	EntryPrice                float64
	EstimatedLiquidationPrice float64
	FundingRateSnapshot       float64
	PolicySnapshotHash        string
	Mode                      model.Mode
	CreatedAt                 int64
	IntentID                  string
}

// NewIntentContext builds a frozen IntentContext, deriving IntentID from
// (symbol, side, leverage, entry_price, created_at) only.
func NewIntentContext(
	symbol string,
	side model.Side,
	leverage float64,
	marginMode model.MarginMode,
	positionSide model.PositionSide,
	reduceOnly bool,
	notionalUsd float64,
	entryPrice float64,
	estimatedLiquidationPrice float64,
	fundingRateSnapshot float64,
	policySnapshotHash string,
	mode model.Mode,
	createdAt int64,
) IntentContext {
	id := model.ContentHash16(
		symbol,
		string(side),
		model.FormatFloat(leverage),
		model.FormatFloat(entryPrice),
		model.FormatFloat(float64(createdAt)),
	)

	return IntentContext{
		Symbol:                    symbol,
		Side:                      side,
		Leverage:                  leverage,
		MarginMode:                marginMode,
		PositionSide:              positionSide,
		ReduceOnly:                reduceOnly,
		NotionalUsd:               notionalUsd,
		EntryPrice:                entryPrice,
		EstimatedLiquidationPrice: estimatedLiquidationPrice,
		FundingRateSnapshot:       fundingRateSnapshot,
		PolicySnapshotHash:        policySnapshotHash,
		Mode:                      mode,
		CreatedAt:                 createdAt,
		IntentID:                  id,
	}
}

// StageOutcome is the closed-set pass/fail result shared by every stage in
// the chain.
type StageOutcome string

const (
	StagePassed   StageOutcome = "PASSED"
	StageRejected StageOutcome = "REJECTED"
)

// clampMode coerces LIVE to SHADOW on any result surfaced out of the chain.
// The canary and adapter gates also reject LIVE outright; the clamp keeps
// LIVE out of every stage result, including the risk and funding stages,
// which do not reject it.
func clampMode(mode model.Mode) model.Mode {
	if mode == model.ModeLive {
		return model.ModeShadow
	}
	return mode
}
