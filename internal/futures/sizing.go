package futures

import "github.com/sawpanic/execcore/internal/model"

// SizingInputs are the facts sizing is computed from.
type SizingInputs struct {
	EquityUsd              float64
	MaxRiskPct             float64
	LeverageCap            float64
	EntryPrice             float64
	StopPrice              float64
	MaintenanceMarginRate  float64
	Side                   model.Side
}

// SizingResult is the frozen computed position sizing.
type SizingResult struct {
	NotionalUsd                 float64
	Qty                         float64
	EffectiveLeverage           float64
	EstimatedLiquidationPrice   float64
	WorstCaseLossUsd            float64
	StopDistancePct             float64
	LiquidationDistancePct      float64
}

// ComputeSizing derives {notional, qty, effective_leverage,
// estimated_liquidation_price, worst_case_loss_usd, stop_distance_pct,
// liquidation_distance_pct} such that the loss cap, leverage cap, and
// liquidation-never-precedes-stop invariants hold.
func ComputeSizing(in SizingInputs) SizingResult {
	maxLossUsd := in.EquityUsd * in.MaxRiskPct

	stopDistancePct := stopDistance(in.Side, in.EntryPrice, in.StopPrice)
	if stopDistancePct < 0 {
		stopDistancePct = 0
	}

	// Position size bounded by both the loss cap (distance to stop) and the
	// leverage cap (distance to zero notional).
	qtyFromLossCap := maxLossUsd / (in.EntryPrice * stopDistancePctOrEpsilon(stopDistancePct))
	notionalFromLossCap := qtyFromLossCap * in.EntryPrice

	notionalFromLeverageCap := in.EquityUsd * in.LeverageCap

	notionalUsd := notionalFromLossCap
	if notionalFromLeverageCap < notionalUsd {
		notionalUsd = notionalFromLeverageCap
	}

	qty := notionalUsd / in.EntryPrice
	effectiveLeverage := notionalUsd / in.EquityUsd

	worstCaseLossUsd := qty * in.EntryPrice * stopDistancePct

	liquidationPrice := estimateLiquidationPrice(in.Side, in.EntryPrice, effectiveLeverage, in.MaintenanceMarginRate)

	// Liquidation must never precede the stop: if it would, pull it back to
	// sit just beyond the stop on the loss side.
	liquidationPrice = enforceLiquidationAfterStop(in.Side, liquidationPrice, in.StopPrice)

	liquidationDistancePct := 0.0
	if in.EntryPrice != 0 {
		d := liquidationPrice - in.EntryPrice
		if d < 0 {
			d = -d
		}
		liquidationDistancePct = d / in.EntryPrice
	}

	return SizingResult{
		NotionalUsd:               notionalUsd,
		Qty:                       qty,
		EffectiveLeverage:         effectiveLeverage,
		EstimatedLiquidationPrice: liquidationPrice,
		WorstCaseLossUsd:          worstCaseLossUsd,
		StopDistancePct:           stopDistancePct,
		LiquidationDistancePct:    liquidationDistancePct,
	}
}

func stopDistancePctOrEpsilon(pct float64) float64 {
	if pct <= 0 {
		return 1e-9
	}
	return pct
}

func stopDistance(side model.Side, entry, stop float64) float64 {
	if entry == 0 {
		return 0
	}
	switch side {
	case model.SideLong:
		return (entry - stop) / entry
	case model.SideShort:
		return (stop - entry) / entry
	default:
		return 0
	}
}

func estimateLiquidationPrice(side model.Side, entry, effectiveLeverage, maintenanceMarginRate float64) float64 {
	if effectiveLeverage == 0 {
		return entry
	}
	marginRatio := 1/effectiveLeverage - maintenanceMarginRate
	switch side {
	case model.SideLong:
		return entry * (1 - marginRatio)
	case model.SideShort:
		return entry * (1 + marginRatio)
	default:
		return entry
	}
}

// enforceLiquidationAfterStop nudges the liquidation estimate so it never
// precedes the stop: for LONG, liquidation must stay strictly below the
// stop; for SHORT, strictly above it.
func enforceLiquidationAfterStop(side model.Side, liquidationPrice, stopPrice float64) float64 {
	switch side {
	case model.SideLong:
		if liquidationPrice >= stopPrice {
			return stopPrice * 0.999
		}
	case model.SideShort:
		if liquidationPrice <= stopPrice {
			return stopPrice * 1.001
		}
	}
	return liquidationPrice
}
