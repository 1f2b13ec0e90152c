package futures

import (
	"fmt"
	"time"

	"github.com/sawpanic/execcore/internal/model"
)

// OrderType is the exchange wire order type.
type OrderType string

const (
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeMarket OrderType = "MARKET"
)

// TimeInForce is the exchange wire time-in-force.
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceIOC TimeInForce = "IOC"
)

// OrderIntent is the pipeline-internal, pre-wire order request.
type OrderIntent struct {
	Symbol          string
	Side            model.Side
	PositionSide    model.PositionSide
	Quantity        float64
	Price           float64
	Type            OrderType
	TimeInForce     TimeInForce
	ReduceOnly      bool
	MarginMode      model.MarginMode
	ClientOrderID   string
	Mode            model.Mode
}

// ExchangePayload is the wire-shaped mapped order. No field beyond these may
// leak to the adapter client.
type ExchangePayload struct {
	Symbol           string
	Side             string
	PositionSide     string
	Quantity         string
	Price            string // only set for LIMIT
	Type             string
	TimeInForce      string
	ReduceOnly       string
	NewClientOrderID string
}

// AdapterResult is the frozen outcome of the adapter mapping gate (C4e).
type AdapterResult struct {
	Outcome            StageOutcome
	ReasonCode         model.ReasonCode
	EvaluatedAt        int64
	PolicySnapshotHash string
	Mode               model.Mode
}

// EvaluateAdapterGate runs the adapter-mapping rejection rules: LIVE mode,
// reduce-only, margin mode. This is the gate; MapToExchangePayload is the
// mapping function itself and carries its own redundant structural guard.
func EvaluateAdapterGate(intent IntentContext, now time.Time) AdapterResult {
	base := AdapterResult{
		EvaluatedAt:        now.UnixMilli(),
		PolicySnapshotHash: intent.PolicySnapshotHash,
		Mode:               clampMode(intent.Mode),
	}

	if intent.Mode == model.ModeLive {
		base.Outcome = StageRejected
		base.ReasonCode = model.ReasonLiveModeBlocked
		return base
	}
	if !intent.ReduceOnly {
		base.Outcome = StageRejected
		base.ReasonCode = model.ReasonNotReduceOnly
		return base
	}
	if intent.MarginMode != model.MarginIsolated {
		base.Outcome = StageRejected
		base.ReasonCode = model.ReasonNotIsolated
		return base
	}

	base.Outcome = StagePassed
	base.ReasonCode = model.ReasonPassed
	return base
}

// MapToExchangePayload translates an OrderIntent to the exchange wire
// payload. It panics with a SAFETY_VIOLATION if ever invoked with
// mode=LIVE: the third and final independent layer guarding against LIVE
// ever reaching an adapter call, after the per-gate rejection (the canary
// gate and the adapter gate above) and the clamp in bridge.NewConfig.
func MapToExchangePayload(intent OrderIntent) ExchangePayload {
	if intent.Mode == model.ModeLive {
		panic("SAFETY_VIOLATION: MapToExchangePayload invoked with mode=LIVE")
	}

	payload := ExchangePayload{
		Symbol:           intent.Symbol,
		Side:             string(intent.Side),
		PositionSide:     string(intent.PositionSide),
		Quantity:         model.FormatFloat(intent.Quantity),
		Type:             string(intent.Type),
		TimeInForce:      string(intent.TimeInForce),
		ReduceOnly:       "true",
		NewClientOrderID: intent.ClientOrderID,
	}
	if intent.Type == OrderTypeLimit {
		payload.Price = model.FormatFloat(intent.Price)
	}
	return payload
}

// ClientOrderID derives a deterministic client order id from the intent id
// so repeated mapping of the same intent is idempotent at the exchange.
func ClientOrderID(intentID string, attempt int) string {
	return fmt.Sprintf("%s-%d", intentID, attempt)
}
