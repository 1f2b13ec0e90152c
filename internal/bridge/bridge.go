package bridge

import (
	"context"
	"time"

	"github.com/sawpanic/execcore/internal/events"
	"github.com/sawpanic/execcore/internal/killswitch"
	"github.com/sawpanic/execcore/internal/lifecycle"
	"github.com/sawpanic/execcore/internal/metrics"
	"github.com/sawpanic/execcore/internal/model"
	"github.com/sawpanic/execcore/internal/slippage"
)

// PaperExecutionResult is the strategy's paper fill stream input to the
// bridge's execute step.
type PaperExecutionResult struct {
	BridgeID     string
	Symbol       string
	Side         model.Side
	Qty          float64
	IntentPrice  float64
	ClientOrderID string
	TimeInForce  string
	OrderType    string
}

// Status is the closed-set bridge outcome.
type Status string

const (
	StatusGated     Status = "GATED"
	StatusShadow    Status = "SHADOW"
	StatusSubmitted Status = "SUBMITTED"
	StatusFilled    Status = "FILLED"
	StatusRejected  Status = "REJECTED"
	StatusFailed    Status = "FAILED"
	StatusKilled    Status = "KILLED"
)

// Result is the frozen outcome of one Execute call.
type Result struct {
	BridgeID string
	Status   Status
	Detail   string
}

// Bridge is the gate-to-live orchestrator (C5). It owns no component's
// state directly; Limits, Lifecycle, and Slippage are each single-writer
// owned by their own package and only ever touched from here.
type Bridge struct {
	cfg      Config
	limits   *LimitsState
	kill     *killswitch.Switch
	lifecycle *lifecycle.Manager
	slippage  *slippage.Analyzer
	adapter   ExchangeAdapter
	audit     *events.AuditSpool
	metrics   *metrics.Registry
}

// New builds a Bridge wiring together the kill switch, lifecycle manager,
// slippage analyzer, adapter, and audit spool it orchestrates. metricsReg
// may be nil, in which case the bridge simply skips Prometheus reporting.
func New(cfg Config, kill *killswitch.Switch, lifecycleMgr *lifecycle.Manager, slippageAnalyzer *slippage.Analyzer, adapter ExchangeAdapter, audit *events.AuditSpool, metricsReg *metrics.Registry) *Bridge {
	return &Bridge{
		cfg:       cfg,
		limits:    NewLimitsState(time.Now()),
		kill:      kill,
		lifecycle: lifecycleMgr,
		slippage:  slippageAnalyzer,
		adapter:   adapter,
		audit:     audit,
		metrics:   metricsReg,
	}
}

// gateToLive is the pure pre-submission check: symbol allowed, per-order
// notional cap not exceeded, daily caps not breached. There is no separate
// bridge-enabled flag; Config has none. It mutates nothing.
func (b *Bridge) gateToLive(symbol string, notionalUsd float64) (bool, model.ReasonCode) {
	if !b.cfg.AllowedSymbols[symbol] {
		return false, model.ReasonOpsBlacklisted
	}
	if notionalUsd > b.cfg.MaxNotionalPerOrder {
		return false, model.ReasonPolicyRejected
	}
	if b.limits.WouldExceed(notionalUsd, b.cfg.MaxOrdersPerDay, b.cfg.MaxNotionalPerDay) {
		return false, model.ReasonPolicyRejected
	}
	return true, model.ReasonNone
}

// Execute runs the strict step order documented in spec.md §4.5: daily
// reset, kill switch, gate-to-live, lifecycle create, mode branch
// (SHADOW vs CANARY/PROD), limits update, slippage accounting.
func (b *Bridge) Execute(ctx context.Context, paper PaperExecutionResult, now time.Time) Result {
	// 1. Daily reset.
	b.limits.MaybeReset(now)

	// 2. Kill switch.
	killResult := b.kill.Evaluate(paper.Symbol)
	if !killResult.Passed() {
		b.audit.Write(events.AuditRecord{
			Actor: "bridge", Action: string(StatusKilled), TargetType: "bridge_id", TargetID: paper.BridgeID,
			Metadata: map[string]interface{}{"symbol": paper.Symbol, "reason": string(killResult.Reason)},
		}, now)
		return Result{BridgeID: paper.BridgeID, Status: StatusKilled, Detail: string(killResult.Reason)}
	}

	notionalUsd := paper.Qty * paper.IntentPrice

	// 3. Gate-to-live.
	if ok, reason := b.gateToLive(paper.Symbol, notionalUsd); !ok {
		b.audit.Write(events.AuditRecord{
			Actor: "bridge", Action: string(StatusGated), TargetType: "bridge_id", TargetID: paper.BridgeID,
			Metadata: map[string]interface{}{"symbol": paper.Symbol, "reason": string(reason)},
		}, now)
		return Result{BridgeID: paper.BridgeID, Status: StatusGated, Detail: string(reason)}
	}

	// 4. Lifecycle create -> GATE_PASSED.
	b.lifecycle.CreateFromIntent(paper.BridgeID, paper.Symbol, paper.Side, paper.Qty, now.UnixMilli())
	if _, err := b.lifecycle.Transition(paper.BridgeID, lifecycle.StateGatePassed, now.UnixMilli(), nil); err != nil {
		return b.fail(paper.BridgeID, now, err.Error())
	}

	// 5. SHADOW mode: audit and return without submitting.
	if b.cfg.Mode == model.ModeShadow {
		b.audit.Write(events.AuditRecord{
			Actor: "bridge", Action: string(StatusShadow), TargetType: "bridge_id", TargetID: paper.BridgeID,
			Metadata: map[string]interface{}{"symbol": paper.Symbol},
		}, now)
		return Result{BridgeID: paper.BridgeID, Status: StatusShadow}
	}

	// 6. CANARY/PROD path.
	return b.submit(ctx, paper, now)
}

func (b *Bridge) submit(ctx context.Context, paper PaperExecutionResult, now time.Time) Result {
	if _, err := b.lifecycle.Transition(paper.BridgeID, lifecycle.StateSubmitting, now.UnixMilli(), nil); err != nil {
		return b.fail(paper.BridgeID, now, err.Error())
	}

	response, err := b.adapter.SubmitOrder(ctx, SubmitRequest{
		ClientOrderID: paper.ClientOrderID,
		Symbol:        paper.Symbol,
		Side:          string(paper.Side),
		OrderType:     paper.OrderType,
		Quantity:      paper.Qty,
		TimeInForce:   paper.TimeInForce,
		ReduceOnly:    b.cfg.ReduceOnly,
	})
	if err != nil {
		return b.fail(paper.BridgeID, now, err.Error())
	}

	if _, err := b.lifecycle.Transition(paper.BridgeID, lifecycle.StateSubmitted, now.UnixMilli(), func(e *lifecycle.Entry) {
		e.ExchangeOrderID = response.ExchangeOrderID
	}); err != nil {
		return b.fail(paper.BridgeID, now, err.Error())
	}

	status := StatusSubmitted

	// 7. Update limits: orders_today += 1, notional_today += filled·avg.
	// Runs for every submitted order, including resting/unfilled ones, so
	// orders_today counts the submission itself rather than its eventual fill.
	b.limits.Record(response.FilledQty * response.AvgFillPrice)
	if b.metrics != nil {
		snap := b.limits.Snapshot()
		b.metrics.BridgeOrdersToday.Set(float64(snap.CurrentOrderCount))
		b.metrics.BridgeNotionalToday.Set(snap.CurrentNotionalUsd)
	}

	if response.FilledQty > 0 {
		entry, err := b.lifecycle.AddFill(paper.BridgeID, lifecycle.Fill{
			Qty: response.FilledQty, Price: response.AvgFillPrice, Timestamp: now.UnixMilli(),
		}, now.UnixMilli())
		if err != nil {
			return b.fail(paper.BridgeID, now, err.Error())
		}

		// 8. Slippage.
		if paper.IntentPrice > 0 {
			side := slippage.SideBuy
			if paper.Side == model.SideShort {
				side = slippage.SideSell
			}
			record, _ := b.slippage.Record(paper.BridgeID, paper.Symbol, side, paper.IntentPrice, response.AvgFillPrice, response.FilledQty, now.UnixMilli())
			if b.metrics != nil {
				b.metrics.SlippageBps.WithLabelValues(paper.Symbol).Observe(record.SlippageBps)
			}
		}

		if entry.State == lifecycle.StateFilled {
			status = StatusFilled
		}
	}

	b.audit.Write(events.AuditRecord{
		Actor: "bridge", Action: string(status), TargetType: "bridge_id", TargetID: paper.BridgeID,
		Metadata: map[string]interface{}{"symbol": paper.Symbol, "exchange_order_id": response.ExchangeOrderID},
	}, now)

	return Result{BridgeID: paper.BridgeID, Status: status}
}

func (b *Bridge) fail(bridgeID string, now time.Time, errMsg string) Result {
	b.lifecycle.Transition(bridgeID, lifecycle.StateFailed, now.UnixMilli(), func(e *lifecycle.Entry) {
		e.Error = errMsg
	})
	b.audit.Write(events.AuditRecord{
		Actor: "bridge", Action: string(StatusFailed), TargetType: "bridge_id", TargetID: bridgeID,
		Metadata: map[string]interface{}{"error": errMsg},
	}, now)
	return Result{BridgeID: bridgeID, Status: StatusFailed, Detail: errMsg}
}

// LimitsSnapshot exposes a read-only view of the bridge's daily limits.
func (b *Bridge) LimitsSnapshot() Snapshot {
	return b.limits.Snapshot()
}
