// Package signalgate implements the pre-decision noise filter (C2): a
// strategy-runtime gate that blocks a candidate signal before it ever
// becomes a Decision. It runs a fixed-order rule chain (regime, strength,
// cooldown, spread) and keeps a running pass/block histogram.
package signalgate

import (
	"sync"

	"github.com/sawpanic/execcore/internal/model"
)

// Trend is the regime trend direction, numeric per spec.md so thresholds
// compare directly against it.
type Trend int

const (
	TrendDowntrend Trend = -1
	TrendSideways  Trend = 0
	TrendUptrend   Trend = 1
)

// Regime describes the market regime a candidate signal is evaluated in.
type Regime struct {
	Trend           Trend
	VolatilityScore float64
	SpreadScore     float64
}

// Features carries the spread/price facts used by the spread-penalty rule.
type Features struct {
	Spread   float64
	MidPrice float64
}

// Config is the fixed set of thresholds the gate evaluates against. Every
// recognized option is a named field.
type Config struct {
	TrendMin            Trend
	VolatilityMin       float64
	SpreadMax           float64
	MinSignalScore      float64
	CooldownMs          int64
	MaxSpreadNormalized float64
}

// Decision is the gate's binary outcome.
type Decision string

const (
	DecisionAllow Decision = "ALLOW"
	DecisionBlock Decision = "BLOCK"
)

// Result is the frozen outcome of one Evaluate call.
type Result struct {
	Decision Decision
	Reason   model.ReasonCode // empty on allow
	Message  string
}

func (r Result) Allowed() bool { return r.Decision == DecisionAllow }

// Stats is a read-only snapshot of the gate's running counters.
type Stats struct {
	Passed  int64
	Blocked int64
	// ReasonHistogram counts blocks per reason code. Copied on Snapshot so
	// callers never see the live map.
	ReasonHistogram map[model.ReasonCode]int64
}

// Gate is the single-writer signal evaluator. The strategy runtime loop is
// the only caller of Evaluate; Snapshot may be read from any goroutine.
type Gate struct {
	cfg Config

	mu              sync.RWMutex
	passed          int64
	blocked         int64
	reasonHistogram map[model.ReasonCode]int64
}

// New builds a Gate from a fixed Config.
func New(cfg Config) *Gate {
	return &Gate{
		cfg:             cfg,
		reasonHistogram: make(map[model.ReasonCode]int64),
	}
}

// Evaluate runs the fixed rule chain A-D in order and records the outcome in
// the running statistics before returning. lastTradeTime is a pointer so nil
// can mean "no prior trade" (cooldown always passes).
func (g *Gate) Evaluate(signalScore float64, features Features, regime Regime, lastTradeTime *int64, now int64) Result {
	result := g.evaluateRules(signalScore, features, regime, lastTradeTime, now)

	g.mu.Lock()
	if result.Allowed() {
		g.passed++
	} else {
		g.blocked++
		g.reasonHistogram[result.Reason]++
	}
	g.mu.Unlock()

	return result
}

func (g *Gate) evaluateRules(signalScore float64, features Features, regime Regime, lastTradeTime *int64, now int64) Result {
	// (A) Regime: trend, volatility, spread bucket thresholds.
	if regime.Trend < g.cfg.TrendMin {
		return Result{Decision: DecisionBlock, Reason: model.ReasonRegimeTrend, Message: "regime trend below minimum"}
	}
	if regime.VolatilityScore < g.cfg.VolatilityMin {
		return Result{Decision: DecisionBlock, Reason: model.ReasonRegimeVolatility, Message: "regime volatility below minimum"}
	}
	if regime.SpreadScore > g.cfg.SpreadMax {
		return Result{Decision: DecisionBlock, Reason: model.ReasonRegimeSpread, Message: "regime spread above maximum"}
	}

	// (B) Signal strength.
	if signalScore < g.cfg.MinSignalScore {
		return Result{Decision: DecisionBlock, Reason: model.ReasonSignalStrength, Message: "signal score below minimum"}
	}

	// (C) Cooldown. nil last trade time always passes.
	if lastTradeTime != nil {
		if now-*lastTradeTime < g.cfg.CooldownMs {
			return Result{Decision: DecisionBlock, Reason: model.ReasonCooldown, Message: "cooldown active"}
		}
	}

	// (D) Spread penalty. mid_price=0 yields normalized=0, which always passes.
	normalized := 0.0
	if features.MidPrice != 0 {
		normalized = features.Spread / features.MidPrice
	}
	if normalized > g.cfg.MaxSpreadNormalized {
		return Result{Decision: DecisionBlock, Reason: model.ReasonSpreadPenalty, Message: "spread penalty exceeded"}
	}

	return Result{Decision: DecisionAllow}
}

// Snapshot copies the running counters, including the histogram map, so
// callers cannot mutate gate-owned state.
func (g *Gate) Snapshot() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	histogram := make(map[model.ReasonCode]int64, len(g.reasonHistogram))
	for k, v := range g.reasonHistogram {
		histogram[k] = v
	}

	return Stats{
		Passed:          g.passed,
		Blocked:         g.blocked,
		ReasonHistogram: histogram,
	}
}

// SymbolTracker wraps a Gate with the per-symbol last-trade-time state
// Evaluate's cooldown rule needs, so a caller evaluating many symbols
// through one Gate doesn't have to track timestamps itself.
type SymbolTracker struct {
	gate *Gate

	mu                sync.Mutex
	lastTradeBySymbol map[string]int64
}

// NewSymbolTracker wraps gate with per-symbol cooldown tracking.
func NewSymbolTracker(gate *Gate) *SymbolTracker {
	return &SymbolTracker{gate: gate, lastTradeBySymbol: make(map[string]int64)}
}

// Evaluate looks up symbol's last trade time, runs the gate, and — if
// allowed — stamps now as the new last trade time for symbol.
func (t *SymbolTracker) Evaluate(symbol string, signalScore float64, features Features, regime Regime, now int64) Result {
	t.mu.Lock()
	last, ok := t.lastTradeBySymbol[symbol]
	t.mu.Unlock()

	var lastPtr *int64
	if ok {
		lastPtr = &last
	}

	result := t.gate.Evaluate(signalScore, features, regime, lastPtr, now)

	if result.Allowed() {
		t.mu.Lock()
		t.lastTradeBySymbol[symbol] = now
		t.mu.Unlock()
	}

	return result
}
