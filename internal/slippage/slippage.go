// Package slippage implements the slippage analyzer (C7): per-fill
// slippage computation and symbol-weighted aggregation over a bounded ring
// buffer, grounded in the teacher's metrics collector's running-stats and
// decile style generalized from latency samples to slippage bps.
package slippage

import (
	"sync"
)

// DefaultRingSize is the default bounded ring capacity.
const DefaultRingSize = 1000

// AlertLevel is the closed set of slippage alert severities.
type AlertLevel string

const (
	AlertNone    AlertLevel = ""
	AlertWarning AlertLevel = "WARNING"
	AlertError   AlertLevel = "ERROR"
)

// Side is the BUY/SELL framing used by the §4.5 sign rule (model.Side uses
// LONG/SHORT/FLAT instead).
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Record is one fill's slippage observation.
type Record struct {
	BridgeID      string
	Symbol        string
	Side          Side
	ExpectedPrice float64
	ActualPrice   float64
	SlippageBps   float64
	Quantity      float64
	Notional      float64
	Timestamp     int64
}

// ComputeSlippageBps implements the §4.5 step 8 formula: signed basis
// points, positive meaning worse execution, sign convention BUY=+1,
// SELL=-1 applied to the raw relative deviation.
func ComputeSlippageBps(side Side, expectedPrice, actualPrice float64) float64 {
	if expectedPrice == 0 {
		return 0
	}
	sign := 1.0
	if side == SideSell {
		sign = -1.0
	}
	raw := (actualPrice - expectedPrice) / expectedPrice * 10000
	return round(raw) * sign
}

func round(f float64) float64 {
	if f >= 0 {
		return float64(int64(f + 0.5))
	}
	return float64(int64(f - 0.5))
}

// SymbolStats is the running, incrementally-updated per-symbol aggregate.
type SymbolStats struct {
	Count           int64
	Mean            float64
	Min             float64
	Max             float64
	CostBpsWeighted float64
	TotalNotional   float64
	PeriodStartTs   int64
	PeriodEndTs     int64
}

// Analyzer owns the bounded ring and per-symbol stats. Single-writer:
// Record is called from the bridge only.
type Analyzer struct {
	mu              sync.Mutex
	ringSize        int
	ring            []Record
	ringHead        int
	alertThresholdBps float64

	stats map[string]*SymbolStats
}

// New builds an Analyzer with the given ring capacity and alert threshold.
func New(ringSize int, alertThresholdBps float64) *Analyzer {
	if ringSize <= 0 {
		ringSize = DefaultRingSize
	}
	return &Analyzer{
		ringSize:          ringSize,
		alertThresholdBps: alertThresholdBps,
		stats:             make(map[string]*SymbolStats),
	}
}

// Alert is emitted when a recorded slippage magnitude exceeds the
// configured threshold.
type Alert struct {
	Record Record
	Level  AlertLevel
}

// Record computes slippage bps, appends to the ring (evicting the oldest
// entry once full), and incrementally updates the symbol's running stats.
// Returns the stored record and an alert if the magnitude warrants one.
func (a *Analyzer) Record(bridgeID, symbol string, side Side, expectedPrice, actualPrice, quantity float64, timestamp int64) (Record, *Alert) {
	slippageBps := ComputeSlippageBps(side, expectedPrice, actualPrice)
	notional := quantity * actualPrice

	record := Record{
		BridgeID:      bridgeID,
		Symbol:        symbol,
		Side:          side,
		ExpectedPrice: expectedPrice,
		ActualPrice:   actualPrice,
		SlippageBps:   slippageBps,
		Quantity:      quantity,
		Notional:      notional,
		Timestamp:     timestamp,
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.appendRing(record)
	a.updateStats(symbol, slippageBps, notional, timestamp)

	var alert *Alert
	abs := slippageBps
	if abs < 0 {
		abs = -abs
	}
	if abs > 100 {
		alert = &Alert{Record: record, Level: AlertError}
	} else if abs > a.alertThresholdBps {
		alert = &Alert{Record: record, Level: AlertWarning}
	}

	return record, alert
}

func (a *Analyzer) appendRing(record Record) {
	if len(a.ring) < a.ringSize {
		a.ring = append(a.ring, record)
		return
	}
	a.ring[a.ringHead] = record
	a.ringHead = (a.ringHead + 1) % a.ringSize
}

func (a *Analyzer) updateStats(symbol string, slippageBps, notional float64, timestamp int64) {
	s, ok := a.stats[symbol]
	if !ok {
		s = &SymbolStats{Min: slippageBps, Max: slippageBps, PeriodStartTs: timestamp}
		a.stats[symbol] = s
	}

	s.Count++
	s.Mean += (slippageBps - s.Mean) / float64(s.Count)

	if slippageBps < s.Min {
		s.Min = slippageBps
	}
	if slippageBps > s.Max {
		s.Max = slippageBps
	}

	s.CostBpsWeighted = (s.CostBpsWeighted*s.TotalNotional + slippageBps*notional) / (s.TotalNotional + notional)
	s.TotalNotional += notional

	if s.PeriodStartTs == 0 || timestamp < s.PeriodStartTs {
		s.PeriodStartTs = timestamp
	}
	if timestamp > s.PeriodEndTs {
		s.PeriodEndTs = timestamp
	}
}

// Stats returns a copy of the running stats for symbol.
func (a *Analyzer) Stats(symbol string) (SymbolStats, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.stats[symbol]
	if !ok {
		return SymbolStats{}, false
	}
	return *s, true
}

// RingSnapshot copies the current ring contents in insertion order (oldest
// first once the ring has wrapped).
func (a *Analyzer) RingSnapshot() []Record {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Record, 0, len(a.ring))
	if len(a.ring) < a.ringSize {
		out = append(out, a.ring...)
		return out
	}
	out = append(out, a.ring[a.ringHead:]...)
	out = append(out, a.ring[:a.ringHead]...)
	return out
}
