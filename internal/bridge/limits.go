package bridge

import (
	"sync"
	"time"
)

// LimitsState is the mutable per-day order/notional counters. It resets
// whenever the stored reset date no longer matches the current UTC date,
// mirroring the teacher's daily-budget-tracker reset-on-date-change pattern
// generalized from request counts to order counts and notional.
type LimitsState struct {
	mu                sync.Mutex
	currentOrderCount int
	currentNotionalUsd float64
	resetDateUtc      string
}

// NewLimitsState starts a fresh limits state reset to today (UTC).
func NewLimitsState(now time.Time) *LimitsState {
	return &LimitsState{resetDateUtc: utcDateString(now)}
}

func utcDateString(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// MaybeReset zeroes the counters if today's UTC date differs from the
// stored reset date. Returns true if a reset occurred.
func (l *LimitsState) MaybeReset(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	today := utcDateString(now)
	if today == l.resetDateUtc {
		return false
	}
	l.currentOrderCount = 0
	l.currentNotionalUsd = 0
	l.resetDateUtc = today
	return true
}

// Snapshot is a read-only copy of the limits state.
type Snapshot struct {
	CurrentOrderCount  int
	CurrentNotionalUsd float64
	ResetDateUtc       string
}

func (l *LimitsState) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{
		CurrentOrderCount:  l.currentOrderCount,
		CurrentNotionalUsd: l.currentNotionalUsd,
		ResetDateUtc:       l.resetDateUtc,
	}
}

// WouldExceed reports whether accepting one more order of the given notional
// would breach either daily cap, without mutating state.
func (l *LimitsState) WouldExceed(notionalUsd float64, maxOrdersPerDay int, maxNotionalPerDay float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.currentOrderCount+1 > maxOrdersPerDay {
		return true
	}
	if l.currentNotionalUsd+notionalUsd > maxNotionalPerDay {
		return true
	}
	return false
}

// Record increments the order count by exactly one and the notional by the
// filled notional. Only ever called after a successful CANARY submission.
func (l *LimitsState) Record(filledNotionalUsd float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.currentOrderCount++
	l.currentNotionalUsd += filledNotionalUsd
}
