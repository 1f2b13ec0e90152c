// Package lifecycle implements the order lifecycle manager (C6): a keyed
// state machine over submitted orders, with fill aggregation. The table is
// held in memory only; this package does not persist or reload an index.
// All mutation happens through a single writer
// (the bridge); reads elsewhere take snapshot copies.
package lifecycle

import (
	"fmt"
	"sync"

	"github.com/sawpanic/execcore/internal/model"
)

// State is the lifecycle entry's closed-set state.
type State string

const (
	StateCreated         State = "CREATED"
	StateGatePassed      State = "GATE_PASSED"
	StateSubmitting      State = "SUBMITTING"
	StateSubmitted       State = "SUBMITTED"
	StatePartiallyFilled State = "PARTIALLY_FILLED"
	StateFilled          State = "FILLED"
	StateRejected        State = "REJECTED"
	StateFailed          State = "FAILED"
	StateCancelled       State = "CANCELLED"
)

func (s State) Terminal() bool {
	switch s {
	case StateFilled, StateRejected, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// legalTransitions enumerates every allowed (from, to) edge. Anything not
// listed here is an illegal transition and rejected with an error.
var legalTransitions = map[State]map[State]bool{
	StateCreated:         {StateGatePassed: true},
	StateGatePassed:      {StateSubmitting: true},
	StateSubmitting:      {StateSubmitted: true, StateFailed: true, StateRejected: true},
	StateSubmitted:       {StatePartiallyFilled: true, StateFilled: true, StateCancelled: true},
	StatePartiallyFilled: {StateSubmitted: true, StateFilled: true, StateCancelled: true},
}

// Fill is one append-only fill event against an order.
type Fill struct {
	Qty       float64
	Price     float64
	Timestamp int64
}

// Entry is the keyed lifecycle record.
type Entry struct {
	BridgeID        string
	State           State
	Symbol          string
	Side            model.Side
	RequestedQty    float64
	FilledQty       float64
	AvgFillPrice    float64
	Fills           []Fill
	CreatedAt       int64
	UpdatedAt       int64
	ExchangeOrderID string
	Error           string
}

// TransitionError reports an illegal state-machine edge. Per spec.md §7
// this is an internal programming error, not a gate rejection: it surfaces
// and aborts the request.
type TransitionError struct {
	BridgeID string
	From     State
	To       State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal lifecycle transition for %s: %s -> %s", e.BridgeID, e.From, e.To)
}

// Manager owns the keyed lifecycle table. Single-writer: all mutating
// methods are called from the pipeline's cooperative scheduler only.
type Manager struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// New builds an empty Manager. A persisted index, if present, should be
// replayed into the returned Manager via CreateFromIntent/Transition calls
// before the pipeline starts driving it — the in-memory table is
// authoritative during a session regardless of how it was seeded.
func New() *Manager {
	return &Manager{entries: make(map[string]*Entry)}
}

// CreateFromIntent inserts a new CREATED entry keyed by bridgeID.
func (m *Manager) CreateFromIntent(bridgeID, symbol string, side model.Side, requestedQty float64, now int64) *Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := &Entry{
		BridgeID:     bridgeID,
		State:        StateCreated,
		Symbol:       symbol,
		Side:         side,
		RequestedQty: requestedQty,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.entries[bridgeID] = entry
	return entry
}

// Transition moves an entry to newState, rejecting any edge not present in
// legalTransitions.
func (m *Manager) Transition(bridgeID string, newState State, now int64, extras func(*Entry)) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[bridgeID]
	if !ok {
		return nil, fmt.Errorf("lifecycle: unknown bridge_id %s", bridgeID)
	}

	if !legalTransitions[entry.State][newState] {
		return nil, &TransitionError{BridgeID: bridgeID, From: entry.State, To: newState}
	}

	entry.State = newState
	entry.UpdatedAt = now
	if extras != nil {
		extras(entry)
	}
	return entry, nil
}

// AddFill appends a fill, recomputes filled_qty and the size-weighted
// avg_fill_price, and auto-transitions to FILLED once filled_qty reaches
// requested_qty (otherwise PARTIALLY_FILLED).
func (m *Manager) AddFill(bridgeID string, fill Fill, now int64) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[bridgeID]
	if !ok {
		return nil, fmt.Errorf("lifecycle: unknown bridge_id %s", bridgeID)
	}

	priorNotional := entry.FilledQty * entry.AvgFillPrice
	entry.Fills = append(entry.Fills, fill)
	entry.FilledQty += fill.Qty
	if entry.FilledQty > 0 {
		entry.AvgFillPrice = (priorNotional + fill.Qty*fill.Price) / entry.FilledQty
	}
	entry.UpdatedAt = now

	target := StatePartiallyFilled
	if entry.FilledQty >= entry.RequestedQty {
		target = StateFilled
	}
	if !legalTransitions[entry.State][target] && entry.State != target {
		return nil, &TransitionError{BridgeID: bridgeID, From: entry.State, To: target}
	}
	entry.State = target

	return entry, nil
}

// Get returns a copy of the entry for bridgeID.
func (m *Manager) Get(bridgeID string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[bridgeID]
	if !ok {
		return Entry{}, false
	}
	return *entry, true
}

// GetStateCounts returns a snapshot count of entries per state.
func (m *Manager) GetStateCounts() map[State]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[State]int)
	for _, entry := range m.entries {
		counts[entry.State]++
	}
	return counts
}
