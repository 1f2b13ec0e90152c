// Package execgate implements the per-decision policy evaluator (C3): a
// pure function deciding whether a strategy Decision would execute, given a
// frozen PolicySnapshot and the pipeline's GateState. It never mutates
// state; the pipeline driver updates GateState only on WOULD_EXECUTE,
// which keeps replay deterministic.
package execgate

import (
	"sync"

	"github.com/sawpanic/execcore/internal/model"
)

// Decision is the strategy's candidate trade, frozen once constructed.
type Decision struct {
	DecisionID      string
	Symbol          string
	Side            model.Side
	Confidence      float64
	HorizonMs       int64
	ValidUntilTs    int64
	ModelHash       string
	FeaturesHash    string
	PolicyVersion   string
}

// PolicyMode is the policy snapshot's operating mode.
type PolicyMode string

const (
	PolicyDryRun PolicyMode = "DRY_RUN"
	PolicyProd   PolicyMode = "PROD"
)

// PolicySnapshot is the frozen configuration sampled per evaluation.
type PolicySnapshot struct {
	MinConfidence         float64
	AllowedPolicyVersions map[string]bool
	OpsBlacklistSymbols   map[string]bool
	CooldownMs            int64
	Mode                  PolicyMode
}

// State is the pipeline's per-symbol mutable gate state. The pipeline
// driver is the only writer; execgate.Evaluate only reads it.
type State struct {
	LastDecisionTsBySymbol map[string]int64
	ActiveDecisionSymbols  map[string]bool
}

// Outcome is the execution gate's closed-set result.
type Outcome string

const (
	OutcomeWouldExecute Outcome = "WOULD_EXECUTE"
	OutcomeRejected     Outcome = "REJECTED"
	OutcomeSkipped      Outcome = "SKIPPED"
)

// Result is the frozen output of Evaluate.
type Result struct {
	DecisionID     string
	Symbol         string
	Outcome        Outcome
	ReasonCode     model.ReasonCode
	EvaluatedAt    int64
	PolicySnapshot PolicySnapshot
	PolicyVersion  string
}

// Evaluate is a pure function over (decision, policy, state, now). Rule
// order, each short-circuiting: validity, confidence, policy version and
// blacklist, active-decision, cooldown.
func Evaluate(decision Decision, policy PolicySnapshot, state State, now int64) Result {
	base := Result{
		DecisionID:     decision.DecisionID,
		Symbol:         decision.Symbol,
		EvaluatedAt:    now,
		PolicySnapshot: policy,
		PolicyVersion:  decision.PolicyVersion,
	}

	// 1. Validity.
	if decision.ValidUntilTs <= now {
		base.Outcome = OutcomeRejected
		base.ReasonCode = model.ReasonExpiredDecision
		return base
	}

	// 2. Confidence.
	if decision.Confidence < policy.MinConfidence {
		base.Outcome = OutcomeRejected
		base.ReasonCode = model.ReasonLowConfidence
		return base
	}

	// 3. Policy version and blacklist.
	if !policy.AllowedPolicyVersions[decision.PolicyVersion] {
		base.Outcome = OutcomeRejected
		base.ReasonCode = model.ReasonPolicyRejected
		return base
	}
	if policy.OpsBlacklistSymbols[decision.Symbol] {
		base.Outcome = OutcomeRejected
		base.ReasonCode = model.ReasonOpsBlacklisted
		return base
	}

	// 4. Active-decision.
	if state.ActiveDecisionSymbols[decision.Symbol] {
		base.Outcome = OutcomeSkipped
		base.ReasonCode = model.ReasonNoActiveDecisionAllowed
		return base
	}

	// 5. Cooldown.
	if lastTs, ok := state.LastDecisionTsBySymbol[decision.Symbol]; ok {
		if now-lastTs < policy.CooldownMs {
			base.Outcome = OutcomeSkipped
			base.ReasonCode = model.ReasonCooldownActive
			return base
		}
	}

	base.Outcome = OutcomeWouldExecute
	base.ReasonCode = model.ReasonPassed
	return base
}

// StateStore is the single-writer holder of GateState: it evaluates a
// Decision against a PolicySnapshot and, only on WOULD_EXECUTE, records the
// symbol as active and stamps its last-decision time — the write discipline
// Evaluate itself documents but does not perform.
type StateStore struct {
	mu    sync.Mutex
	state State
}

// NewStateStore builds an empty GateState.
func NewStateStore() *StateStore {
	return &StateStore{
		state: State{
			LastDecisionTsBySymbol: make(map[string]int64),
			ActiveDecisionSymbols:  make(map[string]bool),
		},
	}
}

// Evaluate runs Evaluate against the store's current state and updates it
// on WOULD_EXECUTE.
func (s *StateStore) Evaluate(decision Decision, policy PolicySnapshot, now int64) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := Evaluate(decision, policy, s.state, now)
	if result.Outcome == OutcomeWouldExecute {
		s.state.ActiveDecisionSymbols[decision.Symbol] = true
		s.state.LastDecisionTsBySymbol[decision.Symbol] = now
	}
	return result
}

// Complete clears a symbol's active-decision flag once its execution has
// finished, letting a subsequent decision on the same symbol pass rule 4.
func (s *StateStore) Complete(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state.ActiveDecisionSymbols, symbol)
}
