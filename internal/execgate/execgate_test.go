package execgate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/execcore/internal/model"
)

func scenarioPolicy() PolicySnapshot {
	return PolicySnapshot{
		MinConfidence:         0.5,
		AllowedPolicyVersions: map[string]bool{"v1": true},
		OpsBlacklistSymbols:   map[string]bool{},
		CooldownMs:            5000,
		Mode:                  PolicyProd,
	}
}

func scenarioState() State {
	return State{
		LastDecisionTsBySymbol: map[string]int64{"BTCUSDT": 1_000_000_000_000},
		ActiveDecisionSymbols:  map[string]bool{},
	}
}

func TestEvaluate_CooldownScenario(t *testing.T) {
	decision := Decision{
		DecisionID:    "d1",
		Symbol:        "BTCUSDT",
		Confidence:    0.9,
		ValidUntilTs:  1_000_000_005_000,
		PolicyVersion: "v1",
	}

	result := Evaluate(decision, scenarioPolicy(), scenarioState(), 1_000_000_003_000)

	assert.Equal(t, OutcomeSkipped, result.Outcome)
	assert.Equal(t, model.ReasonCooldownActive, result.ReasonCode)
}

func TestEvaluate_ValidDecisionPasses(t *testing.T) {
	decision := Decision{
		DecisionID:    "d1",
		Symbol:        "BTCUSDT",
		Confidence:    0.9,
		ValidUntilTs:  1_000_000_010_000,
		PolicyVersion: "v1",
	}

	result := Evaluate(decision, scenarioPolicy(), scenarioState(), 1_000_000_006_000)

	assert.Equal(t, OutcomeWouldExecute, result.Outcome)
	assert.Equal(t, model.ReasonPassed, result.ReasonCode)
}

func TestEvaluate_RuleOrder(t *testing.T) {
	policy := scenarioPolicy()
	state := scenarioState()

	// Expired AND low confidence: validity must win.
	decision := Decision{
		DecisionID:    "d2",
		Symbol:        "ETHUSDT",
		Confidence:    0.1,
		ValidUntilTs:  1,
		PolicyVersion: "v1",
	}
	result := Evaluate(decision, policy, state, 1_000_000_000_000)
	assert.Equal(t, OutcomeRejected, result.Outcome)
	assert.Equal(t, model.ReasonExpiredDecision, result.ReasonCode)
}

func TestEvaluate_PolicyAndBlacklistRejections(t *testing.T) {
	policy := scenarioPolicy()
	state := scenarioState()

	badVersion := Decision{Symbol: "ETHUSDT", Confidence: 0.9, ValidUntilTs: 2_000_000_000_000, PolicyVersion: "v2"}
	result := Evaluate(badVersion, policy, state, 1_000_000_000_000)
	assert.Equal(t, model.ReasonPolicyRejected, result.ReasonCode)

	policy.OpsBlacklistSymbols = map[string]bool{"ETHUSDT": true}
	blacklisted := Decision{Symbol: "ETHUSDT", Confidence: 0.9, ValidUntilTs: 2_000_000_000_000, PolicyVersion: "v1"}
	result = Evaluate(blacklisted, policy, state, 1_000_000_000_000)
	assert.Equal(t, model.ReasonOpsBlacklisted, result.ReasonCode)
}

func TestEvaluate_ActiveDecisionSkipped(t *testing.T) {
	policy := scenarioPolicy()
	state := scenarioState()
	state.ActiveDecisionSymbols["ETHUSDT"] = true

	decision := Decision{Symbol: "ETHUSDT", Confidence: 0.9, ValidUntilTs: 2_000_000_000_000, PolicyVersion: "v1"}
	result := Evaluate(decision, policy, state, 1_000_000_000_000)

	assert.Equal(t, OutcomeSkipped, result.Outcome)
	assert.Equal(t, model.ReasonNoActiveDecisionAllowed, result.ReasonCode)
}

func TestEvaluate_DoesNotMutateState(t *testing.T) {
	policy := scenarioPolicy()
	state := scenarioState()
	decision := Decision{Symbol: "BTCUSDT", Confidence: 0.9, ValidUntilTs: 2_000_000_000_000, PolicyVersion: "v1"}

	_ = Evaluate(decision, policy, state, 1_000_000_006_000)

	assert.Equal(t, int64(1_000_000_000_000), state.LastDecisionTsBySymbol["BTCUSDT"])
}

func TestStateStore_MarksActiveOnWouldExecute(t *testing.T) {
	store := NewStateStore()
	policy := scenarioPolicy()
	decision := Decision{Symbol: "BTCUSDT", Confidence: 0.9, ValidUntilTs: 2_000_000_000_000, PolicyVersion: "v1"}

	first := store.Evaluate(decision, policy, 1_000_000_000_000)
	assert.Equal(t, OutcomeWouldExecute, first.Outcome)

	second := store.Evaluate(decision, policy, 1_000_000_001_000)
	assert.Equal(t, OutcomeSkipped, second.Outcome)
	assert.Equal(t, model.ReasonNoActiveDecisionAllowed, second.ReasonCode)

	store.Complete("BTCUSDT")
	third := store.Evaluate(decision, policy, 1_000_000_010_000)
	assert.Equal(t, OutcomeWouldExecute, third.Outcome)
}
