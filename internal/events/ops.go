// Package events implements the deterministic observability substrate
// (C9): a pure OPS event factory with hash-stable event ids, and an
// append-only audit spool with atomic writes.
package events

import (
	"github.com/sawpanic/execcore/internal/model"
)

// Type is the closed set of OPS event types.
type Type string

const (
	TypeFuturesCanaryEvaluated      Type = "FUTURES_CANARY_EVALUATED"
	TypeFuturesRiskEvaluated        Type = "FUTURES_RISK_EVALUATED"
	TypeFuturesFundingEvaluated     Type = "FUTURES_FUNDING_EVALUATED"
	TypeFuturesOrderIntentMapped    Type = "FUTURES_ORDER_INTENT_MAPPED"
	TypeExecutionEvaluated          Type = "EXECUTION_EVALUATED"
)

// Event is the frozen, hash-stable OPS event. Re-emission of the same
// (eventType, subjectID, symbol, outcome, reasonCode, policySnapshotHash,
// mode, evaluatedAt) tuple always yields the identical EventID.
//
// Canonical hash field order (wire-stable, never reorder without a breaking
// change): event_type, decision_id_or_intent_id, symbol, outcome,
// reason_code, policy_snapshot_hash, mode, evaluated_at_ms.
type Event struct {
	EventType          Type
	EventID            string
	SubjectID          string // decision_id or intent_id
	Symbol             string
	Outcome            string
	ReasonCode         model.ReasonCode
	EvaluatedAt        int64
	PolicySnapshotHash string
	Mode               model.Mode
	Payload            map[string]string
}

// Emit is a pure factory: the event id is a content hash over the fixed
// field tuple documented above, so the same inputs always produce the same
// id. mode is clamped to {SHADOW, CANARY} — LIVE can never be observed here
// because every upstream stage has already clamped or rejected it.
func Emit(eventType Type, subjectID, symbol, outcome string, reasonCode model.ReasonCode, evaluatedAt int64, policySnapshotHash string, mode model.Mode, payload map[string]string) Event {
	if mode == model.ModeLive {
		mode = model.ModeShadow
	}

	eventID := model.ContentHash16(
		string(eventType),
		subjectID,
		symbol,
		outcome,
		string(reasonCode),
		policySnapshotHash,
		string(mode),
		model.FormatFloat(float64(evaluatedAt)),
	)

	return Event{
		EventType:          eventType,
		EventID:            eventID,
		SubjectID:          subjectID,
		Symbol:             symbol,
		Outcome:            outcome,
		ReasonCode:         reasonCode,
		EvaluatedAt:        evaluatedAt,
		PolicySnapshotHash: policySnapshotHash,
		Mode:               mode,
		Payload:            payload,
	}
}
