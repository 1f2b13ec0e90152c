package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// uploadedAuditRecord mirrors events.AuditRecord's JSON shape (without its
// metadata field); this package does not import internal/events.
type uploadedAuditRecord struct {
	AuditID    string  `json:"audit_id"`
	TsNs       string  `json:"ts"`
	Actor      string  `json:"actor"`
	Action     string  `json:"action"`
	TargetType string  `json:"target_type"`
	TargetID   string  `json:"target_id"`
	Reason     *string `json:"reason"`
}

// AuditUploader implements events.Uploader by mirroring each spooled audit
// file into the durable archive table, making AuditArchiveRepo a live
// consumer of the bridge's actual write path instead of only its own
// go-sqlmock tests.
type AuditUploader struct {
	mgr *Manager
}

// NewAuditUploader wraps mgr. A disabled or nil manager makes every Upload a
// no-op, so callers can always construct the uploader unconditionally.
func NewAuditUploader(mgr *Manager) *AuditUploader {
	return &AuditUploader{mgr: mgr}
}

// Upload reads back the JSONL line the spool just wrote and archives it.
func (u *AuditUploader) Upload(path string) error {
	if u.mgr == nil || !u.mgr.IsEnabled() {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("postgres: read spool file: %w", err)
	}

	var rec uploadedAuditRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return fmt.Errorf("postgres: decode spool file: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), u.mgr.cfg.QueryTimeout)
	defer cancel()

	return u.mgr.Audit.Insert(ctx, ArchivedAuditRecord{
		AuditID:    rec.AuditID,
		TsNs:       rec.TsNs,
		Actor:      rec.Actor,
		Action:     rec.Action,
		TargetType: rec.TargetType,
		TargetID:   rec.TargetID,
		Reason:     rec.Reason,
		SpoolPath:  path,
		CreatedAt:  time.Now().UTC(),
	})
}
