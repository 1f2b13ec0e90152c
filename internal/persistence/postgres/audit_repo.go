package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ArchivedAuditRecord mirrors events.AuditRecord plus the spool file path it
// was durably written to, for the optional archive table.
type ArchivedAuditRecord struct {
	AuditID    string    `db:"audit_id"`
	TsNs       string    `db:"ts_ns"`
	Actor      string    `db:"actor"`
	Action     string    `db:"action"`
	TargetType string    `db:"target_type"`
	TargetID   string    `db:"target_id"`
	Reason     *string   `db:"reason"`
	SpoolPath  string    `db:"spool_path"`
	CreatedAt  time.Time `db:"created_at"`
}

// AuditArchiveRepo persists audit records emitted by internal/events for
// durable, queryable retention, adapted from the teacher's trades
// repository (Insert/InsertBatch/List*/Count* shape), repurposed from fills
// to audit records.
type AuditArchiveRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewAuditArchiveRepo builds a repo over an open pool.
func NewAuditArchiveRepo(db *sqlx.DB, timeout time.Duration) *AuditArchiveRepo {
	return &AuditArchiveRepo{db: db, timeout: timeout}
}

const insertAuditSQL = `
INSERT INTO audit_records (audit_id, ts_ns, actor, action, target_type, target_id, reason, spool_path, created_at)
VALUES (:audit_id, :ts_ns, :actor, :action, :target_type, :target_id, :reason, :spool_path, :created_at)
`

// Insert writes a single archived record. A duplicate audit_id (23505) is
// treated as already-archived rather than an error, since the audit spool
// write is the durability source of truth and this archive is best-effort.
func (r *AuditArchiveRepo) Insert(ctx context.Context, record ArchivedAuditRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.NamedExecContext(ctx, insertAuditSQL, record)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil
		}
		return fmt.Errorf("postgres: insert audit record: %w", err)
	}
	return nil
}

// InsertBatch writes a batch of records in a single transaction.
func (r *AuditArchiveRepo) InsertBatch(ctx context.Context, records []ArchivedAuditRecord) error {
	if len(records) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, insertAuditSQL)
	if err != nil {
		return fmt.Errorf("postgres: prepare batch insert: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		if record.CreatedAt.IsZero() {
			record.CreatedAt = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx, record); err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				continue
			}
			return fmt.Errorf("postgres: batch insert: %w", err)
		}
	}

	return tx.Commit()
}

// ListByTarget returns archived records for a target (e.g. a bridge_id),
// newest first.
func (r *AuditArchiveRepo) ListByTarget(ctx context.Context, targetType, targetID string, limit int) ([]ArchivedAuditRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var records []ArchivedAuditRecord
	err := r.db.SelectContext(ctx, &records,
		`SELECT audit_id, ts_ns, actor, action, target_type, target_id, reason, spool_path, created_at
		 FROM audit_records WHERE target_type = $1 AND target_id = $2
		 ORDER BY created_at DESC LIMIT $3`,
		targetType, targetID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list by target: %w", err)
	}
	return records, nil
}

// GetByAuditID fetches a single record by its uuid, or sql.ErrNoRows.
func (r *AuditArchiveRepo) GetByAuditID(ctx context.Context, auditID string) (ArchivedAuditRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var record ArchivedAuditRecord
	err := r.db.GetContext(ctx, &record,
		`SELECT audit_id, ts_ns, actor, action, target_type, target_id, reason, spool_path, created_at
		 FROM audit_records WHERE audit_id = $1`, auditID)
	if err != nil {
		if err == sql.ErrNoRows {
			return ArchivedAuditRecord{}, err
		}
		return ArchivedAuditRecord{}, fmt.Errorf("postgres: get by audit id: %w", err)
	}
	return record, nil
}

// Count returns the total number of archived records.
func (r *AuditArchiveRepo) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM audit_records`); err != nil {
		return 0, fmt.Errorf("postgres: count: %w", err)
	}
	return count, nil
}

// CountByAction returns counts grouped by action (GATED, SHADOW, SUBMITTED,
// FILLED, REJECTED, FAILED, KILLED).
func (r *AuditArchiveRepo) CountByAction(ctx context.Context) (map[string]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryxContext(ctx, `SELECT action, COUNT(*) FROM audit_records GROUP BY action`)
	if err != nil {
		return nil, fmt.Errorf("postgres: count by action: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var action string
		var count int64
		if err := rows.Scan(&action, &count); err != nil {
			return nil, fmt.Errorf("postgres: scan count by action: %w", err)
		}
		counts[action] = count
	}
	return counts, nil
}
