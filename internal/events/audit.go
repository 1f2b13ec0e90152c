package events

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	execio "github.com/sawpanic/execcore/internal/io"
)

// AuditRecord is one append-only audit log entry.
type AuditRecord struct {
	AuditID    string                 `json:"audit_id"`
	TsNs       string                 `json:"ts"`
	Actor      string                 `json:"actor"`
	Action     string                 `json:"action"`
	TargetType string                 `json:"target_type"`
	TargetID   string                 `json:"target_id"`
	Reason     *string                `json:"reason"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// Uploader best-effort-ships a written spool file to a durable archive. The
// only implementation in this repository is postgres.AuditUploader, which
// mirrors the record into a Postgres table; there is no object-storage
// uploader. Upload failures are counted and never fail the write itself.
type Uploader interface {
	Upload(path string) error
}

// NoopUploader is used when archival is disabled.
type NoopUploader struct{}

func (NoopUploader) Upload(string) error { return nil }

// AuditSpool is the single-writer-per-process append-only audit sink.
// Writes never block core logic: write and upload failures are counted by
// the spool itself (WriteErrors, UploadErrors); a failed write is also
// returned as an error, and a failed upload is not.
type AuditSpool struct {
	spoolDir     string
	uploader     Uploader
	uploadErrors int64
	writeErrors  int64
}

// NewAuditSpool builds a spool rooted at spoolDir. Pass NoopUploader{} when
// archival is disabled.
func NewAuditSpool(spoolDir string, uploader Uploader) *AuditSpool {
	if uploader == nil {
		uploader = NoopUploader{}
	}
	return &AuditSpool{spoolDir: spoolDir, uploader: uploader}
}

// Write serializes record as one canonical JSON line and persists it via
// temp-file + fsync + atomic rename, then best-effort uploads it. The path
// is spool_dir/date=YYYYMMDD/part-<ts_ns>-<audit_id>.jsonl — the uuid
// tiebreaker guarantees no same-nanosecond collision and the ts_ns prefix
// keeps files in lexicographic order within a day.
func (s *AuditSpool) Write(record AuditRecord, now time.Time) (string, error) {
	if record.AuditID == "" {
		record.AuditID = uuid.NewString()
	}
	tsNs := now.UnixNano()
	if record.TsNs == "" {
		record.TsNs = fmt.Sprintf("%d", tsNs)
	}

	line, err := json.Marshal(record)
	if err != nil {
		atomic.AddInt64(&s.writeErrors, 1)
		return "", fmt.Errorf("audit: marshal record: %w", err)
	}
	line = append(line, '\n')

	dateDir := fmt.Sprintf("date=%s", now.UTC().Format("20060102"))
	filename := fmt.Sprintf("part-%d-%s.jsonl", tsNs, record.AuditID)
	finalPath := fmt.Sprintf("%s/%s/%s", s.spoolDir, dateDir, filename)

	if err := execio.WriteFileAtomic(finalPath, line); err != nil {
		atomic.AddInt64(&s.writeErrors, 1)
		return "", fmt.Errorf("audit: write spool file: %w", err)
	}

	if err := s.uploader.Upload(finalPath); err != nil {
		atomic.AddInt64(&s.uploadErrors, 1)
	}

	return finalPath, nil
}

// WriteErrors returns the count of failed writes so far.
func (s *AuditSpool) WriteErrors() int64 { return atomic.LoadInt64(&s.writeErrors) }

// UploadErrors returns the count of failed best-effort uploads so far.
func (s *AuditSpool) UploadErrors() int64 { return atomic.LoadInt64(&s.uploadErrors) }
