package events

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/execcore/internal/model"
)

func TestEmit_Determinism(t *testing.T) {
	a := Emit(TypeExecutionEvaluated, "d1", "BTCUSDT", "WOULD_EXECUTE", model.ReasonPassed, 1000, "hash1", model.ModeCanary, nil)
	b := Emit(TypeExecutionEvaluated, "d1", "BTCUSDT", "WOULD_EXECUTE", model.ReasonPassed, 1000, "hash1", model.ModeCanary, nil)

	assert.Equal(t, a.EventID, b.EventID)
	assert.Len(t, a.EventID, 16)
}

func TestEmit_ModeNeverLive(t *testing.T) {
	e := Emit(TypeFuturesCanaryEvaluated, "i1", "BTCUSDT", "REJECTED", model.ReasonLiveModeBlocked, 1000, "hash1", model.ModeLive, nil)
	assert.NotEqual(t, model.ModeLive, e.Mode)
}

func TestEmit_DifferentInputsDifferentIds(t *testing.T) {
	a := Emit(TypeExecutionEvaluated, "d1", "BTCUSDT", "WOULD_EXECUTE", model.ReasonPassed, 1000, "hash1", model.ModeCanary, nil)
	b := Emit(TypeExecutionEvaluated, "d2", "BTCUSDT", "WOULD_EXECUTE", model.ReasonPassed, 1000, "hash1", model.ModeCanary, nil)
	assert.NotEqual(t, a.EventID, b.EventID)
}

func TestAuditSpool_AtomicWriteNoPartialFiles(t *testing.T) {
	dir := t.TempDir()
	spool := NewAuditSpool(dir, nil)

	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	reason := "test"
	path, err := spool.Write(AuditRecord{
		Actor:      "pipeline",
		Action:     "GATED",
		TargetType: "bridge_id",
		TargetID:   "b1",
		Reason:     &reason,
		Metadata:   map[string]interface{}{"symbol": "BTCUSDT"},
	}, now)
	require.NoError(t, err)

	require.True(t, strings.Contains(path, "date=20260729"))

	_, err = os.Stat(path)
	require.NoError(t, err)
	_, err = os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lines := 0
	for scanner.Scan() {
		lines++
	}
	assert.Equal(t, 1, lines)
	assert.Equal(t, int64(0), spool.WriteErrors())
}

func TestAuditSpool_FilenameLayout(t *testing.T) {
	dir := t.TempDir()
	spool := NewAuditSpool(dir, nil)
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)

	path, err := spool.Write(AuditRecord{Actor: "a", Action: "b", TargetType: "c", TargetID: "d", Metadata: map[string]interface{}{}}, now)
	require.NoError(t, err)

	base := filepath.Base(path)
	assert.True(t, strings.HasPrefix(base, "part-"))
	assert.True(t, strings.HasSuffix(base, ".jsonl"))
}
