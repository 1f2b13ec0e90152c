package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Match(t *testing.T) {
	c := Classify("BTCUSDT", 1.0, 1.0005, DefaultTolerancePct)
	assert.Equal(t, ClassMatch, c.Classification)
}

func TestClassify_Mismatch(t *testing.T) {
	c := Classify("BTCUSDT", 1.0, 1.2, DefaultTolerancePct)
	assert.Equal(t, ClassMismatch, c.Classification)
}

func TestClassify_OrphanedExchange(t *testing.T) {
	c := Classify("BTCUSDT", 0, 1.0, DefaultTolerancePct)
	assert.Equal(t, ClassOrphanedExchange, c.Classification)
}

func TestClassify_OrphanedPaper(t *testing.T) {
	c := Classify("BTCUSDT", 1.0, 0, DefaultTolerancePct)
	assert.Equal(t, ClassOrphanedPaper, c.Classification)
}

type stubProvider struct {
	paper    map[string]float64
	exchange map[string]float64
}

func (s stubProvider) PaperPosition(ctx context.Context, symbol string) (float64, error) {
	return s.paper[symbol], nil
}

func (s stubProvider) ExchangePosition(ctx context.Context, symbol string) (float64, error) {
	return s.exchange[symbol], nil
}

func TestRun_AggregatesHealthAndWorstMismatch(t *testing.T) {
	provider := stubProvider{
		paper:    map[string]float64{"BTCUSDT": 1.0, "ETHUSDT": 2.0},
		exchange: map[string]float64{"BTCUSDT": 1.0, "ETHUSDT": 2.5},
	}

	report := Run(context.Background(), []string{"BTCUSDT", "ETHUSDT"}, provider, DefaultTolerancePct, time.Unix(0, 0))

	assert.False(t, report.IsHealthy)
	assert.Equal(t, 1, report.CountsByClass[ClassMatch])
	assert.Equal(t, 1, report.CountsByClass[ClassMismatch])
	assert.Greater(t, report.WorstMismatchPct, 0.0)
}

func TestScheduler_StartStop(t *testing.T) {
	var calls int
	provider := stubProvider{paper: map[string]float64{"BTCUSDT": 1.0}, exchange: map[string]float64{"BTCUSDT": 2.0}}
	sched := NewScheduler(10*time.Millisecond, []string{"BTCUSDT"}, provider, DefaultTolerancePct, func(r Report) {
		calls++
	})

	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Millisecond)
	defer cancel()

	sched.Start(ctx)
	time.Sleep(40 * time.Millisecond)
	sched.Stop()

	require.GreaterOrEqual(t, calls, 1)
}
