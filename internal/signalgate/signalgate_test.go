package signalgate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/execcore/internal/model"
)

func defaultConfig() Config {
	return Config{
		TrendMin:            TrendSideways,
		VolatilityMin:       0.2,
		SpreadMax:           0.8,
		MinSignalScore:      0.5,
		CooldownMs:          5000,
		MaxSpreadNormalized: 0.001,
	}
}

func TestGate_SpreadPenaltyScenario(t *testing.T) {
	g := New(defaultConfig())

	regime := Regime{Trend: TrendUptrend, VolatilityScore: 0.5, SpreadScore: 0.1}
	features := Features{Spread: 0.005, MidPrice: 1.0}

	result := g.Evaluate(0.9, features, regime, nil, 0)

	require.False(t, result.Allowed())
	assert.Equal(t, model.ReasonSpreadPenalty, result.Reason)

	stats := g.Snapshot()
	assert.EqualValues(t, 1, stats.Blocked)
	assert.EqualValues(t, 1, stats.ReasonHistogram[model.ReasonSpreadPenalty])
}

func TestGate_MidPriceZeroAlwaysPassesSpreadRule(t *testing.T) {
	g := New(defaultConfig())
	regime := Regime{Trend: TrendUptrend, VolatilityScore: 0.5, SpreadScore: 0.1}
	features := Features{Spread: 0.005, MidPrice: 0}

	result := g.Evaluate(0.9, features, regime, nil, 0)
	assert.True(t, result.Allowed())
}

func TestGate_RuleOrder(t *testing.T) {
	g := New(defaultConfig())

	// Both regime trend and signal strength would fail; trend must win (rule A before B).
	regime := Regime{Trend: TrendDowntrend, VolatilityScore: 0.5, SpreadScore: 0.1}
	features := Features{Spread: 0, MidPrice: 1.0}

	result := g.Evaluate(0.1, features, regime, nil, 0)
	assert.Equal(t, model.ReasonRegimeTrend, result.Reason)
}

func TestGate_Cooldown(t *testing.T) {
	g := New(defaultConfig())
	regime := Regime{Trend: TrendUptrend, VolatilityScore: 0.5, SpreadScore: 0.1}
	features := Features{Spread: 0, MidPrice: 1.0}

	last := int64(1_000_000_000_000)
	blocked := g.Evaluate(0.9, features, regime, &last, 1_000_000_003_000)
	assert.Equal(t, model.ReasonCooldown, blocked.Reason)

	allowed := g.Evaluate(0.9, features, regime, &last, 1_000_000_006_000)
	assert.True(t, allowed.Allowed())
}

func TestGate_NilLastTradeAlwaysPassesCooldown(t *testing.T) {
	g := New(defaultConfig())
	regime := Regime{Trend: TrendUptrend, VolatilityScore: 0.5, SpreadScore: 0.1}
	features := Features{Spread: 0, MidPrice: 1.0}

	result := g.Evaluate(0.9, features, regime, nil, 0)
	assert.True(t, result.Allowed())

	stats := g.Snapshot()
	assert.EqualValues(t, 1, stats.Passed)
}

func TestSymbolTracker_TracksCooldownPerSymbol(t *testing.T) {
	tracker := NewSymbolTracker(New(defaultConfig()))
	regime := Regime{Trend: TrendUptrend, VolatilityScore: 0.5, SpreadScore: 0.1}
	features := Features{Spread: 0, MidPrice: 1.0}

	first := tracker.Evaluate("BTCUSDT", 0.9, features, regime, 1_000_000_000_000)
	assert.True(t, first.Allowed())

	blocked := tracker.Evaluate("BTCUSDT", 0.9, features, regime, 1_000_000_003_000)
	assert.Equal(t, model.ReasonCooldown, blocked.Reason)

	// A different symbol has never traded, so its cooldown rule always passes.
	other := tracker.Evaluate("ETHUSDT", 0.9, features, regime, 1_000_000_003_000)
	assert.True(t, other.Allowed())

	allowed := tracker.Evaluate("BTCUSDT", 0.9, features, regime, 1_000_000_006_000)
	assert.True(t, allowed.Allowed())
}
