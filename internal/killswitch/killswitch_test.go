package killswitch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwitch_GlobalPrecedence(t *testing.T) {
	sw := New(Config{Global: true, Symbols: map[string]bool{"ETHUSDT": false}, Reason: "ops freeze"})

	result := sw.Evaluate("BTCUSDT")
	require.False(t, result.Passed())
	assert.Equal(t, ReasonGlobalKill, result.Reason)
	assert.Equal(t, "ops freeze", result.Detail)
}

func TestSwitch_SymbolHaltIsCaseInsensitiveAndScoped(t *testing.T) {
	sw := New(Config{Symbols: map[string]bool{"BTCUSDT": true}})

	halted := sw.Evaluate("btcusdt")
	require.False(t, halted.Passed())
	assert.Equal(t, ReasonSymbolKill, halted.Reason)

	clear := sw.Evaluate("ETHUSDT")
	assert.True(t, clear.Passed())
}

func TestSwitch_RuntimeToggles(t *testing.T) {
	sw := New(Config{})
	assert.True(t, sw.Evaluate("BTCUSDT").Passed())

	sw.SetSymbol("BTCUSDT", true)
	assert.False(t, sw.Evaluate("BTCUSDT").Passed())
	assert.True(t, sw.AnyActive())

	sw.SetSymbol("BTCUSDT", false)
	assert.False(t, sw.AnyActive())

	sw.SetGlobal(true, "incident")
	assert.True(t, sw.AnyActive())
	snap := sw.Snapshot()
	assert.True(t, snap.Global)
	assert.Equal(t, "incident", snap.Reason)
}
