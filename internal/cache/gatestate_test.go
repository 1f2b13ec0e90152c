package cache

import (
	"context"
	"testing"
)

func TestKey_IsNamespacedByGateAndSymbol(t *testing.T) {
	got := key("signalgate", "BTCUSDT")
	want := "execcore:gate:signalgate:BTCUSDT"
	if got != want {
		t.Fatalf("key() = %q, want %q", got, want)
	}
}

func TestGet_MissReturnsFalseWithoutPanicking(t *testing.T) {
	// No live Redis in this environment: Get must degrade to a miss rather
	// than panicking or blocking.
	c := New("127.0.0.1:1", 0, 0)
	defer c.Close()

	_, ok := c.Get(context.Background(), "signalgate", "BTCUSDT")
	if ok {
		t.Fatalf("expected miss against unreachable redis")
	}
}
