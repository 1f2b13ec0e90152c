package bridge

import (
	"strings"

	"github.com/sawpanic/execcore/internal/model"
)

// Config is the bridge's enumerated, construction-time configuration. Every
// recognized option is a named field; unknown environment keys are ignored
// rather than silently accepted as new fields.
type Config struct {
	Mode                     model.Mode
	Exchange                 string
	Testnet                  bool
	AllowedSymbols           map[string]bool
	MaxOrdersPerDay          int
	MaxNotionalPerDay        float64
	MaxNotionalPerOrder      float64
	ReconciliationIntervalMs int64
	ReduceOnly               bool
}

// NewConfig clamps mode=LIVE to CANARY at construction — the first of three
// independent layers (the others are per-gate rejection and the adapter
// mapping panic) that keep LIVE from ever reaching the exchange.
func NewConfig(mode model.Mode, exchange string, testnet bool, allowedSymbolsCsv string, maxOrdersPerDay int, maxNotionalPerDay, maxNotionalPerOrder float64, reconciliationIntervalMs int64, reduceOnly bool) Config {
	if mode == model.ModeLive {
		mode = model.ModeCanary
	}

	allowed := make(map[string]bool)
	for _, sym := range strings.Split(allowedSymbolsCsv, ",") {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym != "" {
			allowed[sym] = true
		}
	}

	return Config{
		Mode:                     mode,
		Exchange:                 exchange,
		Testnet:                  testnet,
		AllowedSymbols:           allowed,
		MaxOrdersPerDay:          maxOrdersPerDay,
		MaxNotionalPerDay:        maxNotionalPerDay,
		MaxNotionalPerOrder:      maxNotionalPerOrder,
		ReconciliationIntervalMs: reconciliationIntervalMs,
		ReduceOnly:               reduceOnly,
	}
}
