// Package killswitch implements the process-wide and per-symbol trading
// halt (C1). It is consulted first by both the futures canary chain and the
// execution bridge and has precedence over every other rule: a global halt
// short-circuits everything else, a symbol halt only affects that uppercased
// symbol.
package killswitch

import (
	"os"
	"strings"
	"sync"
	"time"
)

// Outcome is the result of an Evaluate call.
type Outcome string

const (
	OutcomePass Outcome = "PASS"
	OutcomeFail Outcome = "FAIL"
)

// ReasonCode mirrors the canary gate's kill-switch reasons so callers can
// match on the same tags regardless of which gate rejected them.
type ReasonCode string

const (
	ReasonNone         ReasonCode = ""
	ReasonGlobalKill   ReasonCode = "GLOBAL_KILL_ACTIVE"
	ReasonSymbolKill   ReasonCode = "SYMBOL_KILL_ACTIVE"
)

// Result is the frozen outcome of evaluating the switch for a symbol.
type Result struct {
	Outcome Outcome
	Reason  ReasonCode
	Detail  string
}

func (r Result) Passed() bool { return r.Outcome == OutcomePass }

// Config is the environment-sourced kill switch configuration. Every
// recognized option is a named field; there is no generic map of unknown
// toggles.
type Config struct {
	Global  bool
	Symbols map[string]bool // uppercased symbol -> halted
	Reason  string
}

// LoadFromEnv loads the kill switch configuration once from the process
// environment, matching spec.md §6: KILL_SWITCH_GLOBAL (bool),
// KILL_SWITCH_SYMBOLS (comma-separated, uppercased), KILL_SWITCH_REASON.
func LoadFromEnv() Config {
	cfg := Config{
		Symbols: make(map[string]bool),
	}

	if v := strings.TrimSpace(os.Getenv("KILL_SWITCH_GLOBAL")); v != "" {
		cfg.Global = v == "1" || strings.EqualFold(v, "true")
	}

	if v := os.Getenv("KILL_SWITCH_SYMBOLS"); v != "" {
		for _, sym := range strings.Split(v, ",") {
			sym = strings.ToUpper(strings.TrimSpace(sym))
			if sym != "" {
				cfg.Symbols[sym] = true
			}
		}
	}

	cfg.Reason = os.Getenv("KILL_SWITCH_REASON")

	return cfg
}

// Switch is the runtime, mutation-capable view of the kill switch. The
// environment-loaded Config is the source of truth at process start; Switch
// additionally allows halts to be toggled at runtime through SetGlobal and
// SetSymbol without restarting the process.
type Switch struct {
	mu          sync.RWMutex
	global      bool
	symbols     map[string]bool
	reason      string
	lastUpdated time.Time
}

// New builds a Switch from a loaded Config.
func New(cfg Config) *Switch {
	symbols := make(map[string]bool, len(cfg.Symbols))
	for k, v := range cfg.Symbols {
		symbols[k] = v
	}
	return &Switch{
		global:      cfg.Global,
		symbols:     symbols,
		reason:      cfg.Reason,
		lastUpdated: time.Now(),
	}
}

// Evaluate checks whether trading for symbol is currently permitted. The
// global halt is checked first and masks any symbol-specific state.
func (s *Switch) Evaluate(symbol string) Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.global {
		return Result{Outcome: OutcomeFail, Reason: ReasonGlobalKill, Detail: s.reason}
	}

	if s.symbols[strings.ToUpper(symbol)] {
		return Result{Outcome: OutcomeFail, Reason: ReasonSymbolKill, Detail: s.reason}
	}

	return Result{Outcome: OutcomePass}
}

// SetGlobal toggles the global halt at runtime.
func (s *Switch) SetGlobal(active bool, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global = active
	if reason != "" {
		s.reason = reason
	}
	s.lastUpdated = time.Now()
}

// SetSymbol toggles a per-symbol halt at runtime.
func (s *Switch) SetSymbol(symbol string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.symbols[strings.ToUpper(symbol)] = active
	s.lastUpdated = time.Now()
}

// Status is a read-only snapshot for the ops HTTP surface.
type Status struct {
	Global      bool            `json:"global"`
	Symbols     map[string]bool `json:"symbols"`
	Reason      string          `json:"reason,omitempty"`
	LastUpdated time.Time       `json:"last_updated"`
}

// Snapshot returns the current status without exposing the mutex.
func (s *Switch) Snapshot() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbols := make(map[string]bool, len(s.symbols))
	for k, v := range s.symbols {
		if v {
			symbols[k] = v
		}
	}

	return Status{
		Global:      s.global,
		Symbols:     symbols,
		Reason:      s.reason,
		LastUpdated: s.lastUpdated,
	}
}

// AnyActive reports whether the global halt or any symbol halt is active.
func (s *Switch) AnyActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.global {
		return true
	}
	for _, active := range s.symbols {
		if active {
			return true
		}
	}
	return false
}
