// Package config loads execcore's YAML configuration, generalized from the
// teacher's per-domain yaml.v3 config loaders (signal gate thresholds,
// execution policy, futures canary limits, bridge limits) into one file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sawpanic/execcore/internal/execgate"
	"github.com/sawpanic/execcore/internal/signalgate"
)

// SignalGateConfig mirrors internal/signalgate.Config on the wire. TrendMin
// is stored as a plain int (-1, 0, 1) since YAML has no notion of
// signalgate.Trend; ToSignalGateConfig converts it.
type SignalGateConfig struct {
	TrendMin            int     `yaml:"trend_min"`
	VolatilityMin       float64 `yaml:"volatility_min"`
	SpreadMax           float64 `yaml:"spread_max"`
	MinSignalScore      float64 `yaml:"min_signal_score"`
	CooldownMs          int64   `yaml:"cooldown_ms"`
	MaxSpreadNormalized float64 `yaml:"max_spread_normalized"`
}

// ToSignalGateConfig converts the wire form into internal/signalgate.Config.
func (s SignalGateConfig) ToSignalGateConfig() signalgate.Config {
	return signalgate.Config{
		TrendMin:            signalgate.Trend(s.TrendMin),
		VolatilityMin:       s.VolatilityMin,
		SpreadMax:           s.SpreadMax,
		MinSignalScore:      s.MinSignalScore,
		CooldownMs:          s.CooldownMs,
		MaxSpreadNormalized: s.MaxSpreadNormalized,
	}
}

// ExecGatePolicyConfig mirrors internal/execgate.PolicySnapshot on the wire.
// AllowedPolicyVersions and OpsBlacklistSymbols are lists here since YAML
// has no native set type; ToPolicySnapshot turns them into the lookup maps
// the gate actually evaluates against.
type ExecGatePolicyConfig struct {
	MinConfidence         float64  `yaml:"min_confidence"`
	AllowedPolicyVersions []string `yaml:"allowed_policy_versions"`
	OpsBlacklistSymbols   []string `yaml:"ops_blacklist_symbols"`
	CooldownMs            int64    `yaml:"cooldown_ms"`
	Mode                  string   `yaml:"mode"`
}

// ParsePolicyMode maps a config string onto execgate.PolicyMode, defaulting
// to the conservative DRY_RUN mode for anything unrecognized.
func ParsePolicyMode(s string) execgate.PolicyMode {
	switch s {
	case "prod", "PROD":
		return execgate.PolicyProd
	default:
		return execgate.PolicyDryRun
	}
}

func toSet(ss []string) map[string]bool {
	out := make(map[string]bool, len(ss))
	for _, s := range ss {
		out[s] = true
	}
	return out
}

// ToPolicySnapshot converts the wire form into an execgate.PolicySnapshot.
func (e ExecGatePolicyConfig) ToPolicySnapshot() execgate.PolicySnapshot {
	return execgate.PolicySnapshot{
		MinConfidence:         e.MinConfidence,
		AllowedPolicyVersions: toSet(e.AllowedPolicyVersions),
		OpsBlacklistSymbols:   toSet(e.OpsBlacklistSymbols),
		CooldownMs:            e.CooldownMs,
		Mode:                  ParsePolicyMode(e.Mode),
	}
}

// FuturesConfig carries the sizing/risk/funding knobs that vary by
// deployment, as opposed to the hard safety constants in internal/futures.
type FuturesConfig struct {
	MaxRiskPct       float64 `yaml:"max_risk_pct"`
	FundingBudgetPct float64 `yaml:"funding_budget_pct"`
}

// BridgeConfig mirrors internal/bridge.Config's tunables.
type BridgeConfig struct {
	Mode                     string   `yaml:"mode"`
	Exchange                 string   `yaml:"exchange"`
	Testnet                  bool     `yaml:"testnet"`
	AllowedSymbols           []string `yaml:"allowed_symbols"`
	MaxOrdersPerDay          int      `yaml:"max_orders_per_day"`
	MaxNotionalPerDay        float64  `yaml:"max_notional_per_day"`
	MaxNotionalPerOrder      float64  `yaml:"max_notional_per_order"`
	ReconciliationIntervalMs int64    `yaml:"reconciliation_interval_ms"`
	ReduceOnly               bool     `yaml:"reduce_only"`
	RateLimitPerSecond       float64  `yaml:"rate_limit_per_second"`
	RateLimitBurst           int      `yaml:"rate_limit_burst"`
}

// PostgresConfig mirrors internal/persistence/postgres.Config on the wire.
type PostgresConfig struct {
	Enabled         bool   `yaml:"enabled"`
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifeSec  int    `yaml:"conn_max_lifetime_sec"`
	ConnMaxIdleSec  int    `yaml:"conn_max_idle_sec"`
	QueryTimeoutSec int    `yaml:"query_timeout_sec"`
}

// RedisConfig mirrors the teacher's CacheConfig.Redis shape, repurposed for
// the gate-state read replica cache.
type RedisConfig struct {
	Addr              string `yaml:"addr"`
	DB                int    `yaml:"db"`
	TLS               bool   `yaml:"tls"`
	DefaultTTLSeconds int    `yaml:"default_ttl_seconds"`
}

// AuditConfig controls the spool directory.
type AuditConfig struct {
	SpoolDir string `yaml:"spool_dir"`
}

// MetricsConfig controls the ops HTTP surface.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// SLODefinitionConfig mirrors internal/slo.Definition on the wire.
type SLODefinitionConfig struct {
	ID               string  `yaml:"id"`
	TargetKind       string  `yaml:"target_kind"`
	Unit             string  `yaml:"unit"`
	MetricSource     string  `yaml:"metric_source"`
	MetricKey        string  `yaml:"metric_key"`
	Comparison       string  `yaml:"comparison"`
	Target           float64 `yaml:"target"`
	WarningThreshold float64 `yaml:"warning_threshold"`
	Tier             int     `yaml:"tier"`
	WindowSec        int64   `yaml:"window_sec"`
}

// Config is the root configuration document for cmd/execcore.
type Config struct {
	SignalGate SignalGateConfig      `yaml:"signal_gate"`
	ExecGate   ExecGatePolicyConfig  `yaml:"exec_gate"`
	Futures    FuturesConfig         `yaml:"futures"`
	Bridge     BridgeConfig          `yaml:"bridge"`
	Postgres   PostgresConfig        `yaml:"postgres"`
	Redis      RedisConfig           `yaml:"redis"`
	Audit      AuditConfig           `yaml:"audit"`
	Metrics    MetricsConfig         `yaml:"metrics"`
	SLOs       []SLODefinitionConfig `yaml:"slos"`
}

// Default returns a conservative, SHADOW-mode configuration safe to start
// from in any environment.
func Default() Config {
	return Config{
		SignalGate: SignalGateConfig{
			TrendMin: 0, VolatilityMin: 0.2, SpreadMax: 0.5,
			MinSignalScore: 0.55, CooldownMs: 1500, MaxSpreadNormalized: 1.0,
		},
		ExecGate: ExecGatePolicyConfig{
			MinConfidence: 0.6, CooldownMs: 2000, Mode: "dry_run",
		},
		Futures: FuturesConfig{MaxRiskPct: 0.01, FundingBudgetPct: 0.0005},
		Bridge: BridgeConfig{
			Mode: "shadow", Exchange: "binance-futures", Testnet: true,
			MaxOrdersPerDay: 50, MaxNotionalPerDay: 50000, MaxNotionalPerOrder: 5000,
			ReconciliationIntervalMs: 30000, ReduceOnly: false,
			RateLimitPerSecond: 5, RateLimitBurst: 10,
		},
		Postgres: PostgresConfig{
			Enabled: false, MaxOpenConns: 10, MaxIdleConns: 5,
			ConnMaxLifeSec: 300, ConnMaxIdleSec: 60, QueryTimeoutSec: 5,
		},
		Redis: RedisConfig{Addr: "localhost:6379", DB: 0, DefaultTTLSeconds: 30},
		Audit: AuditConfig{SpoolDir: "./out/audit"},
		Metrics: MetricsConfig{ListenAddr: ":8090"},
	}
}

// Load reads a YAML document at path, starting from Default() and
// overlaying its values, then applies environment variable overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides lets deployment-time secrets and mode flips bypass the
// checked-in YAML file, mirroring the teacher's PG_* env override pattern.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("EXECCORE_BRIDGE_MODE"); v != "" {
		cfg.Bridge.Mode = v
	}
	if v := os.Getenv("PG_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("PG_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Postgres.Enabled = b
		}
	}
	if v := os.Getenv("EXECCORE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("EXECCORE_METRICS_ADDR"); v != "" {
		cfg.Metrics.ListenAddr = v
	}
}

// QueryTimeout returns Postgres.QueryTimeoutSec as a time.Duration.
func (p PostgresConfig) QueryTimeout() time.Duration {
	return time.Duration(p.QueryTimeoutSec) * time.Second
}

// ConnMaxLifetime returns Postgres.ConnMaxLifeSec as a time.Duration.
func (p PostgresConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(p.ConnMaxLifeSec) * time.Second
}

// ConnMaxIdleTime returns Postgres.ConnMaxIdleSec as a time.Duration.
func (p PostgresConfig) ConnMaxIdleTime() time.Duration {
	return time.Duration(p.ConnMaxIdleSec) * time.Second
}
