// Package app wires the gates, bridge, and supporting observability into a
// single process, the way the teacher's internal/application package
// composes its scan pipeline from independently-testable components.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/execcore/internal/bridge"
	"github.com/sawpanic/execcore/internal/cache"
	"github.com/sawpanic/execcore/internal/config"
	"github.com/sawpanic/execcore/internal/events"
	"github.com/sawpanic/execcore/internal/execgate"
	"github.com/sawpanic/execcore/internal/killswitch"
	"github.com/sawpanic/execcore/internal/lifecycle"
	"github.com/sawpanic/execcore/internal/metrics"
	"github.com/sawpanic/execcore/internal/model"
	"github.com/sawpanic/execcore/internal/persistence/postgres"
	"github.com/sawpanic/execcore/internal/reconcile"
	"github.com/sawpanic/execcore/internal/signalgate"
	"github.com/sawpanic/execcore/internal/slippage"
	"github.com/sawpanic/execcore/internal/slo"
)

// App holds every long-lived component a running process needs.
type App struct {
	Cfg          config.Config
	Kill         *killswitch.Switch
	Lifecycle    *lifecycle.Manager
	Slippage     *slippage.Analyzer
	Bridge       *bridge.Bridge
	Audit        *events.AuditSpool
	Postgres     *postgres.Manager
	GateCache    *cache.GateStateCache
	Reconciler   *reconcile.Scheduler
	SLOs         []slo.Definition
	SLOScheduler *slo.Scheduler
	PromRegistry *prometheus.Registry
	Metrics      *metrics.Registry
	SignalGate   *signalgate.Gate
	SignalTracker *signalgate.SymbolTracker
	ExecPolicy   execgate.PolicySnapshot
	ExecState    *execgate.StateStore

	sloAlerter *slo.Alerter
}

// samplePositionProvider is a placeholder PositionProvider backing the
// reconciliation scheduler when no live exchange feed is configured: every
// symbol reports a zero position on both sides, so reconciliation classifies
// every symbol as MATCH in SHADOW/paper mode.
type samplePositionProvider struct{}

// PaperPosition and ExchangePosition both report zero until a real exchange
// feed is wired in: without one there is nothing to reconcile against, and
// reporting equal zero positions on both sides keeps the scheduler's
// classification logic (MATCH) exercised rather than perpetually alerting.
func (p samplePositionProvider) PaperPosition(ctx context.Context, symbol string) (float64, error) {
	return 0, nil
}

func (p samplePositionProvider) ExchangePosition(ctx context.Context, symbol string) (float64, error) {
	return 0, nil
}

// New builds an App from a loaded configuration. Postgres and Redis are
// best-effort: a failed connection degrades those features rather than
// failing startup, since the gates and bridge function without either.
func New(cfg config.Config) (*App, error) {
	kill := killswitch.New(killswitch.LoadFromEnv())
	lifecycleMgr := lifecycle.New()
	slippageAnalyzer := slippage.New(slippage.DefaultRingSize, 25)

	pgCfg := postgres.Config{
		DSN:             cfg.Postgres.DSN,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime(),
		ConnMaxIdleTime: cfg.Postgres.ConnMaxIdleTime(),
		QueryTimeout:    cfg.Postgres.QueryTimeout(),
		Enabled:         cfg.Postgres.Enabled,
	}
	pg, err := postgres.NewManager(pgCfg)
	if err != nil {
		log.Warn().Err(err).Msg("postgres archive disabled: connection failed")
		pg, _ = postgres.NewManager(postgres.Config{Enabled: false})
	}

	// The durable archive is the audit spool's upload path: every spool
	// write is best-effort mirrored into audit_records once Postgres is
	// enabled, rather than only ever being exercised by its own repo tests.
	audit := events.NewAuditSpool(cfg.Audit.SpoolDir, postgres.NewAuditUploader(pg))

	promReg := prometheus.NewRegistry()
	metricsReg := metrics.NewRegistry(promReg)

	bridgeCfg := bridge.NewConfig(
		model.ParseMode(cfg.Bridge.Mode),
		cfg.Bridge.Exchange,
		cfg.Bridge.Testnet,
		joinCsv(cfg.Bridge.AllowedSymbols),
		cfg.Bridge.MaxOrdersPerDay,
		cfg.Bridge.MaxNotionalPerDay,
		cfg.Bridge.MaxNotionalPerOrder,
		cfg.Bridge.ReconciliationIntervalMs,
		cfg.Bridge.ReduceOnly,
	)

	paperAdapter := bridge.NewPaperAdapter(func(symbol string) float64 { return 0 })
	guarded := bridge.NewGuardedAdapter(paperAdapter, cfg.Bridge.Exchange, cfg.Bridge.RateLimitPerSecond, cfg.Bridge.RateLimitBurst)

	execBridge := bridge.New(bridgeCfg, kill, lifecycleMgr, slippageAnalyzer, guarded, audit, metricsReg)

	gateCache := cache.New(cfg.Redis.Addr, cfg.Redis.DB, time.Duration(cfg.Redis.DefaultTTLSeconds)*time.Second)

	symbols := make([]string, 0, len(cfg.Bridge.AllowedSymbols))
	symbols = append(symbols, cfg.Bridge.AllowedSymbols...)

	scheduler := reconcile.NewScheduler(
		time.Duration(cfg.Bridge.ReconciliationIntervalMs)*time.Millisecond,
		symbols,
		samplePositionProvider{},
		reconcile.DefaultTolerancePct,
		func(report reconcile.Report) {
			log.Warn().Interface("report", report).Msg("reconciliation unhealthy")
		},
	)

	defs := make([]slo.Definition, 0, len(cfg.SLOs))
	for _, d := range cfg.SLOs {
		defs = append(defs, slo.Definition{
			ID:               d.ID,
			TargetKind:       slo.Target(d.TargetKind),
			Unit:             d.Unit,
			MetricSource:     d.MetricSource,
			MetricKey:        d.MetricKey,
			Comparison:       slo.Comparison(d.Comparison),
			Target:           d.Target,
			WarningThreshold: d.WarningThreshold,
			Tier:             slo.Tier(d.Tier),
			Window:           (time.Duration(d.WindowSec) * time.Second).String(),
		})
	}

	a := &App{
		Cfg:           cfg,
		Kill:          kill,
		Lifecycle:     lifecycleMgr,
		Slippage:      slippageAnalyzer,
		Bridge:        execBridge,
		Audit:         audit,
		Postgres:      pg,
		GateCache:     gateCache,
		Reconciler:    scheduler,
		SLOs:          defs,
		PromRegistry:  promReg,
		Metrics:       metricsReg,
		SignalGate:    signalgate.New(cfg.SignalGate.ToSignalGateConfig()),
		ExecPolicy:    cfg.ExecGate.ToPolicySnapshot(),
		ExecState:     execgate.NewStateStore(),
		sloAlerter:    slo.NewAlerter(),
	}
	a.SignalTracker = signalgate.NewSymbolTracker(a.SignalGate)

	sloInterval := time.Duration(cfg.Bridge.ReconciliationIntervalMs) * time.Millisecond
	a.SLOScheduler = slo.NewScheduler(sloInterval, a.SLOs, appMetricProvider{app: a}, a.sloAlerter, func(evaluated slo.EvaluatedStatus, alert *slo.AlertState) {
		a.Metrics.SLOStatus.WithLabelValues(evaluated.ID).Set(sloStatusValue(evaluated.Status))
		if alert != nil {
			log.Warn().Str("slo_id", evaluated.ID).Str("alert", string(*alert)).Msg("slo alert")
		}
	})

	return a, nil
}

// sloStatusValue maps a Status onto the fixed numeric encoding
// execcore_slo_status documents: 0=OK, 1=WARNING, 2=BREACHED, 3=UNKNOWN.
func sloStatusValue(status slo.Status) float64 {
	switch status {
	case slo.StatusOK:
		return 0
	case slo.StatusWarning:
		return 1
	case slo.StatusBreached:
		return 2
	default:
		return 3
	}
}

// appMetricProvider answers SLO metric lookups from the process's own
// running components rather than an external metrics backend: bridge
// limits, lifecycle state counts, slippage stats, and postgres health.
type appMetricProvider struct {
	app *App
}

func (p appMetricProvider) CurrentValue(source, key string) *float64 {
	switch source {
	case "bridge_limits":
		snap := p.app.Bridge.LimitsSnapshot()
		switch key {
		case "orders_today":
			v := float64(snap.CurrentOrderCount)
			return &v
		case "notional_today_usd":
			v := snap.CurrentNotionalUsd
			return &v
		}
	case "lifecycle":
		counts := p.app.Lifecycle.GetStateCounts()
		v := float64(counts[lifecycle.State(key)])
		return &v
	case "slippage":
		if stats, ok := p.app.Slippage.Stats(key); ok {
			v := stats.Mean
			return &v
		}
	case "postgres":
		if key == "healthy" {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			v := 0.0
			if p.app.Postgres.Health(ctx).Healthy {
				v = 1.0
			}
			return &v
		}
	}
	return nil
}

func joinCsv(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}

// EvaluateSignal is the instrumented entry point an upstream strategy
// runtime calls to run a candidate signal through the signal gate: it
// records the gate_evaluations/gate_evaluation_seconds metrics and mirrors
// the outcome into the read-replica cache for out-of-process observers.
func (a *App) EvaluateSignal(ctx context.Context, symbol string, signalScore float64, features signalgate.Features, regime signalgate.Regime, now int64) signalgate.Result {
	start := time.Now()
	result := a.SignalTracker.Evaluate(symbol, signalScore, features, regime, now)
	a.Metrics.GateLatency.WithLabelValues("signal").Observe(time.Since(start).Seconds())
	a.Metrics.GateEvaluations.WithLabelValues("signal", string(result.Decision), string(result.Reason)).Inc()

	if err := a.GateCache.Put(ctx, cache.GateSnapshot{
		Gate: "signal", Symbol: symbol, Outcome: string(result.Decision),
		ReasonCode: string(result.Reason), AtMs: now,
	}); err != nil {
		log.Debug().Err(err).Str("symbol", symbol).Msg("gate cache put failed")
	}

	return result
}

// EvaluateExecPolicy is the instrumented entry point for running a Decision
// through the execution gate, mirroring EvaluateSignal's metrics and cache
// wiring for the second gate in the pipeline.
func (a *App) EvaluateExecPolicy(ctx context.Context, decision execgate.Decision, now int64) execgate.Result {
	start := time.Now()
	result := a.ExecState.Evaluate(decision, a.ExecPolicy, now)
	a.Metrics.GateLatency.WithLabelValues("exec").Observe(time.Since(start).Seconds())
	a.Metrics.GateEvaluations.WithLabelValues("exec", string(result.Outcome), string(result.ReasonCode)).Inc()

	if err := a.GateCache.Put(ctx, cache.GateSnapshot{
		Gate: "exec", Symbol: decision.Symbol, Outcome: string(result.Outcome),
		ReasonCode: string(result.ReasonCode), AtMs: now,
	}); err != nil {
		log.Debug().Err(err).Str("symbol", decision.Symbol).Msg("gate cache put failed")
	}

	return result
}

// OpsStatus builds the JSON body for GET /ops/status: kill switch state,
// bridge limits, lifecycle state counts, SLO snapshot, and postgres health.
func (a *App) OpsStatus() map[string]interface{} {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sloSnapshot := make(map[string]slo.EvaluatedStatus, len(a.SLOs))
	for _, def := range a.SLOs {
		sloSnapshot[def.ID] = slo.Evaluate(def, appMetricProvider{app: a}, time.Now().UnixMilli())
	}

	return map[string]interface{}{
		"kill_switch":      a.Kill.Snapshot(),
		"bridge_limits":    a.Bridge.LimitsSnapshot(),
		"lifecycle_states": a.Lifecycle.GetStateCounts(),
		"slo":              sloSnapshot,
		"postgres":         a.Postgres.Health(ctx),
		"audit": map[string]int64{
			"write_errors":  a.Audit.WriteErrors(),
			"upload_errors": a.Audit.UploadErrors(),
		},
	}
}

// Start launches background components (reconciliation, SLO evaluation).
// Call Stop to shut them down cleanly.
func (a *App) Start(ctx context.Context) {
	a.Reconciler.Start(ctx)
	a.SLOScheduler.Start(ctx)
}

// Stop halts background components and closes external connections.
func (a *App) Stop() error {
	a.Reconciler.Stop()
	a.SLOScheduler.Stop()
	if err := a.GateCache.Close(); err != nil {
		return fmt.Errorf("app: close gate cache: %w", err)
	}
	return a.Postgres.Close()
}
