// Package metrics is the pipeline's minimal ops HTTP surface: Prometheus
// metrics, a liveness probe, and a JSON status dump of kill switch / bridge
// limits / SLO state. Ported from the teacher's gorilla/mux HTTP server and
// Prometheus metrics registry, generalized from market-scan metrics to gate
// and bridge observability.
package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every Prometheus collector the pipeline exports.
type Registry struct {
	GateEvaluations   *prometheus.CounterVec
	GateLatency       *prometheus.HistogramVec
	BridgeOrdersToday prometheus.Gauge
	BridgeNotionalToday prometheus.Gauge
	SLOStatus         *prometheus.GaugeVec
	SlippageBps       *prometheus.HistogramVec
}

// NewRegistry constructs and registers every collector against reg.
func NewRegistry(reg *prometheus.Registry) *Registry {
	r := &Registry{
		GateEvaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "execcore_gate_evaluations_total",
			Help: "Count of gate evaluations by gate and outcome.",
		}, []string{"gate", "outcome", "reason_code"}),
		GateLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "execcore_gate_evaluation_seconds",
			Help:    "Gate evaluation latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"gate"}),
		BridgeOrdersToday: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "execcore_bridge_orders_today",
			Help: "Orders submitted today under the bridge's daily cap.",
		}),
		BridgeNotionalToday: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "execcore_bridge_notional_today_usd",
			Help: "Notional submitted today under the bridge's daily cap.",
		}),
		SLOStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "execcore_slo_status",
			Help: "SLO status: 0=OK, 1=WARNING, 2=BREACHED, 3=UNKNOWN.",
		}, []string{"slo_id"}),
		SlippageBps: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "execcore_slippage_bps",
			Help:    "Per-fill slippage in basis points.",
			Buckets: []float64{-100, -50, -20, -10, -5, 0, 5, 10, 20, 50, 100},
		}, []string{"symbol"}),
	}

	reg.MustRegister(r.GateEvaluations, r.GateLatency, r.BridgeOrdersToday, r.BridgeNotionalToday, r.SLOStatus, r.SlippageBps)
	return r
}

// StatusProvider supplies the JSON body for GET /ops/status.
type StatusProvider interface {
	OpsStatus() map[string]interface{}
}

// NewServer builds the gorilla/mux router serving /healthz, /metrics, and
// /ops/status.
func NewServer(reg *prometheus.Registry, status StatusProvider) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	router.HandleFunc("/ops/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status.OpsStatus())
	}).Methods(http.MethodGet)

	return router
}
