package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus metrics exposed by the monitor.
type Metrics struct {
	PoolsDiscovered     prometheus.Counter
	NotificationsSent   *prometheus.CounterVec
	LiquidityChecks     *prometheus.CounterVec
	NotificationLatency prometheus.Histogram
	ActivePools         prometheus.Gauge
	LastProcessedBlock  prometheus.Gauge
	ErrorsTotal         *prometheus.CounterVec
}

// NewMetrics creates and registers all monitor metrics. A nil registerer
// registers nothing, which keeps tests quiet.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &Metrics{
		PoolsDiscovered: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "poolwatch_pools_discovered_total",
			Help: "Total pools discovered involving the target token.",
		}),
		NotificationsSent: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "poolwatch_notifications_sent_total",
			Help: "Total notifications dispatched, by milestone type and channel.",
		}, []string{"type", "channel"}),
		LiquidityChecks: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "poolwatch_liquidity_checks_total",
			Help: "Total liquidity probes, by outcome.",
		}, []string{"status"}),
		NotificationLatency: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "poolwatch_notification_latency_seconds",
			Help:    "Time spent dispatching one notification, retries included.",
			Buckets: prometheus.DefBuckets,
		}),
		ActivePools: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "poolwatch_active_pools",
			Help: "Pools currently tracked in the store.",
		}),
		LastProcessedBlock: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "poolwatch_last_processed_block",
			Help: "Highest block fully processed by the discovery scanner.",
		}),
		ErrorsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "poolwatch_errors_total",
			Help: "Errors encountered by the monitor, by type.",
		}, []string{"type"}),
	}
}

// Liquidity check outcomes.
const (
	checkSufficient   = "sufficient"
	checkInsufficient = "insufficient"
	checkFailed       = "failed"
)
