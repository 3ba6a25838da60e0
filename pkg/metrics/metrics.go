package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Monitoring-plane metrics, exposed on /metrics via promhttp.
var (
	ActiveMonitors = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "paywatch",
		Subsystem: "monitor",
		Name:      "active_tasks",
		Help:      "Number of payment requests currently being monitored.",
	})

	PollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "paywatch",
		Subsystem: "monitor",
		Name:      "polls_total",
		Help:      "Poll iterations performed by monitoring tasks.",
	}, []string{"chain"})

	OracleErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "paywatch",
		Subsystem: "monitor",
		Name:      "oracle_errors_total",
		Help:      "Verification calls that returned an error.",
	}, []string{"chain"})

	VerifyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "paywatch",
		Subsystem: "monitor",
		Name:      "verify_duration_seconds",
		Help:      "Latency of verification calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"chain"})

	RequestsCompletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "paywatch",
		Subsystem: "requests",
		Name:      "completed_total",
		Help:      "Requests moved to completed, by detection source.",
	}, []string{"source"})

	RequestsExpiredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "paywatch",
		Subsystem: "requests",
		Name:      "expired_total",
		Help:      "Requests moved to expired, by detection source.",
	}, []string{"source"})
)
