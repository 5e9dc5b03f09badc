package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		jobsTotal,
		genTokensTotal,
		genCost,
		genLatencyMs,
		quotaDenials,
		availabilityProbes,
		jobsPurged,
	)
}

var (
	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_jobs_total",
			Help: "Generation jobs by terminal status.",
		},
		[]string{"status"},
	)

	genTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_tokens_total",
			Help: "Sum of total tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	genCost = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_cost_total",
			Help: "Accumulated generation cost per provider/model.",
		},
		[]string{"provider", "model"},
	)

	genLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orchestrator_call_latency_ms",
			Help:    "Provider call latency distribution in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		},
		[]string{"provider", "model", "success"},
	)

	quotaDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_quota_denials_total",
			Help: "Requests denied by the quota guard per plan tier.",
		},
		[]string{"tier"},
	)

	availabilityProbes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_availability_probes_total",
			Help: "Model availability probes by outcome.",
		},
		[]string{"available"},
	)

	jobsPurged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orchestrator_jobs_purged_total",
			Help: "Terminal jobs removed by the retention purge.",
		},
	)
)

func IncJob(status string) {
	jobsTotal.WithLabelValues(status).Inc()
}

func ObserveGeneration(provider, model string, totalTokens int, cost float64, latencyMs int64, success bool) {
	genLatencyMs.WithLabelValues(provider, model, strconv.FormatBool(success)).Observe(float64(latencyMs))
	if !success {
		return
	}
	genTokensTotal.WithLabelValues(provider, model).Add(float64(totalTokens))
	genCost.WithLabelValues(provider, model).Add(cost)
}

func IncQuotaDenied(tier string) {
	quotaDenials.WithLabelValues(tier).Inc()
}

func IncAvailabilityProbe(available bool) {
	availabilityProbes.WithLabelValues(strconv.FormatBool(available)).Inc()
}

func AddJobsPurged(n int64) {
	jobsPurged.Add(float64(n))
}
