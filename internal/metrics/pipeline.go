package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics: ingestion and judge.
var (
	IngestFilesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragmeter",
			Name:      "ingest_files_total",
			Help:      "Total number of ingested inputs by parse mode",
		},
		[]string{"schema", "mode"}, // mode: "structured" / "salvage"
	)

	IngestRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragmeter",
			Name:      "ingest_records_total",
			Help:      "Total records produced by ingestion",
		},
		[]string{"schema", "mode"},
	)

	IngestDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragmeter",
			Name:      "ingest_dropped_spans_total",
			Help:      "Salvage spans that yielded no recoverable field",
		},
		[]string{"schema"},
	)

	JudgeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragmeter",
			Name:      "judge_requests_total",
			Help:      "Total number of judge evaluations",
		},
		[]string{"provider", "model", "status"},
	)

	JudgeRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragmeter",
			Name:      "judge_request_duration_seconds",
			Help:      "Judge evaluation duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	JudgeTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragmeter",
			Name:      "judge_tokens_total",
			Help:      "Total judge tokens consumed",
		},
		[]string{"provider", "model", "type"}, // type: "prompt" / "output"
	)

	JudgeCostTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragmeter",
			Name:      "judge_cost_usd_total",
			Help:      "Estimated judge spend in USD",
		},
		[]string{"provider", "model"},
	)

	VerdictCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragmeter",
			Name:      "verdict_cache_total",
			Help:      "Verdict cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(IngestFilesTotal)
	prometheus.MustRegister(IngestRecordsTotal)
	prometheus.MustRegister(IngestDroppedTotal)
	prometheus.MustRegister(JudgeRequestsTotal)
	prometheus.MustRegister(JudgeRequestDuration)
	prometheus.MustRegister(JudgeTokensTotal)
	prometheus.MustRegister(JudgeCostTotal)
	prometheus.MustRegister(VerdictCacheTotal)
	pipelineMetricsRegistered = true
}
