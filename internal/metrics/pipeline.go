package metrics

import "github.com/prometheus/client_golang/prometheus"

// Qualification pipeline Prometheus metrics.
var (
	QualificationDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "leadforge",
			Name:      "qualification_decisions_total",
			Help:      "Total qualification decisions",
		},
		[]string{"source", "outcome"}, // source: "model"/"oracle"/"none", outcome: "accept"/"reject"
	)

	OracleRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "leadforge",
			Name:      "oracle_requests_total",
			Help:      "Total LLM oracle requests",
		},
		[]string{"model", "status"},
	)

	OracleRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "leadforge",
			Name:      "oracle_request_duration_seconds",
			Help:      "LLM oracle request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	OracleTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "leadforge",
			Name:      "oracle_tokens_total",
			Help:      "Total LLM oracle tokens consumed",
		},
		[]string{"model", "type"},
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "leadforge",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "leadforge",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "leadforge",
			Name:      "embedding_tokens_total",
			Help:      "Total embedding tokens consumed",
		},
		[]string{"model", "type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "leadforge",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	TrainingRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "leadforge",
			Name:      "training_runs_total",
			Help:      "Classifier training attempts",
		},
		[]string{"outcome"}, // "trained" / "precondition_unmet"
	)

	TrainingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "leadforge",
			Name:      "training_duration_seconds",
			Help:      "Classifier training duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		},
	)

	LabeledLeads = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "leadforge",
			Name:      "labeled_leads",
			Help:      "Labeled leads by class",
		},
		[]string{"class"}, // "positive" / "negative"
	)

	LimiterRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "leadforge",
			Name:      "limiter_remaining",
			Help:      "Remaining actions in the limiter window (-1 = unlimited)",
		},
		[]string{"lane", "window"}, // window: "daily" / "weekly"
	)

	LaneRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "leadforge",
			Name:      "lane_runs_total",
			Help:      "Engine lane executions",
		},
		[]string{"lane", "outcome"}, // outcome: "ok" / "idle" / "error"
	)

	BudgetTokensRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "leadforge",
			Name:      "budget_tokens_remaining",
			Help:      "Remaining oracle token budget",
		},
		[]string{"period"}, // "daily" / "monthly"
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers Prometheus pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(QualificationDecisionsTotal)
	prometheus.MustRegister(OracleRequestsTotal)
	prometheus.MustRegister(OracleRequestDuration)
	prometheus.MustRegister(OracleTokensTotal)
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingRequestDuration)
	prometheus.MustRegister(EmbeddingTokensTotal)
	prometheus.MustRegister(EmbeddingCacheTotal)
	prometheus.MustRegister(TrainingRunsTotal)
	prometheus.MustRegister(TrainingDuration)
	prometheus.MustRegister(LabeledLeads)
	prometheus.MustRegister(LimiterRemaining)
	prometheus.MustRegister(LaneRunsTotal)
	prometheus.MustRegister(BudgetTokensRemaining)
	pipelineMetricsRegistered = true
}
