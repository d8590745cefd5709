package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verse_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "verse_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	LLMCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verse_llm_calls_total",
			Help: "Total number of LLM provider calls.",
		},
		[]string{"kind", "status"},
	)

	LLMTokensStreamedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "verse_llm_tokens_streamed_total",
			Help: "Total number of token fragments relayed over SSE.",
		},
	)

	SSEStreamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "verse_sse_streams_active",
			Help: "Number of chat streams currently open.",
		},
	)

	QuotaDenialsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "verse_quota_denials_total",
			Help: "Total number of metered calls denied by the daily usage limit.",
		},
	)

	BibleFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verse_bible_fetches_total",
			Help: "Total number of Bible chapter fetches.",
		},
		[]string{"source"}, // cache or upstream
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		LLMCallsTotal,
		LLMTokensStreamedTotal,
		SSEStreamsActive,
		QuotaDenialsTotal,
		BibleFetchesTotal,
	)
}
