package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	TurnOutcomeAnswered      = "answered"
	TurnOutcomeHistoryRecall = "history_recall"
	TurnOutcomeLLMFailed     = "llm_failed"
)

var (
	chatTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dqassist_chat_turns_total",
			Help: "Total number of handled chat turns by outcome.",
		},
		[]string{"outcome"},
	)
	sqlStatementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dqassist_sql_statements_total",
			Help: "Total number of model-emitted SQL statements executed, by result class.",
		},
		[]string{"class"},
	)
	sqlStatementDurationMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dqassist_sql_statement_duration_ms",
			Help:    "Latency of a single SQL statement execution in milliseconds.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		},
	)
	llmRequestDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dqassist_llm_request_duration_seconds",
			Help:    "Latency of chat completion requests against the LLM backend.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)
	llmFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dqassist_llm_failures_total",
			Help: "Total number of failed chat completion requests.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		chatTurnsTotal,
		sqlStatementsTotal,
		sqlStatementDurationMs,
		llmRequestDurationSeconds,
		llmFailuresTotal,
	)
}

func ObserveChatTurn(outcome string) {
	chatTurnsTotal.WithLabelValues(outcome).Inc()
}

func ObserveSQLStatement(class string, elapsed time.Duration) {
	sqlStatementsTotal.WithLabelValues(class).Inc()
	sqlStatementDurationMs.Observe(float64(elapsed.Milliseconds()))
}

func ObserveLLMRequest(elapsed time.Duration, err error) {
	llmRequestDurationSeconds.Observe(elapsed.Seconds())
	if err != nil {
		llmFailuresTotal.Inc()
	}
}
