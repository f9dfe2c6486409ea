package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		turnsProcessed,
		turnsDenied,
		rateLimited,
		aiCallLatencyMs,
		replyParseStage,
	)
}

var (
	turnsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutor_turns_processed_total",
			Help: "Conversation turns fully processed, by input kind.",
		},
		[]string{"kind"}, // text | voice | quick_reply
	)

	turnsDenied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutor_turns_denied_total",
			Help: "Turns rejected before the model call, by reason.",
		},
		[]string{"reason"}, // limit | onboarding
	)

	rateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tutor_rate_limited_total",
			Help: "Messages rejected by the per-user send-interval limiter.",
		},
	)

	aiCallLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tutor_ai_call_latency_ms",
			Help:    "Language-model call latency distribution in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2000, 5000, 10000, 20000, 30000},
		},
		[]string{"provider", "success"},
	)

	replyParseStage = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutor_reply_parse_stage_total",
			Help: "Which parsing stage produced the tutor reply.",
		},
		[]string{"stage"}, // strict | loose | raw
	)
)

func ObserveTurn(kind string)             { turnsProcessed.WithLabelValues(kind).Inc() }
func ObserveTurnDenied(reason string)     { turnsDenied.WithLabelValues(reason).Inc() }
func ObserveRateLimited()                 { rateLimited.Inc() }
func ObserveReplyParseStage(stage string) { replyParseStage.WithLabelValues(stage).Inc() }

func ObserveAICall(provider string, d time.Duration, success bool) {
	aiCallLatencyMs.WithLabelValues(provider, strconv.FormatBool(success)).
		Observe(float64(d.Milliseconds()))
}
