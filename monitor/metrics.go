package monitor

import (
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stream outcomes recorded by RecordStream.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// OtherModel is the metrics label of any model outside the known catalog.
const OtherModel = "other"

// ModelLabel bounds the model label to the known catalog; the request's model
// name is client supplied.
func ModelLabel(model string, known []string) string {
	if slices.Contains(known, model) {
		return model
	}
	return OtherModel
}

var (
	chatRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "e2bridge_chat_requests_total",
		Help: "Chat completion streams by model and outcome.",
	}, []string{"model", "outcome"})

	streamChunks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "e2bridge_stream_chunks_total",
		Help: "Content delta chunks relayed to clients.",
	}, []string{"model"})

	tokenMints = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "e2bridge_token_mint_total",
		Help: "Access token mint attempts by result.",
	}, []string{"result"})

	conversationsCached = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "e2bridge_conversations_cached",
		Help: "Conversation handles held by the in-memory conversation cache.",
	})

	streamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "e2bridge_stream_duration_seconds",
		Help:    "Wall time of chat completion streams.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"model"})
)

// RecordStream records one finished stream.
func RecordStream(model, outcome string, startTime time.Time) {
	chatRequests.WithLabelValues(model, outcome).Inc()
	streamDuration.WithLabelValues(model).Observe(time.Since(startTime).Seconds())
}

func RecordChunk(model string) {
	streamChunks.WithLabelValues(model).Inc()
}

// RecordTokenMint records the result of one credential exchange.
func RecordTokenMint(ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	tokenMints.WithLabelValues(result).Inc()
}

func SetConversationsCached(n int) {
	conversationsCached.Set(float64(n))
}
