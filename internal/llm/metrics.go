package llm

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	llmReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "Model calls by provider and outcome (ok|error).",
		},
		[]string{"provider", "outcome"},
	)

	llmDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_stream_duration_seconds",
			Help:    "Wall time from request to last chunk of a model reply.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80, 120},
		},
		[]string{"provider"},
	)

	llmChunks = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_stream_chunks",
			Help:    "Number of chunks per model reply.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1..512
		},
		[]string{"provider"},
	)
)

func init() {
	prometheus.MustRegister(llmReqs, llmDur, llmChunks)
}

// Instrumented records Prometheus metrics around another Streamer.
type Instrumented struct {
	Provider string
	Next     Streamer
}

var _ Streamer = (*Instrumented)(nil)

// Stream implements Streamer.
func (s *Instrumented) Stream(ctx context.Context, model string, msgs []Message, fn ChunkFunc) error {
	start := time.Now()
	n := 0
	err := s.Next.Stream(ctx, model, msgs, func(chunk string) error {
		n++
		return fn(chunk)
	})

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	llmReqs.WithLabelValues(s.Provider, outcome).Inc()
	llmDur.WithLabelValues(s.Provider).Observe(time.Since(start).Seconds())
	llmChunks.WithLabelValues(s.Provider).Observe(float64(n))
	return err
}
