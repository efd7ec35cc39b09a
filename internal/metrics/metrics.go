// Package metrics exposes Prometheus instruments for replies and training runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"supportbot/internal/domain"
)

var (
	repliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "supportbot_replies_total",
		Help: "Replies produced, by engine and response-policy outcome.",
	}, []string{"engine", "outcome"})

	replySimilarity = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "supportbot_reply_similarity",
		Help:    "Best (weighted) similarity of answered and fallback replies.",
		Buckets: []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.7, 0.8, 0.9, 1},
	}, []string{"engine"})

	trainingRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "supportbot_training_runs_total",
		Help: "Training attempts, by engine and final status.",
	}, []string{"engine", "status"})

	trainingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "supportbot_training_duration_seconds",
		Help:    "Wall time of training attempts.",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	}, []string{"engine"})
)

// ObserveReply records one reply.
func ObserveReply(kind domain.Kind, r domain.Reply) {
	repliesTotal.WithLabelValues(string(kind), string(r.Outcome)).Inc()
	if r.Outcome == domain.OutcomeAnswered || r.Outcome == domain.OutcomeFallback {
		replySimilarity.WithLabelValues(string(kind)).Observe(r.Similarity)
	}
}

// ObserveTraining records one training attempt.
func ObserveTraining(kind domain.Kind, status domain.TrainingStatus, took time.Duration) {
	trainingRuns.WithLabelValues(string(kind), string(status)).Inc()
	trainingDuration.WithLabelValues(string(kind)).Observe(took.Seconds())
}
