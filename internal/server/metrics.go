package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	answerPathTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spendsense_answer_path_total",
		Help: "Answering operations by routed path.",
	}, []string{"path"})

	answerDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "spendsense_answer_duration_seconds",
		Help:    "End-to-end latency of answering operations.",
		Buckets: prometheus.DefBuckets,
	})

	indexRebuildTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spendsense_index_rebuild_total",
		Help: "Semantic index rebuilds by mode and outcome.",
	}, []string{"mode", "outcome"})
)

func init() {
	prometheus.MustRegister(answerPathTotal, answerDuration, indexRebuildTotal)
}

func observeAnswer(path string, started time.Time) {
	answerPathTotal.WithLabelValues(path).Inc()
	answerDuration.Observe(time.Since(started).Seconds())
}
