package gossip

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// generationRuns 统计生成流程的执行次数。
	// Labels: result (success, fallback, error)
	generationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chronicles",
		Subsystem: "gossip",
		Name:      "generation_runs_total",
		Help:      "Total gossip generation passes by result",
	}, []string{"result"})

	// generatedItems 统计各信号生成的条目数。
	// Labels: signal
	generatedItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chronicles",
		Subsystem: "gossip",
		Name:      "items_generated_total",
		Help:      "Total gossip items synthesized by signal type",
	}, []string{"signal"})

	generationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "chronicles",
		Subsystem: "gossip",
		Name:      "generation_duration_seconds",
		Help:      "Duration of a gossip generation pass in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	feedCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chronicles",
		Subsystem: "gossip",
		Name:      "feed_cache_lookups_total",
		Help:      "Gossip feed cache lookups by outcome",
	}, []string{"outcome"})
)
