package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScansStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "doppelscan_scans_started_total",
		Help: "Number of scan requests started.",
	})

	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "doppelscan_scan_duration_seconds",
		Help:    "Wall time of complete scans.",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	})

	CandidatesEvaluated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "doppelscan_candidates_evaluated_total",
		Help: "Candidates pulled through the scoring pipeline.",
	})

	CandidatesExcluded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doppelscan_candidates_excluded_total",
		Help: "Candidates dropped from results, by reason.",
	}, []string{"reason"})
)
