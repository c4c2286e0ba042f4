package processor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	matchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hunter",
		Subsystem: "processor",
		Name:      "matches_total",
		Help:      "Match records saved, by item kind.",
	}, []string{"kind"})
	rejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hunter",
		Subsystem: "processor",
		Name:      "rejections_total",
		Help:      "Listings rejected and recorded in the rejection cache.",
	})
)
