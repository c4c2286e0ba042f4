package ebay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var apiCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "hunter",
	Subsystem: "ebay",
	Name:      "api_calls_total",
	Help:      "Upstream API calls issued, by endpoint.",
}, []string{"endpoint"})
