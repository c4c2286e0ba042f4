package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hunter",
		Subsystem: "scheduler",
		Name:      "ticks_total",
		Help:      "Scheduler ticks executed.",
	})
	taskRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hunter",
		Subsystem: "scheduler",
		Name:      "task_runs_total",
		Help:      "Task invocations started.",
	})
	taskErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hunter",
		Subsystem: "scheduler",
		Name:      "task_errors_total",
		Help:      "Task invocations that returned an error.",
	})
)
