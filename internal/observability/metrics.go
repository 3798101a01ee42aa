package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabq_loads_total",
			Help: "Total number of page-load requests by source kind and outcome.",
		},
		[]string{"kind", "status"},
	)

	loadDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tabq_load_duration_seconds",
			Help:    "End-to-end page-load latency by source kind.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	savesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabq_saves_total",
			Help: "Total number of save/export operations by destination kind and outcome.",
		},
		[]string{"kind", "status"},
	)
)

func init() {
	prometheus.MustRegister(loadsTotal, loadDurationSeconds, savesTotal)
}

func ObserveLoad(kind string, duration time.Duration, err error) {
	loadsTotal.WithLabelValues(kind, statusLabel(err)).Inc()
	if err == nil {
		loadDurationSeconds.WithLabelValues(kind).Observe(duration.Seconds())
	}
}

func ObserveSave(kind string, err error) {
	savesTotal.WithLabelValues(kind, statusLabel(err)).Inc()
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
