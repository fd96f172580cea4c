package workflow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus collectors updated by runs. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	runs          *prometheus.CounterVec
	snapshots     prometheus.Counter
	resizes       prometheus.Counter
	grownGiB      prometheus.Counter
	stageFailures *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ebsgrow",
			Name:      "runs_total",
			Help:      "Workflow runs by result.",
		}, []string{"result"}),
		snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ebsgrow",
			Name:      "snapshots_total",
			Help:      "Snapshots created and tagged.",
		}),
		resizes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ebsgrow",
			Name:      "volume_resizes_total",
			Help:      "Volume modifications that settled.",
		}),
		grownGiB: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ebsgrow",
			Name:      "volume_grown_gib_total",
			Help:      "GiB added to volumes.",
		}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ebsgrow",
			Name:      "stage_failures_total",
			Help:      "Failures by error code.",
		}, []string{"code"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ebsgrow",
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each stage for one volume.",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 900},
		}, []string{"stage"}),
	}

	reg.MustRegister(m.runs, m.snapshots, m.resizes, m.grownGiB, m.stageFailures, m.stageDuration)
	return m
}

func (m *Metrics) observeStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func (m *Metrics) snapshotCreated() {
	if m == nil {
		return
	}
	m.snapshots.Inc()
}

func (m *Metrics) volumeGrown(oldSize, newSize int64) {
	if m == nil {
		return
	}
	m.resizes.Inc()
	m.grownGiB.Add(float64(newSize - oldSize))
}

func (m *Metrics) failure(code string) {
	if m == nil {
		return
	}
	m.stageFailures.WithLabelValues(code).Inc()
}

func (m *Metrics) run(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.runs.WithLabelValues(result).Inc()
}
