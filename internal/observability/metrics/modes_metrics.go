package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ModeTransitionActivated   = "activated"
	ModeTransitionUpdated     = "updated"
	ModeTransitionDeactivated = "deactivated"
	ModeTransitionExpired     = "expired"
)

const (
	ReportGenerationStatusOK       = "ok"
	ReportGenerationStatusError    = "error"
	ReportGenerationStatusCanceled = "canceled"
)

// ModeMetrics captures operational-mode and cost-report health signals.
type ModeMetrics struct {
	modeTransitions    *prometheus.CounterVec
	effectResolutions  prometheus.Counter
	reportGenerations  *prometheus.CounterVec
	reportDuration     prometheus.Observer
	sweepRuns          prometheus.Counter
	sweepExpired       *prometheus.CounterVec
	sweepLockContended prometheus.Counter
}

var (
	modeMetricsOnce sync.Once
	modeMetrics     *ModeMetrics
)

// Modes returns the singleton mode metrics registry.
func Modes() *ModeMetrics {
	modeMetricsOnce.Do(func() {
		modeMetrics = newModeMetrics(prometheus.DefaultRegisterer)
	})
	return modeMetrics
}

func newModeMetrics(reg prometheus.Registerer) *ModeMetrics {
	m := &ModeMetrics{
		modeTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "comanda_mode_transitions_total",
			Help: "Operational mode transitions by kind and transition.",
		}, []string{"kind", "transition"}),
		effectResolutions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "comanda_effect_resolutions_total",
			Help: "Effective mode snapshot resolutions.",
		}),
		reportGenerations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "comanda_report_generations_total",
			Help: "Daily cost report generations by outcome.",
		}, []string{"status"}),
		sweepRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "comanda_mode_sweep_runs_total",
			Help: "Expiry sweep executions.",
		}),
		sweepExpired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "comanda_mode_sweep_expired_total",
			Help: "Modes observed expired by the sweep, by kind.",
		}, []string{"kind"}),
		sweepLockContended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "comanda_mode_sweep_lock_contended_total",
			Help: "Sweep runs skipped because another instance held the lock.",
		}),
	}
	reportDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "comanda_report_generation_duration_seconds",
		Help:    "Daily cost report generation latency.",
		Buckets: prometheus.DefBuckets,
	})
	m.reportDuration = reportDuration

	if reg != nil {
		reg.MustRegister(
			m.modeTransitions,
			m.effectResolutions,
			m.reportGenerations,
			reportDuration,
			m.sweepRuns,
			m.sweepExpired,
			m.sweepLockContended,
		)
	}
	return m
}

func (m *ModeMetrics) IncModeTransition(kind, transition string) {
	if m == nil {
		return
	}
	m.modeTransitions.WithLabelValues(kind, transition).Inc()
}

func (m *ModeMetrics) IncEffectResolution() {
	if m == nil {
		return
	}
	m.effectResolutions.Inc()
}

func (m *ModeMetrics) IncReportGeneration(status string) {
	if m == nil {
		return
	}
	m.reportGenerations.WithLabelValues(status).Inc()
}

func (m *ModeMetrics) ObserveReportGeneration(d time.Duration) {
	if m == nil {
		return
	}
	m.reportDuration.Observe(d.Seconds())
}

func (m *ModeMetrics) IncSweepRun() {
	if m == nil {
		return
	}
	m.sweepRuns.Inc()
}

func (m *ModeMetrics) IncSweepExpired(kind string) {
	if m == nil {
		return
	}
	m.sweepExpired.WithLabelValues(kind).Inc()
}

func (m *ModeMetrics) IncSweepLockContended() {
	if m == nil {
		return
	}
	m.sweepLockContended.Inc()
}
