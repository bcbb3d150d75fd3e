package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements the Recorder interface using Prometheus metrics.
type PrometheusRecorder struct {
	registry       *prometheus.Registry
	runsStarted    prometheus.Counter
	runsFinished   *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	pollAttempts   prometheus.Counter
	stepsCompleted *prometheus.CounterVec
}

// NewPrometheusRecorder registers its collectors on a registry of its own.
func NewPrometheusRecorder() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		registry: reg,
		runsStarted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "loanwizard_runs_started_total",
				Help: "Total number of runs submitted to the workflow service",
			},
		),
		runsFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanwizard_runs_finished_total",
				Help: "Total number of runs by outcome",
			},
			[]string{"outcome"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loanwizard_run_duration_seconds",
				Help:    "Time from run submission to the final thread state read",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		pollAttempts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "loanwizard_run_polls_total",
				Help: "Total number of run status polls",
			},
		),
		stepsCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loanwizard_steps_completed_total",
				Help: "Total number of wizard steps completed",
			},
			[]string{"wizard", "step"},
		),
	}
}

func (p *PrometheusRecorder) RunStarted() {
	p.runsStarted.Inc()
}

func (p *PrometheusRecorder) RunFinished(outcome string, duration time.Duration) {
	p.runsFinished.WithLabelValues(outcome).Inc()
	p.runDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (p *PrometheusRecorder) PollAttempt() {
	p.pollAttempts.Inc()
}

func (p *PrometheusRecorder) StepCompleted(wizardType string, stepId string) {
	p.stepsCompleted.WithLabelValues(wizardType, stepId).Inc()
}

func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
