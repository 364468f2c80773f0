package experiment

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors of a batch of experiments. The
// collectors live on a private registry so that several batches in one
// process never collide.
type Metrics struct {
	Registry *prometheus.Registry

	deployments  *prometheus.CounterVec
	finishedJobs *prometheus.CounterVec
	waitingTime  *prometheus.HistogramVec
	makespan     *prometheus.GaugeVec
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		deployments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cosim_deployments_total",
				Help: "Scheduler deployment decisions by kind",
			},
			[]string{"experiment", "policy", "kind"},
		),
		finishedJobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cosim_finished_jobs_total",
				Help: "Jobs that ran to completion",
			},
			[]string{"experiment", "policy"},
		),
		waitingTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cosim_job_waiting_seconds",
				Help:    "Simulated time jobs spent in the waiting queue",
				Buckets: prometheus.ExponentialBuckets(1, 4, 10),
			},
			[]string{"experiment", "policy"},
		),
		makespan: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cosim_makespan_seconds",
				Help: "Simulated makespan of a run",
			},
			[]string{"experiment", "policy"},
		),
	}
	m.Registry.MustRegister(m.deployments, m.finishedJobs, m.waitingTime, m.makespan)
	return m
}

// WriteToTextfile dumps every collected metric in the text exposition format.
func (m *Metrics) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return errors.Wrapf(err, "writing metrics to %s", path)
	}
	return nil
}

func (m *Metrics) observeDeployment(experiment, policy, kind string) {
	if m == nil {
		return
	}
	m.deployments.WithLabelValues(experiment, policy, kind).Inc()
}

func (m *Metrics) observeFinished(experiment, policy string, waiting float64) {
	if m == nil {
		return
	}
	m.finishedJobs.WithLabelValues(experiment, policy).Inc()
	m.waitingTime.WithLabelValues(experiment, policy).Observe(waiting)
}

func (m *Metrics) observeMakespan(experiment, policy string, makespan float64) {
	if m == nil {
		return
	}
	m.makespan.WithLabelValues(experiment, policy).Set(makespan)
}
