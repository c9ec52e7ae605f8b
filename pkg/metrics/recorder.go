// Package metrics exports monitor cycles as Prometheus metrics.
package metrics

import (
	"github.com/itohio/soilalarm/pkg/monitor"
	"github.com/prometheus/client_golang/prometheus"
)

var _ monitor.Observer = (*Recorder)(nil)

// Recorder counts active phases and what happened in them.
type Recorder struct {
	cycles        prometheus.Counter
	confirmations prometheus.Counter
	alarms        prometheus.Counter
	passes        prometheus.Counter
	readErrors    prometheus.Counter
	samples       *prometheus.GaugeVec
}

// New creates a recorder and registers its collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "soilalarm_cycles_total",
			Help: "Active phases run, one per wake plus the power-up phase.",
		}),
		confirmations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "soilalarm_confirmation_beeps_total",
			Help: "Beeps emitted because the test button was held at wake.",
		}),
		alarms: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "soilalarm_dry_alarms_total",
			Help: "Beeps emitted because moisture was below half the calibration reading.",
		}),
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "soilalarm_sampling_passes_total",
			Help: "Moisture/calibration sample pairs taken.",
		}),
		readErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "soilalarm_read_errors_total",
			Help: "Conversions that did not complete within the poll limit.",
		}),
		samples: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "soilalarm_last_sample",
			Help: "Last raw sample per analog channel.",
		}, []string{"channel"}),
	}

	reg.MustRegister(r.cycles, r.confirmations, r.alarms, r.passes, r.readErrors, r.samples)
	return r
}

// CycleCompleted implements monitor.Observer.
func (r *Recorder) CycleCompleted(rep monitor.Report) {
	r.cycles.Inc()
	if rep.Confirmed {
		r.confirmations.Inc()
	}
	r.alarms.Add(float64(rep.Alarms))
	r.passes.Add(float64(rep.Passes))
	r.readErrors.Add(float64(rep.Errors))
	if rep.Sampled {
		r.samples.WithLabelValues("moisture").Set(float64(rep.Moisture))
		r.samples.WithLabelValues("calibration").Set(float64(rep.Calibration))
	}
}
