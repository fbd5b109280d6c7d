// Package telemetry exports screening run counters in Prometheus format.
package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/model"
)

const namespace = "mslab"

// Recorder accumulates run metrics on its own registry so several recorders
// can coexist in one process.
type Recorder struct {
	registry  *prometheus.Registry
	runs      *prometheus.CounterVec
	patients  *prometheus.CounterVec
	actions   *prometheus.CounterVec
	flags     *prometheus.CounterVec
	overrides prometheus.Counter
	downgrade prometheus.Counter
	duration  prometheus.Histogram
	precision prometheus.Gauge
	recall    prometheus.Gauge
}

// Patient outcome labels.
const (
	OutcomeAssessed = "assessed"
	OutcomeFiltered = "filtered"
	OutcomeFailed   = "failed"
)

// NewRecorder creates a recorder with a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Screening runs by final status",
		}, []string{"status"}),
		patients: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "patients_evaluated_total",
			Help:      "Patients presented to the pipeline by outcome",
		}, []string{"outcome"}),
		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Final actions by type",
		}, []string{"action"}),
		flags: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "safety_flags_total",
			Help:      "Safety flags raised by code",
		}, []string{"code"}),
		overrides: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "safety_overrides_total",
			Help:      "Draft or auto orders capped to review by a safety flag",
		}),
		downgrade: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_downgrades_total",
			Help:      "Auto orders downgraded to drafts because the quota was spent",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of completed screening runs",
			Buckets:   prometheus.DefBuckets,
		}),
		precision: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_precision",
			Help:      "Precision of the most recent completed run",
		}),
		recall: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_recall",
			Help:      "Recall of the most recent completed run",
		}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveRun records a finished run. Runs that never reached a terminal state
// are ignored.
func (r *Recorder) ObserveRun(run *model.RunResult) {
	if run == nil || !run.Status.IsTerminal() {
		return
	}
	r.runs.WithLabelValues(string(run.Status)).Inc()
	if run.Status != model.RunCompleted {
		return
	}

	filtered := run.TotalPatients - run.CandidatesFound - len(run.Failures)
	r.patients.WithLabelValues(OutcomeAssessed).Add(float64(run.CandidatesFound))
	r.patients.WithLabelValues(OutcomeFiltered).Add(float64(max(filtered, 0)))
	r.patients.WithLabelValues(OutcomeFailed).Add(float64(len(run.Failures)))

	r.actions.WithLabelValues(string(model.ActionNoAction)).Add(float64(run.Actions.NoAction))
	r.actions.WithLabelValues(string(model.ActionRecommendReview)).Add(float64(run.Actions.RecommendReview))
	r.actions.WithLabelValues(string(model.ActionDraftOrder)).Add(float64(run.Actions.DraftOrder))
	r.actions.WithLabelValues(string(model.ActionAutoOrder)).Add(float64(run.Actions.AutoOrder))

	for i := range run.Assessments {
		a := &run.Assessments[i]
		for _, f := range a.Flags {
			r.flags.WithLabelValues(f.Code).Inc()
		}
		switch {
		case a.NeedsManualReview() && a.BaseAction.Autonomy() > model.AutonomyRecommendOnly:
			r.overrides.Inc()
		case a.BaseAction == model.ActionAutoOrder && a.Action == model.ActionDraftOrder:
			r.downgrade.Inc()
		}
	}

	r.duration.Observe(run.Duration.Seconds())
	if run.Precision != nil {
		r.precision.Set(*run.Precision)
	}
	if run.Recall != nil {
		r.recall.Set(*run.Recall)
	}
}

// WriteTextfile writes the current metrics in the node_exporter textfile
// format, replacing path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
