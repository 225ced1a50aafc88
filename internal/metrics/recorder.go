package metrics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespaceConstant             = "ecogate"
	suiteLabelConstant            = "suite"
	stageLabelConstant            = "stage"
	statusLabelConstant           = "status"
	writeErrorTemplateConstant    = "write metrics textfile %s: %w"
	emptyPathMessageConstant      = "metrics textfile path is empty"
	stageDurationNameConstant     = "stage_duration_seconds"
	stageDurationHelpConstant     = "Duration of gate stages in seconds"
	stageResultsNameConstant      = "stage_results_total"
	stageResultsHelpConstant      = "Gate stage results by status"
	runSucceededNameConstant      = "run_succeeded"
	runSucceededHelpConstant      = "Whether the most recent run of a suite succeeded (1) or failed (0)"
	runLastCompletionNameConstant = "run_last_completion_timestamp_seconds"
	runLastCompletionHelpConstant = "Unix time the most recent run of a suite finished"
)

// ErrEmptyPath indicates a textfile export without a destination.
var ErrEmptyPath = errors.New(emptyPathMessageConstant)

// Recorder collects stage and run metrics on its own registry.
type Recorder struct {
	registry       *prometheus.Registry
	stageDurations *prometheus.HistogramVec
	stageResults   *prometheus.CounterVec
	runSucceeded   *prometheus.GaugeVec
	runCompletion  *prometheus.GaugeVec
	clock          func() time.Time
}

// NewRecorder registers the gate metrics on a fresh registry.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Recorder{
		registry: registry,
		stageDurations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespaceConstant,
				Name:      stageDurationNameConstant,
				Help:      stageDurationHelpConstant,
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
			},
			[]string{suiteLabelConstant, stageLabelConstant},
		),
		stageResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespaceConstant,
				Name:      stageResultsNameConstant,
				Help:      stageResultsHelpConstant,
			},
			[]string{suiteLabelConstant, stageLabelConstant, statusLabelConstant},
		),
		runSucceeded: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespaceConstant,
				Name:      runSucceededNameConstant,
				Help:      runSucceededHelpConstant,
			},
			[]string{suiteLabelConstant},
		),
		runCompletion: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespaceConstant,
				Name:      runLastCompletionNameConstant,
				Help:      runLastCompletionHelpConstant,
			},
			[]string{suiteLabelConstant},
		),
		clock: time.Now,
	}
}

// ObserveStage records a stage result. Durations are only observed for stages that ran.
func (recorder *Recorder) ObserveStage(suite string, stage string, status string, duration time.Duration) {
	recorder.stageResults.With(prometheus.Labels{
		suiteLabelConstant:  suite,
		stageLabelConstant:  stage,
		statusLabelConstant: status,
	}).Inc()
	if duration <= 0 {
		return
	}
	recorder.stageDurations.With(prometheus.Labels{
		suiteLabelConstant: suite,
		stageLabelConstant: stage,
	}).Observe(duration.Seconds())
}

// ObserveRun records the outcome of a whole suite run.
func (recorder *Recorder) ObserveRun(suite string, succeeded bool) {
	value := 0.0
	if succeeded {
		value = 1
	}
	recorder.runSucceeded.WithLabelValues(suite).Set(value)
	recorder.runCompletion.WithLabelValues(suite).Set(float64(recorder.clock().Unix()))
}

// Gatherer exposes the registry for exporters and tests.
func (recorder *Recorder) Gatherer() prometheus.Gatherer {
	return recorder.registry
}

// WriteTextfile exports the collected metrics in the node exporter textfile format.
func (recorder *Recorder) WriteTextfile(path string) error {
	trimmedPath := strings.TrimSpace(path)
	if len(trimmedPath) == 0 {
		return ErrEmptyPath
	}
	if writeError := prometheus.WriteToTextfile(trimmedPath, recorder.registry); writeError != nil {
		return fmt.Errorf(writeErrorTemplateConstant, trimmedPath, writeError)
	}
	return nil
}
