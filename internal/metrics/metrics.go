// Package metrics exports the outcome of a check run in the Prometheus text
// format, for collection by node_exporter's textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/coreyt/sine/internal/runner"
)

const namespace = "sine"

// Collector holds the metrics of a single run.
type Collector struct {
	registry *prometheus.Registry

	findings   *prometheus.GaugeVec
	instances  *prometheus.GaugeVec
	ruleErrors prometheus.Gauge
	fixed      prometheus.Gauge
	duration   prometheus.Gauge
	lastRun    *prometheus.GaugeVec
}

// NewCollector creates a collector with its own registry. A nil registry
// gets a fresh one.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		findings: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "findings",
				Help:      "Findings of the last run by guideline and baseline status",
			},
			[]string{"guideline_id", "status"},
		),
		instances: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pattern_instances",
				Help:      "Pattern instances discovered by the last run",
			},
			[]string{"pattern_id"},
		),
		ruleErrors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rule_errors",
			Help:      "Rules the engine failed to execute in the last run",
		}),
		fixed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "baseline_fixed_entries",
			Help:      "Baseline entries no longer found by the last run",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run",
		}),
		lastRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time the last run finished",
			},
			[]string{"mode"},
		),
	}

	registry.MustRegister(c.findings, c.instances, c.ruleErrors, c.fixed, c.duration, c.lastRun)
	return c
}

// Record sets the metrics from a finished run.
func (c *Collector) Record(res *runner.Result, mode runner.Mode, elapsed time.Duration) {
	if res == nil {
		return
	}

	known := map[string]int{}
	for _, f := range res.KnownFindings {
		known[f.GuidelineID]++
	}
	fresh := map[string]int{}
	for _, f := range res.NewFindings {
		fresh[f.GuidelineID]++
	}
	for _, f := range res.AllFindings {
		c.findings.WithLabelValues(f.GuidelineID, "new").Set(float64(fresh[f.GuidelineID]))
		c.findings.WithLabelValues(f.GuidelineID, "known").Set(float64(known[f.GuidelineID]))
	}

	byPattern := map[string]int{}
	for _, p := range res.PatternInstances {
		byPattern[p.PatternID]++
	}
	for id, n := range byPattern {
		c.instances.WithLabelValues(id).Set(float64(n))
	}

	c.ruleErrors.Set(float64(len(res.RuleErrors)))
	c.fixed.Set(float64(len(res.FixedEntries)))
	c.duration.Set(elapsed.Seconds())
	c.lastRun.WithLabelValues(mode.String()).SetToCurrentTime()
}

// WriteTextfile writes all metrics to path, replacing it atomically.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}

// Registry returns the registry the metrics are registered with.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
