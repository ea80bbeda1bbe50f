// Package metrics exports an analysis as Prometheus gauges.
//
// The gauges are written once per run in the node_exporter textfile-collector
// format. Every Collector owns its registry.
package metrics

import (
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/randomizedcoder/camera-timing-analyzer/internal/stats"
)

const namespace = "camera_timing"

// Record kinds used as the "kind" label.
const (
	kindFrame       = "frame"
	kindLongDelay   = "long_delay"
	kindGrabFailure = "grab_failure"
	kindSlowGrab    = "slow_grab"
	kindSystem      = "sysmon"
)

// Collector holds the gauges for one analysis run.
type Collector struct {
	registry *prometheus.Registry

	// --- Run ---
	info         *prometheus.GaugeVec
	linesRead    prometheus.Gauge
	linesSkipped *prometheus.GaugeVec

	// --- Records ---
	records *prometheus.GaugeVec

	// --- Frame timing ---
	frameInterval *prometheus.GaugeVec
	frameGrab     *prometheus.GaugeVec

	// --- Delays ---
	delayInterval    *prometheus.GaugeVec
	delaysGrabCaused prometheus.Gauge

	// --- System monitor ---
	systemMean *prometheus.GaugeVec
	systemDiff *prometheus.GaugeVec
}

// CollectorConfig holds configuration for the collector.
type CollectorConfig struct {
	Version string
	Source  string // analyzed log path
}

// NewCollector creates a collector with its own registry.
func NewCollector(cfg CollectorConfig) *Collector {
	return NewCollectorWithRegistry(cfg, prometheus.NewRegistry())
}

// NewCollectorWithRegistry creates a collector registered with registry.
func NewCollectorWithRegistry(cfg CollectorConfig, registry *prometheus.Registry) *Collector {
	c := &Collector{
		registry: registry,

		info: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "info",
				Help:      "Information about the analysis run (value always 1)",
			},
			[]string{"version", "source"},
		),
		linesRead: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "lines_read",
				Help:      "Log lines read",
			},
		),
		linesSkipped: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "lines_skipped",
				Help:      "Lines with a marker token whose fields did not parse",
			},
			[]string{"kind"},
		),
		records: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "records",
				Help:      "Parsed records by kind",
			},
			[]string{"kind"},
		),
		frameInterval: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "frame_interval_milliseconds",
				Help:      "Interval between frames",
			},
			[]string{"stat"},
		),
		frameGrab: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "frame_grab_milliseconds",
				Help:      "Time spent in grab() per frame",
			},
			[]string{"stat"},
		),
		delayInterval: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "long_delay_interval_milliseconds",
				Help:      "Interval of long-delay events",
			},
			[]string{"stat"},
		),
		delaysGrabCaused: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "long_delays_grab_caused",
				Help:      "Long delays whose grab time exceeded the grab-cause threshold",
			},
		),
		systemMean: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "system_metric_mean",
				Help:      "Mean system monitor value by sample context",
			},
			[]string{"metric", "context"},
		),
		systemDiff: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "system_metric_diff_percent",
				Help:      "Problem mean relative to baseline mean",
			},
			[]string{"metric"},
		),
	}

	registry.MustRegister(
		c.info,
		c.linesRead,
		c.linesSkipped,
		c.records,
		c.frameInterval,
		c.frameGrab,
		c.delayInterval,
		c.delaysGrabCaused,
		c.systemMean,
		c.systemDiff,
	)

	c.info.WithLabelValues(cfg.Version, cfg.Source).Set(1)

	return c
}

// Record sets every gauge from a.
func (c *Collector) Record(a *stats.Analysis) {
	c.linesRead.Set(float64(a.LinesRead))

	// Every kind is exported, zero when absent.
	frames, delays, failures, slow, system := 0, 0, 0, 0, 0
	if a.Frames != nil {
		frames = a.Frames.Count
		setDistribution(c.frameInterval, a.Frames.Interval)
		setDistribution(c.frameGrab, a.Frames.Grab)
	}
	if a.Delays != nil {
		delays = a.Delays.Count
		setDistribution(c.delayInterval, a.Delays.Interval)
		c.delaysGrabCaused.Set(float64(a.Delays.GrabCaused))
	}
	if a.GrabFailures != nil {
		failures = a.GrabFailures.Count
	}
	if a.SlowGrabs != nil {
		slow = a.SlowGrabs.Count
	}
	if a.System != nil {
		system = a.System.Count
		for _, cmp := range a.System.Comparisons {
			c.systemMean.WithLabelValues(cmp.Name, "problem").Set(cmp.Problem)
			c.systemMean.WithLabelValues(cmp.Name, "baseline").Set(cmp.Baseline)
			c.systemDiff.WithLabelValues(cmp.Name).Set(cmp.DiffPct)
		}
	}

	c.records.WithLabelValues(kindFrame).Set(float64(frames))
	c.records.WithLabelValues(kindLongDelay).Set(float64(delays))
	c.records.WithLabelValues(kindGrabFailure).Set(float64(failures))
	c.records.WithLabelValues(kindSlowGrab).Set(float64(slow))
	c.records.WithLabelValues(kindSystem).Set(float64(system))
}

// RecordSkips sets the skipped-line gauges from per-kind counts.
func (c *Collector) RecordSkips(byKind map[string]int) {
	kinds := make([]string, 0, len(byKind))
	for k := range byKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		c.linesSkipped.WithLabelValues(k).Set(float64(byKind[k]))
	}
}

// WriteTextfile writes the registry to path. The file is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}

func setDistribution(g *prometheus.GaugeVec, d stats.Distribution) {
	g.WithLabelValues("mean").Set(d.Mean)
	g.WithLabelValues("max").Set(d.Max)
	g.WithLabelValues("p50").Set(d.P50)
	g.WithLabelValues("p95").Set(d.P95)
	g.WithLabelValues("p99").Set(d.P99)
	if d.HasStdDev {
		g.WithLabelValues("stddev").Set(d.StdDev)
	}
}
