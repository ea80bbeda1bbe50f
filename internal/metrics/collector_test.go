package metrics

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/randomizedcoder/camera-timing-analyzer/internal/parser"
	"github.com/randomizedcoder/camera-timing-analyzer/internal/stats"
)

// =============================================================================
// Test Helpers
// =============================================================================

func newTestCollector() (*Collector, *prometheus.Registry) {
	registry := prometheus.NewRegistry()
	c := NewCollectorWithRegistry(CollectorConfig{Version: "test", Source: "capture.log"}, registry)
	return c, registry
}

func sampleAnalysis() *stats.Analysis {
	mem := func(v float64) *float64 { return &v }
	ctx := func(v string) *string { return &v }

	r := &parser.Result{
		Frames: []parser.FrameRecord{
			{Camera: "A", Frame: 1, IntervalMs: 30, GrabMs: 20},
			{Camera: "A", Frame: 2, IntervalMs: 36, GrabMs: 22},
		},
		Delays: []parser.DelayEvent{
			{Frame: 3, IntervalMs: 500, GrabMs: 450},
			{Frame: 9, IntervalMs: 300, GrabMs: 10},
		},
		GrabFailures: []parser.GrabFailure{{Status: "CAMERA NOT DETECTED", DurationMs: 2000}},
		SystemEvents: []parser.SystemEvent{
			{Context: ctx("PERIODIC_BASELINE"), MemUsage: mem(20)},
			{Context: ctx("LONG_DELAY_FRAME_3"), MemUsage: mem(40)},
		},
		LinesRead:    12,
		LinesSkipped: 1,
	}
	return stats.Analyze(r, stats.DefaultThresholds())
}

// decodeTextfile parses a textfile into metric families keyed by name.
func decodeTextfile(t *testing.T, path string) map[string]*dto.MetricFamily {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open textfile: %v", err)
	}
	defer f.Close()

	families := make(map[string]*dto.MetricFamily)
	decoder := expfmt.NewDecoder(f, expfmt.FmtText)
	for {
		var mf dto.MetricFamily
		if err := decoder.Decode(&mf); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			t.Fatalf("decode textfile: %v", err)
		}
		families[mf.GetName()] = &mf
	}
	return families
}

// gaugeValue returns the gauge in mf whose labels include all of want.
func gaugeValue(t *testing.T, mf *dto.MetricFamily, want map[string]string) float64 {
	t.Helper()
	for _, m := range mf.GetMetric() {
		matched := 0
		for _, lp := range m.GetLabel() {
			if v, ok := want[lp.GetName()]; ok && v == lp.GetValue() {
				matched++
			}
		}
		if matched == len(want) {
			return m.GetGauge().GetValue()
		}
	}
	t.Fatalf("%s has no series with labels %v", mf.GetName(), want)
	return 0
}

// =============================================================================
// Tests: Collector
// =============================================================================

func TestNewCollector_Info(t *testing.T) {
	c, _ := newTestCollector()

	if got := testutil.ToFloat64(c.info.WithLabelValues("test", "capture.log")); got != 1 {
		t.Errorf("info = %v, want 1", got)
	}
}

func TestNewCollector_OwnRegistry(t *testing.T) {
	a := NewCollector(CollectorConfig{Version: "a"})
	b := NewCollector(CollectorConfig{Version: "b"})
	if a.registry == b.registry {
		t.Error("collectors should not share a registry")
	}
}

func TestCollector_Record(t *testing.T) {
	c, _ := newTestCollector()
	c.Record(sampleAnalysis())

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"lines read", testutil.ToFloat64(c.linesRead), 12},
		{"frames", testutil.ToFloat64(c.records.WithLabelValues(kindFrame)), 2},
		{"delays", testutil.ToFloat64(c.records.WithLabelValues(kindLongDelay)), 2},
		{"failures", testutil.ToFloat64(c.records.WithLabelValues(kindGrabFailure)), 1},
		{"slow grabs", testutil.ToFloat64(c.records.WithLabelValues(kindSlowGrab)), 0},
		{"sysmon", testutil.ToFloat64(c.records.WithLabelValues(kindSystem)), 2},
		{"interval mean", testutil.ToFloat64(c.frameInterval.WithLabelValues("mean")), 33},
		{"grab max", testutil.ToFloat64(c.frameGrab.WithLabelValues("max")), 22},
		{"delay max", testutil.ToFloat64(c.delayInterval.WithLabelValues("max")), 500},
		{"grab caused", testutil.ToFloat64(c.delaysGrabCaused), 1},
		{"mem problem", testutil.ToFloat64(c.systemMean.WithLabelValues("mem_usage", "problem")), 40},
		{"mem baseline", testutil.ToFloat64(c.systemMean.WithLabelValues("mem_usage", "baseline")), 20},
		{"mem diff", testutil.ToFloat64(c.systemDiff.WithLabelValues("mem_usage")), 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestCollector_Record_Empty(t *testing.T) {
	c, registry := newTestCollector()
	c.Record(stats.Analyze(&parser.Result{}, stats.DefaultThresholds()))

	if n := testutil.CollectAndCount(c.records); n != 5 {
		t.Errorf("records series = %d, want 5 (one per kind)", n)
	}
	if n := testutil.CollectAndCount(c.frameInterval); n != 0 {
		t.Errorf("frame interval series = %d, want 0 without frames", n)
	}
	n, err := testutil.GatherAndCount(registry, "camera_timing_system_metric_mean")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("system series = %d, want 0", n)
	}
}

func TestCollector_Record_SingleFrameOmitsStdDev(t *testing.T) {
	c, _ := newTestCollector()
	r := &parser.Result{Frames: []parser.FrameRecord{{Camera: "A", IntervalMs: 33, GrabMs: 20}}}
	c.Record(stats.Analyze(r, stats.DefaultThresholds()))

	// mean, max, p50, p95, p99
	if n := testutil.CollectAndCount(c.frameInterval); n != 5 {
		t.Errorf("frame interval series = %d, want 5", n)
	}
}

func TestCollector_RecordSkips(t *testing.T) {
	c, _ := newTestCollector()
	c.RecordSkips(map[string]int{"frame": 2, "sysmon": 1})

	if got := testutil.ToFloat64(c.linesSkipped.WithLabelValues("frame")); got != 2 {
		t.Errorf("frame skips = %v, want 2", got)
	}
	if n := testutil.CollectAndCount(c.linesSkipped); n != 2 {
		t.Errorf("skip series = %d, want 2", n)
	}
}

// =============================================================================
// Tests: Textfile
// =============================================================================

func TestCollector_WriteTextfile(t *testing.T) {
	c, _ := newTestCollector()
	c.Record(sampleAnalysis())
	c.RecordSkips(map[string]int{"slow_grab": 1})

	path := filepath.Join(t.TempDir(), "camera.prom")
	if err := c.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}

	families := decodeTextfile(t, path)

	for _, name := range []string{
		"camera_timing_info",
		"camera_timing_lines_read",
		"camera_timing_lines_skipped",
		"camera_timing_records",
		"camera_timing_frame_interval_milliseconds",
		"camera_timing_frame_grab_milliseconds",
		"camera_timing_long_delay_interval_milliseconds",
		"camera_timing_long_delays_grab_caused",
		"camera_timing_system_metric_mean",
		"camera_timing_system_metric_diff_percent",
	} {
		mf, ok := families[name]
		if !ok {
			t.Errorf("textfile missing %s", name)
			continue
		}
		if mf.GetType() != dto.MetricType_GAUGE {
			t.Errorf("%s type = %v, want GAUGE", name, mf.GetType())
		}
	}

	if got := gaugeValue(t, families["camera_timing_records"], map[string]string{"kind": "long_delay"}); got != 2 {
		t.Errorf("long_delay records = %v, want 2", got)
	}
	if got := gaugeValue(t, families["camera_timing_system_metric_mean"],
		map[string]string{"metric": "mem_usage", "context": "problem"}); got != 40 {
		t.Errorf("mem_usage problem mean = %v, want 40", got)
	}
	if got := gaugeValue(t, families["camera_timing_info"], map[string]string{"source": "capture.log"}); got != 1 {
		t.Errorf("info = %v, want 1", got)
	}
}

func TestCollector_WriteTextfile_BadDir(t *testing.T) {
	c, _ := newTestCollector()
	path := filepath.Join(t.TempDir(), "missing", "camera.prom")

	err := c.WriteTextfile(path)
	if err == nil {
		t.Fatal("expected error writing into a missing directory")
	}
	if !strings.Contains(err.Error(), "camera.prom") {
		t.Errorf("error %q should name the path", err)
	}
}
