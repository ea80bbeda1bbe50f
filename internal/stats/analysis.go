package stats

import (
	"fmt"
	"sort"
	"strings"

	"github.com/randomizedcoder/camera-timing-analyzer/internal/parser"
)

// Context label substrings written by the capture recorder's system monitor.
const (
	contextLongDelay = "LONG_DELAY"
	contextSlowGrab  = "SLOW_GRAB"
	contextBaseline  = "BASELINE"
)

// Thresholds tune the heuristics. DefaultThresholds matches the recorder's
// own alerting limits.
type Thresholds struct {
	// GrabCauseMs: a long delay whose grab time exceeds this was spent
	// inside grab().
	GrabCauseMs int

	// GrabCauseRatio: above this fraction of grab-caused delays the camera
	// or USB link is blamed instead of scheduling.
	GrabCauseRatio float64

	// DelayRateRatio: delay events per frame above which system resources
	// are suspected.
	DelayRateRatio float64

	// WorstDelays is how many of the longest delays to list.
	WorstDelays int
}

// DefaultThresholds returns the standard heuristics.
func DefaultThresholds() Thresholds {
	return Thresholds{
		GrabCauseMs:    100,
		GrabCauseRatio: 0.7,
		DelayRateRatio: 0.1,
		WorstDelays:    5,
	}
}

// CameraCount is the number of frame records seen for one camera.
type CameraCount struct {
	Camera string
	Frames int
}

// FrameStats summarizes normal frame-timing records.
type FrameStats struct {
	Count    int
	Interval Distribution
	Grab     Distribution
	Cameras  []CameraCount // sorted by camera name
}

// DelayStats summarizes long-delay events.
type DelayStats struct {
	Count      int
	Interval   Distribution
	Grab       Distribution
	GrabCaused int                 // events with grab time above GrabCauseMs
	Worst      []parser.DelayEvent // longest intervals first, ties in file order
}

// DurationStats summarizes grab failures or slow grabs.
type DurationStats struct {
	Count    int
	Duration Distribution
}

// MetricComparison compares one system metric between problem and baseline
// samples.
type MetricComparison struct {
	Name     string
	Problem  float64
	Baseline float64
	DiffPct  float64
}

// SystemStats summarizes system monitor samples.
type SystemStats struct {
	Count         int
	ProblemCount  int
	BaselineCount int
	Comparisons   []MetricComparison // only when both subsets are non-empty
}

// Severity ranks a recommendation for display.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

// Recommendation is one line of advice.
type Recommendation struct {
	Severity Severity
	Text     string
}

// Analysis is the full set of derived statistics for one log.
// A section pointer is nil when its source collection was empty.
type Analysis struct {
	Frames       *FrameStats
	Delays       *DelayStats
	GrabFailures *DurationStats
	SlowGrabs    *DurationStats
	System       *SystemStats

	Recommendations []Recommendation

	LinesRead    int
	LinesSkipped int
}

// Analyze derives every report section from r. It does not modify r.
func Analyze(r *parser.Result, th Thresholds) *Analysis {
	a := &Analysis{
		LinesRead:    r.LinesRead,
		LinesSkipped: r.LinesSkipped,
	}

	if len(r.Frames) > 0 {
		a.Frames = analyzeFrames(r.Frames)
	}
	if len(r.Delays) > 0 {
		a.Delays = analyzeDelays(r.Delays, th)
	}
	if len(r.GrabFailures) > 0 {
		durations := make([]int, len(r.GrabFailures))
		for i, f := range r.GrabFailures {
			durations[i] = f.DurationMs
		}
		a.GrabFailures = &DurationStats{Count: len(durations), Duration: Summarize(ints(durations))}
	}
	if len(r.SlowGrabs) > 0 {
		durations := make([]int, len(r.SlowGrabs))
		for i, g := range r.SlowGrabs {
			durations[i] = g.DurationMs
		}
		a.SlowGrabs = &DurationStats{Count: len(durations), Duration: Summarize(ints(durations))}
	}
	if len(r.SystemEvents) > 0 {
		a.System = analyzeSystem(r.SystemEvents)
	}

	a.Recommendations = recommend(a, len(r.Frames), th)

	return a
}

func analyzeFrames(frames []parser.FrameRecord) *FrameStats {
	intervals := make([]int, len(frames))
	grabs := make([]int, len(frames))
	perCamera := make(map[string]int)

	for i, f := range frames {
		intervals[i] = f.IntervalMs
		grabs[i] = f.GrabMs
		perCamera[f.Camera]++
	}

	cameras := make([]CameraCount, 0, len(perCamera))
	for cam, n := range perCamera {
		cameras = append(cameras, CameraCount{Camera: cam, Frames: n})
	}
	sort.Slice(cameras, func(i, j int) bool {
		return cameras[i].Camera < cameras[j].Camera
	})

	return &FrameStats{
		Count:    len(frames),
		Interval: Summarize(ints(intervals)),
		Grab:     Summarize(ints(grabs)),
		Cameras:  cameras,
	}
}

func analyzeDelays(delays []parser.DelayEvent, th Thresholds) *DelayStats {
	intervals := make([]int, len(delays))
	grabs := make([]int, len(delays))
	grabCaused := 0

	for i, d := range delays {
		intervals[i] = d.IntervalMs
		grabs[i] = d.GrabMs
		if d.GrabMs > th.GrabCauseMs {
			grabCaused++
		}
	}

	return &DelayStats{
		Count:      len(delays),
		Interval:   Summarize(ints(intervals)),
		Grab:       Summarize(ints(grabs)),
		GrabCaused: grabCaused,
		Worst:      worstDelays(delays, th.WorstDelays),
	}
}

// worstDelays returns up to n events with the largest interval. The sort is
// stable so equal intervals keep their file order.
func worstDelays(delays []parser.DelayEvent, n int) []parser.DelayEvent {
	sorted := make([]parser.DelayEvent, len(delays))
	copy(sorted, delays)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].IntervalMs > sorted[j].IntervalMs
	})
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// systemMetric pulls one optional field out of a sample.
type systemMetric struct {
	name  string
	value func(parser.SystemEvent) (float64, bool)
}

var systemMetrics = []systemMetric{
	{"mem_usage", func(e parser.SystemEvent) (float64, bool) {
		if e.MemUsage == nil {
			return 0, false
		}
		return *e.MemUsage, true
	}},
	{"cpu_load", func(e parser.SystemEvent) (float64, bool) {
		if e.CPULoad == nil {
			return 0, false
		}
		return *e.CPULoad, true
	}},
	{"usb_devices", func(e parser.SystemEvent) (float64, bool) {
		if e.USBDevices == nil {
			return 0, false
		}
		return float64(*e.USBDevices), true
	}},
}

// IsProblemContext reports whether a monitor sample was taken because of an
// anomaly.
func IsProblemContext(label string) bool {
	return strings.Contains(label, contextLongDelay) || strings.Contains(label, contextSlowGrab)
}

// IsBaselineContext reports whether a monitor sample is a periodic baseline.
func IsBaselineContext(label string) bool {
	return strings.Contains(label, contextBaseline)
}

func analyzeSystem(events []parser.SystemEvent) *SystemStats {
	var problem, baseline []parser.SystemEvent
	for _, e := range events {
		label := e.ContextLabel()
		if IsProblemContext(label) {
			problem = append(problem, e)
		}
		if IsBaselineContext(label) {
			baseline = append(baseline, e)
		}
	}

	s := &SystemStats{
		Count:         len(events),
		ProblemCount:  len(problem),
		BaselineCount: len(baseline),
	}
	if len(problem) == 0 || len(baseline) == 0 {
		return s
	}

	for _, m := range systemMetrics {
		problemValues := collect(problem, m)
		baselineValues := collect(baseline, m)
		if len(problemValues) == 0 || len(baselineValues) == 0 {
			continue
		}

		problemMean := Mean(problemValues)
		baselineMean := Mean(baselineValues)
		diff, ok := PercentDiff(problemMean, baselineMean)
		if !ok {
			continue
		}

		s.Comparisons = append(s.Comparisons, MetricComparison{
			Name:     m.name,
			Problem:  problemMean,
			Baseline: baselineMean,
			DiffPct:  diff,
		})
	}

	return s
}

func collect(events []parser.SystemEvent, m systemMetric) []float64 {
	var values []float64
	for _, e := range events {
		if v, ok := m.value(e); ok {
			values = append(values, v)
		}
	}
	return values
}

// recommend builds the advice list. The last three lines are always present.
func recommend(a *Analysis, frameCount int, th Thresholds) []Recommendation {
	var recs []Recommendation

	delayCount := 0
	if a.Delays != nil {
		delayCount = a.Delays.Count
		if float64(a.Delays.GrabCaused) > float64(delayCount)*th.GrabCauseRatio {
			recs = append(recs, Recommendation{SeverityWarning,
				"Most delays are caused by slow grab() calls - investigate camera/USB issues"})
		} else {
			recs = append(recs, Recommendation{SeverityWarning,
				"Delays occur between grab() calls - investigate CPU scheduling/threading"})
		}
	}

	if a.GrabFailures != nil {
		recs = append(recs, Recommendation{SeverityCritical,
			fmt.Sprintf("%d grab failures detected - check camera connection", a.GrabFailures.Count)})
	}

	if float64(delayCount) > float64(frameCount)*th.DelayRateRatio {
		recs = append(recs, Recommendation{SeverityCritical,
			fmt.Sprintf("High delay event rate (%d/%d) - system resource issue likely", delayCount, frameCount)})
	}

	recs = append(recs,
		Recommendation{SeverityInfo, "Monitor USB bandwidth usage during peak delays"},
		Recommendation{SeverityInfo, "Consider reducing resolution/fps if delays persist"},
		Recommendation{SeverityInfo, "Check for thermal throttling on long recordings"},
	)

	return recs
}
