package stats

// This file implements the analysis report formatter.

import (
	"fmt"
	"strings"
)

const reportWidth = 60

// Styler decorates report fragments. PlainStyler leaves text untouched;
// tui.ReportStyler adds terminal colors.
type Styler interface {
	Title(s string) string
	Section(s string) string
	Value(s string) string
	Muted(s string) string
	Severity(sev Severity, s string) string
}

// PlainStyler renders undecorated text.
type PlainStyler struct{}

func (PlainStyler) Title(s string) string                { return s }
func (PlainStyler) Section(s string) string              { return s }
func (PlainStyler) Value(s string) string                { return s }
func (PlainStyler) Muted(s string) string                { return s }
func (PlainStyler) Severity(_ Severity, s string) string { return s }

// ReportOptions holds presentation settings for FormatReport.
type ReportOptions struct {
	// Source is the analyzed path. When set, the "Analyzing log file" line
	// heads the report; callers that print it before parsing leave it empty.
	Source string

	// Styler defaults to PlainStyler.
	Styler Styler

	// Skipped and SkippedSamples fill the footnotes when non-empty. Skipped
	// is printed in the order given.
	Skipped        []SkipCount
	SkippedSamples []string
}

// SkipCount is the number of malformed lines of one kind.
type SkipCount struct {
	Kind  string
	Count int
}

// FormatReport renders the analysis as text. The output depends only on a and
// opts, so the same log always produces the same report.
func FormatReport(a *Analysis, opts ReportOptions) string {
	st := opts.Styler
	if st == nil {
		st = PlainStyler{}
	}

	var b strings.Builder

	if opts.Source != "" {
		b.WriteString(FormatSourceLine(opts.Source))
	}

	rule := strings.Repeat("=", reportWidth)
	b.WriteString("\n")
	b.WriteString(st.Muted(rule) + "\n")
	b.WriteString(st.Title("ZED CAMERA TIMING ANALYSIS REPORT") + "\n")
	b.WriteString(st.Muted(rule) + "\n")

	if a.Frames != nil {
		writeFrames(&b, st, a.Frames)
	}
	if a.Delays != nil {
		writeDelays(&b, st, a.Delays)
	}
	if a.GrabFailures != nil {
		fmt.Fprintf(&b, "\n%s\n", st.Section(fmt.Sprintf("❌ GRAB FAILURES: %d", a.GrabFailures.Count)))
		d := a.GrabFailures.Duration
		fmt.Fprintf(&b, "  Failure duration - Max: %s, Mean: %s\n",
			st.Value(FormatMs(d.Max)), st.Value(FormatMeanMs(d.Mean)))
	}
	if a.SlowGrabs != nil {
		fmt.Fprintf(&b, "\n%s\n", st.Section(fmt.Sprintf("🐌 SLOW GRABS: %d", a.SlowGrabs.Count)))
		d := a.SlowGrabs.Duration
		fmt.Fprintf(&b, "  Duration - Max: %s, Mean: %s\n",
			st.Value(FormatMs(d.Max)), st.Value(FormatMeanMs(d.Mean)))
	}
	if a.System != nil {
		writeSystem(&b, st, a.System)
	}

	fmt.Fprintf(&b, "\n%s\n", st.Section("💡 RECOMMENDATIONS:"))
	for _, r := range a.Recommendations {
		fmt.Fprintf(&b, "  • %s\n", st.Severity(r.Severity, r.Text))
	}

	if len(opts.Skipped) > 0 {
		writeFootnotes(&b, st, opts)
	}

	return b.String()
}

func writeFrames(b *strings.Builder, st Styler, f *FrameStats) {
	fmt.Fprintf(b, "\n%s\n", st.Section("📊 BASIC STATISTICS:"))
	fmt.Fprintf(b, "  Total frames analyzed: %s\n", st.Value(fmt.Sprintf("%d", f.Count)))
	fmt.Fprintf(b, "  Frame interval - Mean: %s, StdDev: %s\n",
		st.Value(FormatMeanMs(f.Interval.Mean)), st.Value(FormatStdDev(f.Interval)))
	fmt.Fprintf(b, "  Grab time - Mean: %s, StdDev: %s\n",
		st.Value(FormatMeanMs(f.Grab.Mean)), st.Value(FormatStdDev(f.Grab)))
	fmt.Fprintf(b, "  Frame interval - %s\n", formatPercentiles(st, f.Interval))
	fmt.Fprintf(b, "  Grab time - %s\n", formatPercentiles(st, f.Grab))
	fmt.Fprintf(b, "  %s\n", st.Muted("Expected interval: ~33ms (30fps), Expected grab: ~16-33ms"))

	if len(f.Cameras) > 1 {
		parts := make([]string, len(f.Cameras))
		for i, c := range f.Cameras {
			parts[i] = fmt.Sprintf("%s=%d", c.Camera, c.Frames)
		}
		fmt.Fprintf(b, "  Frames per camera: %s\n", strings.Join(parts, ", "))
	}
}

func writeDelays(b *strings.Builder, st Styler, d *DelayStats) {
	fmt.Fprintf(b, "\n%s\n", st.Section(fmt.Sprintf("⚠️  LONG DELAY EVENTS: %d", d.Count)))
	fmt.Fprintf(b, "  Delay interval - Max: %s, Mean: %s\n",
		st.Value(FormatMs(d.Interval.Max)), st.Value(FormatMeanMs(d.Interval.Mean)))
	fmt.Fprintf(b, "  Delay interval - %s\n", formatPercentiles(st, d.Interval))
	fmt.Fprintf(b, "  Grab time during delays - Max: %s, Mean: %s\n",
		st.Value(FormatMs(d.Grab.Max)), st.Value(FormatMeanMs(d.Grab.Mean)))
	fmt.Fprintf(b, "  Delays caused by slow grab(): %s\n",
		st.Value(fmt.Sprintf("%d/%d", d.GrabCaused, d.Count)))

	fmt.Fprintf(b, "  %s\n", st.Severity(SeverityCritical, "🔥 Worst delays:"))
	for _, e := range d.Worst {
		fmt.Fprintf(b, "    Frame %d: interval=%dms, grab=%dms %s\n",
			e.Frame, e.IntervalMs, e.GrabMs, st.Muted(fmt.Sprintf("(line %d)", e.Line)))
	}
}

func writeSystem(b *strings.Builder, st Styler, s *SystemStats) {
	fmt.Fprintf(b, "\n%s\n", st.Section(fmt.Sprintf("🖥️  SYSTEM RESOURCE EVENTS: %d", s.Count)))
	if s.ProblemCount == 0 || s.BaselineCount == 0 {
		return
	}

	fmt.Fprintf(b, "  Problem events: %d\n", s.ProblemCount)
	fmt.Fprintf(b, "  Baseline events: %d\n", s.BaselineCount)
	for _, c := range s.Comparisons {
		fmt.Fprintf(b, "  %s: Problem=%s, Baseline=%s, Diff=%s\n",
			c.Name,
			st.Value(fmt.Sprintf("%.1f", c.Problem)),
			st.Value(fmt.Sprintf("%.1f", c.Baseline)),
			st.Severity(diffSeverity(c.DiffPct), fmt.Sprintf("%+.1f%%", c.DiffPct)),
		)
	}
}

// diffSeverity highlights metrics that are clearly worse during problems.
func diffSeverity(pct float64) Severity {
	switch {
	case pct >= 50:
		return SeverityCritical
	case pct >= 10:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

func writeFootnotes(b *strings.Builder, st Styler, opts ReportOptions) {
	total := 0
	for _, sc := range opts.Skipped {
		total += sc.Count
	}

	fmt.Fprintf(b, "\n%s\n", st.Section("📝 FOOTNOTES:"))
	fmt.Fprintf(b, "  Malformed marker lines skipped: %d\n", total)
	for _, sc := range opts.Skipped {
		fmt.Fprintf(b, "    %-14s %d\n", sc.Kind, sc.Count)
	}
	if len(opts.SkippedSamples) > 0 {
		b.WriteString("  Most recent:\n")
		for _, s := range opts.SkippedSamples {
			fmt.Fprintf(b, "    %s\n", st.Muted(s))
		}
	}
}

// =============================================================================
// Formatting Helper Functions (exported for reuse)
// =============================================================================

// FormatSourceLine is the line naming the log under analysis.
func FormatSourceLine(path string) string {
	return fmt.Sprintf("Analyzing log file: %s\n", path)
}

// FormatMs formats a whole millisecond value, e.g. "500ms".
func FormatMs(v float64) string {
	return fmt.Sprintf("%.0fms", v)
}

// FormatMeanMs formats an averaged millisecond value, e.g. "33.0ms".
func FormatMeanMs(v float64) string {
	return fmt.Sprintf("%.1fms", v)
}

// FormatStdDev formats the standard deviation, or "n/a" below two samples.
func FormatStdDev(d Distribution) string {
	if !d.HasStdDev {
		return "n/a"
	}
	return FormatMeanMs(d.StdDev)
}

func formatPercentiles(st Styler, d Distribution) string {
	return fmt.Sprintf("P50: %s, P95: %s, P99: %s",
		st.Value(FormatMeanMs(d.P50)),
		st.Value(FormatMeanMs(d.P95)),
		st.Value(FormatMeanMs(d.P99)),
	)
}
