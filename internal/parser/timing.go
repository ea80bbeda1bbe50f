// Package parser classifies camera capture log lines into typed timing events.
//
// The capture recorder writes one line per frame plus flagged anomaly lines and
// periodic system monitor samples. Example input:
//
//	[ZED_Left] Frame 1200: interval=33ms, grab=21ms
//	[ZED_Left] *** LONG DELAY *** Frame 1201: interval=1450ms, grab=1410ms (expected interval ~33ms)
//	[SYSMON 14:02:11 | LONG_DELAY_FRAME_1201] MEM: 61.3% | LOAD: 3.85 | USB: 7 devs
//	[ZED_Left] *** GRAB FAILED *** Status: CAMERA NOT DETECTED, grab_duration=2003ms
//	[ZED_Left] *** SLOW GRAB *** Duration: 187ms (expected ~16-33ms)
//	[SYSMON 14:02:40 | PERIODIC_BASELINE] MEM: 40.1% | LOAD: 0.92 | USB: 7 devs
//
// Lines that carry a marker token but not the expected shape are skipped
// without error.
package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// Marker tokens used for classification. Order of checks matters: the first
// matching marker decides the kind.
const (
	markerFrame       = "] Frame "
	markerInterval    = "interval="
	markerLongDelay   = "*** LONG DELAY ***"
	markerGrabFailure = "*** GRAB FAILED ***"
	markerSlowGrab    = "*** SLOW GRAB ***"
	markerSystem      = "[SYSMON"
)

// Regex patterns for field extraction.
// These are compiled once at package init.
var (
	// [ZED_Left] Frame 1200: interval=33ms, grab=21ms
	reFrame = regexp.MustCompile(`\[([^\]]+)\] Frame (\d+): interval=(\d+)ms, grab=(\d+)ms`)

	// *** LONG DELAY *** Frame 1201: interval=1450ms, grab=1410ms
	reDelay = regexp.MustCompile(`Frame (\d+): interval=(\d+)ms, grab=(\d+)ms`)

	// *** GRAB FAILED *** Status: CAMERA NOT DETECTED, grab_duration=2003ms
	reGrabFailure = regexp.MustCompile(`Status: ([^,]+), grab_duration=(\d+)ms`)

	// *** SLOW GRAB *** Duration: 187ms
	reSlowGrab = regexp.MustCompile(`Duration: (\d+)ms`)

	// [SYSMON 14:02:11 | LONG_DELAY_FRAME_1201] MEM: 61.3% | LOAD: 3.85 | USB: 7 devs
	reMem     = regexp.MustCompile(`MEM: ([\d.]+)%`)
	reLoad    = regexp.MustCompile(`LOAD: ([\d.]+)`)
	reUSB     = regexp.MustCompile(`USB: (\d+) devs`)
	reContext = regexp.MustCompile(`\| ([^\]]+)\]`)
)

// SkipRecorder is told about lines that carried a marker token but did not
// match the expected shape. Implemented by logging.SkipHandler.
type SkipRecorder interface {
	RecordSkip(kind string, lineNum int, line string)
}

// Classify returns the kind of a line from its marker tokens alone.
func Classify(line string) LineKind {
	switch {
	case strings.Contains(line, markerFrame) && strings.Contains(line, markerInterval):
		return KindFrame
	case strings.Contains(line, markerLongDelay):
		return KindLongDelay
	case strings.Contains(line, markerGrabFailure):
		return KindGrabFailure
	case strings.Contains(line, markerSlowGrab):
		return KindSlowGrab
	case strings.Contains(line, markerSystem):
		return KindSystem
	default:
		return KindUnknown
	}
}

// TimingParser builds a Result from log lines fed in file order.
//
// Line numbers are assigned from the call count, starting at 1, so every line
// of the input must be passed in, including blank ones.
type TimingParser struct {
	result  *Result
	lineNum int
	skips   SkipRecorder
}

// NewTimingParser creates a parser. skips may be nil.
func NewTimingParser(skips SkipRecorder) *TimingParser {
	return &TimingParser{
		result: &Result{},
		skips:  skips,
	}
}

// ParseLine classifies the next line of the input.
func (p *TimingParser) ParseLine(line string) {
	p.lineNum++
	p.result.LinesRead = p.lineNum
	p.parseLine(strings.TrimSpace(line), p.lineNum)
}

// skipLine counts a line that is never classified.
func (p *TimingParser) skipLine() {
	p.lineNum++
	p.result.LinesRead = p.lineNum
}

// Result returns the records collected so far.
func (p *TimingParser) Result() *Result {
	return p.result
}

func (p *TimingParser) parseLine(line string, lineNum int) {
	kind := Classify(line)

	var ok bool
	switch kind {
	case KindUnknown:
		return
	case KindFrame:
		ok = p.parseFrame(line, lineNum)
	case KindLongDelay:
		ok = p.parseDelay(line, lineNum)
	case KindGrabFailure:
		ok = p.parseGrabFailure(line, lineNum)
	case KindSlowGrab:
		ok = p.parseSlowGrab(line, lineNum)
	case KindSystem:
		ok = p.parseSystem(line, lineNum)
	}

	if !ok {
		p.result.LinesSkipped++
		if p.skips != nil {
			p.skips.RecordSkip(kind.String(), lineNum, line)
		}
	}
}

func (p *TimingParser) parseFrame(line string, lineNum int) bool {
	m := reFrame.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	nums, ok := atoiAll(m[2], m[3], m[4])
	if !ok {
		return false
	}
	p.result.Frames = append(p.result.Frames, FrameRecord{
		Line:       lineNum,
		Camera:     m[1],
		Frame:      nums[0],
		IntervalMs: nums[1],
		GrabMs:     nums[2],
	})
	return true
}

func (p *TimingParser) parseDelay(line string, lineNum int) bool {
	m := reDelay.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	nums, ok := atoiAll(m[1], m[2], m[3])
	if !ok {
		return false
	}
	p.result.Delays = append(p.result.Delays, DelayEvent{
		Line:       lineNum,
		Frame:      nums[0],
		IntervalMs: nums[1],
		GrabMs:     nums[2],
	})
	return true
}

func (p *TimingParser) parseGrabFailure(line string, lineNum int) bool {
	m := reGrabFailure.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	duration, err := strconv.Atoi(m[2])
	if err != nil {
		return false
	}
	p.result.GrabFailures = append(p.result.GrabFailures, GrabFailure{
		Line:       lineNum,
		Status:     m[1],
		DurationMs: duration,
	})
	return true
}

func (p *TimingParser) parseSlowGrab(line string, lineNum int) bool {
	m := reSlowGrab.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	duration, err := strconv.Atoi(m[1])
	if err != nil {
		return false
	}
	p.result.SlowGrabs = append(p.result.SlowGrabs, SlowGrab{
		Line:       lineNum,
		DurationMs: duration,
	})
	return true
}

// parseSystem always records an event. Sub-fields that are missing or whose
// numbers do not parse stay nil.
func (p *TimingParser) parseSystem(line string, lineNum int) bool {
	event := SystemEvent{Line: lineNum}

	if m := reMem.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			event.MemUsage = &v
		}
	}
	if m := reLoad.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			event.CPULoad = &v
		}
	}
	if m := reUSB.FindStringSubmatch(line); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			event.USBDevices = &v
		}
	}
	if m := reContext.FindStringSubmatch(line); m != nil {
		ctx := m[1]
		event.Context = &ctx
	}

	p.result.SystemEvents = append(p.result.SystemEvents, event)
	return true
}

// atoiAll converts every digit group, failing on the first overflow.
func atoiAll(groups ...string) ([]int, bool) {
	nums := make([]int, len(groups))
	for i, g := range groups {
		n, err := strconv.Atoi(g)
		if err != nil {
			return nil, false
		}
		nums[i] = n
	}
	return nums, true
}
