package parser

// LineKind identifies which event a log line carries.
type LineKind int

const (
	KindUnknown     LineKind = iota // No marker token
	KindFrame                       // [cam] Frame N: interval=..ms, grab=..ms
	KindLongDelay                   // *** LONG DELAY ***
	KindGrabFailure                 // *** GRAB FAILED ***
	KindSlowGrab                    // *** SLOW GRAB ***
	KindSystem                      // [SYSMON ...]
)

// String returns a human-readable name for the line kind.
func (k LineKind) String() string {
	switch k {
	case KindFrame:
		return "frame"
	case KindLongDelay:
		return "long_delay"
	case KindGrabFailure:
		return "grab_failure"
	case KindSlowGrab:
		return "slow_grab"
	case KindSystem:
		return "sysmon"
	default:
		return "unknown"
	}
}

// FrameRecord is one normal frame-timing line.
type FrameRecord struct {
	Line       int
	Camera     string
	Frame      int
	IntervalMs int
	GrabMs     int
}

// DelayEvent is a frame cycle flagged upstream as a long delay.
type DelayEvent struct {
	Line       int
	Frame      int
	IntervalMs int
	GrabMs     int
}

// GrabFailure is a grab() call that returned a non-success status.
type GrabFailure struct {
	Line       int
	Status     string
	DurationMs int
}

// SlowGrab is a grab() call that exceeded the producer's slowness threshold.
type SlowGrab struct {
	Line       int
	DurationMs int
}

// SystemEvent is one [SYSMON] sample.
//
// Each field is nil unless its sub-pattern matched the line.
type SystemEvent struct {
	Line       int
	MemUsage   *float64 // percent
	CPULoad    *float64 // 1-minute load average
	USBDevices *int
	Context    *string
}

// ContextLabel returns the context label, or "" when the line had none.
func (e SystemEvent) ContextLabel() string {
	if e.Context == nil {
		return ""
	}
	return *e.Context
}

// Result holds every record extracted from one log, in file order.
type Result struct {
	Frames       []FrameRecord
	Delays       []DelayEvent
	GrabFailures []GrabFailure
	SlowGrabs    []SlowGrab
	SystemEvents []SystemEvent
	LinesRead    int
	LinesSkipped int // marker token present but the line shape did not match
}
