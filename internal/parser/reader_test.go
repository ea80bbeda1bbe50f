package parser

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const sampleLog = `=== ZED capture starting ===
[ZED_Left] Frame 1: 0 ms (first frame)
[ZED_Left] Frame 2: interval=33ms, grab=20ms
[ZED_Left] Frame 3: interval=34ms, grab=19ms
[ZED_Left] *** LONG DELAY *** Frame 4: interval=1450ms, grab=1410ms (expected interval ~33ms)
[SYSMON 14:02:11 | LONG_DELAY_FRAME_4] MEM: 61.3% | LOAD: 3.85 | USB: 7 devs
[ZED_Left] *** SLOW GRAB *** Duration: 1410ms (expected ~16-33ms)
[SYSMON 14:02:11 | SLOW_GRAB_1410ms] MEM: 61.5% | LOAD: 3.85 | USB: 7 devs
[ZED_Left] *** GRAB FAILED *** Status: CAMERA NOT DETECTED, grab_duration=2003ms
[SYSMON 14:02:13 | GRAB_FAILED_3] MEM: 61.0% | LOAD: 3.70 | USB: 6 devs
[ZED_Left] Recording... Frames: 300, Duration: 10.0s, FPS: 30.0
[SYSMON 14:02:40 | PERIODIC_BASELINE] MEM: 40.1% | LOAD: 0.92 | USB: 7 devs
`

func checkSampleResult(t *testing.T, r *Result) {
	t.Helper()

	if len(r.Frames) != 2 {
		t.Errorf("len(Frames) = %d, want 2", len(r.Frames))
	}
	if len(r.Delays) != 1 {
		t.Errorf("len(Delays) = %d, want 1", len(r.Delays))
	}
	if len(r.SlowGrabs) != 1 {
		t.Errorf("len(SlowGrabs) = %d, want 1", len(r.SlowGrabs))
	}
	if len(r.GrabFailures) != 1 {
		t.Errorf("len(GrabFailures) = %d, want 1", len(r.GrabFailures))
	}
	if len(r.SystemEvents) != 4 {
		t.Errorf("len(SystemEvents) = %d, want 4", len(r.SystemEvents))
	}
	if r.LinesRead != 12 {
		t.Errorf("LinesRead = %d, want 12", r.LinesRead)
	}
	if r.LinesSkipped != 0 {
		t.Errorf("LinesSkipped = %d, want 0", r.LinesSkipped)
	}
}

func TestParseReader(t *testing.T) {
	r, err := ParseReader(strings.NewReader(sampleLog))
	if err != nil {
		t.Fatalf("ParseReader: %v", err)
	}
	checkSampleResult(t, r)

	if r.Delays[0].Line != 5 {
		t.Errorf("Delays[0].Line = %d, want 5", r.Delays[0].Line)
	}
}

func TestParseReader_LineNumbersStrictlyIncreasing(t *testing.T) {
	r, err := ParseReader(strings.NewReader(sampleLog))
	if err != nil {
		t.Fatalf("ParseReader: %v", err)
	}

	last := 0
	for _, e := range r.SystemEvents {
		if e.Line <= last {
			t.Errorf("SystemEvents line %d not after %d", e.Line, last)
		}
		last = e.Line
	}
	last = 0
	for _, f := range r.Frames {
		if f.Line <= last {
			t.Errorf("Frames line %d not after %d", f.Line, last)
		}
		last = f.Line
	}
}

func TestParseReader_Empty(t *testing.T) {
	r, err := ParseReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("ParseReader: %v", err)
	}
	if r.LinesRead != 0 {
		t.Errorf("LinesRead = %d, want 0", r.LinesRead)
	}
	if len(r.Frames)+len(r.Delays)+len(r.GrabFailures)+len(r.SlowGrabs)+len(r.SystemEvents) != 0 {
		t.Errorf("expected empty collections, got %+v", r)
	}
}

func TestParseReader_SkipRecorder(t *testing.T) {
	skips := &recordingSkips{}
	input := "[Cam1] *** SLOW GRAB *** Duration: ?\n[Cam1] Frame 1: interval=33ms, grab=20ms\n"

	r, err := ParseReader(strings.NewReader(input), WithSkipRecorder(skips))
	if err != nil {
		t.Fatalf("ParseReader: %v", err)
	}
	if len(skips.kinds) != 1 || skips.kinds[0] != "slow_grab" || skips.lines[0] != 1 {
		t.Errorf("skips = %+v, want one slow_grab on line 1", skips)
	}
	if r.LinesSkipped != 1 {
		t.Errorf("LinesSkipped = %d, want 1", r.LinesSkipped)
	}
}

func TestParseReader_LineTooLong(t *testing.T) {
	skips := &recordingSkips{}
	input := "[Cam1] Frame 42: interval=33ms, grab=20ms\n" +
		strings.Repeat("x", 2*MaxLineLength) + "\n" +
		"[Cam1] Frame 43: interval=35ms, grab=22ms\n"

	r, err := ParseReader(strings.NewReader(input), WithSkipRecorder(skips))
	if err != nil {
		t.Fatalf("ParseReader: %v", err)
	}
	if len(r.Frames) != 2 {
		t.Fatalf("len(Frames) = %d, want 2", len(r.Frames))
	}
	if r.Frames[0].Frame != 42 || r.Frames[0].Line != 1 {
		t.Errorf("Frames[0] = %+v, want frame 42 on line 1", r.Frames[0])
	}
	if r.Frames[1].Frame != 43 || r.Frames[1].Line != 3 {
		t.Errorf("Frames[1] = %+v, want frame 43 on line 3", r.Frames[1])
	}
	if r.LinesRead != 3 {
		t.Errorf("LinesRead = %d, want 3", r.LinesRead)
	}
	if r.LinesSkipped != 0 || len(skips.kinds) != 0 {
		t.Errorf("oversized unmarked line should not count as skipped, got %d", r.LinesSkipped)
	}
}

func TestParseReader_OversizedMarkerLine(t *testing.T) {
	// A marker line padded past the limit is dropped whole.
	input := "[Cam1] *** SLOW GRAB *** Duration: 150ms " + strings.Repeat("y", MaxLineLength) + "\n" +
		"[Cam1] *** SLOW GRAB *** Duration: 120ms\n"

	r, err := ParseReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseReader: %v", err)
	}
	if len(r.SlowGrabs) != 1 || r.SlowGrabs[0].DurationMs != 120 || r.SlowGrabs[0].Line != 2 {
		t.Errorf("SlowGrabs = %+v, want one 120ms grab on line 2", r.SlowGrabs)
	}
}

func TestParseReader_LineAtLimit(t *testing.T) {
	prefix := "[Cam1] Frame 9: interval=40ms, grab=30ms "
	line := prefix + strings.Repeat("z", MaxLineLength-len(prefix))

	r, err := ParseReader(strings.NewReader(line))
	if err != nil {
		t.Fatalf("ParseReader: %v", err)
	}
	if len(r.Frames) != 1 {
		t.Errorf("len(Frames) = %d, want 1 for a line of exactly MaxLineLength", len(r.Frames))
	}
}

func TestParseReader_CRLFAndNoTrailingNewline(t *testing.T) {
	input := "[Cam1] Frame 1: interval=33ms, grab=20ms\r\n[Cam1] Frame 2: interval=34ms, grab=21ms"

	r, err := ParseReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseReader: %v", err)
	}
	if len(r.Frames) != 2 || r.LinesRead != 2 {
		t.Errorf("Frames = %d, LinesRead = %d, want 2 and 2", len(r.Frames), r.LinesRead)
	}
}

func TestParseReader_ReadError(t *testing.T) {
	boom := errors.New("device gone")
	r := io.MultiReader(strings.NewReader("[Cam1] Frame 1: interval=33ms, grab=20ms\n"), &failingReader{err: boom})

	_, err := ParseReader(r)
	if !errors.Is(err, boom) {
		t.Fatalf("ParseReader error = %v, want %v", err, boom)
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error %q should name line 2", err)
	}
}

type failingReader struct{ err error }

func (f *failingReader) Read([]byte) (int, error) { return 0, f.err }

func TestParseFile_Plain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.log")
	if err := os.WriteFile(path, []byte(sampleLog), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	checkSampleResult(t, r)
}

func TestParseFile_Gzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(sampleLog)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "capture.log.gz")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	checkSampleResult(t, r)
}

func TestParseFile_Zstd(t *testing.T) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := zw.Write([]byte(sampleLog)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "capture.log.zst")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	checkSampleResult(t, r)
}

func TestParseFile_BadGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.log.gz")
	if err := os.WriteFile(path, []byte("not gzip at all"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := ParseFile(path)
	if err == nil {
		t.Fatal("expected error for corrupt gzip input")
	}
	if !strings.Contains(err.Error(), "gzip") {
		t.Errorf("error %q should mention gzip", err)
	}
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "does-not-exist.log"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error = %v, want fs.ErrNotExist", err)
	}
}
