// Package preflight provides startup validation checks.
//
// The checks run after flag validation and before the log is parsed.
package preflight

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
)

// Magic numbers of the compressed formats parser.ParseFile accepts.
var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Check represents the result of a single preflight check.
type Check struct {
	Name    string // Name of the check
	Passed  bool   // Whether the check passed
	Warning bool   // True if it's a warning (non-fatal)
	Message string // Additional context
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

// Options selects which checks run.
type Options struct {
	LogPath         string
	MetricsTextfile string // checked only when set
	Interactive     bool   // requires a terminal on TerminalFd
	TerminalFd      uintptr
}

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}
	return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
}

// RunAll executes all preflight checks.
func RunAll(opts Options) *Result {
	result := &Result{
		Checks: make([]Check, 0, 4),
		Passed: true,
	}

	add := func(c Check) {
		result.Checks = append(result.Checks, c)
		if !c.Passed {
			result.Passed = false
		}
	}

	logCheck, regular := checkLogFile(opts.LogPath)
	add(logCheck)

	// Peeking at a pipe would consume the bytes the parser needs.
	if logCheck.Passed && regular {
		if c, ok := checkCompression(opts.LogPath); ok {
			add(c)
		}
	}

	if opts.MetricsTextfile != "" {
		add(checkTextfileDir(opts.MetricsTextfile))
	}

	if opts.Interactive {
		add(checkTerminal(opts.TerminalFd))
	}

	return result
}

// checkLogFile verifies the log exists and is not a directory. Regular files
// are also opened and sized; regular is false for pipes and devices, which are
// left untouched until the parser reads them.
func checkLogFile(path string) (c Check, regular bool) {
	info, err := os.Stat(path)
	if err != nil {
		return Check{
			Name:    "log_file",
			Passed:  false,
			Message: err.Error(),
		}, false
	}
	if info.IsDir() {
		return Check{
			Name:    "log_file",
			Passed:  false,
			Message: fmt.Sprintf("%s is a directory", path),
		}, false
	}
	if !info.Mode().IsRegular() {
		return Check{
			Name:    "log_file",
			Passed:  true,
			Message: fmt.Sprintf("%s (%s)", path, streamKind(info.Mode())),
		}, false
	}

	f, err := os.Open(path)
	if err != nil {
		return Check{
			Name:    "log_file",
			Passed:  false,
			Message: err.Error(),
		}, true
	}
	f.Close()

	if info.Size() == 0 {
		return Check{
			Name:    "log_file",
			Passed:  true,
			Warning: true,
			Message: fmt.Sprintf("%s is empty", path),
		}, true
	}

	return Check{
		Name:    "log_file",
		Passed:  true,
		Message: fmt.Sprintf("%s (%s)", path, formatBytes(info.Size())),
	}, true
}

func streamKind(m os.FileMode) string {
	switch {
	case m&os.ModeNamedPipe != 0:
		return "named pipe"
	case m&os.ModeCharDevice != 0:
		return "character device"
	case m&os.ModeSocket != 0:
		return "socket"
	default:
		return "stream"
	}
}

// checkCompression verifies that a .gz or .zst file starts with the matching
// magic number. ok is false for uncompressed extensions.
func checkCompression(path string) (c Check, ok bool) {
	var magic []byte
	var format string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		magic, format = gzipMagic, "gzip"
	case ".zst", ".zstd":
		magic, format = zstdMagic, "zstd"
	default:
		return Check{}, false
	}

	f, err := os.Open(path)
	if err != nil {
		return Check{Name: "compression", Passed: false, Message: err.Error()}, true
	}
	defer f.Close()

	head := make([]byte, len(magic))
	if _, err := io.ReadFull(f, head); err != nil || !bytes.Equal(head, magic) {
		return Check{
			Name:    "compression",
			Passed:  false,
			Message: fmt.Sprintf("%s does not look like %s data", path, format),
		}, true
	}

	return Check{
		Name:    "compression",
		Passed:  true,
		Message: format,
	}, true
}

// checkTextfileDir verifies the metrics textfile can be created. The
// exporter writes a temp file next to the target and renames it, so the
// directory itself must be writable.
func checkTextfileDir(path string) Check {
	dir := filepath.Dir(path)

	f, err := os.CreateTemp(dir, ".preflight-*")
	if err != nil {
		return Check{
			Name:    "metrics_textfile",
			Passed:  false,
			Message: fmt.Sprintf("%s is not writable: %v", dir, err),
		}
	}
	name := f.Name()
	f.Close()
	os.Remove(name)

	return Check{
		Name:    "metrics_textfile",
		Passed:  true,
		Message: fmt.Sprintf("%s writable", dir),
	}
}

// checkTerminal verifies the pager has a terminal to draw on.
func checkTerminal(fd uintptr) Check {
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return Check{
			Name:    "terminal",
			Passed:  true,
			Message: "stdout is a terminal",
		}
	}
	return Check{
		Name:    "terminal",
		Passed:  false,
		Message: "stdout is not a terminal",
	}
}

// PrintResults writes the preflight check results to w.
func PrintResults(w io.Writer, result *Result) {
	fmt.Fprintln(w, "Preflight checks:")
	for _, check := range result.Checks {
		fmt.Fprintln(w, check.String())
		if !check.Passed {
			fmt.Fprintf(w, "    Fix: %s\n", suggestFix(check.Name))
		}
	}
	fmt.Fprintln(w)
}

// suggestFix returns a suggestion for fixing a failed check.
func suggestFix(name string) string {
	switch name {
	case "log_file":
		return "pass the path of a readable capture log"
	case "compression":
		return "rename the file to match its format, or decompress it first"
	case "metrics_textfile":
		return "point --metrics-textfile at a writable directory (e.g. the node_exporter textfile dir)"
	case "terminal":
		return "drop --interactive when piping or redirecting output"
	default:
		return "see --help"
	}
}

// formatBytes formats bytes with KB/MB/GB suffixes.
func formatBytes(n int64) string {
	if n >= 1_000_000_000 {
		return fmt.Sprintf("%.2f GB", float64(n)/1_000_000_000)
	}
	if n >= 1_000_000 {
		return fmt.Sprintf("%.2f MB", float64(n)/1_000_000)
	}
	if n >= 1_000 {
		return fmt.Sprintf("%.2f KB", float64(n)/1_000)
	}
	return fmt.Sprintf("%d B", n)
}
