package logging

import (
	"log/slog"
	"sort"
)

const (
	// MaxLineLength is the longest skipped line kept verbatim.
	MaxLineLength = 512

	// MaxBufferedLines is how many recent skipped lines are kept.
	MaxBufferedLines = 20
)

// SkippedLine is a log line that carried a marker token but did not have the
// expected shape.
type SkippedLine struct {
	Kind    string
	LineNum int
	Text    string
}

// SkipHandler records malformed marker lines seen by the parser.
// It logs each one at debug level, counts them per kind, and keeps the most
// recent ones in a circular buffer for the report footnotes.
//
// Not safe for concurrent use; the parser feeds it from a single goroutine.
type SkipHandler struct {
	logger *slog.Logger

	counts map[string]int
	total  int

	buffer []SkippedLine
	bufIdx int
}

// NewSkipHandler creates a skip handler. logger may be nil.
func NewSkipHandler(logger *slog.Logger) *SkipHandler {
	return &SkipHandler{
		logger: logger,
		counts: make(map[string]int),
		buffer: make([]SkippedLine, MaxBufferedLines),
	}
}

// RecordSkip implements parser.SkipRecorder.
func (h *SkipHandler) RecordSkip(kind string, lineNum int, line string) {
	if len(line) > MaxLineLength {
		line = line[:MaxLineLength] + "...(truncated)"
	}

	h.counts[kind]++
	h.total++

	h.buffer[h.bufIdx] = SkippedLine{Kind: kind, LineNum: lineNum, Text: line}
	h.bufIdx = (h.bufIdx + 1) % MaxBufferedLines

	if h.logger != nil {
		h.logger.Debug("line_skipped",
			"kind", kind,
			"line_num", lineNum,
			"line", line,
		)
	}
}

// Total returns the number of skipped lines.
func (h *SkipHandler) Total() int {
	return h.total
}

// Counts returns a copy of the per-kind skip counts.
func (h *SkipHandler) Counts() map[string]int {
	counts := make(map[string]int, len(h.counts))
	for k, v := range h.counts {
		counts[k] = v
	}
	return counts
}

// Kinds returns the kinds that had skips, sorted for stable output.
func (h *SkipHandler) Kinds() []string {
	kinds := make([]string, 0, len(h.counts))
	for k := range h.counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// RecentLines returns up to n of the most recent skipped lines, oldest first.
func (h *SkipHandler) RecentLines(n int) []SkippedLine {
	if n > MaxBufferedLines {
		n = MaxBufferedLines
	}
	if n > h.total {
		n = h.total
	}

	lines := make([]SkippedLine, 0, n)
	for i := 0; i < n; i++ {
		idx := (h.bufIdx - n + i + MaxBufferedLines) % MaxBufferedLines
		lines = append(lines, h.buffer[idx])
	}
	return lines
}
