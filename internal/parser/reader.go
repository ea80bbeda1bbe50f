package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const (
	// readBufferSize is the size of the buffered reader over the input.
	readBufferSize = 64 * 1024

	// MaxLineLength is the longest line that is classified. Longer lines are
	// dropped as unmatched but still counted, so later line numbers stay exact.
	MaxLineLength = 1024 * 1024
)

// Option configures ParseReader and ParseFile.
type Option func(*options)

type options struct {
	skips SkipRecorder
}

// WithSkipRecorder reports malformed marker lines to r.
func WithSkipRecorder(r SkipRecorder) Option {
	return func(o *options) {
		o.skips = r
	}
}

// ParseReader reads r to EOF and classifies every line.
func ParseReader(r io.Reader, opts ...Option) (*Result, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	p := NewTimingParser(o.skips)
	br := bufio.NewReaderSize(r, readBufferSize)

	var line []byte
	oversized := false
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", p.lineNum+1, err)
		}

		// Drain the rest of an oversized line without buffering it.
		if !oversized {
			if len(line)+len(chunk) > MaxLineLength {
				oversized = true
				line = line[:0]
			} else {
				line = append(line, chunk...)
			}
		}
		if isPrefix {
			continue
		}

		if oversized {
			p.skipLine()
		} else {
			p.ParseLine(string(line))
		}
		line = line[:0]
		oversized = false
	}

	return p.Result(), nil
}

// ParseFile opens path and parses it. Files ending in .gz or .zst are
// decompressed on the fly.
func ParseFile(path string, opts ...Option) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, closeFn, err := decompressor(path, f)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer closeFn()

	result, err := ParseReader(r, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return result, nil
}

// decompressor wraps f according to the file extension of path.
func decompressor(path string, f io.Reader) (io.Reader, func(), error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip: %w", err)
		}
		return zr, func() { zr.Close() }, nil
	case ".zst", ".zstd":
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd: %w", err)
		}
		return zr, zr.Close, nil
	default:
		return f, func() {}, nil
	}
}
