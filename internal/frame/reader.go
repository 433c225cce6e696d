package frame

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Mode selects how raw transport reads are cut into frames.
type Mode int

const (
	// ModeLine delimits frames on '\n'. Partial reads and coalesced writes
	// are reassembled, so boundaries never depend on read granularity.
	ModeLine Mode = iota
	// ModeChunk treats each Read call as exactly one frame, for peers that
	// do not newline-terminate their control frames.
	ModeChunk
)

const (
	DefaultMaxLine   = 4096
	DefaultChunkSize = 1024
)

// ErrLineTooLong is returned in line mode when a peer sends more than
// MaxLine bytes without a newline.
var ErrLineTooLong = errors.New("frame: line exceeds maximum length")

// ParseMode maps a configuration value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "line":
		return ModeLine, nil
	case "chunk", "legacy":
		return ModeChunk, nil
	}
	return ModeLine, fmt.Errorf("unknown framing mode %q", s)
}

func (m Mode) String() string {
	if m == ModeChunk {
		return "chunk"
	}
	return "line"
}

// Options configures a Reader. Zero values select the defaults.
type Options struct {
	Mode      Mode
	MaxLine   int
	ChunkSize int
}

// Reader yields one raw read unit per call to Next.
type Reader struct {
	mode    Mode
	src     io.Reader
	scanner *bufio.Scanner
	buf     []byte
}

// NewReader wraps r according to opts.
func NewReader(r io.Reader, opts Options) *Reader {
	fr := &Reader{mode: opts.Mode, src: r}
	switch opts.Mode {
	case ModeChunk:
		size := opts.ChunkSize
		if size <= 0 {
			size = DefaultChunkSize
		}
		fr.buf = make([]byte, size)
	default:
		max := opts.MaxLine
		if max <= 0 {
			max = DefaultMaxLine
		}
		initial := 4096
		if max < initial {
			initial = max
		}
		fr.scanner = bufio.NewScanner(r)
		fr.scanner.Buffer(make([]byte, 0, initial), max)
	}
	return fr
}

// Next returns the next raw read unit. A peer closing its side yields
// io.EOF; a final unterminated line is delivered before it.
func (r *Reader) Next() (string, error) {
	if r.mode == ModeChunk {
		n, err := r.src.Read(r.buf)
		if n > 0 {
			return string(r.buf[:n]), nil
		}
		if err != nil {
			return "", err
		}
		return "", io.EOF
	}

	if r.scanner.Scan() {
		return r.scanner.Text(), nil
	}
	if err := r.scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return "", ErrLineTooLong
		}
		return "", err
	}
	return "", io.EOF
}
