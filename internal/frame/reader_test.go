package frame

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

// chunkReader returns one queued chunk per Read call.
type chunkReader struct {
	chunks []string
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	c.chunks = c.chunks[1:]
	return n, nil
}

func collect(t *testing.T, r *Reader) ([]string, error) {
	t.Helper()
	var out []string
	for {
		s, err := r.Next()
		if err != nil {
			return out, err
		}
		out = append(out, s)
	}
}

func TestReaderLineMode(t *testing.T) {
	r := NewReader(strings.NewReader("#usern#Alice\n#Alice#hi\r\ntrailing"), Options{})
	got, err := collect(t, r)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	want := []string{"#usern#Alice", "#Alice#hi", "trailing"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestReaderLineModeReassemblesPartialReads(t *testing.T) {
	src := iotest.OneByteReader(strings.NewReader("#writing#Bob\n#nowriting#\n"))
	got, _ := collect(t, NewReader(src, Options{Mode: ModeLine}))
	if len(got) != 2 || got[0] != "#writing#Bob" || got[1] != "#nowriting#" {
		t.Errorf("got %q", got)
	}
}

func TestReaderLineModeSplitsCoalescedWrites(t *testing.T) {
	src := &chunkReader{chunks: []string{"#usern#Alice\n#Alice#hel", "lo\n"}}
	got, _ := collect(t, NewReader(src, Options{Mode: ModeLine}))
	if len(got) != 2 || got[0] != "#usern#Alice" || got[1] != "#Alice#hello" {
		t.Errorf("got %q", got)
	}
}

func TestReaderLineTooLong(t *testing.T) {
	r := NewReader(strings.NewReader("0123456789abcdef\n"), Options{MaxLine: 8})
	if _, err := r.Next(); !errors.Is(err, ErrLineTooLong) {
		t.Errorf("expected ErrLineTooLong, got %v", err)
	}
}

func TestReaderChunkMode(t *testing.T) {
	src := &chunkReader{chunks: []string{"#usern#Alice", "#Alice#hi\n#Alice#again\n"}}
	got, err := collect(t, NewReader(src, Options{Mode: ModeChunk}))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %q", len(got), got)
	}
	if got[0] != "#usern#Alice" {
		t.Errorf("first chunk = %q", got[0])
	}
	if got[1] != "#Alice#hi\n#Alice#again\n" {
		t.Errorf("second chunk = %q", got[1])
	}
}

func TestReaderChunkModeSize(t *testing.T) {
	r := NewReader(strings.NewReader("abcdefgh"), Options{Mode: ModeChunk, ChunkSize: 3})
	first, err := r.Next()
	if err != nil || first != "abc" {
		t.Errorf("got %q, %v", first, err)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeLine, false},
		{"line", ModeLine, false},
		{"Chunk", ModeChunk, false},
		{"legacy", ModeChunk, false},
		{"bogus", ModeLine, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
