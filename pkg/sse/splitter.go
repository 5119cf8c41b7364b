// Package sse turns an arbitrarily chunked byte stream into complete
// blank-line delimited frames. Chunk boundaries never align with frame
// boundaries, so the splitter keeps everything after the last complete
// delimiter as carry-over for the next read.
package sse

import (
	"bytes"
	"strings"
)

// delimiter separates frames on the wire. It is pure ASCII, so scanning for
// it over raw bytes can never fire inside a multi-byte UTF-8 rune: a rune
// split across two reads simply stays in the carry until its frame closes.
var delimiter = []byte("\n\n")

// Splitter buffers partial frames across Feed calls. The zero value is ready
// to use.
type Splitter struct {
	carry []byte
}

func NewSplitter() *Splitter {
	return &Splitter{}
}

// Feed appends chunk to the carry-over and returns every complete frame now
// available, in order. Empty frames (consecutive delimiters, SSE keep-alives)
// are dropped.
func (s *Splitter) Feed(chunk []byte) []string {
	s.carry = append(s.carry, chunk...)
	s.normalizeCarry()

	var frames []string
	for {
		idx := bytes.Index(s.carry, delimiter)
		if idx < 0 {
			break
		}
		frame := trimFrame(string(s.carry[:idx]))
		s.carry = s.carry[idx+len(delimiter):]
		if frame != "" {
			frames = append(frames, frame)
		}
	}

	// reclaim the consumed prefix so the carry doesn't alias the old backing array forever
	if len(s.carry) == 0 {
		s.carry = nil
	}

	return frames
}

// normalizeCarry folds \r\n to \n across the whole buffered carry, never on
// a single chunk in isolation: a pair split between two reads only collapses
// once both halves are buffered, the same buffer-first rule that keeps split
// UTF-8 runes intact. A trailing \r is held back untouched because it may be
// the first half of a pair whose \n has not arrived yet.
func (s *Splitter) normalizeCarry() {
	buf := s.carry
	held := false
	if len(buf) > 0 && buf[len(buf)-1] == '\r' {
		buf = buf[:len(buf)-1]
		held = true
	}
	buf = bytes.ReplaceAll(buf, []byte("\r\n"), []byte("\n"))
	if held {
		buf = append(buf, '\r')
	}
	s.carry = buf
}

// Flush returns the carry-over as a final, possibly incomplete frame once the
// stream has ended. A non-empty result means the stream stopped mid-frame;
// callers must treat that as a protocol anomaly rather than drop it silently.
func (s *Splitter) Flush() (string, bool) {
	frame := trimFrame(string(s.carry))
	s.carry = nil
	if frame == "" {
		return "", false
	}
	return frame, true
}

// Pending reports whether incomplete frame data is buffered.
func (s *Splitter) Pending() bool {
	return len(bytes.TrimSpace(s.carry)) > 0
}

// trimFrame strips the line endings CRLF transports leave behind.
func trimFrame(frame string) string {
	frame = strings.TrimSuffix(frame, "\r")
	return strings.TrimSpace(frame)
}
