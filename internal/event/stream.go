package event

import (
	"bufio"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
)

// Stream is an ordered, single-pass sequence of decoded events.
// Next returns io.EOF once the complete event has been delivered.
type Stream interface {
	Next() (Event, error)
	Close() error
}

// Scanner splits a byte stream into trimmed, non-blank lines. Bytes that
// do not end in a newline are carried over until the next read completes
// the line; a partial line left at end of input is returned last.
type Scanner struct {
	br *bufio.Reader
}

// NewScanner returns a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{br: bufio.NewReader(r)}
}

// Next returns the next non-blank line without its line ending.
func (s *Scanner) Next() (string, error) {
	for {
		line, err := s.br.ReadString('\n')
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed, nil
		}
		if err != nil {
			return "", err
		}
	}
}

// Data extracts the payload of an SSE "data:" line. The space after the
// colon is optional, as in the SSE grammar.
func Data(line string) (string, bool) {
	payload, ok := strings.CutPrefix(line, "data:")
	if !ok {
		return "", false
	}
	return strings.TrimPrefix(payload, " "), true
}

// Reader decodes events from a streamed response body. Malformed frames
// are dropped; events after complete are ignored.
type Reader struct {
	sc     *Scanner
	closer io.Closer
	done   bool
}

// NewReader wraps body. Close closes body.
func NewReader(body io.ReadCloser) *Reader {
	return &Reader{sc: NewScanner(body), closer: body}
}

// Next returns the next decoded event. It returns io.EOF after the
// complete event and ErrTruncated if the body ends before one arrives.
func (r *Reader) Next() (Event, error) {
	if r.done {
		return Event{}, io.EOF
	}
	for {
		line, err := r.sc.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Event{}, ErrTruncated
			}
			return Event{}, err
		}
		e, ok := Decode(line)
		if !ok {
			continue
		}
		if e.Type == TypeComplete {
			r.done = true
		}
		return e, nil
	}
}

// Close releases the underlying body.
func (r *Reader) Close() error {
	return r.closer.Close()
}

// SetHeaders prepares a response for streaming events.
func SetHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
}

// Writer encodes events onto w, flushing after each frame when w supports
// it. It is safe for concurrent use.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter returns a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Send writes one event.
func (w *Writer) Send(e Event) error {
	frame, err := Encode(e)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.w.Write(frame); err != nil {
		return err
	}
	if f, ok := w.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
