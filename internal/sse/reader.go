package sse

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// Reader decodes an SSE response body back into relay events. It mirrors
// the browser client: decode incrementally, split on newlines, buffer any
// trailing partial line across reads (a read may split a frame mid-line),
// and classify each data payload by which key it carries.
//
// A stream that ends without a done or error frame yields exactly one
// Incomplete event so callers can distinguish anomalous termination from
// completion. A data line that fails to parse as JSON is skipped; one bad
// frame should not abort an otherwise healthy stream.
type Reader struct {
	r            io.Reader
	buf          []byte
	scratch      []byte
	pendingEvent string
	stopReason   string
	terminal     bool
	eof          bool
	malformed    int
}

// NewReader wraps the raw byte stream of an SSE response.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, scratch: make([]byte, 4096)}
}

// Next returns the next decoded event. After a terminal event it
// returns io.EOF.
func (r *Reader) Next() (Event, error) {
	if r.terminal {
		return Event{}, io.EOF
	}

	for {
		line, ok := r.nextLine()
		if !ok {
			if r.eof {
				// Stream closed without a terminal frame.
				r.terminal = true
				return Event{Type: EventIncomplete, StopReason: r.stopReason}, nil
			}
			if err := r.fill(); err != nil {
				if errors.Is(err, io.EOF) {
					r.eof = true
					continue // flush any buffered final line
				}
				return Event{}, err
			}
			continue
		}

		if ev, emit := r.processLine(line); emit {
			if ev.Terminal() {
				r.terminal = true
			}
			return ev, nil
		}
	}
}

// Malformed reports how many data lines were skipped as unparseable.
func (r *Reader) Malformed() int {
	return r.malformed
}

func (r *Reader) fill() error {
	n, err := r.r.Read(r.scratch)
	if n > 0 {
		r.buf = append(r.buf, r.scratch[:n]...)
		return nil
	}
	if err == nil {
		return nil
	}
	return err
}

// nextLine pops one complete line off the buffer. After EOF, a trailing
// unterminated line is returned as-is.
func (r *Reader) nextLine() (string, bool) {
	if i := bytes.IndexByte(r.buf, '\n'); i >= 0 {
		line := strings.TrimRight(string(r.buf[:i]), "\r")
		r.buf = r.buf[i+1:]
		return line, true
	}
	if r.eof && len(r.buf) > 0 {
		line := strings.TrimRight(string(r.buf), "\r")
		r.buf = nil
		return line, true
	}
	return "", false
}

type framePayload struct {
	Token      *string `json:"token"`
	ChatID     *int64  `json:"chat_id"`
	StopReason *string `json:"stop_reason"`
	Error      *string `json:"error"`
}

func (r *Reader) processLine(line string) (Event, bool) {
	switch {
	case line == "":
		// Blank line ends an SSE frame.
		return Event{}, false

	case strings.HasPrefix(line, ":"):
		// SSE comment.
		return Event{}, false

	case strings.HasPrefix(line, "event: "):
		r.pendingEvent = strings.TrimPrefix(line, "event: ")
		return Event{}, false

	case strings.HasPrefix(line, "data: "):
		name := r.pendingEvent
		r.pendingEvent = ""

		var p framePayload
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &p); err != nil {
			r.malformed++
			return Event{}, false
		}

		switch name {
		case "error":
			msg := "stream error"
			if p.Error != nil {
				msg = *p.Error
			}
			return Error(msg), true
		case "done":
			reason := r.stopReason
			if p.StopReason != nil {
				reason = *p.StopReason
			}
			return Done(reason), true
		}

		switch {
		case p.Token != nil:
			return Token(*p.Token), true
		case p.ChatID != nil:
			return ChatID(*p.ChatID), true
		case p.StopReason != nil:
			// Captured for the done event that follows.
			r.stopReason = *p.StopReason
			return Event{}, false
		}
		return Event{}, false
	}

	return Event{}, false
}
