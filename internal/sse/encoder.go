package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Wire format, matching what the browser client parses:
//
//	data: {"token": "..."}\n\n            token fragment (unnamed event)
//	data: {"chat_id": 42}\n\n             lazily created chat id
//	event: done\ndata: {"stop_reason": "..."}\n\n
//	event: error\ndata: {"error": "..."}\n\n
//
// done and error are terminal; the encoder refuses to write after either.

type tokenPayload struct {
	Token string `json:"token"`
}

type chatIDPayload struct {
	ChatID int64 `json:"chat_id"`
}

type donePayload struct {
	StopReason string `json:"stop_reason,omitempty"`
}

type errorPayload struct {
	Error string `json:"error"`
}

// Encoder writes relay events to an HTTP response as SSE frames,
// flushing after each frame so tokens reach the client as they arrive.
type Encoder struct {
	w       http.ResponseWriter
	flusher http.Flusher
	closed  bool
}

// NewEncoder prepares w for event streaming and writes the SSE headers.
// It returns an error if w does not support flushing.
func NewEncoder(w http.ResponseWriter) (*Encoder, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no") // disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Encoder{w: w, flusher: flusher}, nil
}

// Write frames one event and flushes it. After a terminal event the
// encoder closes and further writes are silently dropped.
func (e *Encoder) Write(ev Event) error {
	if e.closed {
		return nil
	}

	var name string
	var payload any
	switch ev.Type {
	case EventToken:
		payload = tokenPayload{Token: ev.Token}
	case EventChatID:
		payload = chatIDPayload{ChatID: ev.ChatID}
	case EventDone:
		name = "done"
		payload = donePayload{StopReason: ev.StopReason}
	case EventError:
		name = "error"
		payload = errorPayload{Error: ev.Err}
	default:
		return fmt.Errorf("event type %s is not encodable", ev.Type)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", ev.Type, err)
	}

	if name != "" {
		if _, err := fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
			return fmt.Errorf("writing %s frame: %w", ev.Type, err)
		}
	} else {
		if _, err := fmt.Fprintf(e.w, "data: %s\n\n", data); err != nil {
			return fmt.Errorf("writing %s frame: %w", ev.Type, err)
		}
	}
	e.flusher.Flush()

	if ev.Terminal() {
		e.closed = true
	}
	return nil
}
