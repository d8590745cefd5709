// Package sse implements the streaming relay wire format: the server-side
// encoder that frames token streams as Server-Sent Events, and the
// client-side reader that reassembles frames into tagged events.
package sse

// EventType tags a decoded stream event.
type EventType int

const (
	// EventToken carries one text fragment of the in-progress response.
	EventToken EventType = iota
	// EventChatID carries the id of a chat created lazily mid-stream.
	EventChatID
	// EventDone terminates the stream after a natural stop.
	EventDone
	// EventError terminates the stream after an upstream failure.
	EventError
	// EventIncomplete is synthesized by the reader when the underlying
	// stream closes without a done or error frame. It is never sent on
	// the wire.
	EventIncomplete
)

func (t EventType) String() string {
	switch t {
	case EventToken:
		return "token"
	case EventChatID:
		return "chat_id"
	case EventDone:
		return "done"
	case EventError:
		return "error"
	case EventIncomplete:
		return "incomplete"
	default:
		return "unknown"
	}
}

// Event is one decoded unit of the relay protocol. Exactly one of Done,
// Error or Incomplete terminates a stream; Token and ChatID may repeat
// or be absent.
type Event struct {
	Type       EventType
	Token      string
	ChatID     int64
	StopReason string
	Err        string
}

// Terminal reports whether no further events follow this one.
func (e Event) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError || e.Type == EventIncomplete
}

// Token returns a token event.
func Token(text string) Event { return Event{Type: EventToken, Token: text} }

// ChatID returns a chat-id announcement event.
func ChatID(id int64) Event { return Event{Type: EventChatID, ChatID: id} }

// Done returns a terminal completion event. stopReason may be empty.
func Done(stopReason string) Event { return Event{Type: EventDone, StopReason: stopReason} }

// Error returns a terminal failure event.
func Error(msg string) Event { return Event{Type: EventError, Err: msg} }
