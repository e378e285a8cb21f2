// Package transport defines the channel contract between the agent
// loop and its front ends. Front ends (WebSocket handler, CLI) push
// raw user input into In and render the events the loop emits on Out.
// The loop is the single consumer of In and the single producer on
// Out; front ends never see each other's traffic directly.
package transport

// ResetSentinel is the input string that clears the conversation
// instead of starting a turn. Compared after whitespace trimming,
// case-sensitively.
const ResetSentinel = "__CLEAR__"

// Event kinds emitted by the loop on the outbound channel.
const (
	// KindStatus is a transient activity indicator (thinking, running
	// a tool). Status events are never persisted.
	KindStatus = "status"
	// KindMessage is a conversational message with a role and content.
	KindMessage = "message"
)

// Event is a single outbound item for front ends to render.
type Event struct {
	Kind string `json:"kind"`

	// Label and Busy are set for status events. Busy false with an
	// empty label clears the indicator.
	Label string `json:"label,omitempty"`
	Busy  bool   `json:"busy,omitempty"`

	// Role and Content are set for message events.
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// Status builds a status event.
func Status(label string, busy bool) Event {
	return Event{Kind: KindStatus, Label: label, Busy: busy}
}

// Message builds a message event.
func Message(role, content string) Event {
	return Event{Kind: KindMessage, Role: role, Content: content}
}

// Transport is the channel pair connecting front ends to the loop.
type Transport struct {
	// In carries raw user input to the loop.
	In chan string
	// Out carries rendered events from the loop to front ends.
	Out chan Event
}

// New creates a transport with the given buffer sizes. Buffered
// channels let front ends hand off input without waiting for the loop
// to finish the current turn.
func New(inBuf, outBuf int) *Transport {
	return &Transport{
		In:  make(chan string, inBuf),
		Out: make(chan Event, outBuf),
	}
}

// Send delivers an event on Out without blocking the loop forever: if
// no front end is draining Out and the buffer is full, the event is
// dropped. Conversation state lives in the store, so dropped render
// events are recoverable from history.
func (t *Transport) Send(e Event) {
	if t == nil {
		return
	}
	select {
	case t.Out <- e:
	default:
	}
}
