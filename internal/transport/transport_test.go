package transport

import "testing"

func TestStatusEvent(t *testing.T) {
	e := Status("Thinking...", true)
	if e.Kind != KindStatus || e.Label != "Thinking..." || !e.Busy {
		t.Errorf("Status() = %+v", e)
	}
}

func TestMessageEvent(t *testing.T) {
	e := Message("assistant", "hello")
	if e.Kind != KindMessage || e.Role != "assistant" || e.Content != "hello" {
		t.Errorf("Message() = %+v", e)
	}
}

func TestSendDropsWhenFull(t *testing.T) {
	tr := New(1, 1)
	tr.Send(Message("assistant", "first"))
	// Buffer is full; this must not block.
	tr.Send(Message("assistant", "second"))

	got := <-tr.Out
	if got.Content != "first" {
		t.Errorf("content = %q, want %q", got.Content, "first")
	}
	select {
	case e := <-tr.Out:
		t.Errorf("unexpected second event %+v", e)
	default:
	}
}

func TestSendNilTransport(t *testing.T) {
	var tr *Transport
	// Must not panic.
	tr.Send(Status("", false))
}
