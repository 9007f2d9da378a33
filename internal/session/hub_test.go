package session

import (
	"encoding/json"
	"testing"

	"github.com/shehryarbajwa/devtools-inspector/internal/devtools"
)

func TestHubSubscribe(t *testing.T) {
	h := NewHub("session-1")

	ch, cancel := h.Subscribe(4)
	h.Publish("Debugger.resumed", json.RawMessage(`{}`))

	ev := <-ch
	if ev.Method != "Debugger.resumed" || string(ev.Params) != `{}` {
		t.Errorf("unexpected event %+v", ev)
	}

	cancel()
	if _, ok := <-ch; ok {
		t.Error("expected channel to close after cancel")
	}
	cancel()
}

func TestHubSubscribeFuncIsSynchronous(t *testing.T) {
	h := NewHub("session-1")

	var got []string
	cancel := h.SubscribeFunc(func(ev devtools.Event) {
		got = append(got, ev.Method)
	})

	h.Publish("a", nil)
	h.Publish("b", nil)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("unexpected deliveries %v", got)
	}

	cancel()
	h.Publish("c", nil)
	if len(got) != 2 {
		t.Errorf("expected no delivery after cancel, got %v", got)
	}
}

func TestHubDropsWhenFull(t *testing.T) {
	h := NewHub("session-1")
	ch, cancel := h.Subscribe(1)
	defer cancel()

	h.Publish("first", nil)
	h.Publish("second", nil)

	if ev := <-ch; ev.Method != "first" {
		t.Errorf("expected first event, got %s", ev.Method)
	}
	select {
	case ev := <-ch:
		t.Errorf("expected second event to be dropped, got %s", ev.Method)
	default:
	}
}

func TestHubClose(t *testing.T) {
	h := NewHub("session-1")
	ch, cancel := h.Subscribe(1)

	h.Close()
	if _, ok := <-ch; ok {
		t.Error("expected channel to close with the hub")
	}
	cancel()

	late, _ := h.Subscribe(1)
	if _, ok := <-late; ok {
		t.Error("expected a closed channel after the hub closed")
	}
	h.Close()
}
