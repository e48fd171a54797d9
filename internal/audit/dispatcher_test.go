package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestDispatcherDeliversToSink(t *testing.T) {
	sink := NewChannelSink(4)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)

	d.Emit(context.Background(), Event{EventType: "auth_success", Subject: "u1"})
	d.Close()

	select {
	case ev := <-sink.Events():
		if ev.EventType != "auth_success" || ev.Subject != "u1" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	default:
		t.Fatal("expected the event to be delivered before Close returned")
	}
}

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NewChannelSink(1))
	if d != nil {
		t.Fatal("disabled config must yield a nil dispatcher")
	}

	// Nil receivers are safe.
	d.Emit(context.Background(), Event{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reports zero drops")
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	// An unbuffered-ish sink that never drains: the channel sink's buffer
	// fills and stays full.
	blocked := NewChannelSink(1)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, blocked)

	for i := 0; i < 64; i++ {
		d.Emit(context.Background(), Event{EventType: "auth_failure"})
	}

	deadline := time.Now().Add(time.Second)
	for d.Dropped() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected drops once the buffer filled")
		}
		time.Sleep(time.Millisecond)
	}

	// Unblock the worker so Close can drain and return.
	go func() {
		for range blocked.Events() {
		}
	}()
	d.Close()
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{EventType: "token_revoked", SessionID: "s1", Success: true})

	var decoded Event
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded.EventType != "token_revoked" || decoded.SessionID != "s1" || !decoded.Success {
		t.Fatalf("unexpected decoded event: %+v", decoded)
	}
}
