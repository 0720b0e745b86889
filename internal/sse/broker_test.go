package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/ont/internal/index"
)

// drain collects every message currently buffered on ch.
func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func countType(msgs []string, typ string) int {
	n := 0
	for _, m := range msgs {
		if strings.Contains(m, "event: "+typ+"\n") {
			n++
		}
	}
	return n
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: WeaveCompleted, Data: map[string]int{"executed": 1}})
	b.Publish(Event{Type: WeaveCompleted, Data: map[string]int{"executed": 2}})

	for i, want := range []string{"id: 1\n", "id: 2\n"} {
		select {
		case msg := <-ch:
			s := string(msg)
			if !strings.HasPrefix(s, want) {
				t.Errorf("message %d = %q, want prefix %q", i, s, want)
			}
			if !strings.Contains(s, "event: weave.completed") {
				t.Errorf("missing event type in %q", s)
			}
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for message")
		}
	}
}

func TestPublishChanges_OutlineThrottle(t *testing.T) {
	b := NewBroker(300 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishChanges([]index.Change{{Kind: index.Created, Path: "a.idm"}})
	b.PublishChanges([]index.Change{
		{Kind: index.Updated, Path: "b.idm"},
		{Kind: index.Deleted, Path: "c.idm"},
		{Kind: "renamed", Path: "d.idm"},
	})

	time.Sleep(50 * time.Millisecond)
	msgs := drain(ch)
	if n := countType(msgs, FileCreated) + countType(msgs, FileUpdated) + countType(msgs, FileDeleted); n != 3 {
		t.Errorf("file events = %d, want 3", n)
	}
	if n := countType(msgs, OutlineUpdated); n != 1 {
		t.Fatalf("outline events = %d, want 1 (throttled)", n)
	}
	for _, m := range msgs {
		if strings.Contains(m, OutlineUpdated) && !strings.Contains(m, `"paths":["a.idm"]`) {
			t.Errorf("first outline event = %q", m)
		}
	}

	// The changes held back by the throttle arrive once it expires.
	time.Sleep(400 * time.Millisecond)
	msgs = drain(ch)
	if len(msgs) != 1 || !strings.Contains(msgs[0], `"paths":["b.idm","c.idm"]`) {
		t.Errorf("trailing outline events = %q", msgs)
	}
}

func TestSubscribeFilter(t *testing.T) {
	b := NewBroker(time.Millisecond)
	defer b.Close()
	ch := b.Subscribe(OutlineUpdated)
	defer b.Unsubscribe(ch)

	b.PublishChanges([]index.Change{{Kind: index.Created, Path: "a.idm"}})
	b.Publish(Event{Type: WeaveCompleted, Data: nil})

	time.Sleep(50 * time.Millisecond)
	msgs := drain(ch)
	if len(msgs) != 1 || countType(msgs, OutlineUpdated) != 1 {
		t.Errorf("filtered messages = %q", msgs)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events?types=weave.completed", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishChanges([]index.Change{{Kind: index.Updated, Path: "a.idm"}})
	b.Publish(Event{Type: WeaveCompleted, Data: map[string]int{"executed": 2}})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.HasPrefix(body, "retry: 3000\n\n") {
		t.Errorf("missing retry hint: %q", body)
	}
	if !strings.Contains(body, "event: weave.completed") || !strings.Contains(body, `"executed":2`) {
		t.Errorf("handler output missing event: %q", body)
	}
	if strings.Contains(body, FileUpdated) {
		t.Errorf("filtered event delivered: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// One more than the client buffer must not block the loop.
	for range 70 {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	if b.ClientCount() != 1 {
		t.Fatal("broker loop stalled")
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Safe no-ops after close.
	b.Publish(Event{Type: FileUpdated, Data: nil})
	b.PublishChanges([]index.Change{{Kind: index.Updated, Path: "x.idm"}})
}
