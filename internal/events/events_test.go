package events_test

import (
	"testing"
	"time"

	"github.com/zisync/zisync/internal/events"
)

var timeout = 100 * time.Millisecond

func TestNewLogger(t *testing.T) {
	if events.NewLogger() == nil {
		t.Fatal("unexpected nil Logger")
	}
}

func TestTimeout(t *testing.T) {
	l := events.NewLogger()
	s := l.Subscribe(0)
	if _, err := s.Poll(timeout); err != events.ErrTimeout {
		t.Fatal("unexpected non-timeout error:", err)
	}
}

func TestEventBeforeSubscribeIsMissed(t *testing.T) {
	l := events.NewLogger()
	l.Log(events.DeviceConnected, "device-1")
	s := l.Subscribe(events.AllEvents)

	if _, err := s.Poll(timeout); err != events.ErrTimeout {
		t.Fatal("a subscription must not see events logged before it existed:", err)
	}
}

func TestMaskFiltersUnwantedTypes(t *testing.T) {
	l := events.NewLogger()
	s := l.Subscribe(events.SyncCompleted)

	l.Log(events.SyncStarted, nil)
	if _, err := s.Poll(timeout); err != events.ErrTimeout {
		t.Fatal("expected SyncStarted to be filtered out by the mask:", err)
	}

	l.Log(events.SyncCompleted, "tree-7")
	ev, err := s.Poll(timeout)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if ev.Type != events.SyncCompleted || ev.Data != "tree-7" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestUnsubscribeClosesSubscription(t *testing.T) {
	l := events.NewLogger()
	s := l.Subscribe(events.AllEvents)
	l.Unsubscribe(s)

	if _, err := s.Poll(timeout); err != events.ErrClosed {
		t.Fatal("expected ErrClosed after Unsubscribe:", err)
	}
}

func TestBufferedSubscriptionSince(t *testing.T) {
	l := events.NewLogger()
	s := l.Subscribe(events.AllEvents)
	bs := events.NewBufferedSubscription(s, 10)

	l.Log(events.TreeRefreshStarted, "tree-1")
	l.Log(events.TreeRefreshCompleted, "tree-1")

	var got []events.Event
	for len(got) < 2 {
		got = bs.Since(-1, nil)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events since -1, got %d", len(got))
	}
	if got[0].Type != events.TreeRefreshStarted || got[1].Type != events.TreeRefreshCompleted {
		t.Fatalf("unexpected event order: %+v", got)
	}
}

func TestEventTypeString(t *testing.T) {
	if events.SyncFailed.String() != "SyncFailed" {
		t.Fatalf("unexpected String(): %q", events.SyncFailed.String())
	}
	if events.EventType(0).String() != "Unknown" {
		t.Fatalf("expected Unknown for an unrecognized type")
	}
}
