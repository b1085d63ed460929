package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRequestSyncCoalescesWhileBusy(t *testing.T) {
	s := New(Config{SyncWorkers: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Serve(ctx)

	release := make(chan struct{})
	var runs int32
	firstRun := func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		<-release
		return nil
	}

	s.RequestSync(1, 2, false, firstRun)
	time.Sleep(10 * time.Millisecond)
	if got := s.State(1); got != StateWork {
		t.Fatalf("expected StateWork once dispatched, got %v", got)
	}

	secondRun := func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}
	s.RequestSync(1, 3, false, secondRun)
	if got := s.State(1); got != StatePend {
		t.Fatalf("expected a second request for a busy tree to coalesce into StatePend, got %v", got)
	}

	close(release)
	time.Sleep(20 * time.Millisecond)
	if got := atomic.LoadInt32(&runs); got != 2 {
		t.Fatalf("expected both the in-flight and the pending run to execute, got %d", got)
	}
}

func TestRequestRefreshSkipsWhileBusy(t *testing.T) {
	s := New(Config{RefreshWorkers: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Serve(ctx)

	release := make(chan struct{})
	var runs int32
	run := func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		<-release
		return nil
	}

	s.RequestRefresh(1, run)
	time.Sleep(10 * time.Millisecond)
	s.RequestRefresh(1, run) // should be dropped, tree 1 already refreshing
	close(release)
	time.Sleep(20 * time.Millisecond)

	if got := atomic.LoadInt32(&runs); got != 1 {
		t.Fatalf("expected the duplicate refresh request to be skipped, got %d runs", got)
	}
}
