// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

// Package scheduler is the Router/Worker-pool replacement (spec §4.9):
// four logical job queues (refresh, sync, outer, inner) feeding a bounded
// pool of goroutine workers, with a per-local-tree IDLE/WORK/PEND state
// machine so at most one sync runs per local tree at a time while later
// requests for that tree coalesce into a pending set instead of queuing
// twice. Grounded on src/zisync/kernel/router.{cc,h} and
// src/zisync/kernel/worker/worker.{cc,h} in original_source/ — the
// MASK_WORK/MASK_IDLE/MASK_PEND router state and worker.cc's idle-worker
// pull loop map onto Go channels and an xsync state map instead of the
// original's ZeroMQ REQ/REP proxy sockets.
package scheduler

import (
	"context"
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/zisync/zisync/internal/logger"
	"github.com/zisync/zisync/internal/metrics"
	"github.com/zisync/zisync/internal/syncutil"
)

var l = logger.DefaultLogger

// TreeState mirrors Router::SyncStatus.status (MASK_IDLE/MASK_WORK/MASK_PEND).
type TreeState int

const (
	StateIdle TreeState = iota
	StateWork
	StatePend
)

// JobKind selects which of the four logical queues a Job belongs to.
type JobKind int

const (
	JobRefresh JobKind = iota
	JobSync
	JobOuter
	JobInner
)

func (k JobKind) String() string {
	switch k {
	case JobRefresh:
		return "refresh"
	case JobSync:
		return "sync"
	case JobOuter:
		return "outer"
	case JobInner:
		return "inner"
	default:
		return "unknown"
	}
}

// Job is one unit of dispatchable work: a tree to refresh, or a tree-pair to
// sync, routed to whichever worker pool handles its Kind.
type Job struct {
	Kind           JobKind
	LocalTreeID    int64
	RemoteTreeID   int64 // zero for JobRefresh/JobOuter/JobInner
	Manual         bool
	Run            func(ctx context.Context) error
}

// pendingSync is one absorbed request waiting for the tree's in-flight run
// to finish; it must carry its own run func since it may target a
// different remote tree (and thus a different job) than the one currently
// running.
type pendingSync struct {
	manual bool
	run    func(ctx context.Context) error
}

type syncStatus struct {
	mu      syncutil.Mutex
	state   TreeState
	pending map[int64]pendingSync // remote_tree_id -> absorbed request
}

func newSyncStatus() *syncStatus {
	return &syncStatus{mu: syncutil.NewMutex(), pending: map[int64]pendingSync{}}
}

// Scheduler dispatches Jobs onto bounded worker pools per queue, collapsing
// repeat sync requests for a busy local tree into its pending set (spec
// §4.9: "a tree already running absorbs further requests rather than
// queuing a second concurrent run against itself").
type Scheduler struct {
	queues      map[JobKind]chan Job
	poolSize    map[JobKind]int
	syncStatus  *xsync.MapOf[int64, *syncStatus]
	refreshBusy *xsync.MapOf[int64, bool]
}

// Config sets the worker-pool size for each logical queue (spec §4.9's
// outer/inner worker counts; refresh and sync share the same shape).
type Config struct {
	RefreshWorkers, SyncWorkers, OuterWorkers, InnerWorkers int
}

func New(cfg Config) *Scheduler {
	s := &Scheduler{
		queues: map[JobKind]chan Job{
			JobRefresh: make(chan Job, 256),
			JobSync:    make(chan Job, 256),
			JobOuter:   make(chan Job, 256),
			JobInner:   make(chan Job, 256),
		},
		poolSize: map[JobKind]int{
			JobRefresh: max1(cfg.RefreshWorkers),
			JobSync:    max1(cfg.SyncWorkers),
			JobOuter:   max1(cfg.OuterWorkers),
			JobInner:   max1(cfg.InnerWorkers),
		},
		syncStatus:  xsync.NewMapOf[int64, *syncStatus](),
		refreshBusy: xsync.NewMapOf[int64, bool](),
	}
	return s
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func (s *Scheduler) String() string { return fmt.Sprintf("scheduler@%p", s) }

// Serve runs pool workers for all four queues until ctx is cancelled,
// satisfying suture.Service.
func (s *Scheduler) Serve(ctx context.Context) error {
	done := ctx.Done()
	for kind, n := range s.poolSize {
		for i := 0; i < n; i++ {
			go s.worker(ctx, kind)
		}
	}
	<-done
	return ctx.Err()
}

func (s *Scheduler) worker(ctx context.Context, kind JobKind) {
	q := s.queues[kind]
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q:
			s.run(ctx, job)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, job Job) {
	defer s.finish(job)
	defer metrics.Account(job.Kind.String())()
	if job.Run == nil {
		return
	}
	if err := job.Run(ctx); err != nil {
		l.Warnf("job %v failed: %v", job, err)
	}
}

// RequestSync enqueues a sync of (localTreeID, remoteTreeID). If that local
// tree is already WORK, the request is absorbed into its pending set
// (Router::SyncStatus.pending_remote_sync_ids) instead of being queued
// again; PEND is drained when the in-flight run finishes.
func (s *Scheduler) RequestSync(localTreeID, remoteTreeID int64, manual bool, run func(ctx context.Context) error) {
	st, _ := s.syncStatus.LoadOrCompute(localTreeID, newSyncStatus)
	st.mu.Lock()
	switch st.state {
	case StateIdle:
		st.state = StateWork
		st.mu.Unlock()
		s.enqueue(Job{Kind: JobSync, LocalTreeID: localTreeID, RemoteTreeID: remoteTreeID, Manual: manual, Run: run})
	default:
		st.state = StatePend
		st.pending[remoteTreeID] = pendingSync{manual: manual, run: run}
		st.mu.Unlock()
	}
}

// RequestRefresh enqueues a tree refresh unless one is already in flight for
// the same tree.
func (s *Scheduler) RequestRefresh(treeID int64, run func(ctx context.Context) error) {
	if _, busy := s.refreshBusy.LoadOrStore(treeID, true); busy {
		return
	}
	s.enqueue(Job{Kind: JobRefresh, LocalTreeID: treeID, Run: run})
}

func (s *Scheduler) enqueue(job Job) {
	s.queues[job.Kind] <- job
}

// finish transitions a finished job's tree back to IDLE, or re-dispatches
// the pending set collected while it ran (Router's PEND drain).
func (s *Scheduler) finish(job Job) {
	switch job.Kind {
	case JobRefresh:
		s.refreshBusy.Delete(job.LocalTreeID)
	case JobSync:
		st, ok := s.syncStatus.Load(job.LocalTreeID)
		if !ok {
			return
		}
		st.mu.Lock()
		pending := st.pending
		st.pending = map[int64]pendingSync{}
		st.state = StateIdle
		st.mu.Unlock()

		for remoteID, p := range pending {
			s.RequestSync(job.LocalTreeID, remoteID, p.manual, p.run)
		}
	}
}

// State reports the current IDLE/WORK/PEND status of a local tree, mainly
// for tests and status reporting.
func (s *Scheduler) State(localTreeID int64) TreeState {
	st, ok := s.syncStatus.Load(localTreeID)
	if !ok {
		return StateIdle
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state
}
