// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package synclist

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/zisync/zisync/internal/logger"
	"github.com/zisync/zisync/internal/metrics"
	"github.com/zisync/zisync/internal/model"
	"github.com/zisync/zisync/internal/resolver"
)

// tombstoneGCMargin is how far behind the slowest peer's acknowledged USN a
// tombstone must fall before it is safe to reclaim (Open Question #2: a
// peer that was offline for fewer than this many local ops still gets to
// see the delete on reconnect; beyond that margin we assume a peer that
// far behind is getting a fresh tree scan anyway and won't miss the
// tombstone row). Chosen generously above typical single-session churn.
const tombstoneGCMargin = 4096

var l = logger.DefaultLogger

// PeerUSN reports the USN a tracked peer has last acknowledged for one
// local tree — the caller's sync-state bookkeeping, not something
// synclist owns.
type PeerUSN func(localTreeID int64) (minAcked int64, ok error)

// GCService periodically reclaims tombstone rows (FileStatusRemoved) whose
// usn has fallen tombstoneGCMargin behind every known peer's last
// acknowledged USN for that tree — the Go equivalent of deleting a
// FILE_DELETE row once no remote still needs to diff against it.
// Grounded on internal/db/sqlite/db_service.go's Service/Serve periodic-
// maintenance loop (thejerf/suture/v4), with garbageCollectOldDeletedLocked
// reworked from a sequence-number retention window into zisync's
// USN-vs-acknowledged-peers comparison.
type GCService struct {
	Interval time.Duration
	Trees    func() map[int64]*resolver.FileProvider
	MinAcked PeerUSN
}

func (s *GCService) String() string { return fmt.Sprintf("synclist.gc@%p", s) }

// Serve runs periodic() every Interval until ctx is cancelled, satisfying
// suture.Service exactly as db_service.go's Service.Serve does.
func (s *GCService) Serve(ctx context.Context) error {
	timer := time.NewTimer(s.Interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		if err := s.periodic(ctx); err != nil {
			l.Warnf("synclist: tombstone gc: %v", err)
		}
		timer.Reset(s.Interval)
	}
}

func (s *GCService) periodic(ctx context.Context) error {
	for treeID, p := range s.Trees() {
		minAcked, err := s.MinAcked(treeID)
		if err != nil {
			l.Warnf("synclist: tombstone gc: no acked-usn for tree %d: %v", treeID, err)
			continue
		}
		threshold := minAcked - tombstoneGCMargin
		if threshold <= 0 {
			continue
		}
		sel := resolver.Where("status", resolver.OpEq, int(model.FileStatusRemoved)).
			And("usn", resolver.OpLt, threshold)
		n, err := p.Delete(ctx, sel)
		if err != nil {
			return fmt.Errorf("gc tree %d: %w", treeID, err)
		}
		if n > 0 {
			l.Debugf("synclist: reclaimed %d tombstone(s) in tree %d below usn %d", n, treeID, threshold)
			metrics.TombstonesReclaimed.WithLabelValues(strconv.FormatInt(treeID, 10)).Add(float64(n))
		}
	}
	return nil
}
