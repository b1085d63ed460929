// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

// Package syncupdater walks one local/remote tree-pair's file tables in
// path order, classifying each row pair and folding matching deletes/inserts
// into renames, grounded on src/zisync/kernel/utils/sync_updater.cc in
// original_source/.
//
// The original's SetSyncFileTask built an index remap so a peer's
// index-keyed RemoteVClock blob could be reinterpreted against the local
// tree's own tree-uuid ordering. The FileProviders this walk reads store
// vector clocks as protocol.Vector counters keyed directly by
// TreeUUIDToVectorID, so no remap step is needed here — the two sides
// already agree on position identity.
package syncupdater

import (
	"context"
	"strings"

	"github.com/zisync/zisync/internal/classifier"
	"github.com/zisync/zisync/internal/metrics"
	"github.com/zisync/zisync/internal/model"
	"github.com/zisync/zisync/internal/protocol"
	"github.com/zisync/zisync/internal/rename"
	"github.com/zisync/zisync/internal/resolver"
)

// TreePair describes the two trees and devices an Update pass runs over
// (spec §4.5).
type TreePair struct {
	LocalTreeUUID, RemoteTreeUUID     string
	LocalDeviceID, RemoteDeviceID     protocol.DeviceID
	LocalBackupType, RemoteBackupType model.BackupType
}

// Item is one classified row pair ready for the task runner (spec §4.7),
// not absorbed into a Rename pair.
type Item struct {
	Local, Remote *model.File
	Decision      classifier.Decision
}

// Result is everything one Update pass over a tree-pair produced.
type Result struct {
	Items   []Item
	Renames []rename.Pair
}

// Update performs the merge-join walk described in SyncUpdater::SetSyncFileTask
// (original_source/sync_updater.cc): two path-ordered cursors advanced in
// lockstep, LocalNewFile/RemoteNewFile/UpdateFile dispatched by path compare.
func Update(ctx context.Context, local, remote *resolver.FileProvider, pair TreePair) (Result, error) {
	localRows, err := local.Query(ctx, resolver.Selection{}, "path ASC")
	if err != nil {
		return Result{}, err
	}
	remoteRows, err := remote.Query(ctx, resolver.Selection{}, "path ASC")
	if err != nil {
		return Result{}, err
	}

	rm := rename.NewManager()
	var items []Item

	classify := func(l, r *model.File) classifier.Decision {
		return classifier.Classify(l, r, pair.LocalDeviceID, pair.RemoteDeviceID, pair.LocalTreeUUID, pair.RemoteTreeUUID)
	}

	considerLocal := func(l *model.File) {
		d := classify(l, nil)
		if d.Action == classifier.ActionSkip || classifier.IsBackupNotSync(d, pair.LocalBackupType) {
			return
		}
		c := rename.Candidate{Local: l, Decision: d}
		if !rm.Add(c) {
			items = append(items, Item{Local: l, Decision: d})
		}
	}
	considerRemote := func(r *model.File) {
		d := classify(nil, r)
		if d.Action == classifier.ActionSkip || classifier.IsBackupNotSync(d, pair.LocalBackupType) {
			return
		}
		c := rename.Candidate{Remote: r, Decision: d}
		if !rm.Add(c) {
			items = append(items, Item{Remote: r, Decision: d})
		}
	}
	considerBoth := func(l, r *model.File) {
		d := classify(l, r)
		if d.Action == classifier.ActionSkip || classifier.IsBackupNotSync(d, pair.LocalBackupType) {
			return
		}
		if d.Action == classifier.ActionConflict {
			metrics.ConflictsDetected.WithLabelValues(pair.LocalTreeUUID, pair.RemoteTreeUUID).Inc()
		}
		c := rename.Candidate{Local: l, Remote: r, Decision: d}
		if !rm.Add(c) {
			items = append(items, Item{Local: l, Remote: r, Decision: d})
		}
	}

	i, j := 0, 0
	for i < len(localRows) || j < len(remoteRows) {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}
		switch {
		case i >= len(localRows):
			considerRemote(&remoteRows[j])
			j++
		case j >= len(remoteRows):
			considerLocal(&localRows[i])
			i++
		default:
			switch strings.Compare(localRows[i].Path, remoteRows[j].Path) {
			case 0:
				considerBoth(&localRows[i], &remoteRows[j])
				i++
				j++
			case -1:
				considerLocal(&localRows[i])
				i++
			default:
				considerRemote(&remoteRows[j])
				j++
			}
		}
	}

	pairs, residualFroms, residualToes := rm.Drain()
	for _, c := range residualFroms {
		items = append(items, Item{Local: c.Local, Remote: c.Remote, Decision: c.Decision})
	}
	for _, c := range residualToes {
		items = append(items, Item{Local: c.Local, Remote: c.Remote, Decision: c.Decision})
	}

	return Result{Items: items, Renames: pairs}, nil
}
