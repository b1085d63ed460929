// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

// Package synctask turns one internal/syncupdater.Result into ordered
// rename, metadata, and data operations and carries them out against a
// tree-pair's local filesystem and file tables (spec §4.7), grounded on
// src/zisync/kernel/worker/sync_file_task.h in original_source/: the same
// Prepare()/Run() split, the same push_*/pull_* task buckets, and the same
// num_file_to_upload/num_file_to_download/num_file_consistent counters,
// reported here through internal/status instead of SyncFileTask's own
// int32 fields.
package synctask

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zisync/zisync/internal/classifier"
	"github.com/zisync/zisync/internal/consistency"
	"github.com/zisync/zisync/internal/logger"
	"github.com/zisync/zisync/internal/model"
	"github.com/zisync/zisync/internal/protocol"
	"github.com/zisync/zisync/internal/rename"
	"github.com/zisync/zisync/internal/resolver"
	"github.com/zisync/zisync/internal/status"
	"github.com/zisync/zisync/internal/syncupdater"
	"github.com/zisync/zisync/internal/transport"
	"github.com/zisync/zisync/internal/zserr"
)

var l = logger.DefaultLogger

// Direction is which way content moves for one task, mirroring
// SYNC_FILE_TASK_MODE_PUSH/SYNC_FILE_TASK_MODE_PULL. Unlike the original, a
// single Runner carries tasks of both directions at once — the direction
// lives on the task, not the runner, since one merge-join pass naturally
// produces a mix (a local-only row pushes out, a remote-only row pulls in).
type Direction int

const (
	Pull Direction = iota
	Push
)

func (d Direction) String() string {
	if d == Push {
		return "push"
	}
	return "pull"
}

// dataTask is one file whose content must move, plus enough of its row
// pair to build a consistency.Check and a merged post-apply row.
type dataTask struct {
	dir  Direction
	item syncupdater.Item
}

// metaTask is a row change needing no content transfer (dir create/remove,
// attribute update, plain tombstone).
type metaTask = dataTask

// renameTask is one paired rename (spec §4.6), applied as a single local
// rename plus row update instead of a remove+insert pair.
type renameTask struct {
	dir  Direction
	pair rename.Pair
}

// Runner carries out one tree-pair's classified Result: renames first, then
// metadata, then data — SyncFileTask::Run()'s ordering, simplified since our
// rename pairs already arrive fully resolved out of internal/rename rather
// than needing HandlePullRename/HandlePushRename's own pairing pass.
type Runner struct {
	Local, Remote                 *resolver.FileProvider
	LocalRoot                     string // filesystem root backing Local's tree
	LocalTreeUUID, RemoteTreeUUID string
	RemoteDeviceID                protocol.DeviceID
	Content                       transport.Content
	Status                        *status.Pair

	renames    []renameTask
	metaTasks  []metaTask
	dataTasks  []dataTask

	numConsistent int32
	byteConsistent int64
	firstErr      error
}

// NewRunner constructs an empty Runner for one tree pair. Prepare then
// buckets a syncupdater.Update pass's Items and Renames into rename/meta/data
// phases and directions, mirroring Prepare()'s
// HandlePullRename/FilterPushTasks/HandlePushRename sequence collapsed into
// one pass since pairing already happened upstream.
func NewRunner(local, remote *resolver.FileProvider, localRoot, localTreeUUID, remoteTreeUUID string, remoteDeviceID protocol.DeviceID, content transport.Content, st *status.Pair) *Runner {
	return &Runner{
		Local: local, Remote: remote, LocalRoot: localRoot,
		LocalTreeUUID: localTreeUUID, RemoteTreeUUID: remoteTreeUUID,
		RemoteDeviceID: remoteDeviceID, Content: content, Status: st,
	}
}

// Prepare buckets result into renames/meta/data phases by direction. A
// second call replaces the previous plan; Run always executes the most
// recently Prepared plan.
func (r *Runner) Prepare(result syncupdater.Result) {
	r.renames = r.renames[:0]
	r.metaTasks = r.metaTasks[:0]
	r.dataTasks = r.dataTasks[:0]
	r.numConsistent = 0
	r.byteConsistent = 0
	r.firstErr = nil

	for _, p := range result.Renames {
		r.renames = append(r.renames, renameTask{dir: renameDirection(p), pair: p})
	}
	for _, it := range result.Items {
		dir := itemDirection(it)
		if it.Decision.Mask.IsData() {
			r.dataTasks = append(r.dataTasks, dataTask{dir: dir, item: it})
		} else {
			r.metaTasks = append(r.metaTasks, metaTask{dir: dir, item: it})
		}
	}

	if r.Status != nil {
		var upFiles, downFiles int32
		var upBytes, downBytes int64
		for _, t := range r.dataTasks {
			n := taskLength(t.item)
			if t.dir == Push {
				upFiles++
				upBytes += n
			} else {
				downFiles++
				downBytes += n
			}
		}
		r.Status.Begin(status.Upload, upFiles, upBytes)
		r.Status.Begin(status.Download, downFiles, downBytes)
	}
}

// itemDirection decides which way one classified row pair moves: remote ==
// nil means the remote side never saw this path (push), a conflict this
// tree's device wins keeps the local content authoritative (push), and
// everything else is a pull — the local tree adopting the remote's state,
// matching why Classify only reaches Update/Conflict/Insert when the local
// side was not already ahead.
func itemDirection(it syncupdater.Item) Direction {
	if it.Decision.Action == classifier.ActionConflict && it.Decision.ConflictWinnerIsLocal {
		return Push
	}
	if it.Remote == nil {
		return Push
	}
	return Pull
}

func renameDirection(p rename.Pair) Direction {
	if p.To.Remote == nil {
		return Push
	}
	return Pull
}

func taskLength(it syncupdater.Item) int64 {
	if it.Remote != nil {
		return it.Remote.Length
	}
	if it.Local != nil {
		return it.Local.Length
	}
	return 0
}

// IsAllSuccess mirrors SyncFileTask::IsAllSucces(): true once Run has
// completed without recording a task failure (CANCEL is not a failure, it
// just means the caller gave up first).
func (r *Runner) IsAllSuccess() bool { return r.firstErr == nil }

// NumFileConsistent counts pull-direction meta-only (or demoted) tasks the
// last Run applied without a content transfer, mirroring
// num_file_consistent(). NumByteConsistent mirrors num_byte_consistent()
// but nothing increments it, so it reports 0.
func (r *Runner) NumFileConsistent() int32 { return r.numConsistent }
func (r *Runner) NumByteConsistent() int64 { return r.byteConsistent }

// Run carries out the prepared plan: renames, then metadata, then data.
// A failed task is recorded (r.firstErr) and skipped rather than aborting
// the whole batch — one bad row should not block the rest of the pair.
func (r *Runner) Run(ctx context.Context) error {
	for _, t := range r.renames {
		if err := r.runRename(ctx, t); err != nil {
			r.recordErr(err)
		}
	}
	for _, t := range r.metaTasks {
		if err := r.runMeta(ctx, t); err != nil {
			r.recordErr(err)
		}
	}
	for _, t := range r.dataTasks {
		if err := r.runData(ctx, t); err != nil {
			r.recordErr(err)
		}
	}
	return r.firstErr
}

func (r *Runner) recordErr(err error) {
	if zserr.IsCancel(err) {
		return
	}
	l.Warnf("synctask: %v", err)
	if r.firstErr == nil {
		r.firstErr = err
	}
}

func (r *Runner) localPath(path string) string {
	return filepath.Join(r.LocalRoot, filepath.FromSlash(strings.TrimPrefix(path, "/")))
}

// runRename applies one paired rename: a single os.Rename (or, for a pull,
// a fetch under the new name if content also changed) plus a row update
// moving the old path's row to the new path, instead of a delete+insert.
func (r *Runner) runRename(ctx context.Context, t renameTask) error {
	fromPath := candidatePath(t.pair.From)
	toPath := candidatePath(t.pair.To)
	if fromPath == "" || toPath == "" {
		return fmt.Errorf("rename pair missing a path: from=%q to=%q", fromPath, toPath)
	}

	oldLocal := r.localPath(fromPath)
	newLocal := r.localPath(toPath)

	if t.dir == Pull {
		if err := os.MkdirAll(filepath.Dir(newLocal), 0o755); err != nil {
			return zserr.Wrap(zserr.OS_IO, err)
		}
		if err := os.Rename(oldLocal, newLocal); err != nil && !os.IsNotExist(err) {
			return zserr.Wrap(zserr.OS_IO, err)
		}
	} else {
		if err := r.Content.UploadMeta(ctx, r.RemoteDeviceID.String(), r.LocalTreeUUID, r.RemoteTreeUUID, renameMetaBatch(fromPath, toPath)); err != nil {
			return zserr.Wrap(zserr.CONTENT, err)
		}
	}

	row := buildRenamedRow(t.pair, toPath, protocol.TreeUUIDToVectorID(r.RemoteTreeUUID))
	return r.Local.ApplyBatch(ctx, []resolver.FileOp{
		{Kind: resolver.FileOpDelete, Selection: resolver.Selection{}.And("path", resolver.OpEq, fromPath)},
		{Kind: resolver.FileOpInsert, Row: row, Conflict: resolver.ConflictReplace},
	})
}

// candidatePath picks whichever side of a rename Candidate carries the row;
// considerLocal/considerRemote/considerBoth in syncupdater populate only
// the sides that actually had a cursor row, so exactly one (or both, with
// the same path) is non-nil.
func candidatePath(c rename.Candidate) string {
	if c.Local != nil {
		return c.Local.Path
	}
	if c.Remote != nil {
		return c.Remote.Path
	}
	return ""
}

func buildRenamedRow(p rename.Pair, newPath string, remoteTreeID uint64) model.File {
	row := mergedSourceRow(p.To, remoteTreeID)
	row.Path = newPath
	return row
}

// renameMetaBatch is a placeholder wire payload for a push-direction
// rename notification; the real encoding belongs to internal/protocol's
// xdr codec and is out of this package's scope (spec §6 Non-goal: wire
// format is the transport collaborator's concern).
func renameMetaBatch(from, to string) []byte {
	return []byte(from + "\x00" + to)
}

func (r *Runner) runMeta(ctx context.Context, t metaTask) error {
	return r.applyNonData(ctx, t, false)
}

// runData moves content, demoting to a metadata-only apply when
// consistency.Check finds the local file already changed since
// classification (spec §4.8).
func (r *Runner) runData(ctx context.Context, t dataTask) error {
	localPath := r.pathOf(t.item)
	v := consistency.Check(r.localPath(localPath), t.item.Local, t.item.Decision)
	switch v {
	case consistency.Abort:
		return zserr.New(zserr.CANCEL)
	case consistency.Demote:
		return r.applyNonData(ctx, t, true)
	}

	if t.item.Decision.Action == classifier.ActionConflict {
		if err := r.preserveConflictLoser(ctx, t); err != nil {
			return err
		}
	}

	switch t.dir {
	case Pull:
		return r.pullData(ctx, t)
	default:
		return r.pushData(ctx, t)
	}
}

// preserveConflictLoser copies the side that is about to be overwritten to
// a conflict-named sibling before the winning content lands, so neither
// device's edit is silently discarded (spec §4.6's conflict handling;
// naming scheme grounded on the teacher's own
// "<name> (<username> conflict date)<ext>" convention in lib/versioner).
func (r *Runner) preserveConflictLoser(ctx context.Context, t dataTask) error {
	var loserPath string
	if t.dir == Pull {
		// Remote wins; the local copy is the one about to be clobbered.
		if t.item.Local == nil {
			return nil
		}
		loserPath = t.item.Local.Path
	} else {
		// Local wins; nothing to preserve locally — the remote peer
		// preserves its own losing copy when it applies this as a pull.
		return nil
	}

	src := r.localPath(loserPath)
	fi, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return zserr.Wrap(zserr.OS_IO, err)
	}
	if fi.IsDir() {
		return nil
	}

	conflictPath := conflictCopyPath(loserPath, r.RemoteDeviceID, time.Now())
	dst := r.localPath(conflictPath)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return zserr.Wrap(zserr.OS_IO, err)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return zserr.Wrap(zserr.OS_IO, err)
	}
	if err := os.WriteFile(dst, data, fi.Mode()); err != nil {
		return zserr.Wrap(zserr.OS_IO, err)
	}

	row := *t.item.Local
	row.ID = 0
	row.Path = conflictPath
	row.Alias = loserPath
	return r.Local.ApplyBatch(ctx, []resolver.FileOp{
		{Kind: resolver.FileOpInsert, Row: row, Conflict: resolver.ConflictIgnore},
	})
}

// conflictCopyPath renders "<name> (conflict on <device> <YYYY-MM-DD
// HHMMSS>)<ext>" alongside the original path (DESIGN.md's Open Question #3).
func conflictCopyPath(path string, loser protocol.DeviceID, at time.Time) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	stamp := at.Format("2006-01-02 150405")
	conflictBase := fmt.Sprintf("%s (conflict on %s %s)%s", name, loser.String()[:7], stamp, ext)
	if dir == "." || dir == "/" {
		return "/" + conflictBase
	}
	return dir + "/" + conflictBase
}

func (r *Runner) pathOf(it syncupdater.Item) string {
	if it.Remote != nil {
		return it.Remote.Path
	}
	return it.Local.Path
}

func (r *Runner) pullData(ctx context.Context, t dataTask) error {
	path := t.item.Remote.Path
	dst := r.localPath(path)
	tmp := dst + ".zisync-tmp"
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return zserr.Wrap(zserr.OS_IO, err)
	}
	n, err := r.Content.Fetch(ctx, r.RemoteDeviceID.String(), r.LocalTreeUUID, r.RemoteTreeUUID, path, tmp)
	if err != nil {
		return zserr.Wrap(zserr.CONTENT, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return zserr.Wrap(zserr.OS_IO, err)
	}
	if r.Status != nil {
		r.Status.FileTransferred(status.Download, path, n)
	}
	row := mergedSourceRow(candidate(t.item), protocol.TreeUUIDToVectorID(r.RemoteTreeUUID))
	return r.applyRow(ctx, row)
}

func (r *Runner) pushData(ctx context.Context, t dataTask) error {
	path := t.item.Local.Path
	src := r.localPath(path)
	if err := r.Content.Push(ctx, r.RemoteDeviceID.String(), r.LocalTreeUUID, r.RemoteTreeUUID, path, src); err != nil {
		return zserr.Wrap(zserr.CONTENT, err)
	}
	if r.Status != nil {
		r.Status.FileTransferred(status.Upload, path, t.item.Local.Length)
	}
	// The push's own row (local authoritative) needs no local table change;
	// the remote peer applies its own pull on receipt.
	return nil
}

// applyNonData applies a meta-only (or demoted-data) task: directory
// create/remove, attribute change, or tombstone, with no content transfer.
func (r *Runner) applyNonData(ctx context.Context, t dataTask, demoted bool) error {
	it := t.item
	if t.dir == Push {
		// Nothing local changes for a push-direction meta task; the remote
		// peer's own pull pass applies its row.
		if it.Local != nil && it.Local.IsRemoved() {
			return nil
		}
		return nil
	}

	localPath := r.localPath(r.pathOf(it))
	if it.Remote == nil || it.Remote.IsRemoved() {
		if err := os.RemoveAll(localPath); err != nil && !os.IsNotExist(err) {
			return zserr.Wrap(zserr.OS_IO, err)
		}
		return r.Local.ApplyBatch(ctx, []resolver.FileOp{
			{Kind: resolver.FileOpDelete, Selection: resolver.Selection{}.And("path", resolver.OpEq, r.pathOf(it))},
		})
	}
	if it.Remote.IsDir() {
		if err := os.MkdirAll(localPath, 0o755); err != nil {
			return zserr.Wrap(zserr.OS_IO, err)
		}
	} else if !demoted {
		// Same content already on disk (meta-only update): touch mtime to
		// match the row instead of re-fetching bytes.
		if err := os.Chtimes(localPath, time.Unix(0, it.Remote.Mtime), time.Unix(0, it.Remote.Mtime)); err != nil && !os.IsNotExist(err) {
			return zserr.Wrap(zserr.OS_IO, err)
		}
	}

	row := mergedSourceRow(candidate(it), protocol.TreeUUIDToVectorID(r.RemoteTreeUUID))
	if err := r.applyRow(ctx, row); err != nil {
		return err
	}
	r.numConsistent++
	if r.Status != nil {
		r.Status.Skipped(status.Download, 0)
	}
	return nil
}

func (r *Runner) applyRow(ctx context.Context, row model.File) error {
	return r.Local.ApplyBatch(ctx, []resolver.FileOp{
		{Kind: resolver.FileOpInsert, Row: row, Conflict: resolver.ConflictReplace},
	})
}

func candidate(it syncupdater.Item) rename.Candidate {
	return rename.Candidate{Local: it.Local, Remote: it.Remote, Decision: it.Decision}
}

// mergedSourceRow builds the row Local should hold after adopting c's
// remote side: content/metadata fields come from the remote row, but
// LocalVClock is carried over unchanged (Invariant 2 — only the scanner
// bumps a tree's own counter) and RemoteVClock is the pointwise merge of
// what Local already knew plus the remote's full vector, per Invariant 3.
func mergedSourceRow(c rename.Candidate, remoteTreeID uint64) model.File {
	src := c.Remote
	if src == nil {
		src = c.Local
	}
	row := *src
	var priorRemote protocol.Vector
	var priorLocalVClock uint32
	if c.Local != nil {
		priorRemote = c.Local.RemoteVClock
		priorLocalVClock = c.Local.LocalVClock
		row.ID = c.Local.ID
	}
	if c.Remote != nil {
		row.RemoteVClock = priorRemote.Merge(c.Remote.Vector(remoteTreeID))
	} else {
		row.RemoteVClock = priorRemote
	}
	row.LocalVClock = priorLocalVClock
	return row
}
