// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

// Package consistency re-stats a local path immediately before a task
// applies, and demotes or aborts the planned action if the
// filesystem no longer matches the row the classifier decided against —
// the race between "the scanner indexed this" and "the task runner is
// about to act on it" (spec §4.8), grounded on
// src/zisync/kernel/worker/sync_file.h's LocalFileConsistentHandler in
// original_source/.
package consistency

import (
	"os"

	"github.com/zisync/zisync/internal/classifier"
	"github.com/zisync/zisync/internal/model"
)

// Verdict is what Check decided should actually happen, which may differ
// from the classifier's original Decision.
type Verdict int

const (
	// Proceed: the filesystem still matches what the row said; apply the
	// task unchanged.
	Proceed Verdict = iota
	// Demote: apply only the metadata half of a data task (the local file's
	// size or mtime no longer matches the row it was classified against).
	Demote
	// Abort: the local path changed in a way the task can no longer
	// reconcile blindly; punt back to the scanner to re-index and
	// reclassify on the next pass.
	Abort
)

// Check re-stats localPath and compares it against the row the classifier
// used to produce d, mirroring LocalFileConsistentHandler::Handle's
// Local{Reg,Dir}Remote{Reg,Dir}/RemoteRemove dispatch.
func Check(localPath string, local *model.File, d classifier.Decision) Verdict {
	fi, err := os.Lstat(localPath)
	switch {
	case err != nil && os.IsNotExist(err):
		return checkMissing(local, d)
	case err != nil:
		return Abort
	default:
		return checkPresent(fi, local, d)
	}
}

func checkMissing(local *model.File, d classifier.Decision) Verdict {
	if local == nil || local.IsRemoved() {
		// Row already agrees the path is gone; nothing changed underneath us.
		return Proceed
	}
	// Row claimed the file existed but it's gone now — the scanner hasn't
	// caught up with a local delete yet. Abort rather than resurrect it.
	return Abort
}

func checkPresent(fi os.FileInfo, local *model.File, d classifier.Decision) Verdict {
	if local == nil || local.IsRemoved() {
		// Row claimed absence but something now exists at this path — let
		// the scanner re-index before this task touches it.
		return Abort
	}
	if fi.IsDir() != local.IsDir() {
		return Abort
	}
	if fi.IsDir() {
		return Proceed // directories carry no content to re-check
	}
	if fi.Size() != local.Length || fi.ModTime().UnixNano() != local.Mtime {
		// Local content moved on since the scanner last saw it; the task's
		// data half is now stale even though its meta half (rename,
		// attributes) may still apply.
		if d.Mask.IsData() {
			return Demote
		}
		return Abort
	}
	return Proceed
}
