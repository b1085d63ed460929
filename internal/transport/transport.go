// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

// Package transport declares the external data-plane collaborator the
// scheduler and task runner push bytes through (spec §6, Non-goals: the
// wire protocol and transport implementation are out of scope — only the
// interface the core core drives is in scope here).
//
// Grounded on original_source/src/zisync/kernel/worker/outer_worker.{cc,h}
// and sync_file_task.h's fetch/push/upload-meta calls, and the teacher's own
// collaborator-interface idiom (internal/connections: small interfaces with
// one verb per capability, context-first signatures).
package transport

import "context"

// Direction of one content transfer.
type Direction int

const (
	Push Direction = iota
	Fetch
)

// Content is the data-plane collaborator: move a file's bytes to or from a
// peer. Implementations own the wire protocol, TLS, and rate limiting;
// zisync's core only calls these three verbs.
type Content interface {
	// Fetch streams remote path's bytes for localTreeUUID/remoteTreeUUID's
	// pair into tmpPath, returning the number of bytes written.
	Fetch(ctx context.Context, remoteDeviceID, localTreeUUID, remoteTreeUUID, path, tmpPath string) (int64, error)
	// Push streams localPath's bytes up to the peer for the same pair.
	Push(ctx context.Context, remoteDeviceID, localTreeUUID, remoteTreeUUID, path, localPath string) error
	// UploadMeta pushes a metadata-only batch (renames, attribute changes,
	// deletes) without a content payload.
	UploadMeta(ctx context.Context, remoteDeviceID, localTreeUUID, remoteTreeUUID string, batch []byte) error
}

// RateLimiter throttles Content's transfers (spec §4.9 non-goal:
// rate-limiting policy is configuration, not core logic). Nothing in this
// module constructs or wires an implementation of it.
type RateLimiter interface {
	WaitN(ctx context.Context, n int) error
}
