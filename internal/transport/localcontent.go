// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package transport

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalContent is a Content implementation for tree pairs that both live on
// this machine's filesystem — the degenerate, networkless case the wire
// protocol's Non-goal never forbids (spec §6 scopes out the real transport,
// not a same-host copy). zisyncd's `sync` command uses it to drive the full
// Sync Updater / Runner pipeline against two locally registered trees.
type LocalContent struct {
	// Root resolves a tree-uuid to the root directory this process can read
	// and write directly. Returns ok=false for a tree this process has no
	// local filesystem access to.
	Root func(treeUUID string) (root string, ok bool)
}

func (c LocalContent) resolve(treeUUID, path string) (string, error) {
	root, ok := c.Root(treeUUID)
	if !ok {
		return "", fmt.Errorf("transport: no local root for tree %s", treeUUID)
	}
	return filepath.Join(root, filepath.FromSlash(path)), nil
}

// Fetch copies remoteTreeUUID's copy of path into tmpPath.
func (c LocalContent) Fetch(ctx context.Context, remoteDeviceID, localTreeUUID, remoteTreeUUID, path, tmpPath string) (int64, error) {
	src, err := c.resolve(remoteTreeUUID, path)
	if err != nil {
		return 0, err
	}
	return copyFile(src, tmpPath)
}

// Push copies localPath up to remoteTreeUUID's root at path.
func (c LocalContent) Push(ctx context.Context, remoteDeviceID, localTreeUUID, remoteTreeUUID, path, localPath string) error {
	dst, err := c.resolve(remoteTreeUUID, path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	_, err = copyFile(localPath, dst)
	return err
}

// UploadMeta is a no-op: with both trees on this machine, the peer's row
// table is this same process's other FileProvider, already mutated directly
// by the opposite-direction Update/Runner pass over the same tree pair —
// there is no separate wire-side table to push a metadata batch into.
func (c LocalContent) UploadMeta(ctx context.Context, remoteDeviceID, localTreeUUID, remoteTreeUUID string, batch []byte) error {
	return nil
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}
	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	return io.Copy(out, in)
}
