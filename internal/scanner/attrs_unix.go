// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

//go:build unix

package scanner

import (
	"io/fs"

	"golang.org/x/sys/unix"
)

// platformAttrs reads the owner/group/permission bits the stored row
// tracks per spec §3's "platform_attrs (unix/android/win)" and
// File.uid/gid. Grounded on the teacher's own unix-specific build-tagged
// files (e.g. lib/fs/noatime_linux_test.go) that reach for
// golang.org/x/sys rather than bare syscall for platform state.
func platformAttrs(fullPath string, info fs.FileInfo) (unixAttr uint32, uid, gid *int64) {
	var st unix.Stat_t
	if err := unix.Lstat(fullPath, &st); err != nil {
		return uint32(info.Mode().Perm()), nil, nil
	}
	u := int64(st.Uid)
	g := int64(st.Gid)
	return uint32(info.Mode().Perm()), &u, &g
}
