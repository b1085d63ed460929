// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

//go:build !unix

package scanner

import "io/fs"

// platformAttrs has no uid/gid concept outside unix-like filesystems.
func platformAttrs(fullPath string, info fs.FileInfo) (unixAttr uint32, uid, gid *int64) {
	return uint32(info.Mode().Perm()), nil, nil
}
