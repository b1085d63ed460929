// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package model

import (
	"path"
	"strings"
)

// NormalizePath canonicalizes a filesystem path relative to a tree root
// into the leading-slash, forward-slash form File.Path uses (spec §3).
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	cleaned := path.Clean(p)
	if cleaned == "." {
		return "/"
	}
	return cleaned
}

// TableIdentity is the per-tree authority key the resolver uses to locate
// a tree's file table (spec §4.2: "one per tree for its file table").
func TableIdentity(treeUUID string) string {
	return "tree/" + treeUUID
}

// JoinRoot resolves a canonical File.Path against a tree's absolute root.
func JoinRoot(root, canonicalPath string) string {
	return path.Join(root, strings.TrimPrefix(canonicalPath, "/"))
}
