// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package resolver

// ConflictPolicy governs what Insert/BulkInsert do when a row collides on
// a unique constraint (spec §4.2: "batch ops with conflict policy").
type ConflictPolicy int

const (
	ConflictAbort ConflictPolicy = iota
	ConflictReplace
	ConflictIgnore
)

// BatchCap is the default cap on operations per ApplyBatch call (spec
// §4.3, §4.8: "default batch cap 500").
const BatchCap = 500
