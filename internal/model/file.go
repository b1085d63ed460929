// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package model

import "github.com/zisync/zisync/internal/protocol"

// FileType mirrors File.type.
type FileType int

const (
	FileTypeDir FileType = iota
	FileTypeReg
)

// FileRowStatus mirrors File.status.
type FileRowStatus int

const (
	FileStatusNormal FileRowStatus = iota
	FileStatusRemoved
)

// PlatformAttrs packs the three OS-specific attribute fields the original
// kernel keeps per file (spec §3: "platform_attrs (unix/android/win)").
type PlatformAttrs struct {
	Unix    uint32
	Android uint32
	Win     uint32
}

// File is one row of a tree's per-tree file table (spec §3). (path) is
// unique per tree; USN is strictly increasing in creation order.
type File struct {
	ID       int64
	Path     string // canonical, leading "/"
	Type     FileType
	Status   FileRowStatus
	Mtime    int64
	Length   int64
	SHA1     []byte
	USN      int64
	// LocalVClock is this tree's own contribution to the file's vector
	// clock; bumped only when the scanner observes a real change
	// (Invariant 2), never by a mere re-scan or by merging peer state
	// (Invariant 3).
	LocalVClock  uint32
	RemoteVClock protocol.Vector // merged positions for all other trees
	Attrs        PlatformAttrs
	Modifier     int64 // device id of the last writer
	TimeStamp    int64
	UID          *int64
	GID          *int64
	Alias        string // conflict-copy original name, if any
}

func (f File) IsDir() bool     { return f.Type == FileTypeDir }
func (f File) IsRemoved() bool { return f.Status == FileStatusRemoved }

// Vector returns the full vector clock of this row: the local contribution
// at localTreeID plus whatever peer positions have been merged in.
func (f File) Vector(localTreeID uint64) protocol.Vector {
	return f.RemoteVClock.Copy().Update(localTreeID, f.LocalVClock)
}
