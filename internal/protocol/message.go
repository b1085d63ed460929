// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package protocol

import "fmt"

// FileType mirrors the File.type column of spec §3.
type FileType int

const (
	TypeFile FileType = iota
	TypeDirectory
)

// FileStatus mirrors File.status.
type FileStatus int

const (
	StatusNormal FileStatus = iota
	StatusRemoved
)

// FileStat is the wire and in-memory shape of one File row (spec §3, §6).
// The `max:` comments mark the XDR-encoded field size ceilings, the same
// annotation convention Syncthing's wire structs use.
type FileStat struct {
	Path          string // max:8192
	Type          FileType
	Status        FileStatus
	Mtime         int64
	Length        int64
	SHA1          []byte // max:20
	USN           int64
	LocalVClock   uint32
	RemoteVClock  []byte // max:4096, packed 4-byte LE ints in peer tree-uuid order
	UnixAttr      uint32
	AndroidAttr   uint32
	WinAttr       uint32
	Modifier      uint64 // device id of the last writer
	TimeStamp     int64
	Alias         string // max:8192, conflict-copy original name, if any
}

func (f FileStat) String() string {
	return fmt.Sprintf("FileStat{Path:%q, Type:%v, Status:%v, USN:%d, SHA1:%x}", f.Path, f.Type, f.Status, f.USN, f.SHA1)
}

func (f FileStat) IsDir() bool {
	return f.Type == TypeDirectory
}

func (f FileStat) IsRemoved() bool {
	return f.Status == StatusRemoved
}

// Vector unpacks RemoteVClock plus LocalVClock into a protocol.Vector
// indexed by position, given the caller's local-tree-uuid ordering (spec
// §4.1: "one local_vclock integer plus a packed remote_vclock byte string").
func (f FileStat) Vector(localTreeID uint64, peerIDs []uint64) Vector {
	v := Vector{{localTreeID, f.LocalVClock}}
	for i := 0; i+4 <= len(f.RemoteVClock) && i/4 < len(peerIDs); i += 4 {
		val := uint32(f.RemoteVClock[i]) | uint32(f.RemoteVClock[i+1])<<8 |
			uint32(f.RemoteVClock[i+2])<<16 | uint32(f.RemoteVClock[i+3])<<24
		if val != 0 {
			v = v.Update(peerIDs[i/4], val)
		}
	}
	return v
}

// FindRequest asks a peer for its file-table delta since a USN checkpoint
// (spec §6).
type FindRequest struct {
	LocalTreeUUID  string // max:64
	RemoteTreeUUID string // max:64
	SyncUUID       string // max:64
	Since          int64
	Limit          int32
	IsListSync     bool
}

type FindResponse struct {
	RemoteUUIDs []string // max:64 each
	Stats       []FileStat
}

type FindFileRequest struct {
	LocalTreeUUID  string // max:64
	RemoteTreeUUID string // max:64
	SyncUUID       string // max:64
	Path           string // max:8192
}

type FindFileResponse struct {
	Found bool
	Stat  FileStat
}

type DeviceInfo struct {
	ID       string // max:64
	UUID     string // max:64
	Name     string // max:256
	RoutePort int32
	DataPort  int32
	Type      int32
	Version   string // max:64
}

type DeviceInfoRequest struct{}

type DeviceInfoResponse struct {
	Info DeviceInfo
}

type PushDeviceInfoRequest struct {
	Info DeviceInfo
}

type PushDeviceInfoResponse struct{}

type PushBackupInfoRequest struct {
	SyncUUID      string // max:64
	BackupRoot    string // max:8192
	BackupDstRoot string // max:8192
}

type PushBackupInfoResponse struct{}

type ShareSyncRequest struct {
	SyncUUID string // max:64
	Perm     int32
}

type ShareSyncResponse struct {
	Accepted bool
}

type DeviceMetaRequest struct{}

type DeviceMetaResponse struct {
	DeviceUUID string // max:64
	Token      string // max:256
}

type AnnounceExitRequest struct {
	DeviceUUID string // max:64
}

type AnnounceExitResponse struct{}

type AnnounceTokenChangedRequest struct {
	DeviceUUID string // max:64
	NewToken   string // max:256
}

type AnnounceTokenChangedResponse struct{}

type FilterPushSyncMetaRequest struct {
	SyncUUID string   // max:64
	Paths    []string // max:8192 each
}

type FilterPushSyncMetaResponse struct {
	WantedPaths []string // max:8192 each, subset of Paths the peer wants bytes for
}

type RemoveRemoteFileRequest struct {
	RemoteTreeUUID string // max:64
	Path           string // max:8192
}

type RemoveRemoteFileResponse struct{}

// EncryptionLevel is the minimum acceptable confidentiality level a message
// may declare (spec §6).
type EncryptionLevel int

const (
	EncryptionNone EncryptionLevel = iota
	EncryptionWithToken
	EncryptionWithAccount
)

func (e EncryptionLevel) Satisfies(min EncryptionLevel) bool {
	return e >= min
}
