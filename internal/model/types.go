// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

// Package model holds the core's data model: Device, Sync, Tree and File
// row types (spec §3), independent of how they are persisted.
package model

// DeviceStatus mirrors Device.status.
type DeviceStatus int

const (
	DeviceOnline DeviceStatus = iota
	DeviceOffline
)

// Device (spec §3). id=0 is reserved for the local device.
type Device struct {
	ID            int64
	UUID          string
	Name          string
	RoutePort     int32
	DataPort      int32
	Status        DeviceStatus
	Type          int32
	IsMine        bool
	Version       string
	BackupRoot    string
	BackupDstRoot string
}

func (d Device) IsLocal() bool { return d.ID == 0 }

// SyncType mirrors Sync.type.
type SyncType int

const (
	SyncNormal SyncType = iota
	SyncBackup
	SyncShared
)

// SyncStatus mirrors Sync.status.
type SyncStatus int

const (
	SyncStatusNormal SyncStatus = iota
	SyncStatusRemoved
)

// Perm mirrors Sync.perm (spec §3): permissions granted to the local end of
// a sync.
type Perm int

const (
	PermR Perm = 1 << iota
	PermW
	PermCreatorDelete
	PermTokenDiff
	PermDisconnect
)

const PermRW = PermR | PermW

// CanIngest reports whether the local end may apply changes originating
// from a peer (spec Invariant 7: "W-only, RW is required to ingest").
func (p Perm) CanIngest() bool {
	return p&PermDisconnect == 0 && p&PermTokenDiff == 0 && p&PermCreatorDelete == 0 && p&PermW != 0
}

// CanEmit reports whether the local end may push its own changes upstream
// (spec Invariant 7: "R, RW is required to emit").
func (p Perm) CanEmit() bool {
	return p&PermDisconnect == 0 && p&PermTokenDiff == 0 && p&PermCreatorDelete == 0 && p&PermR != 0
}

// Sync (spec §3): a named group of trees across devices.
type Sync struct {
	ID               int64
	UUID             string
	Name             string
	LastSync         int64
	Type             SyncType
	Status           SyncStatus
	CreatorDeviceID  int64
	Perm             Perm
	RestoreSharePerm Perm
}

// TreeStatus mirrors Tree.status.
type TreeStatus int

const (
	TreeStatusNormal TreeStatus = iota
	TreeStatusRemoved
	TreeStatusVClockOnly
)

// BackupType mirrors Tree.backup_type.
type BackupType int

const (
	BackupNone BackupType = iota
	BackupSrc
	BackupDst
)

// Tree (spec §3): one device's local subtree participating in a sync.
type Tree struct {
	ID         int64
	UUID       string
	Root       string
	DeviceID   int64
	SyncID     int64
	Status     TreeStatus
	LastFind   int64
	BackupType BackupType
	IsEnabled  bool
	RootStatus int32
	LastUSN    int64 // monotonic USN counter, persisted alongside the row
}

func (t Tree) IsLocal() bool { return t.DeviceID == 0 }

// SyncModeKind mirrors the per-tree-pair Sync-Mode (spec §3).
type SyncModeKind int

const (
	ModeAuto SyncModeKind = iota
	ModeManual
	ModeOff
)

type SyncMode struct {
	LocalTreeID    int64
	RemoteTreeID   int64
	Mode           SyncModeKind
	LastAutoSyncAt int64
}
