// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

// Package classifier decides, for one (local row, remote row) pair, which
// action the Sync Updater's merge-join walk should queue: insert, update,
// conflict, or skip (spec §4.6); renames are paired afterwards from these
// decisions by internal/rename. It is a pure function of row presence,
// type, and vector-clock comparison — grounded on
// src/zisync/kernel/worker/sync_file.h's bit-packed sync_mask scheme in
// original_source/.
package classifier

// Mask is the 7-bit action descriptor from sync_file.h, kept as a distinct
// bit-per-flag value so a caller can test for e.g. "is this a data task"
// without decoding a Phase/Kind pair first.
type Mask uint8

const (
	flagRemoteNormal Mask = 0x01 // set: remote row present; clear: remote delete
	flagRemoteDir    Mask = 0x02 // set: remote is a directory
	flagLocalNormal  Mask = 0x04 // set: local row present; clear: local delete
	flagLocalDir     Mask = 0x08 // set: local is a directory
	flagData         Mask = 0x40 // set: data phase task; clear: meta-only

	phaseShift = 4
	phaseMask  = 0x03 << phaseShift
)

// Phase is the insert/update/conflict/rename band packed into bits 4-5;
// rename is phase 3, i.e. 0x30 within that band, matching
// SYNC_FILE_RENAME_META.
type Phase int

const (
	PhaseInsert Phase = iota
	PhaseUpdate
	PhaseConflict
	PhaseRename
)

const renameMaskValue Mask = 0x30

func (m Mask) IsRemoteNormal() bool { return m&flagRemoteNormal != 0 }
func (m Mask) IsRemoteRemove() bool { return !m.IsRemoteNormal() }
func (m Mask) IsRemoteDir() bool    { return m&flagRemoteDir != 0 }
func (m Mask) IsRemoteReg() bool    { return !m.IsRemoteDir() }
func (m Mask) IsLocalNormal() bool  { return m&flagLocalNormal != 0 }
func (m Mask) IsLocalRemove() bool  { return !m.IsLocalNormal() }
func (m Mask) IsLocalDir() bool     { return m&flagLocalDir != 0 }
func (m Mask) IsLocalReg() bool     { return !m.IsLocalDir() }
func (m Mask) IsData() bool         { return m&flagData != 0 }
func (m Mask) IsMeta() bool         { return !m.IsData() }

func (m Mask) Phase() Phase {
	if m == renameMaskValue {
		return PhaseRename
	}
	return Phase((m & phaseMask) >> phaseShift)
}

func (m Mask) setPhase(p Phase) Mask {
	return (m &^ phaseMask) | Mask(p)<<phaseShift
}

func (m Mask) setData(data bool) Mask {
	if data {
		return m | flagData
	}
	return m &^ flagData
}

func (m Mask) String() string {
	name := [...]string{"INSERT", "UPDATE", "CONFLICT", "RENAME"}[m.Phase()]
	kind := "META"
	if m.IsData() {
		kind = "DATA"
	}
	side := func(normal, dir bool) string {
		switch {
		case !normal:
			return "R" // remove
		case dir:
			return "D"
		default:
			return "F"
		}
	}
	return side(m.IsLocalNormal(), m.IsLocalDir()) + "N" +
		side(m.IsRemoteNormal(), m.IsRemoteDir()) + "N_" + name + "_" + kind
}
