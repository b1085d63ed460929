// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package resolver

import "github.com/zisync/zisync/internal/protocol"

// packVClock/unpackVClock serialize a full Vector (tree-id + value pairs)
// for storage in a single BLOB column. This is the provider's private
// on-disk layout and is independent of the wire RemoteVClock encoding in
// internal/protocol, which is keyed by peer position rather than by
// tree-id (spec §4.1).
func packVClock(v protocol.Vector) []byte {
	out := make([]byte, 0, len(v)*12)
	for _, c := range v {
		var b [12]byte
		putUint64(b[0:8], c.ID)
		putUint32(b[8:12], c.Value)
		out = append(out, b[:]...)
	}
	return out
}

func unpackVClock(b []byte) protocol.Vector {
	var v protocol.Vector
	for i := 0; i+12 <= len(b); i += 12 {
		id := getUint64(b[i : i+8])
		val := getUint32(b[i+8 : i+12])
		v = v.Update(id, val)
	}
	return v
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func getUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

func putUint32(b []byte, v uint32) {
	for i := 0; i < 4; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func getUint32(b []byte) uint32 {
	var v uint32
	for i := 0; i < 4; i++ {
		v |= uint32(b[i]) << (8 * i)
	}
	return v
}
