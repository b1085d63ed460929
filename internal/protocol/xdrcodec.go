// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package protocol

import (
	"bytes"

	"github.com/calmh/xdr"
)

// MarshalXDR encodes a FileStat for the wire, the same encoding scheme
// Syncthing's XDR-annotated message structs use (spec §6 FindResponse).
func (f FileStat) MarshalXDR() ([]byte, error) {
	var buf bytes.Buffer
	w := xdr.NewWriter(&buf)
	w.WriteString(f.Path)
	w.WriteUint32(uint32(f.Type))
	w.WriteUint32(uint32(f.Status))
	w.WriteUint64(uint64(f.Mtime))
	w.WriteUint64(uint64(f.Length))
	w.WriteBytes(f.SHA1)
	w.WriteUint64(uint64(f.USN))
	w.WriteUint32(f.LocalVClock)
	w.WriteBytes(f.RemoteVClock)
	w.WriteUint32(f.UnixAttr)
	w.WriteUint32(f.AndroidAttr)
	w.WriteUint32(f.WinAttr)
	w.WriteUint64(f.Modifier)
	w.WriteUint64(uint64(f.TimeStamp))
	w.WriteString(f.Alias)
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (f *FileStat) UnmarshalXDR(bs []byte) error {
	r := xdr.NewReader(bytes.NewReader(bs))
	f.Path = r.ReadString()
	f.Type = FileType(r.ReadUint32())
	f.Status = FileStatus(r.ReadUint32())
	f.Mtime = int64(r.ReadUint64())
	f.Length = int64(r.ReadUint64())
	f.SHA1 = r.ReadBytes()
	f.USN = int64(r.ReadUint64())
	f.LocalVClock = r.ReadUint32()
	f.RemoteVClock = r.ReadBytes()
	f.UnixAttr = r.ReadUint32()
	f.AndroidAttr = r.ReadUint32()
	f.WinAttr = r.ReadUint32()
	f.Modifier = r.ReadUint64()
	f.TimeStamp = int64(r.ReadUint64())
	f.Alias = r.ReadString()
	return r.Error()
}

// MarshalXDR encodes a FindResponse, including the tree-uuid index table
// the receiver needs to remap RemoteVClock positions (spec §4.1).
func (r FindResponse) MarshalXDR() ([]byte, error) {
	var buf bytes.Buffer
	w := xdr.NewWriter(&buf)
	w.WriteUint32(uint32(len(r.RemoteUUIDs)))
	for _, u := range r.RemoteUUIDs {
		w.WriteString(u)
	}
	w.WriteUint32(uint32(len(r.Stats)))
	for _, s := range r.Stats {
		enc, err := s.MarshalXDR()
		if err != nil {
			return nil, err
		}
		w.WriteBytes(enc)
	}
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (resp *FindResponse) UnmarshalXDR(bs []byte) error {
	r := xdr.NewReader(bytes.NewReader(bs))
	n := r.ReadUint32()
	resp.RemoteUUIDs = make([]string, n)
	for i := range resp.RemoteUUIDs {
		resp.RemoteUUIDs[i] = r.ReadString()
	}
	m := r.ReadUint32()
	resp.Stats = make([]FileStat, m)
	for i := range resp.Stats {
		enc := r.ReadBytes()
		if err := r.Error(); err != nil {
			return err
		}
		if err := resp.Stats[i].UnmarshalXDR(enc); err != nil {
			return err
		}
	}
	return r.Error()
}

// PackVClock packs a Vector's non-owning positions into the 4-byte LE blob
// format RemoteVClock uses on the wire, in the given peer tree-uuid order.
func PackVClock(v Vector, order []uint64) []byte {
	out := make([]byte, 4*len(order))
	for i, id := range order {
		val := v.Counter(id)
		out[i*4] = byte(val)
		out[i*4+1] = byte(val >> 8)
		out[i*4+2] = byte(val >> 16)
		out[i*4+3] = byte(val >> 24)
	}
	return out
}
