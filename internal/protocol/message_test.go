// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package protocol

import (
	"bytes"
	"testing"
)

func TestFileStatXDRRoundTrip(t *testing.T) {
	in := FileStat{
		Path:         "/a/b.txt",
		Type:         TypeFile,
		Status:       StatusNormal,
		Mtime:        1700000000,
		Length:       5,
		SHA1:         []byte{1, 2, 3, 4, 5},
		USN:          42,
		LocalVClock:  3,
		RemoteVClock: PackVClock(Vector{{7, 2}}, []uint64{7}),
		Modifier:     9,
	}

	enc, err := in.MarshalXDR()
	if err != nil {
		t.Fatal(err)
	}

	var out FileStat
	if err := out.UnmarshalXDR(enc); err != nil {
		t.Fatal(err)
	}

	if out.Path != in.Path || out.USN != in.USN || out.LocalVClock != in.LocalVClock {
		t.Fatalf("round trip mismatch: %+v != %+v", out, in)
	}
	if !bytes.Equal(out.SHA1, in.SHA1) {
		t.Fatalf("sha1 mismatch: %x != %x", out.SHA1, in.SHA1)
	}
	if !bytes.Equal(out.RemoteVClock, in.RemoteVClock) {
		t.Fatalf("vclock mismatch: %x != %x", out.RemoteVClock, in.RemoteVClock)
	}
	if out.Status != in.Status {
		t.Fatalf("status mismatch: %v != %v", out.Status, in.Status)
	}
}

func TestFindResponseXDRRoundTrip(t *testing.T) {
	in := FindResponse{
		RemoteUUIDs: []string{"tree-a", "tree-b"},
		Stats: []FileStat{
			{Path: "/x", USN: 1},
			{Path: "/y", USN: 2, Status: StatusRemoved},
		},
	}
	enc, err := in.MarshalXDR()
	if err != nil {
		t.Fatal(err)
	}
	var out FindResponse
	if err := out.UnmarshalXDR(enc); err != nil {
		t.Fatal(err)
	}
	if len(out.Stats) != 2 || out.Stats[1].Status != StatusRemoved {
		t.Fatalf("got %+v", out)
	}
}
