// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package protocol

import "testing"

func TestUpdate(t *testing.T) {
	var v Vector

	v = v.Update(42, 1)
	if v.Compare(Vector{{42, 1}}) != Equal {
		t.Fatalf("got %v", v)
	}

	v = v.Update(36, 1)
	if v.Compare(Vector{{36, 1}, {42, 1}}) != Equal {
		t.Fatalf("got %v", v)
	}

	v = v.Update(37, 1)
	if v.Compare(Vector{{36, 1}, {37, 1}, {42, 1}}) != Equal {
		t.Fatalf("got %v", v)
	}

	v = v.Update(37, 2)
	if v.Compare(Vector{{36, 1}, {37, 2}, {42, 1}}) != Equal {
		t.Fatalf("got %v", v)
	}
}

func TestCompareEmpty(t *testing.T) {
	cases := []struct {
		a, b Vector
		r    Ordering
	}{
		{nil, nil, Equal},
		{Vector{}, nil, Equal},
		{Vector{{42, 0}}, nil, Equal}, // zero is implied
		{Vector{{42, 1}}, nil, Greater},
		{nil, Vector{{42, 1}}, Lesser},
		{Vector{{42, 1}}, Vector{{42, 1}}, Equal},
		{Vector{{42, 1}}, Vector{{77, 1}}, Conflict},
		{Vector{{42, 2}, {77, 1}}, Vector{{42, 1}, {77, 2}}, Conflict},
	}
	for _, c := range cases {
		if r := c.a.Compare(c.b); r != c.r {
			t.Errorf("%v.Compare(%v) = %v, want %v", c.a, c.b, r, c.r)
		}
	}
}

func TestMerge(t *testing.T) {
	a := Vector{{1, 3}, {2, 1}}
	b := Vector{{1, 1}, {2, 5}, {3, 1}}
	m := a.Merge(b)
	want := Vector{{1, 3}, {2, 5}, {3, 1}}
	if m.Compare(want) != Equal {
		t.Fatalf("merge = %v, want %v", m, want)
	}
}

func TestBump(t *testing.T) {
	var v Vector
	v = v.Bump(1)
	v = v.Bump(1)
	if v.Counter(1) != 2 {
		t.Fatalf("got %d", v.Counter(1))
	}
}
