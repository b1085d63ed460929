// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package protocol

import "fmt"

// Ordering is the result of comparing two Vectors (spec §3, "Vector clock").
type Ordering int

const (
	Equal Ordering = iota
	Greater
	Lesser
	Conflict
)

func (o Ordering) String() string {
	switch o {
	case Equal:
		return "Equal"
	case Greater:
		return "Greater"
	case Lesser:
		return "Lesser"
	case Conflict:
		return "Conflict"
	default:
		return "unknown"
	}
}

// Counter is one position of a Vector: the logical clock value contributed
// by the tree identified by ID (a tree-uuid hash, see TreeUUIDToVectorID).
type Counter struct {
	ID    uint64
	Value uint32
}

// Vector is a causal version of a file entry, one Counter per participating
// tree, kept sorted by Counter.ID (spec §3).
type Vector []Counter

// Update bumps (or inserts) the counter for id to the given value, keeping
// the slice sorted by ID so Compare/Merge can run in a single linear pass.
func (v Vector) Update(id uint64, value uint32) Vector {
	for i := range v {
		if v[i].ID == id {
			v[i].Value = value
			return v
		}
		if v[i].ID > id {
			v = append(v, Counter{})
			copy(v[i+1:], v[i:])
			v[i] = Counter{id, value}
			return v
		}
	}
	return append(v, Counter{id, value})
}

// Bump increments the counter for id by one, initializing it to 1 if absent.
func (v Vector) Bump(id uint64) Vector {
	return v.Update(id, v.Counter(id)+1)
}

func (v Vector) Counter(id uint64) uint32 {
	for _, c := range v {
		if c.ID == id {
			return c.Value
		}
	}
	return 0
}

func (v Vector) Copy() Vector {
	n := make(Vector, len(v))
	copy(n, v)
	return n
}

// Compare implements the pointwise comparison of spec §3: LESS iff every
// position is <= and at least one is <; GREATER symmetric; EQUAL if every
// position matches; CONFLICT otherwise.
func (v Vector) Compare(other Vector) Ordering {
	var hasLess, hasGreater bool

	ids := make(map[uint64]struct{}, len(v)+len(other))
	for _, c := range v {
		ids[c.ID] = struct{}{}
	}
	for _, c := range other {
		ids[c.ID] = struct{}{}
	}

	for id := range ids {
		a := v.Counter(id)
		b := other.Counter(id)
		switch {
		case a < b:
			hasLess = true
		case a > b:
			hasGreater = true
		}
	}

	switch {
	case hasLess && hasGreater:
		return Conflict
	case hasLess:
		return Lesser
	case hasGreater:
		return Greater
	default:
		return Equal
	}
}

func (v Vector) Equal(other Vector) bool {
	return v.Compare(other) == Equal
}

func (v Vector) Concurrent(other Vector) bool {
	return v.Compare(other) == Conflict
}

// Merge returns the pointwise maximum of v and other (spec Invariant 3);
// the receiver's own slice is not mutated in place beyond what Update does.
func (v Vector) Merge(other Vector) Vector {
	merged := v.Copy()
	for _, c := range other {
		if c.Value > merged.Counter(c.ID) {
			merged = merged.Update(c.ID, c.Value)
		}
	}
	return merged
}

func (v Vector) String() string {
	return fmt.Sprintf("%v", []Counter(v))
}
