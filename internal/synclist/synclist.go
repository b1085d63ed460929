// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

// Package synclist is the per-local-tree selective-sync allow-list: which
// paths under a tree actually participate in sync versus sit on disk
// un-synced (spec §4.4's tree-scoped filtering). Grounded on
// src/zisync/kernel/utils/sync_list.h in original_source/'s
// SyncList/WhiteSyncList/NullSyncList split; the original's Trie is
// replaced here by a flat path-prefix set (Go's map gives O(1) exact-path
// lookups, and the ancestor walk below is the only place prefix matching
// actually matters, so a full trie buys nothing a `strings.HasPrefix` scan
// over a tree's own (typically small) allow-list doesn't already give).
package synclist

import (
	"strings"
	"sync"
)

// PathType mirrors SyncListPathType: how one path relates to whatever the
// allow-list actually names.
type PathType int

const (
	PathTypeNull PathType = iota
	PathTypeParent
	PathTypeChild
	PathTypeSelf
	PathTypeStranger
)

// Mode selects WHITE_SYNC_LIST (only listed paths and their descendants
// sync) or NULL_SYNC_LIST (everything syncs, the allow-list is inert).
type Mode int

const (
	ModeWhite Mode = iota
	ModeNull
)

// List is one local tree's allow-list.
type List struct {
	mode Mode
	mu   sync.RWMutex
	set  map[string]struct{}
}

func New(mode Mode) *List {
	return &List{mode: mode, set: map[string]struct{}{}}
}

func (l *List) Insert(path string) {
	if l.mode == ModeNull {
		return
	}
	l.mu.Lock()
	l.set[path] = struct{}{}
	l.mu.Unlock()
}

func (l *List) Remove(path string) {
	if l.mode == ModeNull {
		return
	}
	l.mu.Lock()
	delete(l.set, path)
	l.mu.Unlock()
}

func (l *List) List() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	paths := make([]string, 0, len(l.set))
	for p := range l.set {
		paths = append(paths, p)
	}
	return paths
}

// PathType classifies path against the allow-list: SELF if listed
// exactly, PARENT if some listed path sits under path (so path must stay
// visible to reach it), CHILD if path sits under a listed path, STRANGER
// otherwise.
func (l *List) PathType(path string) PathType {
	if l.mode == ModeNull {
		return PathTypeChild
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, ok := l.set[path]; ok {
		return PathTypeSelf
	}
	prefix := path
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	for p := range l.set {
		if strings.HasPrefix(p, prefix) {
			return PathTypeParent
		}
	}
	for p := range l.set {
		pp := p
		if !strings.HasSuffix(pp, "/") {
			pp += "/"
		}
		if strings.HasPrefix(path, pp) {
			return PathTypeChild
		}
	}
	return PathTypeStranger
}

// NeedSync reports whether path should participate in sync at all: a
// NullSyncList always says yes; a WhiteSyncList says yes only for listed
// paths, their descendants, or an ancestor of a listed path (so the walk
// down to it stays visible).
func (l *List) NeedSync(path string) bool {
	if l.mode == ModeNull {
		return true
	}
	switch l.PathType(path) {
	case PathTypeSelf, PathTypeChild, PathTypeParent:
		return true
	default:
		return false
	}
}

// Registry is the process-wide tree-id -> List table, mirroring
// SyncList's static sync_list_map.
type Registry struct {
	mu    sync.RWMutex
	lists map[int64]*List
}

func NewRegistry() *Registry {
	return &Registry{lists: map[int64]*List{}}
}

func (r *Registry) Add(treeID int64, mode Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists[treeID] = New(mode)
}

func (r *Registry) Remove(treeID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.lists, treeID)
}

func (r *Registry) Get(treeID int64) (*List, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lists[treeID]
	return l, ok
}

// NeedSync is a convenience matching SyncList::NeedSync(tree_id, path); a
// tree with no registered List defaults to "everything syncs" (NULL mode),
// matching original_source's fallback when a tree was never explicitly
// put under selective sync.
func (r *Registry) NeedSync(treeID int64, path string) bool {
	l, ok := r.Get(treeID)
	if !ok {
		return true
	}
	return l.NeedSync(path)
}
