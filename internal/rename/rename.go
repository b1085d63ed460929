// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

// Package rename pairs a same-sha1 remove/insert seen during one Sync
// Updater pass into a single rename task instead of two independent
// delete+create tasks (spec §4.6), grounded on
// src/zisync/kernel/utils/rename.{cc,h} in original_source/.
package rename

import (
	"encoding/hex"

	"github.com/zisync/zisync/internal/classifier"
	"github.com/zisync/zisync/internal/model"
)

// Candidate is one row pair classified by internal/classifier, carried
// through the Manager in place of the teacher's SyncFile pointer.
type Candidate struct {
	Local, Remote *model.File
	Decision      classifier.Decision
}

// sha1 reads the content hash from whichever side actually holds a row —
// not from IsLocalRemove, which only tells us the local tree's half of the
// pair vanished and says nothing about whether Local or Remote is nil. A
// rename-from candidate coming off a pull (remote-removed, local-normal
// update) has Local set and Remote possibly nil; a rename-to candidate from
// a fresh pull-direction insert has Remote set and Local nil.
func (c Candidate) sha1() string {
	if c.Local != nil {
		return hex.EncodeToString(c.Local.SHA1)
	}
	return hex.EncodeToString(c.Remote.SHA1)
}

// isRenameFrom matches IsRenameFrom(sync_file): one side of the pair went
// from present to removed while the other stayed put (meta-only update) —
// the "from" half of a rename being propagated, in whichever direction the
// delete is travelling. A local-remove with remote still normal is a local
// rename being pushed outward (local row vanished); a remote-remove with
// local still normal is a remote rename being pulled in (local is about to
// be told this path is gone) — both might pair with an insert of the same
// content under a new path, so both must be offered to the Manager.
func isRenameFrom(c Candidate) bool {
	return c.Decision.Action == classifier.ActionUpdate &&
		c.Decision.Mask.IsMeta() &&
		(c.Decision.Mask.IsLocalRemove() || c.Decision.Mask.IsRemoteRemove())
}

// isRenameTo matches IsRenameTo: a fresh insert, or an update bringing in
// data at a path either side previously held as a tombstone, that could be
// the destination half of a rename pairing with some isRenameFrom
// candidate of the same sha1. Symmetric on which side's old row was the
// tombstone, mirroring isRenameFrom.
func isRenameTo(c Candidate) bool {
	if c.Decision.Action == classifier.ActionInsert && c.Decision.Mask.IsData() {
		return true
	}
	return c.Decision.Action == classifier.ActionUpdate &&
		c.Decision.Mask.IsData() &&
		(c.Decision.Mask.IsLocalRemove() || c.Decision.Mask.IsRemoteRemove())
}

// Pair is a matched rename: the removal ("from") candidate and the insert
// or data-update ("to") candidate that share a sha1, in either direction.
type Pair struct {
	From, To Candidate
}

// Manager accumulates rename candidates across one classification pass and
// resolves pairs at Drain time, mirroring RenameManager's rename_froms/
// rename_toes maps keyed by sha1.
type Manager struct {
	froms map[string][]Candidate
	toes  map[string][]Candidate
	pairs []Pair
}

func NewManager() *Manager {
	return &Manager{froms: map[string][]Candidate{}, toes: map[string][]Candidate{}}
}

// Add classifies c as a rename-from, rename-to, or neither. It returns true
// if c was consumed by the rename machinery (either queued for later pairing
// or immediately paired) — a true return means the caller must not also
// queue c as a plain insert/update/delete task.
func (m *Manager) Add(c Candidate) bool {
	switch {
	case isRenameFrom(c):
		sha1 := c.sha1()
		if pending := m.toes[sha1]; len(pending) > 0 {
			to := pending[len(pending)-1]
			m.toes[sha1] = pending[:len(pending)-1]
			m.pairs = append(m.pairs, Pair{From: c, To: to})
		} else {
			m.froms[sha1] = append(m.froms[sha1], c)
		}
		return true
	case isRenameTo(c):
		sha1 := c.sha1()
		if pending := m.froms[sha1]; len(pending) > 0 {
			from := pending[len(pending)-1]
			m.froms[sha1] = pending[:len(pending)-1]
			m.pairs = append(m.pairs, Pair{From: from, To: c})
		} else {
			m.toes[sha1] = append(m.toes[sha1], c)
		}
		return true
	default:
		return false
	}
}

// Drain returns every matched rename pair plus the residual unpaired
// candidates (a from with no matching to, or vice versa), which the caller
// must fall back to handling as a plain delete or insert/update
// (RenameManager::HandleRename's three dispatch loops).
func (m *Manager) Drain() (pairs []Pair, residualFroms, residualToes []Candidate) {
	for _, bucket := range m.froms {
		residualFroms = append(residualFroms, bucket...)
	}
	for _, bucket := range m.toes {
		residualToes = append(residualToes, bucket...)
	}
	pairs = m.pairs

	m.froms = map[string][]Candidate{}
	m.toes = map[string][]Candidate{}
	m.pairs = nil
	return pairs, residualFroms, residualToes
}
