// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package resolver

import (
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
)

// Authority is the logical namespace a Provider owns (spec §4.2): "main"
// for the global tables, "tree/<uuid>" for one tree's file table.
type Authority string

const MainAuthority Authority = "main"

func TreeAuthority(treeUUID string) Authority {
	return Authority("tree/" + treeUUID)
}

// Provider is the marker every concrete per-authority provider implements;
// the typed CRUD surface (Query/Insert/Update/Delete/BulkInsert/ApplyBatch)
// lives on the concrete FileProvider/MainProvider types rather than on this
// interface, per the "typed row structs, not reflection" design note (spec
// §9) — callers know which authority kind they're talking to and use the
// matching concrete type.
type Provider interface {
	Authority() Authority
	Close() error
}

// Resolver is the process-wide registry of providers plus per-uri observer
// coalescing (spec §4.2). It is safe for concurrent use: registration is
// rare, lookups are frequent, so the registry is a lock-free map.
type Resolver struct {
	providers *xsync.MapOf[Authority, Provider]
	notifier  *Notifier
}

func New() *Resolver {
	return &Resolver{
		providers: xsync.NewMapOf[Authority, Provider](),
		notifier:  NewNotifier(),
	}
}

// Register installs a provider for its authority. Registering a second
// provider for an already-registered authority is a programming error.
func (r *Resolver) Register(p Provider) error {
	_, loaded := r.providers.LoadOrStore(p.Authority(), p)
	if loaded {
		return fmt.Errorf("resolver: authority %q already registered", p.Authority())
	}
	return nil
}

// Unregister closes and removes the provider for an authority, e.g. when a
// tree is removed (spec §3 Tree lifecycle).
func (r *Resolver) Unregister(a Authority) error {
	p, loaded := r.providers.LoadAndDelete(a)
	if !loaded {
		return nil
	}
	return p.Close()
}

// Lookup returns the provider registered for an authority, if any.
func (r *Resolver) Lookup(a Authority) (Provider, bool) {
	return r.providers.Load(a)
}

// Notifier returns the shared observer-coalescing facility (spec §4.2).
// internal/querycache and internal/status do not register observers on it.
func (r *Resolver) Notifier() *Notifier {
	return r.notifier
}
