// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

// Package discovery declares the external collaborator that turns a
// device UUID into a dialable address for internal/transport (spec §6,
// Non-goals: LAN/global discovery and NAT traversal are out of scope —
// only the interface the core drives is in scope here).
//
// Grounded on the teacher's internal/discover package boundary (a small
// Finder interface wrapping local and global lookup strategies behind
// one verb) and internal/transport's own collaborator-interface idiom:
// context-first signatures, one verb per capability, no concrete
// networking in this core.
package discovery

import "context"

// Address is one way to reach a device, as returned by a Finder. Scheme
// distinguishes transport mechanisms (e.g. "tcp", "relay") the way the
// teacher's discovery results carry a dial string rather than a bare
// host:port.
type Address struct {
	Scheme string
	Host   string
	Port   int32
}

// Finder resolves a device UUID to the addresses it was last seen at.
// Implementations own whatever lookup strategy they use (LAN multicast,
// a global announce server, a static table); the core only ever calls
// Lookup and never reaches into a strategy directly.
type Finder interface {
	// Lookup returns every known address for deviceUUID, most recently
	// seen first. An empty result with a nil error means "not currently
	// known", not an error condition.
	Lookup(ctx context.Context, deviceUUID string) ([]Address, error)
}

// Announcer publishes this device's own reachable addresses so peers'
// Finders can discover it. Implementations decide the announce cadence
// and medium; the core only calls Announce when its own reachable set
// changes (e.g. after a listener binds a new port).
type Announcer interface {
	Announce(ctx context.Context, addrs []Address) error
}
