// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package resolver

import (
	"strings"
	"sync"
)

// URI identifies a resource inside an authority, e.g. "main/syncs" or
// "tree/<uuid>/files".
type URI string

type observation struct {
	uri               URI
	notifyDescendants bool
	handler           func(URI)
}

// Notifier implements the resolver's per-uri observer registration and
// notification coalescing (spec §4.2). Notifications are posted to a
// single internal goroutine so an observer that triggers further writes
// cannot re-enter the dispatch loop and build a cycle (design note §9:
// "Cyclic observer graphs ... broken by posting invalidations to a
// single-threaded recomputation task").
type Notifier struct {
	mut    sync.Mutex
	obs    []*observation
	events chan URI
	done   chan struct{}
}

func NewNotifier() *Notifier {
	n := &Notifier{
		events: make(chan URI, 256),
		done:   make(chan struct{}),
	}
	go n.dispatchLoop()
	return n
}

// RegisterObserver subscribes handler to changes at uri. If
// notifyDescendants is set, changes at any uri with this one as a prefix
// also trigger handler. The returned func unregisters it.
func (n *Notifier) RegisterObserver(uri URI, notifyDescendants bool, handler func(URI)) func() {
	o := &observation{uri: uri, notifyDescendants: notifyDescendants, handler: handler}
	n.mut.Lock()
	n.obs = append(n.obs, o)
	n.mut.Unlock()
	return func() {
		n.mut.Lock()
		defer n.mut.Unlock()
		for i, cur := range n.obs {
			if cur == o {
				n.obs = append(n.obs[:i], n.obs[i+1:]...)
				return
			}
		}
	}
}

// Notify posts a change at uri for asynchronous dispatch. It never blocks
// the writer that caused the change beyond the channel send.
func (n *Notifier) Notify(uri URI) {
	select {
	case n.events <- uri:
	case <-n.done:
	}
}

func (n *Notifier) dispatchLoop() {
	for {
		select {
		case first := <-n.events:
			// Fold every notification already queued behind this one into
			// a single dispatch per distinct uri.
			uris := []URI{first}
			seen := map[URI]bool{first: true}
		drain:
			for {
				select {
				case u := <-n.events:
					if !seen[u] {
						seen[u] = true
						uris = append(uris, u)
					}
				default:
					break drain
				}
			}
			for _, uri := range uris {
				n.mut.Lock()
				matched := make([]*observation, 0, len(n.obs))
				for _, o := range n.obs {
					if o.uri == uri || (o.notifyDescendants && strings.HasPrefix(string(uri), string(o.uri))) {
						matched = append(matched, o)
					}
				}
				n.mut.Unlock()
				for _, o := range matched {
					o.handler(uri)
				}
			}
		case <-n.done:
			return
		}
	}
}

func (n *Notifier) Close() {
	close(n.done)
}
