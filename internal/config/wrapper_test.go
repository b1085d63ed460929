// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package config

import (
	"path/filepath"
	"testing"

	"github.com/zisync/zisync/internal/model"
)

type recordingSubscriber struct {
	calls int
	last  Configuration
}

func (r *recordingSubscriber) ConfigChanged(cfg Configuration) {
	r.calls++
	r.last = cfg
}

func TestWrapperSetDeviceInsertsAndReplaces(t *testing.T) {
	w := Wrap("", New())
	w.SetDevice(DeviceConfiguration{UUID: "DEV1", Name: "laptop"})
	w.SetDevice(DeviceConfiguration{UUID: "DEV1", Name: "renamed"})

	d, ok := w.Device("DEV1")
	if !ok {
		t.Fatal("expected DEV1 to be found")
	}
	if d.Name != "renamed" {
		t.Fatalf("expected replaced name %q, got %q", "renamed", d.Name)
	}
	if len(w.Raw().Devices) != 1 {
		t.Fatalf("expected exactly one device after replace, got %d", len(w.Raw().Devices))
	}
}

func TestWrapperFavoritesDefaultsToNil(t *testing.T) {
	w := Wrap("", New())
	w.SetSync(SyncConfiguration{UUID: "SYNC1"})
	if fav := w.Favorites("SYNC1", "TREE1"); fav != nil {
		t.Fatalf("expected nil favorites for unknown tree, got %v", fav)
	}
	if fav := w.Favorites("GHOST", "TREE1"); fav != nil {
		t.Fatalf("expected nil favorites for unknown sync, got %v", fav)
	}
}

func TestWrapperFavoritesReturnsTreeList(t *testing.T) {
	w := Wrap("", New())
	w.SetSync(SyncConfiguration{
		UUID: "SYNC1",
		Trees: []TreeConfiguration{
			{UUID: "TREE1", Favorites: []string{"/Inbox", "/Projects"}},
		},
	})
	fav := w.Favorites("SYNC1", "TREE1")
	if len(fav) != 2 || fav[0] != "/Inbox" {
		t.Fatalf("unexpected favorites: %v", fav)
	}
}

func TestWrapperSaveNotifiesSubscribersAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.xml")
	w := Wrap(path, New())
	w.SetDevice(DeviceConfiguration{UUID: "DEV1", IsMine: true})
	w.SetSync(SyncConfiguration{UUID: "SYNC1", Name: "docs", Perm: model.PermRW})

	sub := &recordingSubscriber{}
	w.Subscribe(sub)

	if err := w.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if sub.calls != 1 {
		t.Fatalf("expected exactly one ConfigChanged call, got %d", sub.calls)
	}
	if len(sub.last.Syncs) != 1 || sub.last.Syncs[0].UUID != "SYNC1" {
		t.Fatalf("subscriber saw unexpected config: %+v", sub.last)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := reloaded.Device("DEV1"); !ok {
		t.Fatal("expected DEV1 to survive a save/load round-trip")
	}
}

func TestWrapperSetConfigurationReindexes(t *testing.T) {
	w := Wrap("", New())
	w.SetDevice(DeviceConfiguration{UUID: "DEV1"})

	replacement := New()
	replacement.Devices = []DeviceConfiguration{{UUID: "DEV2"}}
	w.SetConfiguration(replacement)

	if _, ok := w.Device("DEV1"); ok {
		t.Fatal("expected DEV1 to be gone after SetConfiguration")
	}
	if _, ok := w.Device("DEV2"); !ok {
		t.Fatal("expected DEV2 to be present after SetConfiguration")
	}
}
