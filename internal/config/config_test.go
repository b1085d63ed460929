// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package config

import (
	"bytes"
	"strings"
	"testing"

	"github.com/zisync/zisync/internal/model"
)

func TestNewIsCurrentVersion(t *testing.T) {
	cfg := New()
	if cfg.Version != CurrentVersion {
		t.Fatalf("expected version %d, got %d", CurrentVersion, cfg.Version)
	}
}

func TestReadXMLAppliesDefaults(t *testing.T) {
	doc := `<configuration version="1">
		<device uuid="DEV1" isMine="true"></device>
		<sync uuid="SYNC1" name="photos">
			<tree uuid="TREE1" deviceUuid="DEV1" root="/home/a/photos"></tree>
		</sync>
	</configuration>`

	cfg, err := ReadXML(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ReadXML: %v", err)
	}
	if len(cfg.Syncs) != 1 {
		t.Fatalf("expected 1 sync, got %d", len(cfg.Syncs))
	}
	s := cfg.Syncs[0]
	if s.Perm != model.PermRW {
		t.Fatalf("expected default perm %v, got %v", model.PermRW, s.Perm)
	}
	if len(s.Trees) != 1 {
		t.Fatalf("expected 1 tree, got %d", len(s.Trees))
	}
	tr := s.Trees[0]
	if !tr.IsEnabled {
		t.Fatal("expected tree to default to enabled")
	}
	if tr.BackupType != model.BackupNone {
		t.Fatalf("expected default backup type %v, got %v", model.BackupNone, tr.BackupType)
	}
}

func TestPrepareDisablesTreeWithUnknownDevice(t *testing.T) {
	doc := `<configuration version="1">
		<sync uuid="SYNC1">
			<tree uuid="TREE1" deviceUuid="GHOST" root="/a" isEnabled="true"></tree>
		</sync>
	</configuration>`

	cfg, err := ReadXML(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ReadXML: %v", err)
	}
	if cfg.Syncs[0].Trees[0].IsEnabled {
		t.Fatal("expected tree referencing an unknown device to be disabled")
	}
}

func TestPrepareDisablesTreeWithNoRoot(t *testing.T) {
	doc := `<configuration version="1">
		<device uuid="DEV1" isMine="true"></device>
		<sync uuid="SYNC1">
			<tree uuid="TREE1" deviceUuid="DEV1" isEnabled="true"></tree>
		</sync>
	</configuration>`

	cfg, err := ReadXML(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ReadXML: %v", err)
	}
	if cfg.Syncs[0].Trees[0].IsEnabled {
		t.Fatal("expected rootless tree to be disabled")
	}
}

func TestPrepareDropsDuplicateSyncUUID(t *testing.T) {
	doc := `<configuration version="1">
		<sync uuid="SYNC1" name="first"></sync>
		<sync uuid="SYNC1" name="second"></sync>
	</configuration>`

	cfg, err := ReadXML(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ReadXML: %v", err)
	}
	if cfg.Syncs[0].UUID != "SYNC1" {
		t.Fatalf("expected first sync to keep its uuid, got %q", cfg.Syncs[0].UUID)
	}
	if cfg.Syncs[1].UUID != "" {
		t.Fatalf("expected duplicate sync's uuid to be cleared, got %q", cfg.Syncs[1].UUID)
	}
}

func TestWriteXMLRoundTrip(t *testing.T) {
	cfg := New()
	cfg.Devices = append(cfg.Devices, DeviceConfiguration{UUID: "DEV1", Name: "laptop", IsMine: true})
	cfg.Syncs = append(cfg.Syncs, SyncConfiguration{
		UUID: "SYNC1", Name: "docs", Perm: model.PermRW,
		Trees: []TreeConfiguration{{UUID: "TREE1", DeviceUUID: "DEV1", Root: "/home/a/docs", IsEnabled: true}},
	})

	var buf bytes.Buffer
	if err := cfg.WriteXML(&buf); err != nil {
		t.Fatalf("WriteXML: %v", err)
	}

	round, err := ReadXML(&buf)
	if err != nil {
		t.Fatalf("ReadXML round-trip: %v", err)
	}
	if len(round.Devices) != 1 || round.Devices[0].UUID != "DEV1" {
		t.Fatalf("device did not round-trip: %+v", round.Devices)
	}
	if len(round.Syncs) != 1 || round.Syncs[0].Trees[0].Root != "/home/a/docs" {
		t.Fatalf("sync/tree did not round-trip: %+v", round.Syncs)
	}
}
