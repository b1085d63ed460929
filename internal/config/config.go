// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

// Package config implements reading and writing of the zisync daemon's
// declarative configuration: registered devices, syncs, trees, per-tree-
// pair sync-mode defaults, and each tree's favorites (scanner include
// list). Grounded on the teacher's internal/config/config.go — same
// versioned XML-backed Configuration struct and setDefaults-via-struct-
// tag convention — generalized from Syncthing's folder/device/options
// shape onto this core's device/sync/tree/sync-mode rows (spec §3).
package config

import (
	"encoding/xml"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strconv"

	"github.com/zisync/zisync/internal/logger"
	"github.com/zisync/zisync/internal/model"
)

var l = logger.DefaultLogger

// CurrentVersion is bumped whenever Configuration's on-disk shape changes
// in a way a reader must migrate.
const CurrentVersion = 1

// Configuration is the whole of what one daemon instance persists about
// its own declared devices/syncs/trees, independent of any tree's file
// table (which lives in its own per-tree database, spec §4.2).
type Configuration struct {
	XMLName xml.Name              `xml:"configuration" json:"-"`
	Version int                   `xml:"version,attr"`
	Devices []DeviceConfiguration `xml:"device"`
	Syncs   []SyncConfiguration   `xml:"sync"`

	OriginalVersion int `xml:"-" json:"-"`
}

// DeviceConfiguration is one declared peer device (spec §3's Device),
// identified by its UUID rather than a dialable address —
// address resolution is internal/discovery's and internal/transport's
// job, both out of this package's scope.
type DeviceConfiguration struct {
	UUID          string `xml:"uuid,attr"`
	Name          string `xml:"name,attr,omitempty"`
	RoutePort     int32  `xml:"routePort,attr" default:"0"`
	DataPort      int32  `xml:"dataPort,attr" default:"0"`
	IsMine        bool   `xml:"isMine,attr"`
	BackupRoot    string `xml:"backupRoot,omitempty"`
	BackupDstRoot string `xml:"backupDstRoot,omitempty"`
}

// SyncConfiguration is one declared sync (spec §3's Sync) and the trees
// participating in it.
type SyncConfiguration struct {
	UUID             string                  `xml:"uuid,attr"`
	Name             string                  `xml:"name,attr,omitempty"`
	Type             model.SyncType          `xml:"type,attr" default:"0"`
	Perm             model.Perm              `xml:"perm,attr" default:"3"`
	RestoreSharePerm model.Perm              `xml:"restoreSharePerm,attr"`
	Trees            []TreeConfiguration     `xml:"tree"`
	SyncModes        []SyncModeConfiguration `xml:"syncMode"`
}

// TreeConfiguration is one device's local subtree within a sync (spec
// §3's Tree), plus its favorites include list (spec §4.3's "per-tree
// include list").
type TreeConfiguration struct {
	UUID       string           `xml:"uuid,attr"`
	DeviceUUID string           `xml:"deviceUuid,attr"`
	Root       string           `xml:"root,attr"`
	BackupType model.BackupType `xml:"backupType,attr" default:"0"`
	IsEnabled  bool             `xml:"isEnabled,attr" default:"true"`
	Favorites  []string         `xml:"favorite,omitempty"`
}

// SyncModeConfiguration is the per-local-remote-tree-pair default mode
// (spec §3's SyncMode: ModeAuto/ModeManual/ModeOff).
type SyncModeConfiguration struct {
	LocalTreeUUID  string             `xml:"localTreeUuid,attr"`
	RemoteTreeUUID string             `xml:"remoteTreeUuid,attr"`
	Mode           model.SyncModeKind `xml:"mode,attr" default:"0"`
}

// New returns a fresh, empty, current-version Configuration.
func New() Configuration {
	cfg := Configuration{Version: CurrentVersion}
	cfg.OriginalVersion = CurrentVersion
	return cfg
}

// ReadXML decodes a Configuration from r, applying struct-tag defaults to
// any field the document omits.
func ReadXML(r io.Reader) (Configuration, error) {
	var cfg Configuration
	if err := xml.NewDecoder(r).Decode(&cfg); err != nil {
		return Configuration{}, err
	}
	cfg.OriginalVersion = cfg.Version
	if err := setDefaults(&cfg); err != nil {
		return Configuration{}, err
	}
	for i := range cfg.Syncs {
		if err := setDefaults(&cfg.Syncs[i]); err != nil {
			return Configuration{}, err
		}
		for j := range cfg.Syncs[i].Trees {
			if err := setDefaults(&cfg.Syncs[i].Trees[j]); err != nil {
				return Configuration{}, err
			}
		}
	}
	cfg.prepare()
	return cfg, nil
}

// WriteXML encodes cfg to w, indented for readability on disk.
func (cfg *Configuration) WriteXML(w io.Writer) error {
	e := xml.NewEncoder(w)
	e.Indent("", "    ")
	if err := e.Encode(cfg); err != nil {
		return err
	}
	_, err := w.Write([]byte("\n"))
	return err
}

// prepare validates cross-references and disables anything malformed
// rather than rejecting the whole document, matching the teacher's
// "disable, don't fail to start" tolerance for a bad single entry.
func (cfg *Configuration) prepare() {
	deviceUUIDs := make(map[string]bool, len(cfg.Devices))
	for _, d := range cfg.Devices {
		deviceUUIDs[d.UUID] = true
	}

	seenSyncs := make(map[string]bool, len(cfg.Syncs))
	for i := range cfg.Syncs {
		s := &cfg.Syncs[i]
		if seenSyncs[s.UUID] {
			l.Warnf("config: duplicate sync uuid %q; keeping first occurrence", s.UUID)
			s.UUID = ""
			continue
		}
		seenSyncs[s.UUID] = true

		for j := range s.Trees {
			t := &s.Trees[j]
			if t.Root == "" {
				l.Warnf("config: tree %q in sync %q has no root; disabling", t.UUID, s.UUID)
				t.IsEnabled = false
				continue
			}
			if !deviceUUIDs[t.DeviceUUID] {
				l.Warnf("config: tree %q references unknown device %q; disabling", t.UUID, t.DeviceUUID)
				t.IsEnabled = false
			}
		}
		sort.Slice(s.Trees, func(a, b int) bool { return s.Trees[a].UUID < s.Trees[b].UUID })
	}
}

func setDefaults(data interface{}) error {
	s := reflect.ValueOf(data).Elem()
	t := s.Type()

	for i := 0; i < s.NumField(); i++ {
		f := s.Field(i)
		tag := t.Field(i).Tag

		v := tag.Get("default")
		if len(v) == 0 || !f.IsZero() {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(v)
		case reflect.Int, reflect.Int32, reflect.Int64:
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("config: bad default %q for %s: %w", v, t.Field(i).Name, err)
			}
			f.SetInt(n)
		case reflect.Bool:
			f.SetBool(v == "true")
		}
	}
	return nil
}
