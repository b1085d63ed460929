// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package resolver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/zisync/zisync/internal/model"
)

const mainTableSchema = `
CREATE TABLE IF NOT EXISTS devices (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uuid TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	route_port INTEGER NOT NULL DEFAULT 0,
	data_port INTEGER NOT NULL DEFAULT 0,
	status INTEGER NOT NULL DEFAULT 1,
	type INTEGER NOT NULL DEFAULT 0,
	is_mine INTEGER NOT NULL DEFAULT 0,
	version TEXT NOT NULL DEFAULT '',
	backup_root TEXT NOT NULL DEFAULT '',
	backup_dst_root TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS syncs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uuid TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	last_sync INTEGER NOT NULL DEFAULT 0,
	type INTEGER NOT NULL DEFAULT 0,
	status INTEGER NOT NULL DEFAULT 0,
	creator_device_id INTEGER NOT NULL DEFAULT 0,
	perm INTEGER NOT NULL DEFAULT 0,
	restore_share_perm INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS trees (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uuid TEXT NOT NULL UNIQUE,
	root TEXT NOT NULL,
	device_id INTEGER NOT NULL,
	sync_id INTEGER NOT NULL,
	status INTEGER NOT NULL DEFAULT 0,
	last_find INTEGER NOT NULL DEFAULT 0,
	backup_type INTEGER NOT NULL DEFAULT 0,
	is_enabled INTEGER NOT NULL DEFAULT 1,
	root_status INTEGER NOT NULL DEFAULT 0,
	last_usn INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS trees_sync_id_idx ON trees(sync_id);
`

type deviceRow struct {
	ID            int64  `db:"id"`
	UUID          string `db:"uuid"`
	Name          string `db:"name"`
	RoutePort     int64  `db:"route_port"`
	DataPort      int64  `db:"data_port"`
	Status        int    `db:"status"`
	Type          int64  `db:"type"`
	IsMine        bool   `db:"is_mine"`
	Version       string `db:"version"`
	BackupRoot    string `db:"backup_root"`
	BackupDstRoot string `db:"backup_dst_root"`
}

type syncRow struct {
	ID               int64  `db:"id"`
	UUID             string `db:"uuid"`
	Name             string `db:"name"`
	LastSync         int64  `db:"last_sync"`
	Type             int    `db:"type"`
	Status           int    `db:"status"`
	CreatorDeviceID  int64  `db:"creator_device_id"`
	Perm             int64  `db:"perm"`
	RestoreSharePerm int64  `db:"restore_share_perm"`
}

type treeRow struct {
	ID         int64  `db:"id"`
	UUID       string `db:"uuid"`
	Root       string `db:"root"`
	DeviceID   int64  `db:"device_id"`
	SyncID     int64  `db:"sync_id"`
	Status     int    `db:"status"`
	LastFind   int64  `db:"last_find"`
	BackupType int    `db:"backup_type"`
	IsEnabled  bool   `db:"is_enabled"`
	RootStatus int64  `db:"root_status"`
	LastUSN    int64  `db:"last_usn"`
}

// MainProvider is the Content Resolver's provider for the global tables
// (Device, Sync, Tree; spec §4.2, §6).
type MainProvider struct {
	db  *sqlx.DB
	mut sync.RWMutex
}

func OpenMainProvider(path string) (*MainProvider, error) {
	db, err := sqlx.Open(dbDriver, "file:"+path+"?"+commonOptions)
	if err != nil {
		return nil, fmt.Errorf("open main provider: %w", err)
	}
	if _, err := db.Exec(mainTableSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init main tables: %w", err)
	}
	return &MainProvider{db: db}, nil
}

func (p *MainProvider) Authority() Authority { return MainAuthority }
func (p *MainProvider) Close() error          { return p.db.Close() }

func (p *MainProvider) InsertDevice(ctx context.Context, d model.Device) (int64, error) {
	p.mut.Lock()
	defer p.mut.Unlock()
	res, err := p.db.NamedExecContext(ctx, `
		INSERT INTO devices (uuid, name, route_port, data_port, status, type, is_mine, version, backup_root, backup_dst_root)
		VALUES (:uuid, :name, :route_port, :data_port, :status, :type, :is_mine, :version, :backup_root, :backup_dst_root)
	`, deviceToRow(d))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (p *MainProvider) UpdateDeviceStatus(ctx context.Context, uuid string, status model.DeviceStatus) error {
	p.mut.Lock()
	defer p.mut.Unlock()
	_, err := p.db.ExecContext(ctx, `UPDATE devices SET status=? WHERE uuid=?`, int(status), uuid)
	return err
}

func (p *MainProvider) GetDeviceByUUID(ctx context.Context, uuid string) (model.Device, bool, error) {
	p.mut.RLock()
	defer p.mut.RUnlock()
	var r deviceRow
	err := p.db.GetContext(ctx, &r, `SELECT * FROM devices WHERE uuid=?`, uuid)
	if err != nil {
		return model.Device{}, false, noRowsIsNotFound(err)
	}
	return deviceFromRow(r), true, nil
}

func (p *MainProvider) InsertSync(ctx context.Context, s model.Sync) (int64, error) {
	p.mut.Lock()
	defer p.mut.Unlock()
	res, err := p.db.NamedExecContext(ctx, `
		INSERT INTO syncs (uuid, name, last_sync, type, status, creator_device_id, perm, restore_share_perm)
		VALUES (:uuid, :name, :last_sync, :type, :status, :creator_device_id, :perm, :restore_share_perm)
	`, syncToRow(s))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (p *MainProvider) GetDeviceByID(ctx context.Context, id int64) (model.Device, bool, error) {
	p.mut.RLock()
	defer p.mut.RUnlock()
	var r deviceRow
	err := p.db.GetContext(ctx, &r, `SELECT * FROM devices WHERE id=?`, id)
	if err != nil {
		return model.Device{}, false, noRowsIsNotFound(err)
	}
	return deviceFromRow(r), true, nil
}

func (p *MainProvider) GetSyncByID(ctx context.Context, id int64) (model.Sync, bool, error) {
	p.mut.RLock()
	defer p.mut.RUnlock()
	var r syncRow
	err := p.db.GetContext(ctx, &r, `SELECT * FROM syncs WHERE id=? AND status=0`, id)
	if err != nil {
		return model.Sync{}, false, noRowsIsNotFound(err)
	}
	return syncFromRow(r), true, nil
}

func (p *MainProvider) InsertTree(ctx context.Context, t model.Tree) (int64, error) {
	p.mut.Lock()
	defer p.mut.Unlock()
	res, err := p.db.NamedExecContext(ctx, `
		INSERT INTO trees (uuid, root, device_id, sync_id, status, last_find, backup_type, is_enabled, root_status, last_usn)
		VALUES (:uuid, :root, :device_id, :sync_id, :status, :last_find, :backup_type, :is_enabled, :root_status, :last_usn)
	`, treeToRow(t))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (p *MainProvider) GetTreeByID(ctx context.Context, id int64) (model.Tree, bool, error) {
	p.mut.RLock()
	defer p.mut.RUnlock()
	var r treeRow
	err := p.db.GetContext(ctx, &r, `SELECT * FROM trees WHERE id=? AND status=0`, id)
	if err != nil {
		return model.Tree{}, false, noRowsIsNotFound(err)
	}
	return treeFromRow(r), true, nil
}

// ListSyncIDs returns every non-removed sync's id, ascending.
func (p *MainProvider) ListSyncIDs(ctx context.Context) ([]int64, error) {
	p.mut.RLock()
	defer p.mut.RUnlock()
	var ids []int64
	err := p.db.SelectContext(ctx, &ids, `SELECT id FROM syncs WHERE status=0 ORDER BY id ASC`)
	return ids, err
}

// TreeUUIDsForSync returns the uuid of every non-removed tree in sync_id,
// ordered by tree id; the local tree is not moved to the front.
func (p *MainProvider) TreeUUIDsForSync(ctx context.Context, syncID int64) ([]string, error) {
	p.mut.RLock()
	defer p.mut.RUnlock()
	var uuids []string
	err := p.db.SelectContext(ctx, &uuids, `SELECT uuid FROM trees WHERE sync_id=? AND status != 1 ORDER BY id ASC`, syncID)
	return uuids, err
}

// BumpTreeUSN atomically allocates and returns the next USN for a tree
// (spec §4.3: "monotonic counter per tree persisted in the tree table").
func (p *MainProvider) BumpTreeUSN(ctx context.Context, treeID int64) (int64, error) {
	p.mut.Lock()
	defer p.mut.Unlock()
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	var usn int64
	if err := tx.GetContext(ctx, &usn, `SELECT last_usn FROM trees WHERE id=?`, treeID); err != nil {
		tx.Rollback()
		return 0, err
	}
	usn++
	if _, err := tx.ExecContext(ctx, `UPDATE trees SET last_usn=? WHERE id=?`, usn, treeID); err != nil {
		tx.Rollback()
		return 0, err
	}
	return usn, tx.Commit()
}

func noRowsIsNotFound(err error) error {
	if err == nil || errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}

func deviceToRow(d model.Device) deviceRow {
	return deviceRow{d.ID, d.UUID, d.Name, int64(d.RoutePort), int64(d.DataPort), int(d.Status), int64(d.Type), d.IsMine, d.Version, d.BackupRoot, d.BackupDstRoot}
}

func deviceFromRow(r deviceRow) model.Device {
	return model.Device{
		ID: r.ID, UUID: r.UUID, Name: r.Name,
		RoutePort: int32(r.RoutePort), DataPort: int32(r.DataPort),
		Status: model.DeviceStatus(r.Status), Type: int32(r.Type), IsMine: r.IsMine,
		Version: r.Version, BackupRoot: r.BackupRoot, BackupDstRoot: r.BackupDstRoot,
	}
}

func syncToRow(s model.Sync) syncRow {
	return syncRow{s.ID, s.UUID, s.Name, s.LastSync, int(s.Type), int(s.Status), s.CreatorDeviceID, int64(s.Perm), int64(s.RestoreSharePerm)}
}

func syncFromRow(r syncRow) model.Sync {
	return model.Sync{
		ID: r.ID, UUID: r.UUID, Name: r.Name, LastSync: r.LastSync,
		Type: model.SyncType(r.Type), Status: model.SyncStatus(r.Status),
		CreatorDeviceID: r.CreatorDeviceID, Perm: model.Perm(r.Perm), RestoreSharePerm: model.Perm(r.RestoreSharePerm),
	}
}

func treeToRow(t model.Tree) treeRow {
	return treeRow{t.ID, t.UUID, t.Root, t.DeviceID, t.SyncID, int(t.Status), t.LastFind, int(t.BackupType), t.IsEnabled, int64(t.RootStatus), t.LastUSN}
}

func treeFromRow(r treeRow) model.Tree {
	return model.Tree{
		ID: r.ID, UUID: r.UUID, Root: r.Root, DeviceID: r.DeviceID, SyncID: r.SyncID,
		Status: model.TreeStatus(r.Status), LastFind: r.LastFind, BackupType: model.BackupType(r.BackupType),
		IsEnabled: r.IsEnabled, RootStatus: int32(r.RootStatus), LastUSN: r.LastUSN,
	}
}
