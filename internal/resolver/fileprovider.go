// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

package resolver

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/zisync/zisync/internal/model"
)

// fileRow is the sqlx scan target for the tree/<uuid> file table; File's
// SHA1/RemoteVClock/UID/GID need driver-friendly representations.
type fileRow struct {
	ID           int64  `db:"id"`
	Path         string `db:"path"`
	Type         int    `db:"type"`
	Status       int    `db:"status"`
	Mtime        int64  `db:"mtime"`
	Length       int64  `db:"length"`
	SHA1         []byte `db:"sha1"`
	USN          int64  `db:"usn"`
	LocalVClock  int64  `db:"local_vclock"`
	RemoteVClock []byte `db:"remote_vclock"`
	UnixAttr     int64  `db:"unix_attr"`
	AndroidAttr  int64  `db:"android_attr"`
	WinAttr      int64  `db:"win_attr"`
	Modifier     int64  `db:"modifier"`
	TimeStamp    int64  `db:"time_stamp"`
	UID          *int64 `db:"uid"`
	GID          *int64 `db:"gid"`
	Alias        string `db:"alias"`
}

const fileTableSchema = `
CREATE TABLE IF NOT EXISTS files (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	path          TEXT NOT NULL UNIQUE,
	type          INTEGER NOT NULL,
	status        INTEGER NOT NULL,
	mtime         INTEGER NOT NULL,
	length        INTEGER NOT NULL,
	sha1          BLOB,
	usn           INTEGER NOT NULL,
	local_vclock  INTEGER NOT NULL,
	remote_vclock BLOB,
	unix_attr     INTEGER NOT NULL DEFAULT 0,
	android_attr  INTEGER NOT NULL DEFAULT 0,
	win_attr      INTEGER NOT NULL DEFAULT 0,
	modifier      INTEGER NOT NULL DEFAULT 0,
	time_stamp    INTEGER NOT NULL DEFAULT 0,
	uid           INTEGER,
	gid           INTEGER,
	alias         TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS files_usn_idx ON files(usn);
`

// FileOpKind is the kind of a FileOp inside an ApplyBatch call.
type FileOpKind int

const (
	FileOpInsert FileOpKind = iota
	FileOpUpdate
	FileOpDelete
)

// FileOp is one operation in a batch applied atomically against a single
// tree authority (spec §4.2: "ApplyBatch is atomic across operations
// against one authority").
type FileOp struct {
	Kind      FileOpKind
	Row       model.File // used by Insert/Update
	Selection Selection  // used by Update/Delete
	Conflict  ConflictPolicy
}

// FileProvider is the Content Resolver's provider for one tree's file
// table (spec §4.2), backed by SQLite via sqlx/mattn-go-sqlite3 (cgo) or
// modernc.org/sqlite (pure Go), selected by build tag exactly as
// internal/db/sqlite does in the teacher repo.
type FileProvider struct {
	authority Authority
	db        *sqlx.DB
	mut       sync.RWMutex // serializes writers; readers proceed in parallel (spec §4.2)
}

func OpenFileProvider(treeUUID, path string) (*FileProvider, error) {
	db, err := sqlx.Open(dbDriver, "file:"+path+"?"+commonOptions)
	if err != nil {
		return nil, fmt.Errorf("open file provider for tree %s: %w", treeUUID, err)
	}
	if _, err := db.Exec(fileTableSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init file table for tree %s: %w", treeUUID, err)
	}
	return &FileProvider{authority: TreeAuthority(treeUUID), db: db}, nil
}

func (p *FileProvider) Authority() Authority { return p.authority }

func (p *FileProvider) Close() error { return p.db.Close() }

// Query returns every row matching sel, ordered by path ascending unless
// orderBy overrides it — the merge-join order the Sync Updater needs
// (spec §4.5).
func (p *FileProvider) Query(ctx context.Context, sel Selection, orderBy string) ([]model.File, error) {
	p.mut.RLock()
	defer p.mut.RUnlock()

	where, args := sel.SQL()
	if orderBy == "" {
		orderBy = "path ASC"
	}
	query := fmt.Sprintf("SELECT * FROM files %s ORDER BY %s", where, orderBy)

	var rows []fileRow
	if err := p.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]model.File, len(rows))
	for i, r := range rows {
		out[i] = fromRow(r)
	}
	return out, nil
}

func (p *FileProvider) Insert(ctx context.Context, f model.File, conflict ConflictPolicy) (int64, error) {
	p.mut.Lock()
	defer p.mut.Unlock()
	return p.insertLocked(ctx, p.db, f, conflict)
}

func (p *FileProvider) insertLocked(ctx context.Context, execer sqlx.ExtContext, f model.File, conflict ConflictPolicy) (int64, error) {
	row := toRow(f)
	or := ""
	switch conflict {
	case ConflictReplace:
		or = "OR REPLACE"
	case ConflictIgnore:
		or = "OR IGNORE"
	}
	res, err := sqlx.NamedExecContext(ctx, execer, fmt.Sprintf(`
		INSERT %s INTO files
			(path, type, status, mtime, length, sha1, usn, local_vclock, remote_vclock,
			 unix_attr, android_attr, win_attr, modifier, time_stamp, uid, gid, alias)
		VALUES
			(:path, :type, :status, :mtime, :length, :sha1, :usn, :local_vclock, :remote_vclock,
			 :unix_attr, :android_attr, :win_attr, :modifier, :time_stamp, :uid, :gid, :alias)
	`, or), row)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (p *FileProvider) Update(ctx context.Context, f model.File, sel Selection) (int64, error) {
	p.mut.Lock()
	defer p.mut.Unlock()
	return p.updateLocked(ctx, p.db, f, sel)
}

func (p *FileProvider) updateLocked(ctx context.Context, execer sqlx.ExtContext, f model.File, sel Selection) (int64, error) {
	row := toRow(f)
	where, args := sel.SQL()
	query := fmt.Sprintf(`
		UPDATE files SET type=?, status=?, mtime=?, length=?, sha1=?, usn=?, local_vclock=?,
			remote_vclock=?, unix_attr=?, android_attr=?, win_attr=?, modifier=?, time_stamp=?,
			uid=?, gid=?, alias=? %s`, where)
	fullArgs := append([]any{row.Type, row.Status, row.Mtime, row.Length, row.SHA1, row.USN,
		row.LocalVClock, row.RemoteVClock, row.UnixAttr, row.AndroidAttr, row.WinAttr,
		row.Modifier, row.TimeStamp, row.UID, row.GID, row.Alias}, args...)
	res, err := execer.ExecContext(ctx, p.db.Rebind(query), fullArgs...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (p *FileProvider) Delete(ctx context.Context, sel Selection) (int64, error) {
	p.mut.Lock()
	defer p.mut.Unlock()
	where, args := sel.SQL()
	res, err := p.db.ExecContext(ctx, p.db.Rebind("DELETE FROM files "+where), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (p *FileProvider) BulkInsert(ctx context.Context, rows []model.File, conflict ConflictPolicy) error {
	p.mut.Lock()
	defer p.mut.Unlock()
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	for _, f := range rows {
		if _, err := p.insertLocked(ctx, tx, f, conflict); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// ApplyBatch runs every op atomically against this tree's file table (spec
// §4.2). A failure rolls the whole batch back; the caller sees the error
// and the DB remains consistent with whatever committed before this call.
func (p *FileProvider) ApplyBatch(ctx context.Context, ops []FileOp) error {
	p.mut.Lock()
	defer p.mut.Unlock()

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	for _, op := range ops {
		switch op.Kind {
		case FileOpInsert:
			if _, err := p.insertLocked(ctx, tx, op.Row, op.Conflict); err != nil {
				tx.Rollback()
				return err
			}
		case FileOpUpdate:
			if _, err := p.updateLocked(ctx, tx, op.Row, op.Selection); err != nil {
				tx.Rollback()
				return err
			}
		case FileOpDelete:
			where, args := op.Selection.SQL()
			if _, err := tx.ExecContext(ctx, p.db.Rebind("DELETE FROM files "+where), args...); err != nil {
				tx.Rollback()
				return err
			}
		}
	}
	return tx.Commit()
}

func toRow(f model.File) fileRow {
	return fileRow{
		ID:           f.ID,
		Path:         f.Path,
		Type:         int(f.Type),
		Status:       int(f.Status),
		Mtime:        f.Mtime,
		Length:       f.Length,
		SHA1:         f.SHA1,
		USN:          f.USN,
		LocalVClock:  int64(f.LocalVClock),
		RemoteVClock: packVClock(f.RemoteVClock),
		UnixAttr:     int64(f.Attrs.Unix),
		AndroidAttr:  int64(f.Attrs.Android),
		WinAttr:      int64(f.Attrs.Win),
		Modifier:     f.Modifier,
		TimeStamp:    f.TimeStamp,
		UID:          f.UID,
		GID:          f.GID,
		Alias:        f.Alias,
	}
}

func fromRow(r fileRow) model.File {
	return model.File{
		ID:          r.ID,
		Path:        r.Path,
		Type:        model.FileType(r.Type),
		Status:      model.FileRowStatus(r.Status),
		Mtime:       r.Mtime,
		Length:      r.Length,
		SHA1:        r.SHA1,
		USN:         r.USN,
		LocalVClock: uint32(r.LocalVClock),
		RemoteVClock: unpackVClock(r.RemoteVClock),
		Attrs: model.PlatformAttrs{
			Unix:    uint32(r.UnixAttr),
			Android: uint32(r.AndroidAttr),
			Win:     uint32(r.WinAttr),
		},
		Modifier:  r.Modifier,
		TimeStamp: r.TimeStamp,
		UID:       r.UID,
		GID:       r.GID,
		Alias:     r.Alias,
	}
}
