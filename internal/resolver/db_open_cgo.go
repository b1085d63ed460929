// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

//go:build cgo

package resolver

import (
	"database/sql"

	"github.com/mattn/go-sqlite3"
)

const (
	dbDriver      = "sqlite3_zisync"
	commonOptions = "_fk=true&_rt=true&_journal_mode=WAL&_txlock=immediate"
)

func init() {
	sql.Register("sqlite3_zisync", &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			_, err := conn.Exec(`PRAGMA synchronous = NORMAL`, nil)
			return err
		},
	})
}
