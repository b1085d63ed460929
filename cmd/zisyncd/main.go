// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

// Command zisyncd is the daemon and CLI entry point: `startup` runs the
// scheduler and tombstone GC under a suture supervisor and serves
// Prometheus metrics; `sync` dispatches one Sync Updater + Runner pass
// through that same scheduler for a tree pair; the remaining subcommands
// manage the devices/syncs/trees rows a running daemon operates on.
// Grounded on the CLI-surface shape of the teacher's cmd/syncthing/cli
// (urfave/cli v1 Command/Flag/Action, a top-level App with Metadata
// carrying shared state) and cmd/syncthing/discosrv/discosrv.go's
// suture.New("main", suture.Spec{...}) root-of-the-service-tree pattern.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/thejerf/suture/v4"
	"github.com/urfave/cli"
	"github.com/zisync/zisync/internal/logger"
	"github.com/zisync/zisync/internal/model"
	"github.com/zisync/zisync/internal/protocol"
	"github.com/zisync/zisync/internal/resolver"
	"github.com/zisync/zisync/internal/scanner"
	"github.com/zisync/zisync/internal/scheduler"
	"github.com/zisync/zisync/internal/synclist"
	"github.com/zisync/zisync/internal/synctask"
	"github.com/zisync/zisync/internal/syncupdater"
	"github.com/zisync/zisync/internal/transport"
	"go.uber.org/automaxprocs/maxprocs"
)

var l = logger.DefaultLogger

func main() {
	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) { l.Debugf(format, args...) })); err != nil {
		l.Warnf("automaxprocs: %v", err)
	}

	app := cli.NewApp()
	app.Name = "zisyncd"
	app.Usage = "zisync peer-to-peer file sync daemon"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "home",
			Value: defaultHome(),
			Usage: "directory holding the main database and per-tree databases",
		},
	}
	app.Commands = []cli.Command{
		startupCommand,
		createSyncCommand,
		createTreeCommand,
		listSyncsCommand,
		refreshCommand,
		syncCommand,
		statusCommand,
	}

	if err := app.Run(os.Args); err != nil {
		l.Fatalf("zisyncd: %v", err)
	}
}

func defaultHome() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".zisync"
	}
	return filepath.Join(dir, "zisync")
}

func newUUID() string { return uuid.NewString() }

func parseInt64(s string) (int64, error) {
	var n int64
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}

func mainDBPath(c *cli.Context) string {
	return filepath.Join(c.GlobalString("home"), "zisync.db")
}

func treeDBPath(c *cli.Context, treeUUID string) string {
	return filepath.Join(c.GlobalString("home"), "trees", treeUUID+".db")
}

func openMain(c *cli.Context) (*resolver.MainProvider, error) {
	if err := os.MkdirAll(c.GlobalString("home"), 0o700); err != nil {
		return nil, err
	}
	return resolver.OpenMainProvider(mainDBPath(c))
}

var startupCommand = cli.Command{
	Name:  "startup",
	Usage: "run the scheduler and tombstone GC until interrupted",
	Flags: []cli.Flag{
		cli.IntFlag{Name: "metrics-port", Value: 8222, Usage: "port to serve /metrics on, 0 disables it"},
		cli.DurationFlag{Name: "gc-interval", Value: time.Hour, Usage: "tombstone GC sweep interval"},
	},
	Action: func(c *cli.Context) error {
		mp, err := openMain(c)
		if err != nil {
			return err
		}
		defer mp.Close()

		sched := scheduler.New(scheduler.Config{RefreshWorkers: 2, SyncWorkers: 4, OuterWorkers: 2, InnerWorkers: 4})
		gc := &synclist.GCService{
			Interval: c.Duration("gc-interval"),
			Trees:    func() map[int64]*resolver.FileProvider { return nil },
			// TODO: wire to sync-state bookkeeping once a peer-ack tracker exists;
			// until then every tree reports "no acked usn" and GC is a no-op.
			MinAcked: func(int64) (int64, error) { return 0, fmt.Errorf("no peer-ack tracker wired yet") },
		}

		root := suture.New("main", suture.Spec{PassThroughPanics: true})
		root.Add(sched)
		root.Add(gc)

		if port := c.Int("metrics-port"); port != 0 {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					l.Warnf("metrics server: %v", err)
				}
			}()
		}

		return root.Serve(context.Background())
	},
}

var createSyncCommand = cli.Command{
	Name:      "create-sync",
	Usage:     "register a new sync",
	ArgsUsage: "<name>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return cli.NewExitError("expected exactly one argument: <name>", 1)
		}
		mp, err := openMain(c)
		if err != nil {
			return err
		}
		defer mp.Close()

		id, err := mp.InsertSync(context.Background(), model.Sync{
			UUID: newUUID(), Name: c.Args().Get(0), Type: model.SyncNormal, Perm: model.PermRW,
		})
		if err != nil {
			return err
		}
		fmt.Printf("created sync %d\n", id)
		return nil
	},
}

var createTreeCommand = cli.Command{
	Name:      "create-tree",
	Usage:     "register a local tree under an existing sync",
	ArgsUsage: "<sync-id> <root-path>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return cli.NewExitError("expected two arguments: <sync-id> <root-path>", 1)
		}
		mp, err := openMain(c)
		if err != nil {
			return err
		}
		defer mp.Close()

		syncID, err := parseInt64(c.Args().Get(0))
		if err != nil {
			return cli.NewExitError(fmt.Sprintf("bad sync id: %v", err), 1)
		}
		root, err := filepath.Abs(c.Args().Get(1))
		if err != nil {
			return err
		}
		id, err := mp.InsertTree(context.Background(), model.Tree{
			UUID: newUUID(), Root: root, SyncID: syncID, Status: model.TreeStatusNormal, IsEnabled: true,
		})
		if err != nil {
			return err
		}
		fmt.Printf("created tree %d\n", id)
		return nil
	},
}

var listSyncsCommand = cli.Command{
	Name:  "list-syncs",
	Usage: "list every registered sync",
	Action: func(c *cli.Context) error {
		mp, err := openMain(c)
		if err != nil {
			return err
		}
		defer mp.Close()

		ids, err := mp.ListSyncIDs(context.Background())
		if err != nil {
			return err
		}
		for _, id := range ids {
			s, ok, err := mp.GetSyncByID(context.Background(), id)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			fmt.Printf("%d\t%s\t%s\n", s.ID, s.UUID, s.Name)
		}
		return nil
	},
}

var refreshCommand = cli.Command{
	Name:      "refresh",
	Usage:     "scan a tree's root and reconcile it against the stored file table",
	ArgsUsage: "<tree-id>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return cli.NewExitError("expected exactly one argument: <tree-id>", 1)
		}
		mp, err := openMain(c)
		if err != nil {
			return err
		}
		defer mp.Close()

		treeID, err := parseInt64(c.Args().Get(0))
		if err != nil {
			return cli.NewExitError(fmt.Sprintf("bad tree id: %v", err), 1)
		}
		tree, ok, err := mp.GetTreeByID(context.Background(), treeID)
		if err != nil {
			return err
		}
		if !ok {
			return cli.NewExitError(fmt.Sprintf("no such tree: %d", treeID), 1)
		}

		provider, err := resolver.OpenFileProvider(tree.UUID, treeDBPath(c, tree.UUID))
		if err != nil {
			return err
		}
		defer provider.Close()

		w := &scanner.Walker{TreeID: tree.ID, Root: tree.Root, Provider: provider, Main: mp, BackupType: tree.BackupType}
		res, err := w.Scan(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("refreshed tree %d: %d inserted, %d updated, %d tombstoned\n", treeID, res.Inserted, res.Updated, res.Tombstoned)
		return nil
	},
}

// deviceProtocolID resolves a tree's device_id column to the protocol.DeviceID
// the classifier and transport collaborator compare against: the reserved
// local tree (device_id == 0) is protocol.LocalDeviceID, anything else is
// looked up and derived from that device's uuid.
func deviceProtocolID(ctx context.Context, mp *resolver.MainProvider, deviceID int64) (protocol.DeviceID, error) {
	if deviceID == 0 {
		return protocol.LocalDeviceID, nil
	}
	d, ok, err := mp.GetDeviceByID(ctx, deviceID)
	if err != nil {
		return protocol.DeviceID{}, err
	}
	if !ok {
		return protocol.DeviceID{}, fmt.Errorf("no such device: %d", deviceID)
	}
	return protocol.DeviceIDFromUUID(d.UUID), nil
}

// syncCommand composes one Sync Updater pass and its Runner into a single
// job dispatched through the scheduler (spec §4.5/§4.7/§4.9), the path the
// worker pools started by `startup` exist to carry out. It uses
// transport.LocalContent, since both trees named on the command line must be
// registered on this same daemon to be synced this way — the real wire
// transport between two independent daemons is out of scope (spec §6).
var syncCommand = cli.Command{
	Name:      "sync",
	Usage:     "run one sync pass between two trees registered on this daemon",
	ArgsUsage: "<local-tree-id> <remote-tree-id>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return cli.NewExitError("expected two arguments: <local-tree-id> <remote-tree-id>", 1)
		}
		mp, err := openMain(c)
		if err != nil {
			return err
		}
		defer mp.Close()

		ctx := context.Background()

		localTreeID, err := parseInt64(c.Args().Get(0))
		if err != nil {
			return cli.NewExitError(fmt.Sprintf("bad local tree id: %v", err), 1)
		}
		remoteTreeID, err := parseInt64(c.Args().Get(1))
		if err != nil {
			return cli.NewExitError(fmt.Sprintf("bad remote tree id: %v", err), 1)
		}

		localTree, ok, err := mp.GetTreeByID(ctx, localTreeID)
		if err != nil {
			return err
		}
		if !ok {
			return cli.NewExitError(fmt.Sprintf("no such tree: %d", localTreeID), 1)
		}
		remoteTree, ok, err := mp.GetTreeByID(ctx, remoteTreeID)
		if err != nil {
			return err
		}
		if !ok {
			return cli.NewExitError(fmt.Sprintf("no such tree: %d", remoteTreeID), 1)
		}

		localDeviceID, err := deviceProtocolID(ctx, mp, localTree.DeviceID)
		if err != nil {
			return err
		}
		remoteDeviceID, err := deviceProtocolID(ctx, mp, remoteTree.DeviceID)
		if err != nil {
			return err
		}

		localProvider, err := resolver.OpenFileProvider(localTree.UUID, treeDBPath(c, localTree.UUID))
		if err != nil {
			return err
		}
		defer localProvider.Close()
		remoteProvider, err := resolver.OpenFileProvider(remoteTree.UUID, treeDBPath(c, remoteTree.UUID))
		if err != nil {
			return err
		}
		defer remoteProvider.Close()

		content := transport.LocalContent{Root: func(treeUUID string) (string, bool) {
			switch treeUUID {
			case localTree.UUID:
				return localTree.Root, true
			case remoteTree.UUID:
				return remoteTree.Root, true
			default:
				return "", false
			}
		}}

		sched := scheduler.New(scheduler.Config{SyncWorkers: 1})
		schedCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go sched.Serve(schedCtx)

		done := make(chan error, 1)
		sched.RequestSync(localTree.ID, remoteTree.ID, true, func(ctx context.Context) error {
			pair := syncupdater.TreePair{
				LocalTreeUUID: localTree.UUID, RemoteTreeUUID: remoteTree.UUID,
				LocalDeviceID: localDeviceID, RemoteDeviceID: remoteDeviceID,
				LocalBackupType: localTree.BackupType, RemoteBackupType: remoteTree.BackupType,
			}
			result, err := syncupdater.Update(ctx, localProvider, remoteProvider, pair)
			if err != nil {
				done <- err
				return err
			}

			r := synctask.NewRunner(localProvider, remoteProvider, localTree.Root, localTree.UUID, remoteTree.UUID, remoteDeviceID, content, nil)
			r.Prepare(result)
			err = r.Run(ctx)
			done <- err
			return err
		})

		if err := <-done; err != nil {
			return err
		}
		fmt.Printf("sync complete: tree %d <-> tree %d\n", localTreeID, remoteTreeID)
		return nil
	},
}

var statusCommand = cli.Command{
	Name:  "status",
	Usage: "print the uuid of every tree in each registered sync (no tree id, root, or USN)",
	Action: func(c *cli.Context) error {
		mp, err := openMain(c)
		if err != nil {
			return err
		}
		defer mp.Close()

		ids, err := mp.ListSyncIDs(context.Background())
		if err != nil {
			return err
		}
		for _, syncID := range ids {
			uuids, err := mp.TreeUUIDsForSync(context.Background(), syncID)
			if err != nil {
				return err
			}
			for _, uid := range uuids {
				fmt.Printf("sync %d: tree %s\n", syncID, uid)
			}
		}
		return nil
	},
}
