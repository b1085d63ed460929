// Copyright (C) 2026 The zisync Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

// Package metrics holds the process-wide Prometheus collectors shared by
// the scheduler, scanner, and tombstone GC. Grounded on the teacher's
// internal/db/metrics.go: package-level promauto vectors under one
// namespace, wrapped by whatever component wants to account a call.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zisync",
		Subsystem: "scheduler",
		Name:      "jobs_dispatched_total",
		Help:      "Total number of jobs dispatched per queue kind.",
	}, []string{"kind"})

	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "zisync",
		Subsystem: "scheduler",
		Name:      "job_duration_seconds",
		Help:      "Time spent running a dispatched job, per queue kind.",
	}, []string{"kind"})

	ScanBatchesApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zisync",
		Subsystem: "scanner",
		Name:      "batches_applied_total",
		Help:      "Total number of ApplyBatch calls issued by the tree scanner.",
	}, []string{"tree"})

	ScanRowsChanged = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zisync",
		Subsystem: "scanner",
		Name:      "rows_changed_total",
		Help:      "Total inserted/updated/tombstoned rows written by the tree scanner, per disposition.",
	}, []string{"tree", "disposition"})

	TombstonesReclaimed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zisync",
		Subsystem: "synclist",
		Name:      "tombstones_reclaimed_total",
		Help:      "Total tombstone rows deleted by the GC service, per tree.",
	}, []string{"tree"})

	ConflictsDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "zisync",
		Subsystem: "syncupdater",
		Name:      "conflicts_detected_total",
		Help:      "Total conflicts detected by the sync updater merge-join, per tree pair.",
	}, []string{"local_tree", "remote_tree"})
)

// Account records a job's dispatch and returns a func to call when the job
// finishes, recording its duration. Mirrors the teacher's metricsDB.account
// start/stop-closure shape.
func Account(kind string) func() {
	JobsDispatched.WithLabelValues(kind).Inc()
	t0 := time.Now()
	return func() {
		JobDuration.WithLabelValues(kind).Observe(time.Since(t0).Seconds())
	}
}
