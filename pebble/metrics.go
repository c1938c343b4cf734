// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pebble

import (
	"time"

	"github.com/ava-labs/avalanchego/utils/metric"
	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/cockroachdb/pebble"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsInterval = 10 * time.Second

type metrics struct {
	delayStart time.Time
	writeStall metric.Averager
	getLatency metric.Averager

	compactions       *prometheus.CounterVec
	activeCompactions prometheus.Gauge
	tombstones        prometheus.Gauge
	// obsolete and zombie tables and WAL files, by size and count
	garbage *prometheus.GaugeVec
}

func newMetrics() (*prometheus.Registry, *metrics, error) {
	r := prometheus.NewRegistry()
	writeStall, err := metric.NewAverager(
		"", // namespace: empty, name below is already fully qualified
		"pebble_write_stall",
		"time spent waiting for disk write",
		r,
	)
	if err != nil {
		return nil, nil, err
	}
	getLatency, err := metric.NewAverager(
		"", // namespace: empty, name below is already fully qualified
		"pebble_read_latency",
		"time spent waiting for db get",
		r,
	)
	if err != nil {
		return nil, nil, err
	}
	m := &metrics{
		writeStall: writeStall,
		getLatency: getLatency,
		compactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pebble",
			Name:      "compactions",
			Help:      "number of compactions by input level",
		}, []string{"level"}),
		activeCompactions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pebble",
			Name:      "active_compactions",
			Help:      "number of active compactions",
		}),
		tombstones: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pebble",
			Name:      "tombstone_count",
			Help:      "approximate count of internal tombstones",
		}),
		garbage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "pebble",
			Name:      "garbage",
			Help:      "tables and WAL files no longer needed by the db",
		}, []string{"kind", "unit"}),
	}
	errs := wrappers.Errs{}
	errs.Add(
		r.Register(m.compactions),
		r.Register(m.activeCompactions),
		r.Register(m.tombstones),
		r.Register(m.garbage),
	)
	return r, m, errs.Err
}

func (db *Database) onCompactionBegin(info pebble.CompactionInfo) {
	db.metrics.activeCompactions.Inc()
	level := "l1+"
	if len(info.Input) > 0 && info.Input[0].Level == 0 {
		level = "l0"
	}
	db.metrics.compactions.WithLabelValues(level).Inc()
}

func (db *Database) onCompactionEnd(pebble.CompactionInfo) {
	db.metrics.activeCompactions.Dec()
}

func (db *Database) onWriteStallBegin(pebble.WriteStallBeginInfo) {
	db.metrics.delayStart = time.Now()
}

func (db *Database) onWriteStallEnd() {
	db.metrics.writeStall.Observe(float64(time.Since(db.metrics.delayStart)))
}

func (db *Database) collectMetrics() {
	t := time.NewTicker(metricsInterval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			m := db.db.Metrics()
			db.metrics.tombstones.Set(float64(m.Keys.TombstoneCount))
			for _, g := range []struct {
				kind, unit string
				v          float64
			}{
				{"obsolete_table", "bytes", float64(m.Table.ObsoleteSize)},
				{"obsolete_table", "files", float64(m.Table.ObsoleteCount)},
				{"zombie_table", "bytes", float64(m.Table.ZombieSize)},
				{"zombie_table", "files", float64(m.Table.ZombieCount)},
				{"obsolete_wal", "bytes", float64(m.WAL.ObsoletePhysicalSize)},
				{"obsolete_wal", "files", float64(m.WAL.ObsoleteFiles)},
			} {
				db.metrics.garbage.WithLabelValues(g.kind, g.unit).Set(g.v)
			}
		case <-db.closing:
			return
		}
	}
}
