// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package history

import (
	"github.com/ava-labs/avalanchego/utils/metric"
	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	appended  prometheus.Counter
	truncated prometheus.Counter
	scanned   prometheus.Counter
	fetch     metric.Averager
}

func newMetrics(r prometheus.Registerer) (*metrics, error) {
	fetch, err := metric.NewAverager(
		"", // namespace: empty, name below is already fully qualified
		"history_fetch",
		"time spent iterating a history query",
		r,
	)
	if err != nil {
		return nil, err
	}
	m := &metrics{
		fetch: fetch,
		appended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "history",
			Name:      "appended_txs",
			Help:      "number of transactions appended",
		}),
		truncated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "history",
			Name:      "truncated_txs",
			Help:      "number of transactions removed by block reverts",
		}),
		scanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "history",
			Name:      "scanned_txs",
			Help:      "number of records decoded by queries",
		}),
	}
	errs := wrappers.Errs{}
	errs.Add(
		r.Register(m.appended),
		r.Register(m.truncated),
		r.Register(m.scanned),
	)
	return m, errs.Err
}
