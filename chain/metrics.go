// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"github.com/ava-labs/avalanchego/utils/metric"
	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/prometheus/client_golang/prometheus"
)

type dispatcherMetrics struct {
	txsApplied   prometheus.Counter
	txsReverted  prometheus.Counter
	txsRejected  prometheus.Counter
	poolRejected prometheus.Counter
	txsReplayed  prometheus.Counter

	applyBlock metric.Averager
	bootstrap  metric.Averager
}

func newMetrics(r prometheus.Registerer) (*dispatcherMetrics, error) {
	applyBlock, err := metric.NewAverager(
		"", // namespace: empty, name below is already fully qualified
		"chain_apply_block",
		"time spent applying a block of transactions",
		r,
	)
	if err != nil {
		return nil, err
	}
	bootstrap, err := metric.NewAverager(
		"", // namespace: empty, name below is already fully qualified
		"chain_bootstrap",
		"time spent rebuilding the ledger from history",
		r,
	)
	if err != nil {
		return nil, err
	}

	m := &dispatcherMetrics{
		txsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chain",
			Name:      "txs_applied",
			Help:      "number of txs applied to the ledger",
		}),
		txsReverted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chain",
			Name:      "txs_reverted",
			Help:      "number of txs reverted from the ledger",
		}),
		txsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chain",
			Name:      "txs_rejected",
			Help:      "number of txs that failed validation",
		}),
		poolRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chain",
			Name:      "pool_rejected",
			Help:      "number of txs refused pool admission",
		}),
		txsReplayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chain",
			Name:      "txs_replayed",
			Help:      "number of confirmed txs replayed during bootstrap",
		}),
		applyBlock: applyBlock,
		bootstrap:  bootstrap,
	}

	errs := wrappers.Errs{}
	errs.Add(
		r.Register(m.txsApplied),
		r.Register(m.txsReverted),
		r.Register(m.txsRejected),
		r.Register(m.poolRejected),
		r.Register(m.txsReplayed),
	)
	return m, errs.Err
}
