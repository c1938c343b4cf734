// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mempool

import (
	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	size     prometheus.Gauge
	admitted prometheus.Counter
	rejected prometheus.Counter
}

func newMetrics(r prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mempool",
			Name:      "size",
			Help:      "number of pending transactions",
		}),
		admitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mempool",
			Name:      "admitted",
			Help:      "number of transactions admitted",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mempool",
			Name:      "rejected",
			Help:      "number of transactions refused",
		}),
	}
	errs := wrappers.Errs{}
	errs.Add(
		r.Register(m.size),
		r.Register(m.admitted),
		r.Register(m.rejected),
	)
	return m, errs.Err
}
