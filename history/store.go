// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package history

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ava-labs/dposledger/chain"
	"github.com/ava-labs/dposledger/consts"
	"github.com/ava-labs/dposledger/pebble"
)

var _ History = (*Store)(nil)

// Store is a [History] persisted in pebble.
//
// Layout:
//
//	0x0 | height | index -> transaction record
//	0x1                  -> latest height
//	0x2 | height         -> height appended before [height]
//	0x3 | height         -> production credited for [height]
type Store struct {
	log     logging.Logger
	db      *pebble.Database
	metrics *metrics

	l       sync.Mutex
	last    uint64
	hasLast bool
}

func New(log logging.Logger, db *pebble.Database, r prometheus.Registerer) (*Store, error) {
	m, err := newMetrics(r)
	if err != nil {
		return nil, err
	}
	s := &Store{log: log, db: db, metrics: m}
	v, err := db.Get(lastHeightKey)
	switch {
	case errors.Is(err, database.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		s.last, s.hasLast = binary.BigEndian.Uint64(v), true
	}
	return s, nil
}

func markerKey(height uint64) []byte {
	k := make([]byte, 1+consts.Uint64Len)
	k[0] = markerPrefix
	binary.BigEndian.PutUint64(k[1:], height)
	return k
}

func encodeHeight(height uint64, ok bool) []byte {
	b := make([]byte, 1+consts.Uint64Len)
	if ok {
		b[0] = 1
	}
	binary.BigEndian.PutUint64(b[1:], height)
	return b
}

func decodeHeight(b []byte) (uint64, bool, error) {
	if len(b) != 1+consts.Uint64Len {
		return 0, false, fmt.Errorf("invalid height marker length %d", len(b))
	}
	return binary.BigEndian.Uint64(b[1:]), b[0] == 1, nil
}

func (s *Store) Append(_ context.Context, height uint64, txs []*chain.Transaction, p *Production) error {
	s.l.Lock()
	defer s.l.Unlock()

	if s.hasLast && height <= s.last {
		return fmt.Errorf("%w: %d after %d", ErrHeightNotIncreasing, height, s.last)
	}
	batch := s.db.NewBatch()
	for i, tx := range txs {
		v, err := marshal(tx)
		if err != nil {
			return fmt.Errorf("%w: encode %s: %w", chain.ErrStructural, tx.ID, err)
		}
		if err := batch.Put(txKey(height, uint32(i)), v); err != nil {
			return err
		}
	}
	if p != nil {
		v, err := marshalProduction(p)
		if err != nil {
			return fmt.Errorf("%w: encode production of %d: %w", chain.ErrStructural, height, err)
		}
		if err := batch.Put(productionKey(height), v); err != nil {
			return err
		}
	}
	if err := batch.Put(markerKey(height), encodeHeight(s.last, s.hasLast)); err != nil {
		return err
	}
	if err := batch.Put(lastHeightKey, binary.BigEndian.AppendUint64(nil, height)); err != nil {
		return err
	}
	if err := batch.Write(); err != nil {
		return err
	}
	s.last, s.hasLast = height, true
	s.metrics.appended.Add(float64(len(txs)))
	s.log.Debug("appended block",
		zap.Uint64("height", height),
		zap.Int("txs", len(txs)),
		zap.Int("bytes", batch.Size()),
	)
	return nil
}

func (s *Store) Truncate(_ context.Context, height uint64) error {
	s.l.Lock()
	defer s.l.Unlock()

	if !s.hasLast || s.last != height {
		return fmt.Errorf("%w: %d", ErrNotLatestBlock, height)
	}
	v, err := s.db.Get(markerKey(height))
	if err != nil {
		return err
	}
	prev, hasPrev, err := decodeHeight(v)
	if err != nil {
		return err
	}

	batch := s.db.NewBatch()
	it := s.db.NewIteratorWithPrefix(blockPrefix(height))
	removed := 0
	for it.Next() {
		if err := batch.Delete(it.Key()); err != nil {
			it.Release()
			return err
		}
		removed++
	}
	err = it.Error()
	it.Release()
	if err != nil {
		return err
	}
	if err := batch.Delete(markerKey(height)); err != nil {
		return err
	}
	if err := batch.Delete(productionKey(height)); err != nil {
		return err
	}
	if hasPrev {
		err = batch.Put(lastHeightKey, binary.BigEndian.AppendUint64(nil, prev))
	} else {
		err = batch.Delete(lastHeightKey)
	}
	if err != nil {
		return err
	}
	if err := batch.Write(); err != nil {
		return err
	}
	s.last, s.hasLast = prev, hasPrev
	s.metrics.truncated.Add(float64(removed))
	return nil
}

func (s *Store) LastHeight() (uint64, bool) {
	s.l.Lock()
	defer s.l.Unlock()

	return s.last, s.hasLast
}

func (s *Store) Productions(context.Context) ([]*Production, error) {
	it := s.db.NewIteratorWithPrefix([]byte{productionPrefix})
	defer it.Release()

	var out []*Production
	for it.Next() {
		p, err := unmarshalProduction(it.Value())
		if err != nil {
			return nil, fmt.Errorf("%w: decode production %x: %w", chain.ErrStructural, it.Key(), err)
		}
		out = append(out, p)
	}
	return out, it.Error()
}

// FetchByCriteria decodes lazily; records not matching [c] are skipped.
func (s *Store) FetchByCriteria(_ context.Context, c chain.Criteria) (chain.TxIterator, error) {
	return &storeIterator{
		it:       s.db.NewIteratorWithPrefix([]byte{txPrefix}),
		criteria: c,
		metrics:  s.metrics,
		start:    time.Now(),
	}, nil
}

type storeIterator struct {
	it       pebble.Iterator
	criteria chain.Criteria
	metrics  *metrics
	start    time.Time

	tx       *chain.Transaction
	err      error
	released bool
}

func (it *storeIterator) Next() bool {
	if it.err != nil {
		return false
	}
	for it.it.Next() {
		tx, err := unmarshal(it.it.Value())
		it.metrics.scanned.Inc()
		if err != nil {
			it.err = fmt.Errorf("%w: decode record %x: %w", chain.ErrStructural, it.it.Key(), err)
			it.tx = nil
			return false
		}
		if it.criteria.Matches(tx) {
			it.tx = tx
			return true
		}
	}
	it.tx = nil
	it.err = it.it.Error()
	return false
}

func (it *storeIterator) Transaction() *chain.Transaction {
	return it.tx
}

func (it *storeIterator) Error() error {
	return it.err
}

func (it *storeIterator) Release() {
	if it.released {
		return
	}
	it.released = true
	it.it.Release()
	it.metrics.fetch.Observe(float64(time.Since(it.start)))
}
