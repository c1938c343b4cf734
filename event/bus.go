// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ava-labs/avalanchego/utils/logging"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/ava-labs/dposledger/chain"
)

var _ chain.Emitter = (*Bus)(nil)

type Config struct {
	// Backlog is the number of undelivered events kept before new ones are
	// dropped.
	Backlog int `yaml:"backlog"`
	// Timeout bounds a single delivery. Zero means no bound.
	Timeout time.Duration `yaml:"timeout"`
}

func NewDefaultConfig() Config {
	return Config{
		Backlog: 4_096,
		Timeout: 5 * time.Second,
	}
}

// Bus queues events and delivers them in order on its own goroutine.
// Dispatch never blocks.
type Bus struct {
	log     logging.Logger
	timeout time.Duration
	subs    []Subscription

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	done   chan struct{}

	dispatched atomic.Uint64
	delivered  atomic.Uint64
	dropped    atomic.Uint64
	failed     atomic.Uint64
}

func NewBus(log logging.Logger, cfg Config, subs ...Subscription) *Bus {
	b := &Bus{
		log:     log,
		timeout: cfg.Timeout,
		subs:    subs,
		queue:   make(chan Event, cfg.Backlog),
		done:    make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Bus) Dispatch(name string, payload chain.EventPayload) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.dropped.Inc()
		return
	}
	select {
	case b.queue <- Event{Name: name, Payload: payload}:
		b.dispatched.Inc()
	default:
		b.dropped.Inc()
		b.log.Warn("event backlog full, dropping event",
			zap.String("event", name),
		)
	}
}

func (b *Bus) run() {
	defer close(b.done)

	for e := range b.queue {
		for _, sub := range b.subs {
			if err := b.deliver(sub, e); err != nil {
				b.failed.Inc()
				b.log.Warn("event observer failed",
					zap.String("event", e.Name),
					zap.Error(err),
				)
				continue
			}
			b.delivered.Inc()
		}
	}
}

func (b *Bus) deliver(sub Subscription, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("observer panic: %v", r)
		}
	}()

	ctx := context.Background()
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	return sub.Accept(ctx, e)
}

// Close delivers the queued events and closes every subscription.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()

	<-b.done
	errs := make([]error, 0, len(b.subs))
	for _, sub := range b.subs {
		errs = append(errs, sub.Close())
	}
	return errors.Join(errs...)
}

type Stats struct {
	Dispatched uint64
	Delivered  uint64
	Dropped    uint64
	Failed     uint64
}

func (b *Bus) Stats() Stats {
	return Stats{
		Dispatched: b.dispatched.Load(),
		Delivered:  b.delivered.Load(),
		Dropped:    b.dropped.Load(),
		Failed:     b.failed.Load(),
	}
}
