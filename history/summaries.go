// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package history

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/holiman/uint256"
	"golang.org/x/exp/maps"

	"github.com/ava-labs/dposledger/chain"
)

var _ chain.BlockSummarySource = (*Summaries)(nil)

// Summaries aggregates forged blocks per producer and remembers each
// producer's blocks so the latest one can be reverted.
type Summaries struct {
	l      sync.RWMutex
	forged map[string]*chain.ForgedSummary
	blocks map[string][]*chain.LastForgedBlock
}

func NewSummaries() *Summaries {
	return &Summaries{
		forged: map[string]*chain.ForgedSummary{},
		blocks: map[string][]*chain.LastForgedBlock{},
	}
}

// Add folds one produced block, described by [delta], into its producer.
func (s *Summaries) Add(delta *chain.ForgedSummary, b *chain.LastForgedBlock) {
	s.l.Lock()
	defer s.l.Unlock()

	sum, ok := s.forged[delta.Username]
	if !ok {
		sum = &chain.ForgedSummary{Username: delta.Username}
		s.forged[delta.Username] = sum
	}
	sum.TotalFees.Add(&sum.TotalFees, &delta.TotalFees)
	sum.TotalFeesBurned.Add(&sum.TotalFeesBurned, &delta.TotalFeesBurned)
	sum.TotalRewards.Add(&sum.TotalRewards, &delta.TotalRewards)
	sum.Donations.Add(&sum.Donations, &delta.Donations)
	sum.TotalProduced += delta.TotalProduced
	if b != nil {
		c := *b
		s.blocks[delta.Username] = append(s.blocks[delta.Username], &c)
	}
}

// Remove undoes the latest [Add] of [delta.Username] and returns the block
// that is now the producer's latest, or nil.
func (s *Summaries) Remove(delta *chain.ForgedSummary) (*chain.LastForgedBlock, error) {
	s.l.Lock()
	defer s.l.Unlock()

	sum, ok := s.forged[delta.Username]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProducer, delta.Username)
	}
	for _, f := range []struct {
		name      string
		have, sub *uint256.Int
	}{
		{"fees", &sum.TotalFees, &delta.TotalFees},
		{"burned", &sum.TotalFeesBurned, &delta.TotalFeesBurned},
		{"rewards", &sum.TotalRewards, &delta.TotalRewards},
		{"donations", &sum.Donations, &delta.Donations},
	} {
		if f.have.Lt(f.sub) {
			return nil, fmt.Errorf("%w: %s %s", ErrSummaryUnderflow, delta.Username, f.name)
		}
	}
	if sum.TotalProduced < delta.TotalProduced {
		return nil, fmt.Errorf("%w: %s produced", ErrSummaryUnderflow, delta.Username)
	}

	sum.TotalFees.Sub(&sum.TotalFees, &delta.TotalFees)
	sum.TotalFeesBurned.Sub(&sum.TotalFeesBurned, &delta.TotalFeesBurned)
	sum.TotalRewards.Sub(&sum.TotalRewards, &delta.TotalRewards)
	sum.Donations.Sub(&sum.Donations, &delta.Donations)
	sum.TotalProduced -= delta.TotalProduced
	if sum.TotalProduced == 0 {
		delete(s.forged, delta.Username)
	}

	stack := s.blocks[delta.Username]
	if len(stack) > 0 {
		stack = stack[:len(stack)-1]
	}
	if len(stack) == 0 {
		delete(s.blocks, delta.Username)
		return nil, nil
	}
	s.blocks[delta.Username] = stack
	c := *stack[len(stack)-1]
	return &c, nil
}

// DelegatesForgedBlocks returns copies ordered by username.
func (s *Summaries) DelegatesForgedBlocks(context.Context) ([]*chain.ForgedSummary, error) {
	s.l.RLock()
	defer s.l.RUnlock()

	names := maps.Keys(s.forged)
	sort.Strings(names)
	out := make([]*chain.ForgedSummary, 0, len(names))
	for _, name := range names {
		c := *s.forged[name]
		out = append(out, &c)
	}
	return out, nil
}

func (s *Summaries) LastForgedBlocks(context.Context) ([]*chain.LastForgedBlock, error) {
	s.l.RLock()
	defer s.l.RUnlock()

	names := maps.Keys(s.blocks)
	sort.Strings(names)
	out := make([]*chain.LastForgedBlock, 0, len(names))
	for _, name := range names {
		stack := s.blocks[name]
		c := *stack[len(stack)-1]
		out = append(out, &c)
	}
	return out, nil
}
