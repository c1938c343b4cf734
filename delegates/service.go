// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package delegates serves the block producer projection of the wallet
// repository.
package delegates

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ava-labs/avalanchego/trace"
	"github.com/holiman/uint256"
	"golang.org/x/sync/singleflight"

	"github.com/ava-labs/dposledger/state"
	"github.com/ava-labs/dposledger/wallet"
)

var ErrSupplyOverflow = errors.New("supply overflows 256 bits")

const supplyKey = "supply"

// Repository is the read surface the projection needs.
type Repository interface {
	HasByAddress(address string) bool
	FindByAddress(address string) *wallet.Wallet
	AllByAddress() state.Iterator
	AllByUsername() state.Iterator
}

type Service struct {
	tracer trace.Tracer
	repo   Repository

	// concurrent readers share one enumeration
	supply singleflight.Group
}

func New(tracer trace.Tracer, repo Repository) *Service {
	return &Service{tracer: tracer, repo: repo}
}

// Supply sums every wallet balance. It is recomputed on each call.
func (s *Service) Supply(ctx context.Context) (*uint256.Int, error) {
	_, span := s.tracer.Start(ctx, "Delegates.Supply")
	defer span.End()

	v, err, _ := s.supply.Do(supplyKey, func() (interface{}, error) {
		total := new(uint256.Int)
		it := s.repo.AllByAddress()
		defer it.Release()
		for it.Next() {
			if _, overflow := total.AddOverflow(total, it.Wallet().Balance()); overflow {
				return nil, ErrSupplyOverflow
			}
		}
		return total, nil
	})
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Set(v.(*uint256.Int)), nil
}

// Get returns the delegate at [address], if the wallet is one.
func (s *Service) Get(ctx context.Context, address string) (*Resource, bool, error) {
	ctx, span := s.tracer.Start(ctx, "Delegates.Get")
	defer span.End()

	if !s.repo.HasByAddress(address) {
		return nil, false, nil
	}
	w := s.repo.FindByAddress(address)
	d, ok := wallet.DelegateKey.Get(w)
	if !ok {
		return nil, false, nil
	}
	supply, err := s.Supply(ctx)
	if err != nil {
		return nil, false, err
	}
	return newResource(w, d, supply), true, nil
}

// Criteria selects delegates. A page includes a delegate only if every
// criteria matches.
type Criteria func(*Resource) bool

func UsernameContains(sub string) Criteria {
	sub = strings.ToLower(sub)
	return func(r *Resource) bool {
		return strings.Contains(strings.ToLower(r.Username), sub)
	}
}

func Resigned(resigned bool) Criteria {
	return func(r *Resource) bool {
		return r.IsResigned == resigned
	}
}

// Active keeps ranked delegates within the first [n] ranks.
func Active(n uint32) Criteria {
	return func(r *Resource) bool {
		return r.Rank > 0 && r.Rank <= n
	}
}

type Pagination struct {
	Offset int
	Limit  int
}

type Page struct {
	Results    []*Resource
	TotalCount int
}

// Search returns the delegates matching [criteria], ordered by rank then
// username. Unranked delegates come last.
func (s *Service) Search(ctx context.Context, p Pagination, criteria ...Criteria) (*Page, error) {
	ctx, span := s.tracer.Start(ctx, "Delegates.Search")
	defer span.End()

	if p.Offset < 0 || p.Limit < 0 {
		return nil, fmt.Errorf("invalid pagination offset=%d limit=%d", p.Offset, p.Limit)
	}
	supply, err := s.Supply(ctx)
	if err != nil {
		return nil, err
	}

	var matches []*Resource
	it := s.repo.AllByUsername()
	defer it.Release()
	for it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w := it.Wallet()
		d, ok := wallet.DelegateKey.Get(w)
		if !ok {
			continue
		}
		r := newResource(w, d, supply)
		if matchesAll(r, criteria) {
			matches = append(matches, r)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Rank != b.Rank {
			switch {
			case a.Rank == 0:
				return false
			case b.Rank == 0:
				return true
			default:
				return a.Rank < b.Rank
			}
		}
		return a.Username < b.Username
	})

	page := &Page{TotalCount: len(matches)}
	if p.Offset >= len(matches) {
		return page, nil
	}
	end := len(matches)
	if p.Limit > 0 && p.Offset+p.Limit < end {
		end = p.Offset + p.Limit
	}
	page.Results = matches[p.Offset:end]
	return page, nil
}

func matchesAll(r *Resource, criteria []Criteria) bool {
	for _, c := range criteria {
		if !c(r) {
			return false
		}
	}
	return true
}
