// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ava-labs/avalanchego/utils/set"

	"github.com/ava-labs/dposledger/state"
	"github.com/ava-labs/dposledger/wallet"
)

// Registry resolves handlers by kind and declares the wallet attributes they
// own.
type Registry struct {
	mu sync.RWMutex

	attrs    *wallet.AttributeSet
	handlers []Handler
	byKind   map[Kind]Handler
}

func NewRegistry(handlers ...Handler) (*Registry, error) {
	r := &Registry{
		attrs:  wallet.NewAttributeSet(),
		byKind: map[Kind]Handler{},
	}
	for _, h := range handlers {
		if err := r.Register(h); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byKind[h.Kind()]; ok {
		return fmt.Errorf("%w: %s already handled by %s", ErrDuplicateHandler, h.Kind(), existing.Name())
	}
	if err := r.attrs.Register(h.WalletAttributes()...); err != nil {
		return fmt.Errorf("register %s: %w", h.Name(), err)
	}
	r.byKind[h.Kind()] = h
	r.handlers = append(r.handlers, h)
	return nil
}

func (r *Registry) Get(k Kind) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.byKind[k]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTransactionType, k)
	}
	return h, nil
}

// Handlers returns every handler in registration order.
func (r *Registry) Handlers() []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]Handler(nil), r.handlers...)
}

func (r *Registry) Attributes() *wallet.AttributeSet {
	return r.attrs
}

// Indexers collects the domain indexes of every handler.
func (r *Registry) Indexers() []state.Indexer {
	var indexers []state.Indexer
	for _, h := range r.Handlers() {
		if p, ok := h.(IndexProvider); ok {
			indexers = append(indexers, p.Indexers()...)
		}
	}
	return indexers
}

// BootstrapPlan orders handlers for bootstrap. Every handler appears in a
// later level than all of its dependencies. Within a level, handlers that
// share an attribute namespace are placed in the same group; groups can run
// concurrently while the handlers of one group run in order.
func (r *Registry) BootstrapPlan() ([][][]Handler, error) {
	handlers := r.Handlers()
	position := make(map[Kind]int, len(handlers))
	for i, h := range handlers {
		position[h.Kind()] = i
	}

	indegree := make(map[Kind]int, len(handlers))
	dependents := map[Kind][]Kind{}
	for _, h := range handlers {
		for _, dep := range h.Dependencies() {
			if _, ok := position[dep]; !ok {
				return nil, fmt.Errorf("%w: %s requires %s", ErrMissingDependency, h.Name(), dep)
			}
			indegree[h.Kind()]++
			dependents[dep] = append(dependents[dep], h.Kind())
		}
	}

	var current []Kind
	for _, h := range handlers {
		if indegree[h.Kind()] == 0 {
			current = append(current, h.Kind())
		}
	}

	var (
		levels  [][][]Handler
		visited int
	)
	for len(current) > 0 {
		level := make([]Handler, len(current))
		for i, k := range current {
			level[i] = handlers[position[k]]
		}
		levels = append(levels, groupByNamespace(level))
		visited += len(current)

		var next []Kind
		for _, k := range current {
			for _, d := range dependents[k] {
				indegree[d]--
				if indegree[d] == 0 {
					next = append(next, d)
				}
			}
		}
		sort.Slice(next, func(i, j int) bool {
			return position[next[i]] < position[next[j]]
		})
		current = next
	}

	if visited != len(handlers) {
		var stuck []string
		for _, h := range handlers {
			if indegree[h.Kind()] > 0 {
				stuck = append(stuck, h.Name())
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrDependencyCycle, strings.Join(stuck, ", "))
	}
	return levels, nil
}

// groupByNamespace partitions [level] so that handlers writing the same
// attribute namespace end up together. Groups and their members keep the
// order of [level].
func groupByNamespace(level []Handler) [][]Handler {
	parent := make([]int, len(level))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	owner := map[string]int{}
	for i, h := range level {
		namespaces := set.Set[string]{}
		for _, path := range h.WalletAttributes() {
			namespaces.Add(wallet.Namespace(path))
		}
		for ns := range namespaces {
			j, ok := owner[ns]
			if !ok {
				owner[ns] = i
				continue
			}
			a, b := find(i), find(j)
			if a == b {
				continue
			}
			// The root is always the earliest member.
			if a < b {
				parent[b] = a
			} else {
				parent[a] = b
			}
		}
	}

	var (
		groups [][]Handler
		slot   = map[int]int{}
	)
	for i, h := range level {
		root := find(i)
		g, ok := slot[root]
		if !ok {
			g = len(groups)
			slot[root] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], h)
	}
	return groups
}
