// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"fmt"
	"sync"

	"github.com/ava-labs/avalanchego/utils/maybe"

	"github.com/ava-labs/dposledger/wallet"
)

const initialWallets = 1_024

// store is the read side a [View] layers its changes on top of, plus the
// hook that accepts those changes on commit.
type store interface {
	lookup(address string) (*wallet.Wallet, bool)
	lookupIndex(index string, key string) (string, bool)
	indexedKeys(index string, address string) []string
	snapshot(index string) (map[string]string, error)
	sequence(name string) uint64
	size() int
	addressAt(i int) string

	attributes() *wallet.AttributeSet
	indexers() []Indexer
	deriveAddress(publicKey string) (string, error)

	commit(c *changeSet) error
}

type index struct {
	forward map[string]string   // key -> address
	reverse map[string][]string // address -> keys
}

// Canonical is the authoritative wallet store. Wallets live in an arena in
// creation order; secondary indexes map keys to addresses.
type Canonical struct {
	mu sync.RWMutex

	attrs       *wallet.AttributeSet
	addressFunc AddressFunc
	indexes     []Indexer

	wallets   []*wallet.Wallet
	byAddress map[string]int
	lookups   map[string]*index
	sequences map[string]uint64
}

// New returns an empty repository. The public key and username indexes are
// always present; [indexers] adds domain indexes.
func New(attrs *wallet.AttributeSet, addressFunc AddressFunc, indexers ...Indexer) (*Canonical, error) {
	c := &Canonical{
		attrs:       attrs,
		addressFunc: addressFunc,
		wallets:     make([]*wallet.Wallet, 0, initialWallets),
		byAddress:   make(map[string]int, initialWallets),
		lookups:     map[string]*index{},
		sequences:   map[string]uint64{},
	}
	for _, ix := range append(coreIndexers(), indexers...) {
		if _, ok := c.lookups[ix.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateIndex, ix.Name)
		}
		c.indexes = append(c.indexes, ix)
		c.lookups[ix.Name] = &index{
			forward: map[string]string{},
			reverse: map[string][]string{},
		}
	}
	return c, nil
}

func (c *Canonical) FindByAddress(address string) *wallet.Wallet {
	c.mu.RLock()
	i, ok := c.byAddress[address]
	if ok {
		w := c.wallets[i]
		c.mu.RUnlock()
		return w
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.getOrCreate(address)
}

func (c *Canonical) getOrCreate(address string) *wallet.Wallet {
	if i, ok := c.byAddress[address]; ok {
		return c.wallets[i]
	}
	w := wallet.New(address, c.attrs)
	c.byAddress[address] = len(c.wallets)
	c.wallets = append(c.wallets, w)
	return w
}

func (c *Canonical) FindByPublicKey(key string, slot wallet.Slot) (*wallet.Wallet, error) {
	if w, err := c.FindByIndex(PublicKeysIndex, PublicKeyEntry(slot, key)); err == nil {
		return w, nil
	}
	if slot != wallet.Primary {
		return nil, fmt.Errorf("%w: %s key %s", ErrWalletNotFound, slot, key)
	}
	address, err := c.deriveAddress(key)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	w := c.getOrCreate(address)
	if held, ok := w.PublicKey(wallet.Primary); ok && held != key {
		return nil, fmt.Errorf("%w: %s holds another primary key", ErrWalletNotFound, address)
	}
	w.RevealPrimaryKey(key, 0)
	if err := c.reindex(w); err != nil {
		return nil, err
	}
	return w, nil
}

func (c *Canonical) FindByUsername(username string) (*wallet.Wallet, error) {
	return c.FindByIndex(UsernamesIndex, username)
}

func (c *Canonical) FindByIndex(name string, key string) (*wallet.Wallet, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ix, ok := c.lookups[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIndex, name)
	}
	address, ok := ix.forward[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s=%s", ErrWalletNotFound, name, key)
	}
	return c.wallets[c.byAddress[address]], nil
}

func (c *Canonical) HasByAddress(address string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.byAddress[address]
	return ok
}

func (c *Canonical) HasByPublicKey(key string, slot wallet.Slot) bool {
	return c.HasByIndex(PublicKeysIndex, PublicKeyEntry(slot, key))
}

func (c *Canonical) HasByUsername(username string) bool {
	return c.HasByIndex(UsernamesIndex, username)
}

func (c *Canonical) HasByIndex(name string, key string) bool {
	_, ok := c.lookupIndex(name, key)
	return ok
}

func (c *Canonical) Index(w *wallet.Wallet) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byAddress[w.Address()]; !ok {
		c.byAddress[w.Address()] = len(c.wallets)
		c.wallets = append(c.wallets, w)
	}
	return c.reindex(w)
}

func (c *Canonical) Reindex(w *wallet.Wallet) error {
	return c.Index(w)
}

// reindex assumes the write lock is held. Conflicts are detected before any
// entry is touched.
func (c *Canonical) reindex(w *wallet.Wallet) error {
	address := w.Address()
	next := make([][]string, len(c.indexes))
	for i, ix := range c.indexes {
		keys := normalize(ix.Keys(w))
		lookup := c.lookups[ix.Name]
		for _, k := range keys {
			if holder, ok := lookup.forward[k]; ok && holder != address {
				return fmt.Errorf("%w: %s=%s held by %s", ErrIndexConflict, ix.Name, k, holder)
			}
		}
		next[i] = keys
	}
	for i, ix := range c.indexes {
		lookup := c.lookups[ix.Name]
		for _, k := range removedKeys(lookup.reverse[address], next[i]) {
			delete(lookup.forward, k)
		}
		for _, k := range next[i] {
			lookup.forward[k] = address
		}
		if next[i] == nil {
			delete(lookup.reverse, address)
		} else {
			lookup.reverse[address] = next[i]
		}
	}
	return nil
}

func (c *Canonical) ForgetByIndex(name string, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	lookup, ok := c.lookups[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownIndex, name)
	}
	address, ok := lookup.forward[key]
	if !ok {
		return nil
	}
	delete(lookup.forward, key)
	keys := removedKeys(lookup.reverse[address], []string{key})
	if len(keys) == 0 {
		delete(lookup.reverse, address)
	} else {
		lookup.reverse[address] = keys
	}
	return nil
}

func (c *Canonical) GetIndex(name string) (*IndexSnapshot, error) {
	entries, err := c.snapshot(name)
	if err != nil {
		return nil, err
	}
	return &IndexSnapshot{name: name, entries: entries}, nil
}

func (c *Canonical) AllByAddress() Iterator {
	return newIterator(c.size(), func(i int) (*wallet.Wallet, bool) {
		return c.walletAt(i), true
	})
}

// AllByUsername yields, in creation order, the wallets that claim a
// username.
func (c *Canonical) AllByUsername() Iterator {
	return newIterator(c.size(), func(i int) (*wallet.Wallet, bool) {
		w := c.walletAt(i)
		return w, len(c.indexedKeys(UsernamesIndex, w.Address())) > 0
	})
}

func (c *Canonical) NextSequence(name string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sequences[name]++
	return c.sequences[name]
}

func (c *Canonical) RevertSequence(name string, value uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if current := c.sequences[name]; current != value || value == 0 {
		return fmt.Errorf("%w: %s is at %d, reverting %d", ErrSequenceMismatch, name, current, value)
	}
	c.sequences[name]--
	return nil
}

func (c *Canonical) Sequence(name string) uint64 {
	return c.sequence(name)
}

func (c *Canonical) Attributes() *wallet.AttributeSet {
	return c.attrs
}

// Clone returns a copy-on-write view over [c]. Nothing done through the view
// is visible in [c] until the view is committed.
func (c *Canonical) Clone() *View {
	return newView(c)
}

// Len returns the number of wallets.
func (c *Canonical) Len() int {
	return c.size()
}

func (c *Canonical) lookup(address string) (*wallet.Wallet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.byAddress[address]
	if !ok {
		return nil, false
	}
	return c.wallets[i], true
}

func (c *Canonical) lookupIndex(name string, key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	lookup, ok := c.lookups[name]
	if !ok {
		return "", false
	}
	address, ok := lookup.forward[key]
	return address, ok
}

func (c *Canonical) indexedKeys(name string, address string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	lookup, ok := c.lookups[name]
	if !ok {
		return nil
	}
	return append([]string(nil), lookup.reverse[address]...)
}

func (c *Canonical) snapshot(name string) (map[string]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	lookup, ok := c.lookups[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIndex, name)
	}
	entries := make(map[string]string, len(lookup.forward))
	for k, v := range lookup.forward {
		entries[k] = v
	}
	return entries, nil
}

func (c *Canonical) sequence(name string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.sequences[name]
}

func (c *Canonical) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.wallets)
}

func (c *Canonical) addressAt(i int) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.wallets[i].Address()
}

func (c *Canonical) walletAt(i int) *wallet.Wallet {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.wallets[i]
}

func (c *Canonical) attributes() *wallet.AttributeSet {
	return c.attrs
}

func (c *Canonical) indexers() []Indexer {
	return c.indexes
}

func (c *Canonical) deriveAddress(publicKey string) (string, error) {
	if c.addressFunc == nil {
		return "", ErrNoAddressFunction
	}
	return c.addressFunc(publicKey)
}

func (c *Canonical) commit(cs *changeSet) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, address := range cs.created {
		if _, ok := c.byAddress[address]; ok {
			continue
		}
		c.byAddress[address] = len(c.wallets)
		c.wallets = append(c.wallets, cs.wallets[address])
	}
	for address, w := range cs.wallets {
		c.wallets[c.byAddress[address]] = w
	}
	for name, keys := range cs.forward {
		lookup := c.lookups[name]
		for k, v := range keys {
			applyForward(lookup.forward, k, v)
		}
	}
	for name, reverse := range cs.reverse {
		lookup := c.lookups[name]
		for address, keys := range reverse {
			if keys == nil {
				delete(lookup.reverse, address)
			} else {
				lookup.reverse[address] = keys
			}
		}
	}
	for name, v := range cs.sequences {
		c.sequences[name] = v
	}
	return nil
}

func applyForward(forward map[string]string, key string, v maybe.Maybe[string]) {
	if v.IsNothing() {
		delete(forward, key)
		return
	}
	forward[key] = v.Value()
}
