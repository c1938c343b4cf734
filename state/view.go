// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"fmt"

	"github.com/ava-labs/avalanchego/utils/maybe"

	"github.com/ava-labs/dposledger/wallet"
)

type changeSet struct {
	wallets   map[string]*wallet.Wallet
	created   []string
	forward   map[string]map[string]maybe.Maybe[string]
	reverse   map[string]map[string][]string
	sequences map[string]uint64
}

// View is a copy-on-write repository layered on a parent. A wallet is copied
// into the view the first time it is looked up; untouched wallets stay
// shared with the parent and are only handed out by the iterators. Index changes are kept as
// overlays: Nothing marks a key removed in the view.
//
// A View is not safe for concurrent use.
type View struct {
	parent store

	wallets   map[string]*wallet.Wallet
	created   []string
	forward   map[string]map[string]maybe.Maybe[string]
	reverse   map[string]map[string][]string
	sequences map[string]uint64

	committed bool
}

func newView(parent store) *View {
	return &View{
		parent:    parent,
		wallets:   map[string]*wallet.Wallet{},
		forward:   map[string]map[string]maybe.Maybe[string]{},
		reverse:   map[string]map[string][]string{},
		sequences: map[string]uint64{},
	}
}

func (v *View) FindByAddress(address string) *wallet.Wallet {
	if w, ok := v.wallets[address]; ok {
		return w
	}
	if w, ok := v.parent.lookup(address); ok {
		c := w.Clone()
		v.wallets[address] = c
		return c
	}
	w := wallet.New(address, v.parent.attributes())
	v.wallets[address] = w
	v.created = append(v.created, address)
	return w
}

func (v *View) FindByPublicKey(key string, slot wallet.Slot) (*wallet.Wallet, error) {
	if address, ok := v.lookupIndex(PublicKeysIndex, PublicKeyEntry(slot, key)); ok {
		return v.FindByAddress(address), nil
	}
	if slot != wallet.Primary {
		return nil, fmt.Errorf("%w: %s key %s", ErrWalletNotFound, slot, key)
	}
	address, err := v.parent.deriveAddress(key)
	if err != nil {
		return nil, err
	}
	if w, ok := v.lookup(address); ok {
		if held, ok := w.PublicKey(wallet.Primary); ok && held != key {
			return nil, fmt.Errorf("%w: %s holds another primary key", ErrWalletNotFound, address)
		}
	}
	w := v.FindByAddress(address)
	w.RevealPrimaryKey(key, 0)
	if err := v.Reindex(w); err != nil {
		return nil, err
	}
	return w, nil
}

func (v *View) FindByUsername(username string) (*wallet.Wallet, error) {
	return v.FindByIndex(UsernamesIndex, username)
}

func (v *View) FindByIndex(name string, key string) (*wallet.Wallet, error) {
	if !v.hasIndex(name) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIndex, name)
	}
	address, ok := v.lookupIndex(name, key)
	if !ok {
		return nil, fmt.Errorf("%w: %s=%s", ErrWalletNotFound, name, key)
	}
	return v.FindByAddress(address), nil
}

func (v *View) HasByAddress(address string) bool {
	_, ok := v.lookup(address)
	return ok
}

func (v *View) HasByPublicKey(key string, slot wallet.Slot) bool {
	return v.HasByIndex(PublicKeysIndex, PublicKeyEntry(slot, key))
}

func (v *View) HasByUsername(username string) bool {
	return v.HasByIndex(UsernamesIndex, username)
}

func (v *View) HasByIndex(name string, key string) bool {
	_, ok := v.lookupIndex(name, key)
	return ok
}

func (v *View) Index(w *wallet.Wallet) error {
	address := w.Address()
	if _, ok := v.wallets[address]; !ok {
		if _, ok := v.parent.lookup(address); !ok {
			v.created = append(v.created, address)
		}
	}
	v.wallets[address] = w

	indexers := v.parent.indexers()
	next := make([][]string, len(indexers))
	for i, ix := range indexers {
		keys := normalize(ix.Keys(w))
		for _, k := range keys {
			if holder, ok := v.lookupIndex(ix.Name, k); ok && holder != address {
				return fmt.Errorf("%w: %s=%s held by %s", ErrIndexConflict, ix.Name, k, holder)
			}
		}
		next[i] = keys
	}
	for i, ix := range indexers {
		for _, k := range removedKeys(v.indexedKeys(ix.Name, address), next[i]) {
			v.setForward(ix.Name, k, maybe.Nothing[string]())
		}
		for _, k := range next[i] {
			v.setForward(ix.Name, k, maybe.Some(address))
		}
		v.setReverse(ix.Name, address, next[i])
	}
	return nil
}

func (v *View) Reindex(w *wallet.Wallet) error {
	return v.Index(w)
}

func (v *View) ForgetByIndex(name string, key string) error {
	if !v.hasIndex(name) {
		return fmt.Errorf("%w: %s", ErrUnknownIndex, name)
	}
	address, ok := v.lookupIndex(name, key)
	if !ok {
		return nil
	}
	v.setForward(name, key, maybe.Nothing[string]())
	v.setReverse(name, address, normalize(removedKeys(v.indexedKeys(name, address), []string{key})))
	return nil
}

func (v *View) GetIndex(name string) (*IndexSnapshot, error) {
	entries, err := v.snapshot(name)
	if err != nil {
		return nil, err
	}
	return &IndexSnapshot{name: name, entries: entries}, nil
}

// AllByAddress yields parent wallets first, in parent order, then wallets
// created in the view. Wallets the view has not copied are the parent's own
// and must not be modified.
func (v *View) AllByAddress() Iterator {
	return newIterator(v.size(), func(i int) (*wallet.Wallet, bool) {
		return v.lookup(v.addressAt(i))
	})
}

func (v *View) AllByUsername() Iterator {
	return newIterator(v.size(), func(i int) (*wallet.Wallet, bool) {
		address := v.addressAt(i)
		if len(v.indexedKeys(UsernamesIndex, address)) == 0 {
			return nil, false
		}
		return v.lookup(address)
	})
}

func (v *View) NextSequence(name string) uint64 {
	next := v.sequence(name) + 1
	v.sequences[name] = next
	return next
}

func (v *View) RevertSequence(name string, value uint64) error {
	if current := v.sequence(name); current != value || value == 0 {
		return fmt.Errorf("%w: %s is at %d, reverting %d", ErrSequenceMismatch, name, current, value)
	}
	v.sequences[name] = value - 1
	return nil
}

func (v *View) Sequence(name string) uint64 {
	return v.sequence(name)
}

func (v *View) Attributes() *wallet.AttributeSet {
	return v.parent.attributes()
}

// Clone returns a view layered on top of [v].
func (v *View) Clone() *View {
	return newView(v)
}

// Commit publishes every change of [v] to its parent. A view can be
// committed once.
func (v *View) Commit() error {
	if v.committed {
		return ErrViewCommitted
	}
	if err := v.parent.commit(&changeSet{
		wallets:   v.wallets,
		created:   v.created,
		forward:   v.forward,
		reverse:   v.reverse,
		sequences: v.sequences,
	}); err != nil {
		return err
	}
	v.committed = true
	return nil
}

// Touched returns the number of wallets copied or created by the view.
func (v *View) Touched() int {
	return len(v.wallets)
}

func (v *View) setForward(name string, key string, value maybe.Maybe[string]) {
	m, ok := v.forward[name]
	if !ok {
		m = map[string]maybe.Maybe[string]{}
		v.forward[name] = m
	}
	m[key] = value
}

func (v *View) setReverse(name string, address string, keys []string) {
	m, ok := v.reverse[name]
	if !ok {
		m = map[string][]string{}
		v.reverse[name] = m
	}
	m[address] = keys
}

func (v *View) hasIndex(name string) bool {
	for _, ix := range v.parent.indexers() {
		if ix.Name == name {
			return true
		}
	}
	return false
}

func (v *View) lookup(address string) (*wallet.Wallet, bool) {
	if w, ok := v.wallets[address]; ok {
		return w, true
	}
	return v.parent.lookup(address)
}

func (v *View) lookupIndex(name string, key string) (string, bool) {
	if m, ok := v.forward[name]; ok {
		if value, ok := m[key]; ok {
			if value.IsNothing() {
				return "", false
			}
			return value.Value(), true
		}
	}
	return v.parent.lookupIndex(name, key)
}

func (v *View) indexedKeys(name string, address string) []string {
	if m, ok := v.reverse[name]; ok {
		if keys, ok := m[address]; ok {
			return append([]string(nil), keys...)
		}
	}
	return v.parent.indexedKeys(name, address)
}

func (v *View) snapshot(name string) (map[string]string, error) {
	entries, err := v.parent.snapshot(name)
	if err != nil {
		return nil, err
	}
	for k, value := range v.forward[name] {
		applyForward(entries, k, value)
	}
	return entries, nil
}

func (v *View) sequence(name string) uint64 {
	if value, ok := v.sequences[name]; ok {
		return value
	}
	return v.parent.sequence(name)
}

func (v *View) size() int {
	return v.parent.size() + len(v.created)
}

func (v *View) addressAt(i int) string {
	if n := v.parent.size(); i >= n {
		return v.created[i-n]
	}
	return v.parent.addressAt(i)
}

func (v *View) attributes() *wallet.AttributeSet {
	return v.parent.attributes()
}

func (v *View) indexers() []Indexer {
	return v.parent.indexers()
}

func (v *View) deriveAddress(publicKey string) (string, error) {
	return v.parent.deriveAddress(publicKey)
}

func (v *View) commit(cs *changeSet) error {
	for _, address := range cs.created {
		if _, ok := v.wallets[address]; !ok {
			v.created = append(v.created, address)
		}
	}
	for address, w := range cs.wallets {
		v.wallets[address] = w
	}
	for name, keys := range cs.forward {
		for k, value := range keys {
			v.setForward(name, k, value)
		}
	}
	for name, reverse := range cs.reverse {
		for address, keys := range reverse {
			v.setReverse(name, address, keys)
		}
	}
	for name, value := range cs.sequences {
		v.sequences[name] = value
	}
	return nil
}
