// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"sort"

	"github.com/ava-labs/dposledger/wallet"
)

const (
	PublicKeysIndex = "publicKeys"
	UsernamesIndex  = "usernames"
)

var (
	_ Repository = (*Canonical)(nil)
	_ Repository = (*View)(nil)
)

// Repository owns every wallet of the ledger. Wallets are created on first
// lookup by address and are never removed.
type Repository interface {
	// FindByAddress returns the wallet at [address], creating it if needed.
	FindByAddress(address string) *wallet.Wallet
	// FindByPublicKey resolves [key] in [slot]. Looking up an unknown key in
	// the [wallet.Primary] slot creates the wallet derived from the key.
	FindByPublicKey(key string, slot wallet.Slot) (*wallet.Wallet, error)
	FindByUsername(username string) (*wallet.Wallet, error)
	FindByIndex(index string, key string) (*wallet.Wallet, error)

	HasByAddress(address string) bool
	HasByPublicKey(key string, slot wallet.Slot) bool
	HasByUsername(username string) bool
	HasByIndex(index string, key string) bool

	// Index recomputes every secondary index entry of [w]. It must be called
	// after any change to an indexed field.
	Index(w *wallet.Wallet) error
	Reindex(w *wallet.Wallet) error
	ForgetByIndex(index string, key string) error
	GetIndex(index string) (*IndexSnapshot, error)

	AllByAddress() Iterator
	AllByUsername() Iterator

	// NextSequence increments and returns the counter [name].
	NextSequence(name string) uint64
	// RevertSequence decrements [name] if its current value is [value].
	RevertSequence(name string, value uint64) error
	Sequence(name string) uint64

	Attributes() *wallet.AttributeSet
	Clone() *View
}

// Iterator is a lazy, finite enumeration of wallets. Each call to
// AllByAddress or AllByUsername starts a new one. Iterated wallets are
// read-only: mutate a wallet through FindByAddress.
type Iterator interface {
	Next() bool
	Wallet() *wallet.Wallet
	Release()
}

// Indexer derives the keys of a unique secondary index from a wallet.
type Indexer struct {
	Name string
	Keys func(w *wallet.Wallet) []string
}

// AddressFunc derives the address owned by a primary public key.
type AddressFunc func(publicKey string) (string, error)

func PublicKeyEntry(slot wallet.Slot, key string) string {
	return string(slot) + ":" + key
}

func publicKeyKeys(w *wallet.Wallet) []string {
	keys := w.PublicKeys()
	entries := make([]string, 0, len(keys))
	for slot, key := range keys {
		entries = append(entries, PublicKeyEntry(slot, key))
	}
	return entries
}

// Username returns the username claimed by [w], if any. A delegate profile
// counts as a claim.
func Username(w *wallet.Wallet) (string, bool) {
	if u, ok := wallet.UsernameKey.Get(w); ok {
		return string(u), true
	}
	if d, ok := wallet.DelegateKey.Get(w); ok {
		return d.Username, true
	}
	return "", false
}

func usernameKeys(w *wallet.Wallet) []string {
	if u, ok := Username(w); ok {
		return []string{u}
	}
	return nil
}

func coreIndexers() []Indexer {
	return []Indexer{
		{Name: PublicKeysIndex, Keys: publicKeyKeys},
		{Name: UsernamesIndex, Keys: usernameKeys},
	}
}

// IndexSnapshot is a point-in-time copy of one secondary index.
type IndexSnapshot struct {
	name    string
	entries map[string]string
}

func (s *IndexSnapshot) Name() string {
	return s.name
}

func (s *IndexSnapshot) Size() int {
	return len(s.entries)
}

func (s *IndexSnapshot) Get(key string) (string, bool) {
	addr, ok := s.entries[key]
	return addr, ok
}

// Keys returns the index keys in lexical order.
func (s *IndexSnapshot) Keys() []string {
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Values returns the addresses in the order of [Keys].
func (s *IndexSnapshot) Values() []string {
	keys := s.Keys()
	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = s.entries[k]
	}
	return values
}

func removedKeys(old []string, next []string) []string {
	keep := make(map[string]struct{}, len(next))
	for _, k := range next {
		keep[k] = struct{}{}
	}
	var removed []string
	for _, k := range old {
		if _, ok := keep[k]; !ok {
			removed = append(removed, k)
		}
	}
	return removed
}

func normalize(keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)
	return keys
}
