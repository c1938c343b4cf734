// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wallet

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/holiman/uint256"
)

// Slot names a public key position on a wallet.
type Slot string

const (
	// Primary is the key that signs transactions. It is the legacy default
	// slot: looking it up by key creates the wallet it derives.
	Primary Slot = "primary"
	// Extra is the optional second signature key.
	Extra Slot = "extra"
)

// Wallet is a single account: identity, nonce, balance and the attribute bag
// that handlers use to record domain membership.
//
// Wallets are owned by a repository. A wallet returned by a repository view
// is private to that view.
type Wallet struct {
	mu sync.RWMutex

	declared *AttributeSet

	address    string
	publicKeys map[Slot]string
	// nonce of the transaction that revealed the primary key, 0 when the key
	// was known before any transaction was applied.
	revealedAt uint64

	nonce   uint64
	balance uint256.Int

	attributes map[string]Attribute
}

func New(address string, declared *AttributeSet) *Wallet {
	return &Wallet{
		address:  address,
		declared: declared,
	}
}

func (w *Wallet) Address() string {
	return w.address
}

func (w *Wallet) PublicKey(slot Slot) (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	k, ok := w.publicKeys[slot]
	return k, ok
}

// PublicKeys returns a copy of every key held by the wallet.
func (w *Wallet) PublicKeys() map[Slot]string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	keys := make(map[Slot]string, len(w.publicKeys))
	for s, k := range w.publicKeys {
		keys[s] = k
	}
	return keys
}

// SetPublicKey assigns [key] to [slot]. A slot is immutable once set.
func (w *Wallet) SetPublicKey(slot Slot, key string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if existing, ok := w.publicKeys[slot]; ok {
		if existing == key {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrPublicKeyAlreadySet, slot)
	}
	if w.publicKeys == nil {
		w.publicKeys = map[Slot]string{}
	}
	w.publicKeys[slot] = key
	return nil
}

// ForgetPublicKey clears [slot]. Only reverts call this.
func (w *Wallet) ForgetPublicKey(slot Slot) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.forgetPublicKey(slot)
}

func (w *Wallet) forgetPublicKey(slot Slot) {
	delete(w.publicKeys, slot)
	if len(w.publicKeys) == 0 {
		w.publicKeys = nil
	}
	if slot == Primary {
		w.revealedAt = 0
	}
}

// RevealPrimaryKey records the primary key carried by the transaction with
// [nonce] if the wallet did not know its key yet. It reports whether the key
// was newly set.
func (w *Wallet) RevealPrimaryKey(key string, nonce uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.publicKeys[Primary]; ok {
		return false
	}
	if w.publicKeys == nil {
		w.publicKeys = map[Slot]string{}
	}
	w.publicKeys[Primary] = key
	w.revealedAt = nonce
	return true
}

// ConcealPrimaryKey undoes [RevealPrimaryKey] for the transaction with
// [nonce].
func (w *Wallet) ConcealPrimaryKey(nonce uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if nonce == 0 || w.revealedAt != nonce {
		return false
	}
	w.forgetPublicKey(Primary)
	return true
}

func (w *Wallet) Nonce() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.nonce
}

func (w *Wallet) IncreaseNonce() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.nonce++
}

func (w *Wallet) DecreaseNonce() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.nonce == 0 {
		return fmt.Errorf("%w: %s", ErrNonceUnderflow, w.address)
	}
	w.nonce--
	return nil
}

// Balance returns a copy of the wallet balance.
func (w *Wallet) Balance() *uint256.Int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return new(uint256.Int).Set(&w.balance)
}

func (w *Wallet) IncreaseBalance(amount *uint256.Int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var sum uint256.Int
	if _, overflow := sum.AddOverflow(&w.balance, amount); overflow {
		return fmt.Errorf("%w: %s", ErrBalanceOverflow, w.address)
	}
	w.balance = sum
	return nil
}

func (w *Wallet) DecreaseBalance(amount *uint256.Int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.balance.Lt(amount) {
		return fmt.Errorf(
			"%w: %s has %s, needs %s",
			ErrInsufficientBalance,
			w.address,
			w.balance.Dec(),
			amount.Dec(),
		)
	}
	w.balance.Sub(&w.balance, amount)
	return nil
}

func (w *Wallet) HasAttribute(name string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	_, ok := w.attributes[name]
	return ok
}

// Attributes returns the names of the top-level attributes set on the
// wallet, sorted.
func (w *Wallet) Attributes() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	names := make([]string, 0, len(w.attributes))
	for name := range w.attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of [w].
func (w *Wallet) Clone() *Wallet {
	w.mu.RLock()
	defer w.mu.RUnlock()

	c := &Wallet{
		declared:   w.declared,
		address:    w.address,
		revealedAt: w.revealedAt,
		nonce:      w.nonce,
		balance:    w.balance,
	}
	if len(w.publicKeys) > 0 {
		c.publicKeys = make(map[Slot]string, len(w.publicKeys))
		for s, k := range w.publicKeys {
			c.publicKeys[s] = k
		}
	}
	if len(w.attributes) > 0 {
		c.attributes = make(map[string]Attribute, len(w.attributes))
		for name, v := range w.attributes {
			c.attributes[name] = v.Clone()
		}
	}
	return c
}

// Equal reports whether [w] and [o] hold identical state.
func (w *Wallet) Equal(o *Wallet) bool {
	if w == o {
		return true
	}
	if w == nil || o == nil {
		return false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	o.mu.RLock()
	defer o.mu.RUnlock()

	return w.address == o.address &&
		w.revealedAt == o.revealedAt &&
		w.nonce == o.nonce &&
		w.balance.Eq(&o.balance) &&
		reflect.DeepEqual(w.publicKeys, o.publicKeys) &&
		reflect.DeepEqual(w.attributes, o.attributes)
}

func (w *Wallet) String() string {
	return w.address
}
