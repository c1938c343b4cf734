// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wallet

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ava-labs/avalanchego/utils/set"
)

// Attribute is a value stored in a wallet's attribute bag. Clone must return
// a copy that shares no mutable state with the receiver.
type Attribute interface {
	Clone() Attribute
}

// AttributeSet holds every attribute path declared by the registered
// transaction handlers. Wallets refuse to store undeclared attributes.
type AttributeSet struct {
	mu    sync.RWMutex
	paths set.Set[string]
}

func NewAttributeSet() *AttributeSet {
	return &AttributeSet{paths: set.Set[string]{}}
}

// Register declares [paths]. Declaring the same path more than once is a
// no-op.
func (s *AttributeSet) Register(paths ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range paths {
		if len(p) == 0 || strings.HasPrefix(p, ".") || strings.HasSuffix(p, ".") || strings.Contains(p, "..") {
			return fmt.Errorf("%w: %q", ErrInvalidAttribute, p)
		}
		s.paths.Add(p)
	}
	return nil
}

func (s *AttributeSet) Has(path string) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.paths.Contains(path)
}

// Paths returns all declared paths in lexical order.
func (s *AttributeSet) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := s.paths.List()
	sort.Strings(paths)
	return paths
}

// Namespace returns the top-level key of [path] ("delegate" for
// "delegate.voteBalance").
func Namespace(path string) string {
	ns, _, _ := strings.Cut(path, ".")
	return ns
}

// Key is a compile-time typed handle on a top-level attribute. Presence of
// the key on a wallet means the wallet has joined that domain.
type Key[T Attribute] struct {
	name string
}

func NewKey[T Attribute](name string) Key[T] {
	return Key[T]{name: name}
}

func (k Key[T]) Name() string {
	return k.name
}

// Get returns the live value stored under [k]. Callers that mutate the
// returned value are responsible for reindexing [w].
func (k Key[T]) Get(w *Wallet) (T, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var empty T
	v, ok := w.attributes[k.name]
	if !ok {
		return empty, false
	}
	t, ok := v.(T)
	if !ok {
		return empty, false
	}
	return t, true
}

func (k Key[T]) Has(w *Wallet) bool {
	_, ok := k.Get(w)
	return ok
}

func (k Key[T]) Set(w *Wallet, v T) error {
	if !w.declared.Has(k.name) {
		return fmt.Errorf("%w: %s", ErrUndeclaredAttribute, k.name)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.attributes == nil {
		w.attributes = map[string]Attribute{}
	}
	w.attributes[k.name] = v
	return nil
}

// Forget removes [k] from [w]. It fails if the attribute is not set so a
// revert never silently papers over a missing apply.
func (k Key[T]) Forget(w *Wallet) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.attributes[k.name]; !ok {
		return fmt.Errorf("%w: %s", ErrMissingAttribute, k.name)
	}
	delete(w.attributes, k.name)
	if len(w.attributes) == 0 {
		w.attributes = nil
	}
	return nil
}

var (
	DelegateKey = NewKey[*Delegate]("delegate")
	BusinessKey = NewKey[*Business]("business")
	VotesKey    = NewKey[*Votes]("votes")
	UsernameKey = NewKey[Username]("username")
)
