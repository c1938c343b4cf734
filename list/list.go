// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package list

import "github.com/ava-labs/avalanchego/ids"

// Item is anything with a unique id.
type Item interface {
	ID() ids.ID
}

// List is a generic doubly linked list with O(1) removal of any element.
// The mempool uses it to keep admission order per sender and overall.
//
// The zero value is an empty list ready to use.
type List[T Item] struct {
	root Element[T]
	size int
}

type Element[T Item] struct {
	prev *Element[T]
	next *Element[T]
	list *List[T]

	value T
}

func (e *Element[T]) Next() *Element[T] {
	if n := e.next; e.list != nil && n != &e.list.root {
		return n
	}
	return nil
}

func (e *Element[T]) Prev() *Element[T] {
	if p := e.prev; e.list != nil && p != &e.list.root {
		return p
	}
	return nil
}

func (e *Element[T]) Value() T {
	return e.value
}

func (e *Element[T]) ID() ids.ID {
	return e.value.ID()
}

func (l *List[T]) lazyInit() {
	if l.root.next == nil {
		l.root.next = &l.root
		l.root.prev = &l.root
	}
}

func (l *List[T]) First() *Element[T] {
	if l.size == 0 {
		return nil
	}
	return l.root.next
}

func (l *List[T]) Last() *Element[T] {
	if l.size == 0 {
		return nil
	}
	return l.root.prev
}

func (l *List[T]) PushFront(v T) *Element[T] {
	l.lazyInit()
	return l.insertAfter(&Element[T]{value: v}, &l.root)
}

func (l *List[T]) PushBack(v T) *Element[T] {
	l.lazyInit()
	return l.insertAfter(&Element[T]{value: v}, l.root.prev)
}

// Remove unlinks [e] if it belongs to [l] and returns its value.
func (l *List[T]) Remove(e *Element[T]) T {
	if e.list == l {
		e.prev.next = e.next
		e.next.prev = e.prev
		e.next = nil
		e.prev = nil
		e.list = nil
		l.size--
	}
	return e.value
}

func (l *List[T]) Size() int {
	return l.size
}

// Values returns the items from first to last.
func (l *List[T]) Values() []T {
	out := make([]T, 0, l.size)
	for e := l.First(); e != nil; e = e.Next() {
		out = append(out, e.value)
	}
	return out
}

func (l *List[T]) insertAfter(e *Element[T], at *Element[T]) *Element[T] {
	e.prev = at
	e.next = at.next
	e.prev.next = e
	e.next.prev = e
	e.list = l
	l.size++
	return e
}
