// Package llist implements a generic doubly-linked list with a
// sentinel root element, adapted from container/list's ring-sentinel
// design. Heaps thread their pages through one of these (spec.md §4.2's
// "intrusive list of pages") and each Sched's ready queue is one too
// (spec.md §4.9's readyq), so unlike container/list this version is
// generic and exposes MoveToBack/Remove in terms of *Element directly,
// which the GC's page-list and ready-queue code both need on the hot
// path without a type assertion.
package llist

// Element is one node of a List[T].
type Element[T any] struct {
	next, prev *Element[T]
	list       *List[T]
	Value      T
}

// Next returns the following element, or nil at the end of the list.
func (e *Element[T]) Next() *Element[T] {
	if p := e.next; e.list != nil && p != &e.list.root {
		return p
	}
	return nil
}

// Prev returns the preceding element, or nil at the start of the list.
func (e *Element[T]) Prev() *Element[T] {
	if p := e.prev; e.list != nil && p != &e.list.root {
		return p
	}
	return nil
}

// List is a doubly-linked list whose zero value is ready to use.
type List[T any] struct {
	root Element[T]
	len  int
}

// New returns an initialized empty list.
func New[T any]() *List[T] {
	l := &List[T]{}
	l.root.next = &l.root
	l.root.prev = &l.root
	return l
}

// Len reports the number of elements, not counting the sentinel.
func (l *List[T]) Len() int { return l.len }

// Front returns the first element, or nil if the list is empty.
func (l *List[T]) Front() *Element[T] {
	if l.len == 0 {
		return nil
	}
	return l.root.next
}

// Back returns the last element, or nil if the list is empty.
func (l *List[T]) Back() *Element[T] {
	if l.len == 0 {
		return nil
	}
	return l.root.prev
}

func (l *List[T]) insertAfter(v T, at *Element[T]) *Element[T] {
	e := &Element[T]{Value: v, prev: at, next: at.next, list: l}
	at.next.prev = e
	at.next = e
	l.len++
	return e
}

// PushFront inserts v at the front and returns its element.
func (l *List[T]) PushFront(v T) *Element[T] { return l.insertAfter(v, &l.root) }

// PushBack inserts v at the back and returns its element.
func (l *List[T]) PushBack(v T) *Element[T] { return l.insertAfter(v, l.root.prev) }

// Remove detaches e from whichever list it belongs to.
func (l *List[T]) Remove(e *Element[T]) T {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.next, e.prev, e.list = nil, nil, nil
	l.len--
	return e.Value
}

// MoveToBack relocates e, already an element of l, to the back. Used by
// the compactor's page-order comparator (spec.md §4.6) to drain the
// most-movable pages first without reallocating the list.
func (l *List[T]) MoveToBack(e *Element[T]) {
	if l.root.prev == e {
		return
	}
	e.prev.next = e.next
	e.next.prev = e.prev
	at := l.root.prev
	e.prev = at
	e.next = at.next
	at.next.prev = e
	at.next = e
}

// Each calls fn for every element front to back.
func (l *List[T]) Each(fn func(*Element[T])) {
	for e := l.Front(); e != nil; e = e.Next() {
		fn(e)
	}
}
