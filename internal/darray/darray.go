// Package darray implements a minimal typed dynamic array, modelled on
// darray.h's header plus flexible-array-member container. It is a
// standalone package: the collector's page lists, weak reference slots
// and mark stack chunks do not use it.
//
// A nil *Array[T] is a valid, empty array: append allocates lazily, just
// like the original darray.h's "NULL is a valid empty dynamic array".
package darray

import "fmt"

// Array is a growable, index-addressable sequence of T. It intentionally
// mirrors darray.h's contract rather than wrapping a plain Go slice: the
// collector needs an append that never silently truncates on overflow,
// and a remove-unordered for O(1) deletion from unordered page lists.
type Array[T any] struct {
	data []T
}

// New returns an empty array with no backing storage allocated yet.
func New[T any]() *Array[T] { return &Array[T]{} }

// NewWithCapacity preallocates capacity slots without changing Len.
func NewWithCapacity[T any](capacity int) *Array[T] {
	a := &Array[T]{}
	if capacity > 0 {
		a.data = make([]T, 0, capacity)
	}
	return a
}

// Len reports the number of live elements.
func (a *Array[T]) Len() int {
	if a == nil {
		return 0
	}
	return len(a.data)
}

// Cap reports the current backing capacity.
func (a *Array[T]) Cap() int {
	if a == nil {
		return 0
	}
	return cap(a.data)
}

// Get returns element i. Not bounds checked, matching darray.h's
// rb_darray_get contract — callers are expected to stay in range.
func (a *Array[T]) Get(i int) T { return a.data[i] }

// Set overwrites element i. Not bounds checked.
func (a *Array[T]) Set(i int, v T) { a.data[i] = v }

// Ref returns a pointer to element i, so callers can mutate in place
// without a Get/Set round trip (mirrors rb_darray_ref).
func (a *Array[T]) Ref(i int) *T { return &a.data[i] }

// Append grows the array by one element, doubling capacity on overflow.
// The first allocation has capacity 1, matching darray.h's
// rb_darray_ensure_space growth policy and bytes.Buffer's amortized
// doubling (see bytes/buffer.go's tryGrowByReslice/grow).
func (a *Array[T]) Append(v T) {
	a.growBy(1)
	a.data = append(a.data, v)
}

// AppendSlice appends every element of vs, growing at most once.
func (a *Array[T]) AppendSlice(vs []T) {
	a.growBy(len(vs))
	a.data = append(a.data, vs...)
}

// growBy ensures capacity for n more elements without changing Len,
// doubling (or starting at 1) the same way darray.h's
// rb_darray_ensure_space does, and panicking with overflowError instead
// of silently truncating if the doubled capacity would not strictly
// grow — the one hard contract darray.h calls out explicitly.
func (a *Array[T]) growBy(n int) {
	need := len(a.data) + n
	if need <= cap(a.data) {
		return
	}
	newCap := cap(a.data)
	if newCap == 0 {
		newCap = 1
	}
	for newCap < need {
		next := newCap * 2
		if next <= newCap {
			panic(overflowError{requested: need})
		}
		newCap = next
	}
	grown := make([]T, len(a.data), newCap)
	copy(grown, a.data)
	a.data = grown
}

// overflowError is raised, never returned, matching the collector's
// policy that array growth overflow is a fatal bug, not a recoverable
// error (spec §7 "Exponent/size overflow in array growth → bug-abort").
type overflowError struct{ requested int }

func (e overflowError) Error() string {
	return fmt.Sprintf("darray: capacity overflow growing to %d elements", e.requested)
}

// Clear resets size to zero but retains the backing capacity, so the
// same array can be reused without reallocating (rb_darray_clear).
func (a *Array[T]) Clear() {
	if a == nil {
		return
	}
	a.data = a.data[:0]
}

// PopBack removes and returns the last element.
func (a *Array[T]) PopBack() T {
	v := a.data[len(a.data)-1]
	a.data = a.data[:len(a.data)-1]
	return v
}

// Back returns the last element without removing it.
func (a *Array[T]) Back() T { return a.data[len(a.data)-1] }

// RemoveUnordered deletes element i by overwriting it with the last
// element and shrinking by one (rb_darray_remove_unordered). Order is
// not preserved; the deletion is O(1).
func (a *Array[T]) RemoveUnordered(i int) {
	last := len(a.data) - 1
	a.data[i] = a.data[last]
	a.data = a.data[:last]
}

// Each calls fn for every live element in order.
func (a *Array[T]) Each(fn func(int, T)) {
	if a == nil {
		return
	}
	for i, v := range a.data {
		fn(i, v)
	}
}

// Slice exposes the live elements as a slice. Callers must not retain
// it across a subsequent Append/growBy, which may reallocate.
func (a *Array[T]) Slice() []T {
	if a == nil {
		return nil
	}
	return a.data
}
