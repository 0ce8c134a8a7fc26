package cache

import (
	"time"
	"weak"
)

// Retention selects how an entry holds on to its value.
type Retention int

const (
	// RetainStrong keeps the value alive until the entry is evicted.
	RetainStrong Retention = iota
	// RetainWeak lets the garbage collector reclaim the value at any time.
	// A reclaimed value reads exactly like an expired one.
	RetainWeak
)

func (r Retention) String() string {
	switch r {
	case RetainWeak:
		return "weak"
	default:
		return "strong"
	}
}

// valueRef is the reference an entry reads its value through.
type valueRef[V any] interface {
	load() (V, bool)
}

type strongRef[V any] struct {
	v V
}

func (r strongRef[V]) load() (V, bool) { return r.v, true }

// weakRef points at a private heap copy of the value. Nothing else
// references that copy, so any GC cycle may clear it.
type weakRef[V any] struct {
	p weak.Pointer[V]
}

func (r weakRef[V]) load() (V, bool) {
	if p := r.p.Value(); p != nil {
		return *p, true
	}
	var zero V
	return zero, false
}

func newRef[V any](value V, retention Retention) valueRef[V] {
	if retention == RetainWeak {
		cell := new(V)
		*cell = value
		return weakRef[V]{p: weak.Make(cell)}
	}
	return strongRef[V]{v: value}
}

// entry is the value stored in the list elements.
// The key is kept here because cleanup walks list nodes, not map keys.
//
// An entry is never modified after creation; refreshing a key swaps in a
// new entry.
type entry[K comparable, V any] struct {
	key       K
	ref       valueRef[V]
	expiresAt time.Time
}

func newEntry[K comparable, V any](key K, value V, expiresAt time.Time, retention Retention) *entry[K, V] {
	return &entry[K, V]{
		key:       key,
		ref:       newRef(value, retention),
		expiresAt: expiresAt,
	}
}

// read returns the value unless the reference has been reclaimed.
// It does not look at expiry.
func (e *entry[K, V]) read() (V, bool) {
	return e.ref.load()
}

func (e *entry[K, V]) hasExpired(now time.Time) bool {
	return e.expiresAt.Before(now)
}

// live returns the value if the entry is neither expired nor reclaimed.
func (e *entry[K, V]) live(now time.Time) (V, bool) {
	if e.hasExpired(now) {
		var zero V
		return zero, false
	}
	return e.read()
}
