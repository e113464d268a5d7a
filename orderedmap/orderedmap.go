// Package orderedmap implements the addended ordered map: a sorted map
// where looking a key up can match not just an exact key but any address
// within [key, key+size(value)) of a stored entry. This is the workhorse
// structure behind segment metadata maps — symbols are routinely queried
// by interior addresses computed from HI/LO register pairs.
package orderedmap

import (
	"golang.org/x/exp/slices"
)

// Sized is implemented by values whose byte length can be queried, so the
// map knows how far past a key's address the value's range extends.
type Sized interface {
	Size() uint32
}

// FindSettings controls whether Find performs an addended (interior)
// lookup or an exact one.
type FindSettings struct {
	AllowAddend bool
}

// Exact builds FindSettings for an exact-key-only lookup.
func Exact() FindSettings { return FindSettings{AllowAddend: false} }

// Addended builds FindSettings for an interior-address lookup.
func Addended() FindSettings { return FindSettings{AllowAddend: true} }

// Map is a BTree-like ordered map keyed by an ordered, addable key type,
// with addended lookup support. It is backed by a sorted slice rather than
// a tree since Go lacks a standard ordered map; insertions keep the slice
// sorted via binary search, same asymptotic behavior as the reference's
// BTreeMap for the access patterns this package uses (build sparse, then
// query many times).
type Map[K ~uint32, V Sized] struct {
	keys   []K
	values []V
}

// New creates an empty Map.
func New[K ~uint32, V Sized]() *Map[K, V] {
	return &Map[K, V]{}
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int { return len(m.keys) }

// search returns the index of the first key >= target, via x/exp/slices'
// BinarySearch rather than hand-rolling sort.Search's predicate form.
func (m *Map[K, V]) search(key K) int {
	i, _ := slices.BinarySearch(m.keys, key)
	return i
}

// Get returns the value stored at the exact key, if any.
func (m *Map[K, V]) Get(key K) (V, bool) {
	i := m.search(key)
	if i < len(m.keys) && m.keys[i] == key {
		return m.values[i], true
	}
	var zero V
	return zero, false
}

// Find looks up key according to settings. With AllowAddend=false it is
// equivalent to Get. With AllowAddend=true it returns the entry whose
// [start, start+size(value)) contains key, which may be the predecessor
// entry rather than an exact match. This is invariant 5 from the spec:
// Find with allow_addend=true on any k in [start, start+size(v)) returns
// exactly the entry starting at start.
func (m *Map[K, V]) Find(key K, settings FindSettings) (K, V, bool) {
	if !settings.AllowAddend {
		v, ok := m.Get(key)
		return key, v, ok
	}

	// locate the last entry with keys[i] <= key
	i := m.search(key)
	if i < len(m.keys) && m.keys[i] == key {
		return key, m.values[i], true
	}
	i--
	if i < 0 {
		var zero V
		return 0, zero, false
	}

	other := m.keys[i]
	v := m.values[i]
	if key == other || uint32(key) < uint32(other)+v.Size() {
		return other, v, true
	}
	var zero V
	return 0, zero, false
}

// FindMutOrInsertWith returns the entry matching key under settings,
// inserting a freshly built value (via makeValue) at key when absent.
// created is true when a new entry was inserted.
func (m *Map[K, V]) FindMutOrInsertWith(key K, settings FindSettings, makeValue func() V) (K, *V, bool) {
	if foundKey, _, ok := m.Find(key, settings); ok {
		idx := m.search(foundKey)
		return foundKey, &m.values[idx], false
	}

	value := makeValue()
	m.insertAt(key, value)
	return key, &m.values[m.search(key)], true
}

func (m *Map[K, V]) insertAt(key K, value V) {
	i := m.search(key)
	m.keys = append(m.keys, 0)
	copy(m.keys[i+1:], m.keys[i:])
	m.keys[i] = key

	m.values = append(m.values, value)
	copy(m.values[i+1:], m.values[i:])
	m.values[i] = value
}

// Set inserts or overwrites the value at the exact key.
func (m *Map[K, V]) Set(key K, value V) {
	i := m.search(key)
	if i < len(m.keys) && m.keys[i] == key {
		m.values[i] = value
		return
	}
	m.insertAt(key, value)
}

// Keys returns the sorted keys. The returned slice must not be mutated.
func (m *Map[K, V]) Keys() []K { return m.keys }

// Values returns the values in key order, parallel to Keys(). The returned
// slice must not be mutated.
func (m *Map[K, V]) Values() []V { return m.values }

// Range iterates all entries in key order, stopping early if fn returns
// false.
func (m *Map[K, V]) Range(fn func(K, V) bool) {
	for i, k := range m.keys {
		if !fn(k, m.values[i]) {
			return
		}
	}
}

// RangeFrom iterates entries with key >= from, in order.
func (m *Map[K, V]) RangeFrom(from K, fn func(K, V) bool) {
	i := m.search(from)
	for ; i < len(m.keys); i++ {
		if !fn(m.keys[i], m.values[i]) {
			return
		}
	}
}

// Predecessor returns the greatest entry with key <= target, if any.
func (m *Map[K, V]) Predecessor(target K) (K, V, bool) {
	i := m.search(target)
	if i < len(m.keys) && m.keys[i] == target {
		return target, m.values[i], true
	}
	i--
	if i < 0 {
		var zero V
		return 0, zero, false
	}
	return m.keys[i], m.values[i], true
}
