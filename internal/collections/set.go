// Package collections holds the small unordered-collection wrappers the
// original Rust implementation keeps as distinct types
// (collections/unordered_map.rs, unordered_set.rs) so that
// hashing-order-independence is explicit at the type level, rather than
// just "a map being used as a set".
package collections

// Set is an unordered set of comparable keys.
type Set[K comparable] map[K]struct{}

// NewSet returns an empty Set, optionally seeded with initial members.
func NewSet[K comparable](initial ...K) Set[K] {
	s := make(Set[K], len(initial))
	for _, k := range initial {
		s[k] = struct{}{}
	}
	return s
}

func (s Set[K]) Add(k K) { s[k] = struct{}{} }

func (s Set[K]) Has(k K) bool {
	_, ok := s[k]
	return ok
}

func (s Set[K]) Remove(k K) { delete(s, k) }

func (s Set[K]) Len() int { return len(s) }
