// Package references holds the ordered, deduplicated list of context references
// attached to a single document.
package references

import (
	"slices"
	"sync"
)

// Store is an insertion-ordered set of reference strings. Equality is exact and
// case-sensitive. A Store is safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	refs []string
}

// NewStore creates a Store seeded with refs, dropping duplicates.
func NewStore(refs ...string) *Store {
	s := &Store{}
	s.Add(refs...)
	return s
}

// Add appends every ref not already present and returns how many were added.
// Empty strings are ignored.
func (s *Store) Add(refs ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(refs)
}

func (s *Store) appendLocked(refs []string) int {
	added := 0
	for _, ref := range refs {
		if ref == "" || slices.Contains(s.refs, ref) {
			continue
		}
		s.refs = append(s.refs, ref)
		added++
	}
	return added
}

// Remove deletes the given refs, keeping the relative order of the rest.
// Returns how many entries were removed.
func (s *Store) Remove(refs ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.refs)
	s.refs = slices.DeleteFunc(s.refs, func(ref string) bool {
		return slices.Contains(refs, ref)
	})
	return before - len(s.refs)
}

// Clear empties the store and returns how many entries it held.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.refs)
	s.refs = nil
	return n
}

// Replace discards the current contents and loads refs in order, deduplicated,
// as one step: no reader observes the store in between.
func (s *Store) Replace(refs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs = nil
	s.appendLocked(refs)
}

// Count returns the number of references.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.refs)
}

// Contains reports whether ref is in the store.
func (s *Store) Contains(ref string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.refs, ref)
}

// Snapshot returns a copy of the references in insertion order.
func (s *Store) Snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.refs)
}
