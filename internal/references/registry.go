package references

import (
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Registry maps document names to their Stores. Stores are created lazily on
// first write and dropped when the owning document goes away.
type Registry struct {
	mu     sync.Mutex
	stores map[string]*Store
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{stores: make(map[string]*Store)}
}

// Get returns the Store for document, or nil and false when none exists yet.
func (r *Registry) Get(document string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[document]
	return s, ok
}

// Ensure returns the Store for document, creating an empty one if needed.
func (r *Registry) Ensure(document string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stores[document]
	if !ok {
		s = &Store{}
		r.stores[document] = s
	}
	return s
}

// Snapshot returns the ordered references of document, or nil if it has no Store.
func (r *Registry) Snapshot(document string) []string {
	s, ok := r.Get(document)
	if !ok {
		return nil
	}
	return s.Snapshot()
}

// Drop destroys the Store owned by document.
func (r *Registry) Drop(document string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, document)
}

// Documents returns the names of documents that currently own a Store, sorted.
func (r *Registry) Documents() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := lo.Keys(r.stores)
	sort.Strings(names)
	return names
}
