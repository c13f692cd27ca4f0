package references

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAdd(t *testing.T) {
	t.Run("deduplicates and keeps insertion order", func(t *testing.T) {
		s := NewStore()
		assert.Equal(t, 2, s.Add("a", "b"))
		assert.Equal(t, 1, s.Add("b", "c"))
		assert.Equal(t, []string{"a", "b", "c"}, s.Snapshot())
	})

	t.Run("dedup is case sensitive", func(t *testing.T) {
		s := NewStore("notes.txt")
		s.Add("Notes.txt")
		assert.Equal(t, []string{"notes.txt", "Notes.txt"}, s.Snapshot())
	})

	t.Run("duplicates within one call", func(t *testing.T) {
		s := NewStore("x", "x", "y")
		assert.Equal(t, 2, s.Count())
	})

	t.Run("ignores empty references", func(t *testing.T) {
		s := NewStore("", "a")
		assert.Equal(t, []string{"a"}, s.Snapshot())
	})
}

func TestStoreRemove(t *testing.T) {
	s := NewStore("a", "b", "c", "d")

	assert.Equal(t, 2, s.Remove("b", "d", "missing"))
	assert.Equal(t, []string{"a", "c"}, s.Snapshot())

	s.Add("b")
	assert.Equal(t, []string{"a", "c", "b"}, s.Snapshot())
}

func TestStoreClearOnEmpty(t *testing.T) {
	s := NewStore()
	assert.Equal(t, 0, s.Clear())
	assert.Equal(t, 0, s.Remove("a"))

	s.Add("a", "b")
	assert.Equal(t, 2, s.Clear())
	assert.Equal(t, 0, s.Count())
}

func TestStoreReplace(t *testing.T) {
	s := NewStore("old")
	s.Replace([]string{"x", "y", "x"})
	assert.Equal(t, []string{"x", "y"}, s.Snapshot())
}

func TestStoreReplaceIsAtomic(t *testing.T) {
	s := NewStore("a", "b")
	done := make(chan struct{})
	var seen [][]string

	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			seen = append(seen, s.Snapshot())
		}
	}()
	for i := 0; i < 200; i++ {
		s.Replace([]string{"a", "b"})
	}
	<-done

	for _, snap := range seen {
		assert.Equal(t, []string{"a", "b"}, snap)
	}
}

func TestStoreSnapshotIsACopy(t *testing.T) {
	s := NewStore("a")
	snap := s.Snapshot()
	snap[0] = "mutated"
	assert.True(t, s.Contains("a"))
	assert.False(t, s.Contains("mutated"))
}

func TestStoreConcurrentAdd(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add("a", "b", "c")
		}()
	}
	wg.Wait()
	require.Equal(t, 3, s.Count())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	_, ok := r.Get("notes.org")
	assert.False(t, ok)
	assert.Nil(t, r.Snapshot("notes.org"))

	r.Ensure("notes.org").Add("a")
	r.Ensure("b.md").Add("b")
	assert.Equal(t, []string{"a"}, r.Snapshot("notes.org"))
	assert.Equal(t, []string{"b.md", "notes.org"}, r.Documents())

	r.Drop("notes.org")
	_, ok = r.Get("notes.org")
	assert.False(t, ok)
	assert.Equal(t, []string{"b"}, r.Snapshot("b.md"))
}
