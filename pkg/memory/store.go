package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// DefaultNamespace is used when a caller passes an empty namespace.
const DefaultNamespace = "default"

// Entry is one stored value with its write timestamp.
type Entry struct {
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
	deleted   bool
}

// Stats summarizes a store's contents.
type Stats struct {
	Namespaces int `json:"namespaces"`
	Entries    int `json:"entries"`
	Tombstones int `json:"tombstones"`
}

// Store is a namespaced key-value scratchpad. Deletes leave tombstones so
// a later Put can distinguish "never existed" from "removed"; tombstoned
// keys are invisible to Get, Keys, and All. Safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]*Entry
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		namespaces: make(map[string]map[string]*Entry),
	}
}

// Put writes a value, reviving any tombstone under the same key.
func (s *Store) Put(namespace, key, value string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	namespace = normalize(namespace)

	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.namespaces[namespace]
	if !ok {
		ns = make(map[string]*Entry)
		s.namespaces[namespace] = ns
	}
	ns[key] = &Entry{Value: value, UpdatedAt: time.Now()}
	return nil
}

// Get returns the value for key, or false when absent or deleted.
func (s *Store) Get(namespace, key string) (string, bool) {
	namespace = normalize(namespace)

	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.namespaces[namespace][key]
	if !ok || entry.deleted {
		return "", false
	}
	return entry.Value, true
}

// Delete tombstones a key. Deleting an absent key is not an error.
func (s *Store) Delete(namespace, key string) bool {
	namespace = normalize(namespace)

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.namespaces[namespace][key]
	if !ok || entry.deleted {
		return false
	}
	entry.deleted = true
	entry.Value = ""
	entry.UpdatedAt = time.Now()
	return true
}

// Keys returns the live keys in a namespace, sorted.
func (s *Store) Keys(namespace string) []string {
	namespace = normalize(namespace)

	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := []string{}
	for key, entry := range s.namespaces[namespace] {
		if !entry.deleted {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// All returns a copy of the live entries in a namespace.
func (s *Store) All(namespace string) map[string]string {
	namespace = normalize(namespace)

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string)
	for key, entry := range s.namespaces[namespace] {
		if !entry.deleted {
			out[key] = entry.Value
		}
	}
	return out
}

// Stats reports totals across all namespaces.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{Namespaces: len(s.namespaces)}
	for _, ns := range s.namespaces {
		for _, entry := range ns {
			if entry.deleted {
				st.Tombstones++
			} else {
				st.Entries++
			}
		}
	}
	return st
}

// Clear drops everything, tombstones included.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.namespaces = make(map[string]map[string]*Entry)
}

func normalize(namespace string) string {
	if namespace == "" {
		return DefaultNamespace
	}
	return namespace
}
