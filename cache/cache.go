// Package cache provides the content-keyed render cache shared by
// pipeline workers. Keys are derived from input content, so a hit
// means the inputs that produced an artifact are unchanged.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"
)

// Entry is one cached render product. Callers must treat returned
// entries as read-only.
type Entry struct {
	Key          string
	Data         []byte
	Timestamp    time.Time
	TTL          time.Duration
	Dependencies []string
}

func (e *Entry) expired(now time.Time) bool {
	return e.TTL > 0 && now.Sub(e.Timestamp) > e.TTL
}

// Manager is a concurrency-safe in-memory cache. A single RWMutex
// guards the map; TTL expiry is enforced lazily on Get.
type Manager struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func NewManager() *Manager {
	return &Manager{entries: make(map[string]*Entry)}
}

// Get returns the entry for key, or nil on miss or expiry.
func (m *Manager) Get(key string) *Entry {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	if entry.expired(time.Now()) {
		m.mu.Lock()
		if current, ok := m.entries[key]; ok && current.expired(time.Now()) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil
	}
	return entry
}

// Put stores data under key. A ttl of zero means the entry never
// expires.
func (m *Manager) Put(key string, data []byte, dependencies []string, ttl time.Duration) {
	entry := &Entry{
		Key:          key,
		Data:         data,
		Timestamp:    time.Now(),
		TTL:          ttl,
		Dependencies: append([]string(nil), dependencies...),
	}
	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
}

// Invalidate removes every entry that depends on one of the changed
// paths and returns the removed keys, sorted.
func (m *Manager) Invalidate(changedPaths []string) []string {
	if len(changedPaths) == 0 {
		return nil
	}
	changed := make(map[string]struct{}, len(changedPaths))
	for _, p := range changedPaths {
		changed[p] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var removed []string
	for key, entry := range m.entries {
		for _, dep := range entry.Dependencies {
			if _, hit := changed[dep]; hit {
				delete(m.entries, key)
				removed = append(removed, key)
				break
			}
		}
	}
	sort.Strings(removed)
	return removed
}

// KnownDependency reports whether any live entry lists the path as a
// dependency. The watch coordinator uses this to decide between an
// incremental and a full pass, so it must be asked before Invalidate.
func (m *Manager) KnownDependency(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, entry := range m.entries {
		for _, dep := range entry.Dependencies {
			if dep == path {
				return true
			}
		}
	}
	return false
}

// Len returns the number of live entries.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Key derives a cache key from content parts. Parts are separated so
// concatenation ambiguity cannot alias two different inputs.
func Key(parts ...[]byte) string {
	h := sha256.New()
	for _, part := range parts {
		h.Write(part)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
