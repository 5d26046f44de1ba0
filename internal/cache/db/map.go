package db

import (
	"container/list"
	"sync"
	"time"

	"github.com/Borislavv/go-feed-cache/internal/cache/db/model"
)

// Lookup is the outcome of a read.
type Lookup uint8

const (
	Miss Lookup = iota
	Hit
	Expired // entry was present but past its deadline; it has been removed
)

// Map is a bounded store with FIFO eviction. One mutex guards every operation.
// The list front holds the oldest inserted key.
type Map[V any] struct {
	sync.Mutex
	maxSize int
	items   map[string]*list.Element
	order   *list.List
}

// NewMap returns a store holding at most maxSize keys; maxSize <= 0 means unbounded.
func NewMap[V any](maxSize int) *Map[V] {
	return &Map[V]{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

func (m *Map[V]) MaxSize() int { return m.maxSize }

// Get returns the entry for key. An entry past its deadline is deleted and reported as Expired.
func (m *Map[V]) Get(key string, now time.Time) (*model.Entry[V], Lookup) {
	m.Lock()
	defer m.Unlock()

	el, ok := m.items[key]
	if !ok {
		return nil, Miss
	}
	entry := el.Value.(*model.Entry[V])
	if entry.IsExpired(now) {
		m.removeUnlocked(key, el)
		return nil, Expired
	}
	return entry, Hit
}

// Set stores entry. Overwriting keeps the key's position in the insertion order.
// Inserting a new key into a full map evicts the oldest key first, which is returned.
func (m *Map[V]) Set(entry *model.Entry[V]) (evicted *model.Entry[V]) {
	m.Lock()
	defer m.Unlock()
	return m.setUnlocked(entry)
}

// SetMany stores entries under a single lock and returns every evicted entry.
func (m *Map[V]) SetMany(entries []*model.Entry[V]) (evicted []*model.Entry[V]) {
	m.Lock()
	defer m.Unlock()
	for _, entry := range entries {
		if victim := m.setUnlocked(entry); victim != nil {
			evicted = append(evicted, victim)
		}
	}
	return evicted
}

// GetMany returns live entries for keys. Misses and expired entries are omitted; expired ones are removed.
func (m *Map[V]) GetMany(keys []string, now time.Time) (found map[string]*model.Entry[V], expired int) {
	m.Lock()
	defer m.Unlock()

	found = make(map[string]*model.Entry[V], len(keys))
	for _, key := range keys {
		el, ok := m.items[key]
		if !ok {
			continue
		}
		entry := el.Value.(*model.Entry[V])
		if entry.IsExpired(now) {
			m.removeUnlocked(key, el)
			expired++
			continue
		}
		found[key] = entry
	}
	return found, expired
}

func (m *Map[V]) Remove(key string) bool {
	m.Lock()
	defer m.Unlock()

	el, ok := m.items[key]
	if !ok {
		return false
	}
	m.removeUnlocked(key, el)
	return true
}

// RemoveIf removes key only while the stored entry still satisfies cond.
func (m *Map[V]) RemoveIf(key string, cond func(entry *model.Entry[V]) bool) bool {
	m.Lock()
	defer m.Unlock()

	el, ok := m.items[key]
	if !ok || !cond(el.Value.(*model.Entry[V])) {
		return false
	}
	m.removeUnlocked(key, el)
	return true
}

// RemoveKeys removes every key matching fn and returns how many were removed.
func (m *Map[V]) RemoveKeys(fn func(key string) bool) (removed int) {
	m.Lock()
	defer m.Unlock()

	for el := m.order.Front(); el != nil; {
		next := el.Next()
		entry := el.Value.(*model.Entry[V])
		if fn(entry.Key()) {
			m.removeUnlocked(entry.Key(), el)
			removed++
		}
		el = next
	}
	return removed
}

// Update replaces the value of a live entry with fn's result, keeping its timestamps.
// An expired entry is removed and Expired is returned without calling fn.
func (m *Map[V]) Update(key string, now time.Time, fn func(value V) V) (*model.Entry[V], Lookup) {
	m.Lock()
	defer m.Unlock()

	el, ok := m.items[key]
	if !ok {
		return nil, Miss
	}
	entry := el.Value.(*model.Entry[V])
	if entry.IsExpired(now) {
		m.removeUnlocked(key, el)
		return nil, Expired
	}
	updated := entry.With(fn(entry.Value()))
	el.Value = updated
	return updated, Hit
}

// CleanupExpired removes every expired entry.
func (m *Map[V]) CleanupExpired(now time.Time) (removed int) {
	m.Lock()
	defer m.Unlock()

	for el := m.order.Front(); el != nil; {
		next := el.Next()
		entry := el.Value.(*model.Entry[V])
		if entry.IsExpired(now) {
			m.removeUnlocked(entry.Key(), el)
			removed++
		}
		el = next
	}
	return removed
}

// Count returns the number of stored and already-expired entries without removing anything.
func (m *Map[V]) Count(now time.Time) (total, expired int) {
	m.Lock()
	defer m.Unlock()

	for el := m.order.Front(); el != nil; el = el.Next() {
		if el.Value.(*model.Entry[V]).IsExpired(now) {
			expired++
		}
	}
	return len(m.items), expired
}

// CountKeys returns how many stored keys match fn, expired ones included.
func (m *Map[V]) CountKeys(fn func(key string) bool) (n int) {
	m.Lock()
	defer m.Unlock()

	for key := range m.items {
		if fn(key) {
			n++
		}
	}
	return n
}

// Clear drops every entry and returns how many there were.
func (m *Map[V]) Clear() int {
	m.Lock()
	defer m.Unlock()

	n := len(m.items)
	m.items = make(map[string]*list.Element)
	m.order.Init()
	return n
}

func (m *Map[V]) Len() int {
	m.Lock()
	defer m.Unlock()
	return len(m.items)
}

func (m *Map[V]) setUnlocked(entry *model.Entry[V]) (evicted *model.Entry[V]) {
	if el, ok := m.items[entry.Key()]; ok {
		el.Value = entry
		return nil
	}
	if m.maxSize > 0 && len(m.items) >= m.maxSize {
		evicted = m.evictOldestUnlocked()
	}
	m.items[entry.Key()] = m.order.PushBack(entry)
	return evicted
}

// evictOldestUnlocked is a no-op on an empty map.
func (m *Map[V]) evictOldestUnlocked() *model.Entry[V] {
	el := m.order.Front()
	if el == nil {
		return nil
	}
	entry := el.Value.(*model.Entry[V])
	m.removeUnlocked(entry.Key(), el)
	return entry
}

func (m *Map[V]) removeUnlocked(key string, el *list.Element) {
	m.order.Remove(el)
	delete(m.items, key)
}
