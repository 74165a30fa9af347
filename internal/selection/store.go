// Package selection keeps small, ordered, persisted sets of catalog items:
// the user's favorites and the pair of items picked for comparison.
package selection

import (
	"errors"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"gamedex/internal/logging"
	"gamedex/internal/storage"
	"gamedex/pkg/models"
)

// Order decides which end of the list new entries go to.
type Order int

const (
	// NewestFirst prepends new entries.
	NewestFirst Order = iota
	// OldestFirst appends new entries.
	OldestFirst
)

// Options configure a Store.
type Options struct {
	Key      string
	Order    Order
	Capacity int // 0 means unbounded
	Snapshot func(models.CatalogItem) models.SelectionEntry
}

// Store is an ordered set of SelectionEntry values, unique by ID. Every
// mutation is written through to durable storage before it returns; write
// errors are logged and otherwise ignored so the store keeps working in
// memory.
type Store struct {
	mu    sync.RWMutex
	kv    storage.Storage
	opts  Options
	items []models.SelectionEntry
	log   zerolog.Logger
}

// New builds a store and hydrates it from kv. Missing or unreadable data
// gives an empty store.
func New(kv storage.Storage, opts Options) *Store {
	if opts.Snapshot == nil {
		opts.Snapshot = FullSnapshot
	}
	s := &Store{
		kv:   kv,
		opts: opts,
		log:  logging.With("selection").With().Str("key", opts.Key).Logger(),
	}
	s.items = s.hydrate()
	return s
}

func (s *Store) hydrate() []models.SelectionEntry {
	raw, err := s.kv.Get(s.opts.Key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn().Err(err).Msg("read failed, starting empty")
		}
		return []models.SelectionEntry{}
	}

	var stored []models.SelectionEntry
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.log.Warn().Err(err).Msg("corrupt state, starting empty")
		return []models.SelectionEntry{}
	}

	out := make([]models.SelectionEntry, 0, len(stored))
	for _, e := range stored {
		if e.ID == "" || indexOf(out, e.ID) >= 0 {
			continue
		}
		out = append(out, e)
	}
	return s.truncate(out)
}

// Add inserts a snapshot of item. It does nothing when the item has no ID
// or is already present. It reports whether the store changed.
func (s *Store) Add(item models.CatalogItem) bool {
	if item.ID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if indexOf(s.items, item.ID) >= 0 {
		return false
	}
	s.insert(item)
	s.persist()
	return true
}

// Remove deletes the entry with the given ID, if any.
func (s *Store) Remove(id models.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.items, id)
	if i < 0 {
		return false
	}
	s.removeAt(i)
	s.persist()
	return true
}

// Toggle removes item when present and adds it otherwise. It returns
// whether the item is in the store afterwards.
func (s *Store) Toggle(item models.CatalogItem) bool {
	if item.ID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := indexOf(s.items, item.ID); i >= 0 {
		s.removeAt(i)
		s.persist()
		return false
	}
	s.insert(item)
	s.persist()
	return indexOf(s.items, item.ID) >= 0
}

// Contains reports whether an entry with the given ID is stored.
func (s *Store) Contains(id models.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexOf(s.items, id) >= 0
}

// Items returns a copy of the entries in store order.
func (s *Store) Items() []models.SelectionEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SelectionEntry, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Clear empties the store and deletes its durable copy.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = []models.SelectionEntry{}
	if err := s.kv.Remove(s.opts.Key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.log.Warn().Err(err).Msg("clear failed")
	}
}

// removeAt must be called with mu held. The backing array is not reused
// so copies handed out by Items stay intact.
func (s *Store) removeAt(i int) {
	next := make([]models.SelectionEntry, 0, len(s.items)-1)
	next = append(next, s.items[:i]...)
	next = append(next, s.items[i+1:]...)
	s.items = next
}

// insert must be called with mu held.
func (s *Store) insert(item models.CatalogItem) {
	snap := s.opts.Snapshot(item)
	next := make([]models.SelectionEntry, 0, len(s.items)+1)
	if s.opts.Order == NewestFirst {
		next = append(next, snap)
		next = append(next, s.items...)
	} else {
		next = append(next, s.items...)
		next = append(next, snap)
	}
	s.items = s.truncate(next)
}

// truncate drops entries from the end opposite to insertion.
func (s *Store) truncate(items []models.SelectionEntry) []models.SelectionEntry {
	c := s.opts.Capacity
	if c <= 0 || len(items) <= c {
		return items
	}
	if s.opts.Order == NewestFirst {
		return items[:c]
	}
	return items[len(items)-c:]
}

// persist must be called with mu held.
func (s *Store) persist() {
	b, err := json.Marshal(s.items)
	if err != nil {
		s.log.Warn().Err(err).Msg("encode state")
		return
	}
	if err := s.kv.Set(s.opts.Key, string(b)); err != nil {
		s.log.Warn().Err(err).Msg("persist failed, keeping in-memory state")
		return
	}
	s.log.Debug().Int("entries", len(s.items)).Msg("persisted")
}

func indexOf(items []models.SelectionEntry, id models.ID) int {
	for i, e := range items {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// FullSnapshot copies every list field of item.
func FullSnapshot(item models.CatalogItem) models.SelectionEntry {
	return models.SelectionEntry{
		ID:       item.ID,
		Title:    item.Title,
		Category: item.Category,
		Image:    item.Image,
		Slug:     item.Slug,
	}
}
