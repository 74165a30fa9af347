package selection

import (
	"gamedex/internal/slug"
	"gamedex/internal/storage"
	"gamedex/pkg/models"
)

const (
	FavoritesKey    = "favorites:items"
	CompareKey      = "compare:selected"
	CompareCapacity = 2
)

// NewFavorites returns the unbounded, newest-first favorites store.
func NewFavorites(kv storage.Storage) *Store {
	return New(kv, Options{
		Key:      FavoritesKey,
		Order:    NewestFirst,
		Snapshot: favoriteSnapshot,
	})
}

// NewCompare returns the compare selection: oldest first, two entries at
// most. Adding a third evicts the oldest.
func NewCompare(kv storage.Storage) *Store {
	return New(kv, Options{
		Key:      CompareKey,
		Order:    OldestFirst,
		Capacity: CompareCapacity,
		Snapshot: compareSnapshot,
	})
}

func favoriteSnapshot(item models.CatalogItem) models.SelectionEntry {
	return models.SelectionEntry{
		ID:       item.ID,
		Title:    item.Title,
		Category: item.Category,
		Image:    item.Image,
	}
}

func compareSnapshot(item models.CatalogItem) models.SelectionEntry {
	s := item.Slug
	if s == "" {
		s = slug.Make(item.Title)
	}
	return models.SelectionEntry{ID: item.ID, Title: item.Title, Slug: s}
}
