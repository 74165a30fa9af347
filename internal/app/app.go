// Package app wires the catalog client, the persistent selections and the
// list pipeline into the operations the front ends call.
package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"gamedex/internal/catalog"
	"gamedex/internal/compare"
	"gamedex/internal/logging"
	"gamedex/internal/query"
	"gamedex/internal/resolver"
	"gamedex/internal/selection"
	"gamedex/internal/storage"
	"gamedex/pkg/models"
)

// enrichTimeout bounds the detail lookup made when favoriting an item
// without an image.
const enrichTimeout = 5 * time.Second

type App struct {
	Client    catalog.Client
	Resolver  *resolver.Resolver
	Favorites *selection.Store
	Compare   *selection.Store
	Loader    *compare.Loader
	Locale    language.Tag

	log zerolog.Logger
}

func New(client catalog.Client, kv storage.Storage, locale language.Tag) *App {
	if locale == language.Und {
		locale = language.Italian
	}
	res := resolver.New(client)
	return &App{
		Client:    client,
		Resolver:  res,
		Favorites: selection.NewFavorites(kv),
		Compare:   selection.NewCompare(kv),
		Loader:    compare.NewLoader(res),
		Locale:    locale,
		log:       logging.With("app"),
	}
}

// NewPipeline returns a list pipeline backed by the app's client.
func (a *App) NewPipeline(debounce time.Duration, clearOnError bool, onChange func(query.State)) *query.Pipeline {
	return query.New(a.Client, query.Options{
		Debounce:     debounce,
		Locale:       a.Locale,
		ClearOnError: clearOnError,
		OnChange:     onChange,
	})
}

// ToggleFavorite flips the favorite state of item and reports whether it
// is a favorite afterwards. A new favorite without an image borrows the
// one from its detail record when that lookup succeeds.
func (a *App) ToggleFavorite(ctx context.Context, item models.CatalogItem) bool {
	if a.Favorites.Contains(item.ID) {
		a.Favorites.Remove(item.ID)
		return false
	}
	if item.Image == "" && item.ID != "" {
		item = a.enrich(ctx, item)
	}
	a.Favorites.Add(item)
	return a.Favorites.Contains(item.ID)
}

func (a *App) enrich(ctx context.Context, item models.CatalogItem) models.CatalogItem {
	ctx, cancel := context.WithTimeout(ctx, enrichTimeout)
	defer cancel()

	d, err := a.Client.Detail(ctx, item.ID)
	if err != nil {
		a.log.Debug().Err(err).Str("id", item.ID.String()).Msg("favorite enrichment skipped")
		return item
	}
	if d.Image != "" {
		item.Image = d.Image
	}
	if item.Category == "" {
		item.Category = d.Category
	}
	return item
}

// ToggleCompare flips item's membership in the compare selection.
func (a *App) ToggleCompare(item models.CatalogItem) bool {
	return a.Compare.Toggle(item)
}

// Detail resolves a route token to its record.
func (a *App) Detail(ctx context.Context, token string) (*resolver.Result, error) {
	return a.Resolver.Resolve(ctx, token)
}

// CompareHref returns the link for the current compare selection.
func (a *App) CompareHref() (string, error) {
	return compare.Href(a.Compare.Items())
}

// Comparison loads the two games named by a comparison link and renders
// their table.
func (a *App) Comparison(ctx context.Context, href string) (*compare.Pair, []compare.Row, error) {
	ta, tb, err := compare.ParseQuery(href)
	if err != nil {
		return nil, nil, err
	}
	pair, err := a.Loader.Load(ctx, ta, tb)
	if err != nil {
		return nil, nil, err
	}
	return pair, compare.Rows(pair, a.Locale), nil
}
