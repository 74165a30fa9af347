package query

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamedex/internal/catalog"
	"gamedex/pkg/models"
)

// gatedLister answers each search only when its gate is released.
type gatedLister struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	results map[string][]models.CatalogItem
	errs    map[string]error
	filters []catalog.Filter
}

func newGatedLister() *gatedLister {
	return &gatedLister{
		gates:   map[string]chan struct{}{},
		results: map[string][]models.CatalogItem{},
		errs:    map[string]error{},
	}
}

func (l *gatedLister) gate(search string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	g, ok := l.gates[search]
	if !ok {
		g = make(chan struct{})
		l.gates[search] = g
	}
	return g
}

func (l *gatedLister) List(ctx context.Context, f catalog.Filter) ([]models.CatalogItem, error) {
	l.mu.Lock()
	l.filters = append(l.filters, f)
	l.mu.Unlock()

	select {
	case <-l.gate(f.Search):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.results[f.Search], l.errs[f.Search]
}

// instantLister answers immediately from a fixed list.
type instantLister struct {
	mu      sync.Mutex
	items   []models.CatalogItem
	err     error
	filters []catalog.Filter
}

func (l *instantLister) List(_ context.Context, f catalog.Filter) ([]models.CatalogItem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.filters = append(l.filters, f)
	return l.items, l.err
}

func titles(items []models.CatalogItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Title)
	}
	return out
}

func TestStaleResponseNeverOverwritesNewer(t *testing.T) {
	l := newGatedLister()
	l.results["a"] = []models.CatalogItem{{ID: "1", Title: "Alan Wake"}, {ID: "2", Title: "Abzu"}}
	l.results["ab"] = []models.CatalogItem{{ID: "2", Title: "Abzu"}}

	p := New(l, Options{})
	defer p.Close()

	p.SetSearch("a")  // request #1, held
	p.SetSearch("ab") // request #2
	close(l.gate("ab"))

	require.Eventually(t, func() bool { return !p.State().Loading }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"Abzu"}, titles(p.State().Items))

	close(l.gate("a"))
	p.Wait()

	st := p.State()
	assert.Equal(t, []string{"Abzu"}, titles(st.Items))
	assert.Equal(t, "ab", st.Query.Search)
	assert.Equal(t, uint64(2), st.Seq)
	assert.False(t, st.Loading)
}

func TestLoadingStaysOnUntilLatestSettles(t *testing.T) {
	l := newGatedLister()
	p := New(l, Options{})
	defer p.Close()

	p.SetSearch("a")
	p.SetSearch("ab")
	assert.True(t, p.State().Loading)

	close(l.gate("a")) // stale response arrives first
	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return len(l.filters) == 2
	}, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.True(t, p.State().Loading, "a dropped response does not clear loading")

	close(l.gate("ab"))
	p.Wait()
	assert.False(t, p.State().Loading)
}

func TestFilterOmitsEmptyValues(t *testing.T) {
	l := &instantLister{}
	p := New(l, Options{})
	defer p.Close()

	p.Refresh()
	p.Wait()
	p.SetCategory("RPG")
	p.Wait()
	p.SetSearch("  zelda ")
	p.Wait()
	p.SetCategory("all")
	p.Wait()

	assert.Equal(t, []catalog.Filter{
		{},
		{Category: "RPG"},
		{Search: "zelda", Category: "RPG"},
		{Search: "zelda"},
	}, l.filters)
}

func TestDebouncedSearchIssuesOneRequest(t *testing.T) {
	l := &instantLister{}
	p := New(l, Options{Debounce: 30 * time.Millisecond})
	defer p.Close()

	p.SetSearch("e")
	p.SetSearch("el")
	p.SetSearch("eld")

	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return len(l.filters) == 1
	}, time.Second, time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	p.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Equal(t, []catalog.Filter{{Search: "eld"}}, l.filters)
}

func TestSortIsLocaleAwareAndCaseInsensitive(t *testing.T) {
	l := &instantLister{items: []models.CatalogItem{
		{ID: "1", Title: "zelda", Category: "Adventure"},
		{ID: "2", Title: "Élite", Category: "sim"},
		{ID: "3", Title: "celeste", Category: ""},
		{ID: "4", Title: "Banjo", Category: "Platform"},
	}}
	p := New(l, Options{})
	defer p.Close()

	p.Refresh()
	p.Wait()
	assert.Equal(t, []string{"Banjo", "celeste", "Élite", "zelda"}, titles(p.State().Items))

	p.SetSort(SortByTitle, Desc)
	p.Wait()
	assert.Equal(t, []string{"zelda", "Élite", "celeste", "Banjo"}, titles(p.State().Items))

	p.SetSort(SortByCategory, Asc)
	p.Wait()
	assert.Equal(t, []string{"celeste", "zelda", "Banjo", "Élite"}, titles(p.State().Items), "a missing category sorts first")

	assert.Equal(t, []string{"Adventure", "Platform", "sim"}, p.Categories())
}

func TestErrorKeepsPreviousItems(t *testing.T) {
	l := &instantLister{items: []models.CatalogItem{{ID: "1", Title: "Halo"}}}
	p := New(l, Options{})
	defer p.Close()

	p.Refresh()
	p.Wait()

	l.mu.Lock()
	l.err = &catalog.Error{Kind: catalog.ErrNetwork, Op: "list", Status: 500}
	l.mu.Unlock()
	p.Refresh()
	p.Wait()

	st := p.State()
	assert.ErrorIs(t, st.Err, catalog.ErrNetwork)
	assert.Equal(t, []string{"Halo"}, titles(st.Items))
	assert.False(t, st.Loading)

	l.mu.Lock()
	l.err = nil
	l.mu.Unlock()
	p.Refresh()
	p.Wait()
	assert.NoError(t, p.State().Err)
}

func TestClearOnError(t *testing.T) {
	l := &instantLister{items: []models.CatalogItem{{ID: "1", Title: "Halo"}}}
	p := New(l, Options{ClearOnError: true})
	defer p.Close()

	p.Refresh()
	p.Wait()
	l.mu.Lock()
	l.err = errors.New("boom")
	l.mu.Unlock()
	p.Refresh()
	p.Wait()

	assert.Empty(t, p.State().Items)
}

func TestNoUpdatesAfterClose(t *testing.T) {
	l := newGatedLister()
	var mu sync.Mutex
	var updates int
	p := New(l, Options{OnChange: func(State) {
		mu.Lock()
		updates++
		mu.Unlock()
	}})

	p.SetSearch("a")
	mu.Lock()
	before := updates
	mu.Unlock()

	p.Close()
	close(l.gate("a"))
	p.Wait()
	p.SetSearch("b")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, before, updates)
}

func TestOnChangeSeesLoadingThenResult(t *testing.T) {
	l := &instantLister{items: []models.CatalogItem{{ID: "1", Title: "Halo"}}}
	var mu sync.Mutex
	var states []State
	p := New(l, Options{OnChange: func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	}})
	defer p.Close()

	p.Refresh()
	p.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, states, 2)
	assert.True(t, states[0].Loading)
	assert.False(t, states[1].Loading)
	assert.Equal(t, []string{"Halo"}, titles(states[1].Items))
}

func TestSetQueryIssuesOneRequest(t *testing.T) {
	l := &instantLister{items: []models.CatalogItem{
		{ID: "1", Title: "Hades", Category: "Roguelike"},
		{ID: "2", Title: "Celeste", Category: "Platform"},
	}}
	p := New(l, Options{})
	defer p.Close()

	p.SetQuery(Query{Search: "e", SortField: SortByCategory, SortDir: Desc})
	p.Wait()

	st := p.State()
	assert.Equal(t, []catalog.Filter{{Search: "e"}}, l.filters)
	assert.Equal(t, AllCategories, st.Query.Category)
	assert.Equal(t, []string{"Hades", "Celeste"}, titles(st.Items))
}

// categoryLister narrows its answer by Filter.Category like the catalog
// server does.
type categoryLister struct {
	items []models.CatalogItem
}

func (l *categoryLister) List(_ context.Context, f catalog.Filter) ([]models.CatalogItem, error) {
	out := []models.CatalogItem{}
	for _, it := range l.items {
		if f.Category == "" || it.Category == f.Category {
			out = append(out, it)
		}
	}
	return out, nil
}

func TestCategoriesSurviveCategoryFilter(t *testing.T) {
	l := &categoryLister{items: []models.CatalogItem{
		{ID: "1", Title: "Doom", Category: "Shooter"},
		{ID: "2", Title: "Celeste", Category: "Platform"},
		{ID: "3", Title: "Myst", Category: "Adventure"},
		{ID: "4", Title: "Quake", Category: "Shooter"},
	}}
	p := New(l, Options{})
	defer p.Close()

	p.Refresh()
	p.Wait()
	all := []string{"Adventure", "Platform", "Shooter"}
	require.Equal(t, all, p.Categories())

	p.SetCategory("Shooter")
	p.Wait()
	assert.Equal(t, []string{"Doom", "Quake"}, titles(p.State().Items))
	assert.Equal(t, all, p.Categories())

	p.SetCategory(AllCategories)
	p.Wait()
	assert.Len(t, p.State().Items, 4)
	assert.Equal(t, all, p.Categories())
}
