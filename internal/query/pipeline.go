// Package query runs the search, filter and sort pipeline behind the
// catalog list.
//
// Every input change issues a new request tagged with a sequence number.
// Only the response to the most recent request is applied; older ones are
// dropped when they arrive, so a slow response for "a" can never replace
// the list already shown for "ab".
package query

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"gamedex/internal/catalog"
	"gamedex/internal/debounce"
	"gamedex/internal/logging"
	"gamedex/pkg/models"
)

type SortField string

const (
	SortByTitle    SortField = "title"
	SortByCategory SortField = "category"
)

type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// AllCategories is the category value that disables the category filter.
const AllCategories = "all"

// Query is the pipeline's input state.
type Query struct {
	Search    string
	Category  string
	SortField SortField
	SortDir   SortDirection
}

// Filter maps the query onto request parameters. Blank values and the
// "all" category are left out.
func (q Query) Filter() catalog.Filter {
	f := catalog.Filter{Search: strings.TrimSpace(q.Search)}
	if c := strings.TrimSpace(q.Category); c != "" && !strings.EqualFold(c, AllCategories) {
		f.Category = c
	}
	return f
}

// State is a snapshot of what the list view shows.
type State struct {
	Query   Query
	Items   []models.CatalogItem
	Loading bool
	Err     error
	Seq     uint64 // sequence number of the request Items came from
}

// Lister is the part of the catalog client the pipeline needs.
type Lister interface {
	List(ctx context.Context, f catalog.Filter) ([]models.CatalogItem, error)
}

type Options struct {
	// Debounce delays search text changes. Zero applies them at once.
	Debounce time.Duration
	// Locale drives collation. Defaults to Italian.
	Locale language.Tag
	// ClearOnError empties the list when the latest request fails. By
	// default the previous list stays alongside the error.
	ClearOnError bool
	// OnChange receives every new state. It runs with the pipeline locked
	// and must not call back into it.
	OnChange func(State)
}

const DefaultDebounce = 400 * time.Millisecond

type Pipeline struct {
	lister Lister
	opts   Options
	log    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	search *debounce.Debouncer[string]

	mu       sync.Mutex
	query    Query
	seq      uint64 // latest issued
	state    State
	collator *collate.Collator
	closed   bool

	// categories seen in the last response without a category filter
	categories []string
}

// New returns a pipeline with an empty search, all categories, sorted by
// title ascending. Nothing is fetched until the first input or Refresh.
func New(lister Lister, opts Options) *Pipeline {
	if opts.Locale == language.Und {
		opts.Locale = language.Italian
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		lister:   lister,
		opts:     opts,
		log:      logging.With("query"),
		ctx:      ctx,
		cancel:   cancel,
		query:    Query{Category: AllCategories, SortField: SortByTitle, SortDir: Asc},
		collator: collate.New(opts.Locale, collate.Loose),
	}
	p.state.Query = p.query
	p.state.Items = []models.CatalogItem{}
	p.search = debounce.New(opts.Debounce, p.applySearch)
	return p
}

// SetSearch feeds raw search input through the debouncer.
func (p *Pipeline) SetSearch(text string) {
	p.search.Push(text)
}

// FlushSearch applies pending search input without waiting.
func (p *Pipeline) FlushSearch() {
	p.search.Flush()
}

func (p *Pipeline) applySearch(text string) {
	p.update(func(q *Query) { q.Search = text })
}

func (p *Pipeline) SetCategory(category string) {
	p.update(func(q *Query) { q.Category = category })
}

// SetSort changes the sort order. Unknown values fall back to title and
// ascending.
func (p *Pipeline) SetSort(field SortField, dir SortDirection) {
	if field != SortByCategory {
		field = SortByTitle
	}
	if dir != Desc {
		dir = Asc
	}
	p.update(func(q *Query) {
		q.SortField = field
		q.SortDir = dir
	})
}

// SetQuery replaces the whole query with a single request. A blank
// category means all categories; sort values are normalised as in SetSort.
func (p *Pipeline) SetQuery(next Query) {
	if strings.TrimSpace(next.Category) == "" {
		next.Category = AllCategories
	}
	if next.SortField != SortByCategory {
		next.SortField = SortByTitle
	}
	if next.SortDir != Desc {
		next.SortDir = Asc
	}
	p.update(func(q *Query) { *q = next })
}

// Refresh re-issues the current query. It is the retry path after an error.
func (p *Pipeline) Refresh() {
	p.update(func(*Query) {})
}

func (p *Pipeline) update(mutate func(*Query)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	mutate(&p.query)
	p.dispatch()
}

// dispatch must be called with mu held.
func (p *Pipeline) dispatch() {
	p.seq++
	seq := p.seq
	q := p.query

	p.state.Query = q
	p.state.Loading = true
	p.notify()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		items, err := p.lister.List(p.ctx, q.Filter())
		p.settle(seq, q, items, err)
	}()
}

func (p *Pipeline) settle(seq uint64, q Query, items []models.CatalogItem, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	if seq != p.seq {
		p.log.Debug().Uint64("seq", seq).Uint64("latest", p.seq).Msg("discarding stale response")
		return
	}

	p.state.Loading = false
	if err != nil {
		p.log.Warn().Err(err).Uint64("seq", seq).Msg("catalog query failed")
		p.state.Err = err
		if p.opts.ClearOnError {
			p.state.Items = []models.CatalogItem{}
		}
		p.notify()
		return
	}

	p.state.Err = nil
	p.state.Items = p.sorted(items, q.SortField, q.SortDir)
	p.state.Seq = seq
	if q.Filter().Category == "" {
		p.categories = p.distinctCategories(items)
	}
	p.notify()
}

// sorted must be called with mu held; the collator is not safe for
// concurrent use.
func (p *Pipeline) sorted(items []models.CatalogItem, field SortField, dir SortDirection) []models.CatalogItem {
	out := make([]models.CatalogItem, len(items))
	copy(out, items)

	sign := 1
	if dir == Desc {
		sign = -1
	}
	sort.SliceStable(out, func(i, j int) bool {
		return sign*p.collator.CompareString(sortKey(out[i], field), sortKey(out[j], field)) < 0
	})
	return out
}

// sortKey returns the field to sort by. A missing category sorts as "".
func sortKey(item models.CatalogItem, field SortField) string {
	if field == SortByCategory {
		return item.Category
	}
	return item.Title
}

// notify must be called with mu held.
func (p *Pipeline) notify() {
	if p.opts.OnChange != nil {
		p.opts.OnChange(p.snapshot())
	}
}

func (p *Pipeline) snapshot() State {
	s := p.state
	s.Items = append([]models.CatalogItem(nil), p.state.Items...)
	return s
}

// State returns a copy of the current state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

// Categories lists the distinct non-empty categories in collation order.
// The list comes from the last response fetched without a category
// filter, so picking a category does not hide the others.
func (p *Pipeline) Categories() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.categories == nil {
		return p.distinctCategories(p.state.Items)
	}
	return append([]string{}, p.categories...)
}

// distinctCategories must be called with mu held.
func (p *Pipeline) distinctCategories(items []models.CatalogItem) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, it := range items {
		if it.Category == "" {
			continue
		}
		if _, ok := seen[it.Category]; ok {
			continue
		}
		seen[it.Category] = struct{}{}
		out = append(out, it.Category)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return p.collator.CompareString(out[i], out[j]) < 0
	})
	return out
}

// Wait blocks until every dispatched request has settled or been dropped.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Close stops the pipeline. In-flight requests are cancelled and no state
// change is published afterwards.
func (p *Pipeline) Close() {
	p.search.Stop()
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cancel()
}
