// Package compare builds and loads side-by-side comparisons of two games.
package compare

import (
	"context"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"gamedex/internal/catalog"
	"gamedex/internal/format"
	"gamedex/internal/resolver"
	"gamedex/pkg/models"
)

// Path is the location of the comparison view.
const Path = "/compare"

// Href builds the comparison link for the first two selected entries.
func Href(selected []models.SelectionEntry) (string, error) {
	if len(selected) < 2 {
		return "", catalog.Validation("compare", "Select two games to compare.")
	}
	a, b := selected[0], selected[1]
	if a.Slug == "" || b.Slug == "" {
		return "", catalog.Validation("compare", "Incomplete selection: the selected games have no slug.")
	}
	q := url.Values{}
	q.Set("a", a.Slug)
	q.Set("b", b.Slug)
	return Path + "?" + q.Encode(), nil
}

// ParseQuery reads the a and b tokens from a raw query string or a full
// comparison link.
func ParseQuery(raw string) (a, b string, err error) {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[i+1:]
	}
	q, err := url.ParseQuery(raw)
	if err != nil {
		return "", "", catalog.Validation("compare", "Malformed comparison link.")
	}
	return strings.TrimSpace(q.Get("a")), strings.TrimSpace(q.Get("b")), nil
}

type Resolver interface {
	Resolve(ctx context.Context, token string) (*resolver.Result, error)
}

type Pair struct {
	A, B *models.DetailRecord
}

type Loader struct {
	res Resolver
}

func NewLoader(res Resolver) *Loader {
	return &Loader{res: res}
}

// Load resolves both tokens concurrently. The first failure cancels the
// other lookup.
func (l *Loader) Load(ctx context.Context, a, b string) (*Pair, error) {
	if a == "" || b == "" {
		return nil, catalog.Validation("compare", "Select two games to compare.")
	}
	if a == b {
		return nil, catalog.Validation("compare", "Pick two different games.")
	}

	var pair Pair
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := l.res.Resolve(gctx, a)
		if err != nil {
			return err
		}
		pair.A = r.Record
		return nil
	})
	g.Go(func() error {
		r, err := l.res.Resolve(gctx, b)
		if err != nil {
			return err
		}
		pair.B = r.Record
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if pair.A.ID != "" && pair.A.ID == pair.B.ID {
		return nil, catalog.Validation("compare", "Pick two different games.")
	}
	return &pair, nil
}

type Row struct {
	Label string
	A, B  string
}

// Rows renders the comparison table. Prices of both sides use the first
// game's currency so the two columns stay comparable.
func Rows(p *Pair, locale language.Tag) []Row {
	cur := p.A.Currency
	field := func(label string, f func(*models.DetailRecord) string) Row {
		return Row{Label: label, A: f(p.A), B: f(p.B)}
	}
	return []Row{
		field("Price", func(d *models.DetailRecord) string { return format.Price(float64(d.Price), cur, locale) }),
		field("Platforms", func(d *models.DetailRecord) string { return format.Text(d.Platform) }),
		field("Release", func(d *models.DetailRecord) string { return format.Text(d.ReleaseDate) }),
		field("PEGI", func(d *models.DetailRecord) string { return format.Text(d.Pegi) }),
		field("Modes", func(d *models.DetailRecord) string { return format.List(d.Modes, " · ") }),
		field("Developer", func(d *models.DetailRecord) string { return format.Text(d.Developer) }),
		field("Publisher", func(d *models.DetailRecord) string { return format.Text(d.Publisher) }),
		field("Stock", func(d *models.DetailRecord) string { return format.Stock(float64(d.Stock)) }),
		field("Tags", func(d *models.DetailRecord) string { return format.List(d.Tags, ", ") }),
		field("Audio", func(d *models.DetailRecord) string { return format.List(d.LanguagesAudio, ", ") }),
		field("Text", func(d *models.DetailRecord) string { return format.List(d.LanguagesText, ", ") }),
	}
}
