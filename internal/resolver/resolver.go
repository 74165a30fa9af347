// Package resolver maps a route token, either a numeric id or a slug, to
// the detail record it names.
package resolver

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"gamedex/internal/catalog"
	"gamedex/internal/logging"
	"gamedex/internal/normalize"
	"gamedex/internal/slug"
	"gamedex/pkg/models"
)

// Stage names the step that produced a match.
type Stage string

const (
	StageID     Stage = "id"     // token was a numeric id
	StageSlug   Stage = "slug"   // server-side slug filter
	StageSearch Stage = "search" // server-side text search, checked per detail
	StageScan   Stage = "scan"   // full collection scan
)

var numericToken = regexp.MustCompile(`^\d+$`)

// Source is the subset of the catalog client the resolver uses.
type Source interface {
	List(ctx context.Context, f catalog.Filter) ([]models.CatalogItem, error)
	Detail(ctx context.Context, id models.ID) (*models.DetailRecord, error)
}

type Result struct {
	Record *models.DetailRecord
	Stage  Stage
	// Canonical is the record's slug when the token was a numeric id and
	// the record has one.
	Canonical string
}

// Redirect reports the slug that should replace the numeric token in the
// current location.
func (r *Result) Redirect() (string, bool) {
	return r.Canonical, r.Canonical != ""
}

type Resolver struct {
	src Source
	log zerolog.Logger
}

func New(src Source) *Resolver {
	return &Resolver{src: src, log: logging.With("resolver")}
}

// Resolve tries, in order: direct id fetch for numeric tokens, the slug
// filter, a text search built from the slug, and a scan of the whole
// collection. Failures inside a stage count as "no match". When every
// stage comes up empty the error matches catalog.ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, token string) (*Result, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, catalog.Validation("resolve", "missing game identifier")
	}
	log := r.log.With().Str("token", token).Logger()

	if numericToken.MatchString(token) {
		rec, err := r.src.Detail(ctx, models.ID(token))
		if err == nil && rec != nil {
			return &Result{Record: rec, Stage: StageID, Canonical: rec.Slug}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Debug().Err(err).Msg("id lookup failed, trying slug stages")
	}

	stages := []struct {
		stage Stage
		run   func(context.Context, string) (*models.DetailRecord, error)
	}{
		{StageSlug, r.bySlugFilter},
		{StageSearch, r.bySearch},
		{StageScan, r.byScan},
	}
	for _, s := range stages {
		rec, err := s.run(ctx, token)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			log.Debug().Err(err).Str("stage", string(s.stage)).Msg("stage failed")
			continue
		}
		if rec != nil {
			log.Debug().Str("stage", string(s.stage)).Str("id", rec.ID.String()).Msg("resolved")
			return &Result{Record: rec, Stage: s.stage}, nil
		}
	}
	return nil, catalog.NotFound("resolve", token)
}

func (r *Resolver) bySlugFilter(ctx context.Context, token string) (*models.DetailRecord, error) {
	items, err := r.src.List(ctx, catalog.Filter{Slug: token})
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if it.Slug == token {
			return r.detailFor(ctx, it), nil
		}
	}
	return nil, nil
}

func (r *Resolver) bySearch(ctx context.Context, token string) (*models.DetailRecord, error) {
	items, err := r.src.List(ctx, catalog.Filter{Search: strings.ReplaceAll(token, "-", " ")})
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		rec, err := r.src.Detail(ctx, it.ID)
		if err != nil || rec == nil {
			continue
		}
		if rec.Slug == token || (rec.Slug == "" && slug.Matches(rec.Title, token)) {
			return rec, nil
		}
	}
	return nil, nil
}

func (r *Resolver) byScan(ctx context.Context, token string) (*models.DetailRecord, error) {
	items, err := r.src.List(ctx, catalog.Filter{})
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if it.Slug == token {
			return r.detailFor(ctx, it), nil
		}
	}
	for _, it := range items {
		if slug.Matches(it.Title, token) {
			return r.detailFor(ctx, it), nil
		}
	}
	return nil, nil
}

// detailFor fetches the full record of a matched list item, falling back
// to the list fields when the detail request fails.
func (r *Resolver) detailFor(ctx context.Context, item models.CatalogItem) *models.DetailRecord {
	rec, err := r.src.Detail(ctx, item.ID)
	if err != nil || rec == nil {
		r.log.Debug().Err(err).Str("id", item.ID.String()).Msg("detail fetch failed, using list record")
		return normalize.FromItem(item)
	}
	return rec
}
