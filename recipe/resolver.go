package recipe

import (
	"context"
	"io"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheSize bounds each of the resolver's caches when no explicit
// size is configured.
const DefaultCacheSize = 128

// urlEntry is a cached name → URL result. Misses are cached too, so a name
// with no discoverable recipe costs one directory call, not one per request.
type urlEntry struct {
	url   string
	found bool
}

// Resolver memoizes Directory and Store lookups behind bounded LRU caches.
// It is safe for concurrent use; concurrent lookups of a cold key collapse
// into a single call to the underlying collaborator.
type Resolver struct {
	dir   Directory
	store Store
	log   *slog.Logger

	urls    *lru.Cache[string, urlEntry]
	recipes *lru.Cache[string, *Recipe]

	urlGroup    singleflight.Group
	recipeGroup singleflight.Group
}

// NewResolver wraps dir and store with caches of the given size.
// A size below 1 falls back to DefaultCacheSize.
func NewResolver(dir Directory, store Store, cacheSize int, logger *slog.Logger) *Resolver {
	if cacheSize < 1 {
		cacheSize = DefaultCacheSize
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	urls, _ := lru.New[string, urlEntry](cacheSize)
	recipes, _ := lru.New[string, *Recipe](cacheSize)
	return &Resolver{
		dir:     dir,
		store:   store,
		log:     logger,
		urls:    urls,
		recipes: recipes,
	}
}

// ResolveURL returns the recipe page URL for an item name, or false when no
// page is discoverable. Results, including misses, are cached per exact
// item-name string.
func (r *Resolver) ResolveURL(ctx context.Context, itemName string) (string, bool) {
	if e, ok := r.urls.Get(itemName); ok {
		return e.url, e.found
	}
	v, _, _ := r.urlGroup.Do(itemName, func() (any, error) {
		// A concurrent caller may have filled the cache while this one
		// waited on the group.
		if e, ok := r.urls.Get(itemName); ok {
			return e, nil
		}
		url, found := r.dir.FindRecipeURL(ctx, itemName)
		if !found {
			r.log.Debug("no recipe page found", slog.String("item", itemName))
		}
		e := urlEntry{url: url, found: found}
		r.urls.Add(itemName, e)
		return e, nil
	})
	e := v.(urlEntry)
	return e.url, e.found
}

// Fetch returns the parsed recipe behind a URL, or false when the page
// cannot be fetched or parsed. Failures are cached like successes so a dead
// URL is not refetched per request.
func (r *Resolver) Fetch(ctx context.Context, url string) (*Recipe, bool) {
	if rec, ok := r.recipes.Get(url); ok {
		return rec, rec != nil
	}
	v, _, _ := r.recipeGroup.Do(url, func() (any, error) {
		if rec, ok := r.recipes.Get(url); ok {
			return rec, nil
		}
		rec, ok := r.store.FetchRecipe(ctx, url)
		if !ok {
			rec = nil
			r.log.Debug("recipe page not usable", slog.String("url", url))
		}
		r.recipes.Add(url, rec)
		return rec, nil
	})
	rec, _ := v.(*Recipe)
	return rec, rec != nil
}

// Lookup resolves an item name straight to its parsed recipe. Absence at
// either step reports false.
func (r *Resolver) Lookup(ctx context.Context, itemName string) (*Recipe, bool) {
	url, ok := r.ResolveURL(ctx, itemName)
	if !ok {
		return nil, false
	}
	return r.Fetch(ctx, url)
}

// HasRecipe reports whether a recipe page is discoverable for the item.
// Items without one are gathered rather than crafted.
func (r *Resolver) HasRecipe(ctx context.Context, itemName string) bool {
	_, ok := r.ResolveURL(ctx, itemName)
	return ok
}
