package recipe

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// StackResolver memoizes StackSizeProvider lookups behind a bounded LRU
// cache. It implements StackSizeProvider itself, so it can stand in for the
// raw provider anywhere.
type StackResolver struct {
	provider StackSizeProvider
	sizes    *lru.Cache[string, int]
	group    singleflight.Group
}

// NewStackResolver wraps provider with a cache of the given size.
// A size below 1 falls back to DefaultCacheSize.
func NewStackResolver(provider StackSizeProvider, cacheSize int) *StackResolver {
	if cacheSize < 1 {
		cacheSize = DefaultCacheSize
	}
	sizes, _ := lru.New[string, int](cacheSize)
	return &StackResolver{provider: provider, sizes: sizes}
}

// MaxStack returns the stack size for slug, consulting the provider at most
// once per cached slug. An empty slug (items that never resolved to a page)
// reports DefaultMaxStack without a provider call, as does any provider
// answer below 1.
func (s *StackResolver) MaxStack(ctx context.Context, slug string) int {
	if slug == "" {
		return DefaultMaxStack
	}
	if n, ok := s.sizes.Get(slug); ok {
		return n
	}
	v, _, _ := s.group.Do(slug, func() (any, error) {
		if n, ok := s.sizes.Get(slug); ok {
			return n, nil
		}
		n := s.provider.MaxStack(ctx, slug)
		if n < 1 {
			n = DefaultMaxStack
		}
		s.sizes.Add(slug, n)
		return n, nil
	})
	return v.(int)
}
