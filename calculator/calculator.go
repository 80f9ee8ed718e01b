// Package calculator contains the core logic for expanding crafted items
// into raw resource requirements.
package calculator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/joeminicucci/paxdei-crafting-bot/recipe"
)

// DefaultMaxDepth bounds recipe recursion when no explicit limit is
// configured.
const DefaultMaxDepth = 32

// ErrCycle reports a recipe that ends up requiring itself somewhere down its
// own ingredient chain.
var ErrCycle = errors.New("cyclic recipe dependency")

// ErrTooDeep reports recursion past the configured depth limit.
var ErrTooDeep = errors.New("maximum recursion depth exceeded")

// Lookup is the recipe access the calculator needs. *recipe.Resolver
// satisfies it.
type Lookup interface {
	Lookup(ctx context.Context, itemName string) (*recipe.Recipe, bool)
}

// Calculator expands crafted items into totals of the raw resources needed
// to build them.
type Calculator struct {
	recipes  Lookup
	maxDepth int
	log      *slog.Logger
}

// New returns a Calculator reading recipes through the given lookup.
// A maxDepth below 1 falls back to DefaultMaxDepth.
func New(recipes Lookup, maxDepth int, logger *slog.Logger) *Calculator {
	if maxDepth < 1 {
		maxDepth = DefaultMaxDepth
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Calculator{recipes: recipes, maxDepth: maxDepth, log: logger}
}

// ComputeRaw recursively expands itemName into a map of raw resource slug →
// required quantity. An item with no recipe is itself a raw resource and
// contributes {slug: neededQty}.
//
// With applyFailure set, each level plans extra crafts for expected
// failures: the multiplier for the recipe's difficulty against level+1 (the
// blessing bonus) scales the craft count, and the fractional buffer carries
// through the recursion unrounded. Without it the multiplier is fixed at
// 1.0 and the result is independent of level.
//
// The two error conditions are a recipe that requires itself (ErrCycle) and
// recursion past the depth limit (ErrTooDeep); both name the offending item.
func (c *Calculator) ComputeRaw(ctx context.Context, itemName, slug string, neededQty float64, level int, applyFailure bool) (map[string]float64, error) {
	path := make(map[string]bool)
	return c.computeRaw(ctx, itemName, slug, neededQty, level, applyFailure, path, 0)
}

func (c *Calculator) computeRaw(ctx context.Context, itemName, slug string, neededQty float64, level int, applyFailure bool, path map[string]bool, depth int) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if depth > c.maxDepth {
		return nil, fmt.Errorf("expanding %s: %w", itemName, ErrTooDeep)
	}

	rec, ok := c.recipes.Lookup(ctx, itemName)
	if !ok {
		// No recipe page means the item is gathered, not crafted.
		return map[string]float64{slug: neededQty}, nil
	}

	// The visited path tracks only the current expansion chain. Entries are
	// removed on the way back up, so an ingredient shared by sibling
	// branches is not mistaken for a cycle.
	key := slug
	if key == "" {
		key = itemName
	}
	if path[key] {
		return nil, fmt.Errorf("%s requires itself: %w", itemName, ErrCycle)
	}
	path[key] = true
	defer delete(path, key)

	mult := 1.0
	if applyFailure {
		mult = FailureMultiplier(rec.Difficulty, level+1)
	}
	crafts := math.Ceil(neededQty/float64(rec.YieldPerCraft)) * mult

	raw := make(map[string]float64)
	for _, ing := range rec.Ingredients {
		subNeeded := float64(ing.QuantityPerCraft) * crafts
		subRaw, err := c.computeRaw(ctx, ing.Name, ing.Slug, subNeeded, level, applyFailure, path, depth+1)
		if err != nil {
			return nil, fmt.Errorf("expanding %s for %s: %w", ing.Name, itemName, err)
		}
		raw = sumMaterials(raw, subRaw)
	}
	return raw, nil
}

// sumMaterials merges two maps of material amounts, summing the values for
// common keys.
func sumMaterials(materials1, materials2 map[string]float64) map[string]float64 {
	result := make(map[string]float64, len(materials1)+len(materials2))
	for slug, qty := range materials1 {
		result[slug] = qty
	}
	for slug, qty := range materials2 {
		result[slug] += qty
	}
	return result
}
