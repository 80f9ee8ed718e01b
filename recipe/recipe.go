// Package recipe defines the crafting recipe data model, the lookup
// contracts the calculator depends on, and memoizing resolvers that keep
// repeat lookups off the network.
package recipe

import "context"

// DefaultMaxStack is assumed for any item whose stack size cannot be
// determined.
const DefaultMaxStack = 50

// Ingredient is one input line of a recipe as it appears on the recipe page.
type Ingredient struct {
	Name             string // display name, e.g. "Iron Ingot"
	Slug             string // last path segment of the item link
	QuantityPerCraft int    // units consumed by one craft, at least 1
	Link             string // absolute URL of the item page
}

// Recipe describes how one craftable item is produced. Ingredients keep the
// order they appear on the page; that order is display-only and never
// affects computed totals.
type Recipe struct {
	Name          string
	Skill         string
	Difficulty    int
	Ingredients   []Ingredient
	YieldPerCraft int // units produced by one craft, at least 1
	SourceURL     string
}

// Directory resolves item names to recipe page URLs. A name with no
// discoverable page reports false; implementations swallow their own
// failures and report false rather than returning an error.
type Directory interface {
	FindRecipeURL(ctx context.Context, itemName string) (string, bool)
}

// Store fetches and parses one recipe page. Any network, HTTP-status, or
// parse failure is reported as absence, never as an error, so that callers
// treat unfetchable items as raw resources.
type Store interface {
	FetchRecipe(ctx context.Context, url string) (*Recipe, bool)
}

// StackSizeProvider reports the max stack size for an item slug.
// Implementations never fail; unknown slugs report DefaultMaxStack.
type StackSizeProvider interface {
	MaxStack(ctx context.Context, slug string) int
}
