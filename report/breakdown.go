// Package report renders recipe expansions into markdown crafting reports.
package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/joeminicucci/paxdei-crafting-bot/calculator"
	"github.com/joeminicucci/paxdei-crafting-bot/recipe"
)

// Recipes is the recipe access the report layer needs. *recipe.Resolver
// satisfies it.
type Recipes interface {
	Lookup(ctx context.Context, itemName string) (*recipe.Recipe, bool)
	HasRecipe(ctx context.Context, itemName string) bool
}

// Builder renders the step-by-step batch and stack section of a crafting
// report.
type Builder struct {
	recipes  Recipes
	stacks   recipe.StackSizeProvider
	maxDepth int
	log      *slog.Logger
}

// NewBuilder returns a Builder reading recipes and stack sizes through the
// given collaborators. A maxDepth below 1 falls back to
// calculator.DefaultMaxDepth.
func NewBuilder(recipes Recipes, stacks recipe.StackSizeProvider, maxDepth int, logger *slog.Logger) *Builder {
	if maxDepth < 1 {
		maxDepth = calculator.DefaultMaxDepth
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Builder{recipes: recipes, stacks: stacks, maxDepth: maxDepth, log: logger}
}

// Breakdown renders the recursive batch report for itemName. The craft
// counts shown are the ideal ones with no failure buffer; level does not
// change them. An item with no recipe renders as the empty string. stacks
// carries prefetched stack sizes; slugs missing from it are resolved
// through the stack provider.
//
// Output is deterministic for a fixed recipe tree: ingredients are emitted
// sorted by display name, children before their parent's table.
func (b *Builder) Breakdown(ctx context.Context, itemName string, neededQty float64, level int, stacks map[string]int) (string, error) {
	path := make(map[string]bool)
	return b.breakdown(ctx, itemName, neededQty, level, stacks, path, 0)
}

func (b *Builder) breakdown(ctx context.Context, itemName string, neededQty float64, level int, stacks map[string]int, path map[string]bool, depth int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if depth > b.maxDepth {
		return "", fmt.Errorf("expanding %s: %w", itemName, calculator.ErrTooDeep)
	}

	rec, ok := b.recipes.Lookup(ctx, itemName)
	if !ok {
		return "", nil
	}

	if path[itemName] {
		return "", fmt.Errorf("%s requires itself: %w", itemName, calculator.ErrCycle)
	}
	path[itemName] = true
	defer delete(path, itemName)

	crafts := int(math.Ceil(neededQty / float64(rec.YieldPerCraft)))

	var bd strings.Builder
	fmt.Fprintf(&bd, "### 1. [%s](%s)\n", rec.Name, rec.SourceURL)
	fmt.Fprintf(&bd, "- **Needed**: `%d`\n", int(neededQty))

	// The batch formula shows ingredients in page order; everything else
	// below uses name order.
	inputs := make([]string, 0, len(rec.Ingredients))
	for _, ing := range rec.Ingredients {
		inputs = append(inputs, fmt.Sprintf("%dx %s", ing.QuantityPerCraft, ing.Name))
	}
	fmt.Fprintf(&bd, "- **Batch Craft**: `%s → %dx %s`\n", strings.Join(inputs, ", "), rec.YieldPerCraft, rec.Name)
	fmt.Fprintf(&bd, "- **Crafts Required**: `ceil(%s / %d) = %d`\n\n", formatQty(neededQty), rec.YieldPerCraft, crafts)

	// Rows accumulate here while each child's own block is emitted first;
	// the parent's table lands after all children.
	var table strings.Builder
	table.WriteString("| Raw Resource | Qty | Max Stack | Slots | Method | Link |\n")
	table.WriteString("|--------------|-----|-----------|-------|--------|------|\n")

	sorted := make([]recipe.Ingredient, len(rec.Ingredients))
	copy(sorted, rec.Ingredients)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for _, ing := range sorted {
		subNeeded := float64(ing.QuantityPerCraft) * float64(crafts)
		maxStack, known := stacks[ing.Slug]
		if !known {
			maxStack = b.stacks.MaxStack(ctx, ing.Slug)
		}
		slots := calculator.Slots(subNeeded, maxStack)
		method := "craft"
		if !b.recipes.HasRecipe(ctx, ing.Name) {
			method = "gather"
		}
		fmt.Fprintf(&table, "| [%s](%s) | `%d` | %d | `%d` | %s | [%s](%s) |\n",
			ing.Name, ing.Link, int(subNeeded), maxStack, slots, method, ing.Name, ing.Link)

		child, err := b.breakdown(ctx, ing.Name, subNeeded, level, stacks, path, depth+1)
		if err != nil {
			return "", err
		}
		bd.WriteString(child)
		bd.WriteString("\n**Subtotal/Bonus Notes**\n\n")
	}

	bd.WriteString(table.String())
	bd.WriteString("\n**Subtotal/Bonus Notes**\n\n")
	return bd.String(), nil
}
