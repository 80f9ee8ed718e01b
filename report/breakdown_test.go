package report

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/joeminicucci/paxdei-crafting-bot/calculator"
	"github.com/joeminicucci/paxdei-crafting-bot/recipe"
)

const testBase = "https://paxdei.example.test"

// fakeRecipes serves canned recipes by item name.
type fakeRecipes struct {
	recipes map[string]*recipe.Recipe
}

func (f fakeRecipes) Lookup(_ context.Context, itemName string) (*recipe.Recipe, bool) {
	rec, ok := f.recipes[itemName]
	return rec, ok
}

func (f fakeRecipes) HasRecipe(_ context.Context, itemName string) bool {
	_, ok := f.recipes[itemName]
	return ok
}

// fakeStacks serves slug → stack size with a default of 50, counting calls.
type fakeStacks struct {
	mu    sync.Mutex
	sizes map[string]int
	calls map[string]int
}

func (f *fakeStacks) MaxStack(_ context.Context, slug string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[slug]++
	if n, ok := f.sizes[slug]; ok {
		return n
	}
	return recipe.DefaultMaxStack
}

func (f *fakeStacks) callCount(slug string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[slug]
}

func swordRecipes() map[string]*recipe.Recipe {
	return map[string]*recipe.Recipe{
		"Iron Sword": {
			Name:       "Iron Sword",
			Skill:      "Smithing",
			Difficulty: 12,
			Ingredients: []recipe.Ingredient{
				{Name: "Iron Ingot", Slug: "iron-ingot", QuantityPerCraft: 2, Link: testBase + "/items/iron-ingot"},
				{Name: "Oak Handle", Slug: "oak-handle", QuantityPerCraft: 1, Link: testBase + "/items/oak-handle"},
			},
			YieldPerCraft: 1,
			SourceURL:     testBase + "/recipes/iron-sword",
		},
	}
}

func TestBreakdown_FlatRecipe(t *testing.T) {
	b := NewBuilder(fakeRecipes{recipes: swordRecipes()}, &fakeStacks{}, 0, nil)
	stacks := map[string]int{"iron-ingot": 50, "oak-handle": 50}

	got, err := b.Breakdown(context.Background(), "Iron Sword", 1, 25, stacks)
	if err != nil {
		t.Fatalf("Breakdown(Iron Sword) error: %v", err)
	}

	want := "### 1. [Iron Sword](https://paxdei.example.test/recipes/iron-sword)\n" +
		"- **Needed**: `1`\n" +
		"- **Batch Craft**: `2x Iron Ingot, 1x Oak Handle → 1x Iron Sword`\n" +
		"- **Crafts Required**: `ceil(1 / 1) = 1`\n" +
		"\n" +
		"\n**Subtotal/Bonus Notes**\n\n" +
		"\n**Subtotal/Bonus Notes**\n\n" +
		"| Raw Resource | Qty | Max Stack | Slots | Method | Link |\n" +
		"|--------------|-----|-----------|-------|--------|------|\n" +
		"| [Iron Ingot](https://paxdei.example.test/items/iron-ingot) | `2` | 50 | `1` | gather | [Iron Ingot](https://paxdei.example.test/items/iron-ingot) |\n" +
		"| [Oak Handle](https://paxdei.example.test/items/oak-handle) | `1` | 50 | `1` | gather | [Oak Handle](https://paxdei.example.test/items/oak-handle) |\n" +
		"\n**Subtotal/Bonus Notes**\n\n"

	if got != want {
		t.Errorf("Breakdown(Iron Sword) =\n%q\nwant\n%q", got, want)
	}
}

func TestBreakdown_LeafRendersEmpty(t *testing.T) {
	b := NewBuilder(fakeRecipes{}, &fakeStacks{}, 0, nil)
	got, err := b.Breakdown(context.Background(), "Iron Ore", 40, 10, nil)
	if err != nil {
		t.Fatalf("Breakdown(leaf) error: %v", err)
	}
	if got != "" {
		t.Errorf("Breakdown(leaf) = %q, want empty", got)
	}
}

func TestBreakdown_NestedChildBeforeParentTable(t *testing.T) {
	recipes := swordRecipes()
	recipes["Oak Handle"] = &recipe.Recipe{
		Name:       "Oak Handle",
		Skill:      "Carpentry",
		Difficulty: 3,
		Ingredients: []recipe.Ingredient{
			{Name: "Oak Log", Slug: "oak-log", QuantityPerCraft: 1, Link: testBase + "/items/oak-log"},
		},
		YieldPerCraft: 2,
		SourceURL:     testBase + "/recipes/oak-handle",
	}
	b := NewBuilder(fakeRecipes{recipes: recipes}, &fakeStacks{}, 0, nil)

	got, err := b.Breakdown(context.Background(), "Iron Sword", 2, 25, nil)
	if err != nil {
		t.Fatalf("Breakdown(nested) error: %v", err)
	}

	// Two crafts of the sword need 2 handles; the handle recipe yields 2
	// per craft, so one handle craft.
	childHeader := "### 1. [Oak Handle](https://paxdei.example.test/recipes/oak-handle)"
	childMath := "- **Crafts Required**: `ceil(2 / 2) = 1`"
	parentRow := "| [Oak Handle](https://paxdei.example.test/items/oak-handle) | `2` | 50 | `1` | craft | [Oak Handle](https://paxdei.example.test/items/oak-handle) |"

	childAt := strings.Index(got, childHeader)
	rowAt := strings.Index(got, parentRow)
	if childAt < 0 || rowAt < 0 {
		t.Fatalf("Breakdown(nested) missing child block or parent row:\n%s", got)
	}
	if childAt > rowAt {
		t.Errorf("child block at %d renders after the parent table row at %d", childAt, rowAt)
	}
	if !strings.Contains(got, childMath) {
		t.Errorf("Breakdown(nested) missing child craft math %q", childMath)
	}
	if !strings.Contains(got, "| [Oak Log](https://paxdei.example.test/items/oak-log) | `1` | 50 | `1` | gather |") {
		t.Errorf("Breakdown(nested) missing leaf row:\n%s", got)
	}
}

func TestBreakdown_ByteIdenticalAcrossCalls(t *testing.T) {
	recipes := swordRecipes()
	recipes["Oak Handle"] = &recipe.Recipe{
		Name:       "Oak Handle",
		Skill:      "Carpentry",
		Difficulty: 3,
		Ingredients: []recipe.Ingredient{
			{Name: "Oak Log", Slug: "oak-log", QuantityPerCraft: 1, Link: testBase + "/items/oak-log"},
		},
		YieldPerCraft: 2,
		SourceURL:     testBase + "/recipes/oak-handle",
	}
	b := NewBuilder(fakeRecipes{recipes: recipes}, &fakeStacks{}, 0, nil)
	ctx := context.Background()

	first, err := b.Breakdown(ctx, "Iron Sword", 7, 14, nil)
	if err != nil {
		t.Fatalf("first Breakdown error: %v", err)
	}
	second, err := b.Breakdown(ctx, "Iron Sword", 7, 14, nil)
	if err != nil {
		t.Fatalf("second Breakdown error: %v", err)
	}
	if first != second {
		t.Errorf("Breakdown output differs across identical calls")
	}
}

func TestBreakdown_StackFallbackConsultsProvider(t *testing.T) {
	provider := &fakeStacks{sizes: map[string]int{"iron-ingot": 64}}
	b := NewBuilder(fakeRecipes{recipes: swordRecipes()}, provider, 0, nil)

	// Only oak-handle is prefetched; iron-ingot must come from the
	// provider.
	got, err := b.Breakdown(context.Background(), "Iron Sword", 1, 25, map[string]int{"oak-handle": 50})
	if err != nil {
		t.Fatalf("Breakdown error: %v", err)
	}
	if !strings.Contains(got, "| [Iron Ingot](https://paxdei.example.test/items/iron-ingot) | `2` | 64 | `1` | gather |") {
		t.Errorf("row did not use the provider stack size:\n%s", got)
	}
	if provider.callCount("iron-ingot") != 1 {
		t.Errorf("provider called %d times for iron-ingot, want 1", provider.callCount("iron-ingot"))
	}
	if provider.callCount("oak-handle") != 0 {
		t.Errorf("provider called %d times for prefetched oak-handle, want 0", provider.callCount("oak-handle"))
	}
}

func TestBreakdown_CycleReturnsError(t *testing.T) {
	recipes := map[string]*recipe.Recipe{
		"Ouro": {
			Name:       "Ouro",
			Skill:      "Crafting",
			Difficulty: 1,
			Ingredients: []recipe.Ingredient{
				{Name: "Boros", Slug: "boros", QuantityPerCraft: 1, Link: testBase + "/items/boros"},
			},
			YieldPerCraft: 1,
			SourceURL:     testBase + "/recipes/ouro",
		},
		"Boros": {
			Name:       "Boros",
			Skill:      "Crafting",
			Difficulty: 1,
			Ingredients: []recipe.Ingredient{
				{Name: "Ouro", Slug: "ouro", QuantityPerCraft: 1, Link: testBase + "/items/ouro"},
			},
			YieldPerCraft: 1,
			SourceURL:     testBase + "/recipes/boros",
		},
	}
	b := NewBuilder(fakeRecipes{recipes: recipes}, &fakeStacks{}, 0, nil)

	_, err := b.Breakdown(context.Background(), "Ouro", 1, 10, nil)
	if !errors.Is(err, calculator.ErrCycle) {
		t.Fatalf("Breakdown(cyclic) error = %v, want ErrCycle", err)
	}
}
