package report

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/joeminicucci/paxdei-crafting-bot/calculator"
	"github.com/joeminicucci/paxdei-crafting-bot/recipe"
)

func widgetRecipes() map[string]*recipe.Recipe {
	return map[string]*recipe.Recipe{
		"Widget": {
			Name:       "Widget",
			Skill:      "Crafting",
			Difficulty: 5,
			Ingredients: []recipe.Ingredient{
				{Name: "Alpha Shard", Slug: "alpha-shard", QuantityPerCraft: 3, Link: testBase + "/items/alpha-shard"},
			},
			YieldPerCraft: 2,
			SourceURL:     testBase + "/recipes/widget",
		},
	}
}

func newTestAssembler(recipes map[string]*recipe.Recipe, stacks *fakeStacks) *Assembler {
	fr := fakeRecipes{recipes: recipes}
	calc := calculator.New(fr, 0, nil)
	return NewAssembler(fr, stacks, calc, testBase, nil)
}

func TestGenerate_EndToEndDocument(t *testing.T) {
	stacks := &fakeStacks{}
	a := newTestAssembler(widgetRecipes(), stacks)

	rep, err := a.Generate(context.Background(), "Widget", 10, 5)
	if err != nil {
		t.Fatalf("Generate(Widget) error: %v", err)
	}

	wantBreakdown := "### 1. [Widget](https://paxdei.example.test/recipes/widget)\n" +
		"- **Needed**: `10`\n" +
		"- **Batch Craft**: `3x Alpha Shard → 2x Widget`\n" +
		"- **Crafts Required**: `ceil(10 / 2) = 5`\n" +
		"\n" +
		"\n**Subtotal/Bonus Notes**\n\n" +
		"| Raw Resource | Qty | Max Stack | Slots | Method | Link |\n" +
		"|--------------|-----|-----------|-------|--------|------|\n" +
		"| [Alpha Shard](https://paxdei.example.test/items/alpha-shard) | `15` | 50 | `1` | gather | [Alpha Shard](https://paxdei.example.test/items/alpha-shard) |\n" +
		"\n**Subtotal/Bonus Notes**\n\n"

	wantFinal := "| Raw Resource | Qty (Orig) | Qty (Adj) | Slots (Adj) |\n" +
		"|-----|------------|-----------|-------------|\n" +
		"| [Alpha-Shard](https://paxdei.example.test/items/alpha-shard) | `15` | `16` | `1` |\n" +
		"**Total Adj: 1 slots** (+0%)\n"

	wantDoc := "**Widget – Full Recursive Breakdown for 10x (Level 5 +1 Blessing)**\n\n" +
		"## Step-by-Step Batch & Stack Calculation\n" + wantBreakdown + "\n\n" +
		"## Final Gather Totals & Storage Needs\n" + wantFinal + "\n\n" +
		"**Total Raw Slots**: `1` → **~1 Chests**\n\n" +
		"> **Bonus**: Adjusted for failure rates (Very Easy:8%, Easy:15%, Moderate:30%, Hard:50%)  \n" +
		"> **All math in `code`**  \n" +
		"> **Verified from paxdei.gaming.tools**\n"

	if rep.Document != wantDoc {
		t.Errorf("Generate(Widget) document =\n%q\nwant\n%q", rep.Document, wantDoc)
	}
	if rep.Summary != wantBreakdown {
		t.Errorf("Generate(Widget) summary =\n%q\nwant\n%q", rep.Summary, wantBreakdown)
	}

	// One stack lookup serves the totals, the final table, and the
	// breakdown row.
	if got := stacks.callCount("alpha-shard"); got != 1 {
		t.Errorf("stack provider called %d times for alpha-shard, want 1", got)
	}
}

func TestGenerate_AdjustedDrivesChestCount(t *testing.T) {
	// At level 1 against difficulty 50 the adjustment doubles every craft.
	// 1000 shards fill 20 slots ideally, 40 adjusted, so the chest estimate
	// comes from the adjusted side.
	recipes := map[string]*recipe.Recipe{
		"Bulk Widget": {
			Name:       "Bulk Widget",
			Skill:      "Crafting",
			Difficulty: 50,
			Ingredients: []recipe.Ingredient{
				{Name: "Alpha Shard", Slug: "alpha-shard", QuantityPerCraft: 1000, Link: testBase + "/items/alpha-shard"},
			},
			YieldPerCraft: 1,
			SourceURL:     testBase + "/recipes/bulk-widget",
		},
	}
	a := newTestAssembler(recipes, &fakeStacks{})

	rep, err := a.Generate(context.Background(), "Bulk Widget", 1, 1)
	if err != nil {
		t.Fatalf("Generate(Bulk Widget) error: %v", err)
	}
	if !strings.Contains(rep.Document, "**Total Raw Slots**: `20` → **~2 Chests**") {
		t.Errorf("document does not derive chests from adjusted slots:\n%s", rep.Document)
	}
	if !strings.Contains(rep.Document, "**Total Adj: 40 slots** (+100%)") {
		t.Errorf("document missing adjusted slot total:\n%s", rep.Document)
	}
}

func TestGenerate_RootWithoutRecipe(t *testing.T) {
	a := newTestAssembler(nil, &fakeStacks{})

	_, err := a.Generate(context.Background(), "Granite Boulder", 5, 10)
	if !errors.Is(err, ErrNoRecipe) {
		t.Fatalf("Generate(no recipe) error = %v, want ErrNoRecipe", err)
	}
	if !strings.Contains(err.Error(), "Granite Boulder") {
		t.Errorf("error %q does not name the item", err)
	}
}

// unfetchableRecipes mimics a directory hit whose page then fails to fetch
// or parse: the URL resolves, but no recipe ever materializes.
type unfetchableRecipes struct{}

func (unfetchableRecipes) Lookup(context.Context, string) (*recipe.Recipe, bool) {
	return nil, false
}

func (unfetchableRecipes) HasRecipe(context.Context, string) bool { return true }

func TestGenerate_RootURLFoundButUnfetchable(t *testing.T) {
	calc := calculator.New(unfetchableRecipes{}, 0, nil)
	a := NewAssembler(unfetchableRecipes{}, &fakeStacks{}, calc, testBase, nil)

	rep, err := a.Generate(context.Background(), "Widget", 10, 5)
	if !errors.Is(err, ErrNoRecipe) {
		t.Fatalf("Generate(unfetchable root) = %+v, %v; want ErrNoRecipe", rep, err)
	}
}

func TestGenerate_RejectsBadArguments(t *testing.T) {
	a := newTestAssembler(widgetRecipes(), &fakeStacks{})
	ctx := context.Background()

	if _, err := a.Generate(ctx, "Widget", 0, 5); err == nil {
		t.Errorf("Generate(quantity 0) error = nil, want error")
	}
	if _, err := a.Generate(ctx, "Widget", -3, 5); err == nil {
		t.Errorf("Generate(negative quantity) error = nil, want error")
	}
	if _, err := a.Generate(ctx, "Widget", 1, -1); err == nil {
		t.Errorf("Generate(negative level) error = nil, want error")
	}
}

func TestGenerate_PropagatesCycle(t *testing.T) {
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
	a := newTestAssembler(recipes, &fakeStacks{})

	_, err := a.Generate(context.Background(), "Ouro", 1, 10)
	if !errors.Is(err, calculator.ErrCycle) {
		t.Fatalf("Generate(cyclic) error = %v, want ErrCycle", err)
	}
}

func TestTruncateSummary(t *testing.T) {
	short := strings.Repeat("a", SummaryLimit)
	if got := truncateSummary(short); got != short {
		t.Errorf("truncateSummary(short) altered the text")
	}

	long := strings.Repeat("a", SummaryLimit+100)
	got := truncateSummary(long)
	if len(got) != SummaryLimit+3 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncateSummary(long) = %d bytes with suffix %q, want %d and %q",
			len(got), got[len(got)-3:], SummaryLimit+3, "...")
	}

	// The cut must not land inside a multibyte rune.
	arrows := strings.Repeat("→", SummaryLimit) // 3 bytes each
	got = truncateSummary(arrows)
	if !utf8.ValidString(got) {
		t.Errorf("truncateSummary(multibyte) produced invalid UTF-8")
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncateSummary(multibyte) missing ellipsis")
	}
}
