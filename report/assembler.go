package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/joeminicucci/paxdei-crafting-bot/calculator"
	"github.com/joeminicucci/paxdei-crafting-bot/recipe"
)

// SummaryLimit is the longest summary returned for chat-sized surfaces.
const SummaryLimit = 1900

// stackFetchWorkers bounds concurrent stack-size prefetches.
const stackFetchWorkers = 4

// ErrNoRecipe reports a request whose root item has no discoverable recipe.
var ErrNoRecipe = errors.New("no recipe found")

// Report is one generated crafting report.
type Report struct {
	Document string // full markdown document
	Summary  string // chat-sized excerpt of the step-by-step section
}

// Assembler runs the full report pipeline: two raw expansions, the stack
// prefetch, the step-by-step breakdown, and the storage totals.
type Assembler struct {
	recipes Recipes
	stacks  recipe.StackSizeProvider
	calc    *calculator.Calculator
	builder *Builder
	baseURL string
	log     *slog.Logger
}

// NewAssembler wires the report pipeline over the given collaborators.
// baseURL is the site root used for resource links in the final table.
func NewAssembler(recipes Recipes, stacks recipe.StackSizeProvider, calc *calculator.Calculator, baseURL string, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Assembler{
		recipes: recipes,
		stacks:  stacks,
		calc:    calc,
		builder: NewBuilder(recipes, stacks, 0, logger),
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     logger,
	}
}

const docFormat = "**%s – Full Recursive Breakdown for %dx (Level %d +1 Blessing)**\n\n" +
	"## Step-by-Step Batch & Stack Calculation\n%s\n\n" +
	"## Final Gather Totals & Storage Needs\n%s\n\n" +
	"**Total Raw Slots**: `%d` → **~%d Chests**\n\n" +
	"> **Bonus**: Adjusted for failure rates (Very Easy:8%%, Easy:15%%, Moderate:30%%, Hard:50%%)  \n" +
	"> **All math in `code`**  \n" +
	"> **Verified from paxdei.gaming.tools**\n"

// Generate produces the report for crafting quantity units of itemName at
// the given skill level. The ideal and failure-adjusted expansions run
// concurrently; they share only the resolver caches.
//
// A root item with no discoverable recipe returns ErrNoRecipe rather than a
// report of itself as a raw resource.
func (a *Assembler) Generate(ctx context.Context, itemName string, quantity, level int) (*Report, error) {
	if quantity < 1 {
		return nil, errors.New("quantity must be positive")
	}
	if level < 0 {
		return nil, errors.New("level must not be negative")
	}
	// The gate must go through Lookup, not HasRecipe: a search hit whose
	// page then fails to fetch or parse would otherwise collapse the raw
	// totals onto the root's empty placeholder slug.
	if _, ok := a.recipes.Lookup(ctx, itemName); !ok {
		return nil, fmt.Errorf("%s: %w", itemName, ErrNoRecipe)
	}

	var orig, adj map[string]float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orig, err = a.calc.ComputeRaw(gctx, itemName, "", float64(quantity), level, false)
		return err
	})
	g.Go(func() error {
		var err error
		adj, err = a.calc.ComputeRaw(gctx, itemName, "", float64(quantity), level, true)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stacks := a.prefetchStacks(ctx, orig, adj)

	breakdown, err := a.builder.Breakdown(ctx, itemName, float64(quantity), level, stacks)
	if err != nil {
		return nil, err
	}

	slotsOrig := calculator.TotalSlots(orig, stacks)
	slotsAdj := calculator.TotalSlots(adj, stacks)

	doc := fmt.Sprintf(docFormat,
		titleCase(itemName), quantity, level,
		breakdown,
		a.finalTable(orig, adj, stacks, slotsAdj, slotsOrig),
		slotsOrig, calculator.Chests(slotsAdj),
	)

	a.log.Debug("report generated",
		slog.String("item", itemName),
		slog.Int("quantity", quantity),
		slog.Int("slots_adjusted", slotsAdj),
	)
	return &Report{Document: doc, Summary: truncateSummary(breakdown)}, nil
}

// prefetchStacks resolves stack sizes for every slug in either expansion, a
// few at a time.
func (a *Assembler) prefetchStacks(ctx context.Context, orig, adj map[string]float64) map[string]int {
	slugs := unionSlugs(orig, adj)
	stacks := make(map[string]int, len(slugs))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(stackFetchWorkers)
	for _, slug := range slugs {
		slug := slug
		g.Go(func() error {
			size := a.stacks.MaxStack(gctx, slug)
			mu.Lock()
			stacks[slug] = size
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return stacks
}

// finalTable renders the ideal-versus-adjusted comparison, sorted by slug.
func (a *Assembler) finalTable(orig, adj map[string]float64, stacks map[string]int, slotsAdj, slotsOrig int) string {
	slugs := unionSlugs(orig, adj)
	sort.Strings(slugs)

	var tbl strings.Builder
	tbl.WriteString("| Raw Resource | Qty (Orig) | Qty (Adj) | Slots (Adj) |\n")
	tbl.WriteString("|-----|------------|-----------|-------------|\n")
	for _, slug := range slugs {
		qtyOrig := int(orig[slug])
		qtyAdj := int(adj[slug])
		slots := calculator.Slots(float64(qtyAdj), stacks[slug])
		fmt.Fprintf(&tbl, "| [%s](%s/items/%s) | `%d` | `%d` | `%d` |\n",
			slugTitle(slug), a.baseURL, slug, qtyOrig, qtyAdj, slots)
	}
	fmt.Fprintf(&tbl, "**Total Adj: %d slots** (+%d%%)\n",
		slotsAdj, calculator.OverheadPercent(slotsAdj, slotsOrig))
	return tbl.String()
}

// truncateSummary clips s to SummaryLimit bytes on a rune boundary, marking
// the cut with an ellipsis.
func truncateSummary(s string) string {
	if len(s) <= SummaryLimit {
		return s
	}
	cut := SummaryLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// unionSlugs collects the distinct keys of both maps.
func unionSlugs(a, b map[string]float64) []string {
	slugs := make([]string, 0, len(a)+len(b))
	seen := make(map[string]bool, len(a)+len(b))
	for s := range a {
		if !seen[s] {
			seen[s] = true
			slugs = append(slugs, s)
		}
	}
	for s := range b {
		if !seen[s] {
			seen[s] = true
			slugs = append(slugs, s)
		}
	}
	return slugs
}
