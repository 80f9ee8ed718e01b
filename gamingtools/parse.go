package gamingtools

import (
	"bytes"
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/joeminicucci/paxdei-crafting-bot/recipe"
)

// Recipe pages carry their metadata as rendered text rather than
// structured markup, so extraction is regex over the page text.
var (
	skillRe = regexp.MustCompile(`(?i)Skill:\s*([^<>\n]+?)\s*Difficulty:\s*(\d+)`)
	qtyRe   = regexp.MustCompile(`(?i)^(.+?)\s*x\s*(\d+)`)
	yieldRe = regexp.MustCompile(`(?i)yields?\s*(\d+)`)
	stackRe = regexp.MustCompile(`(?i)Max Stack[:\s]*(\d+)`)
)

// FetchRecipe downloads and parses a recipe page. Pages without a
// Skill/Difficulty block are not recipes; those, like fetch and parse
// failures, report absence.
func (c *Client) FetchRecipe(ctx context.Context, pageURL string) (*recipe.Recipe, bool) {
	body, err := c.get(ctx, pageURL)
	if err != nil {
		c.log.Warn("recipe fetch failed",
			slog.String("url", pageURL), slog.Any("error", err))
		return nil, false
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		c.log.Warn("recipe page unparseable",
			slog.String("url", pageURL), slog.Any("error", err))
		return nil, false
	}

	text := textContent(doc)
	m := skillRe.FindStringSubmatch(text)
	if m == nil {
		c.log.Debug("page has no skill block", slog.String("url", pageURL))
		return nil, false
	}
	difficulty, _ := strconv.Atoi(m[2])

	name := ""
	if h1 := findElement(doc, "h1"); h1 != nil {
		name = strings.TrimSpace(strings.ReplaceAll(textContent(h1), "Pax Dei Recipe: ", ""))
	}

	yieldPer := 1
	if y := yieldRe.FindStringSubmatch(text); y != nil {
		if n, err := strconv.Atoi(y[1]); err == nil && n > 0 {
			yieldPer = n
		}
	}

	return &recipe.Recipe{
		Name:          name,
		Skill:         strings.TrimSpace(m[1]),
		Difficulty:    difficulty,
		Ingredients:   c.collectIngredients(doc),
		YieldPerCraft: yieldPer,
		SourceURL:     pageURL,
	}, true
}

// collectIngredients walks the item and recipe links on a page and reads
// each one's quantity from the text of the enclosing strong or p element.
// A name seen twice keeps its first position and its last parsed values;
// lines with a quantity below 1 are not ingredients.
func (c *Client) collectIngredients(doc *html.Node) []recipe.Ingredient {
	var (
		out []recipe.Ingredient
		pos = make(map[string]int)
	)
	for _, a := range findAnchors(doc) {
		href := attr(a, "href")
		if !strings.Contains(href, "/items/") && !strings.Contains(href, "/recipes/") {
			continue
		}
		enclosing := closest(a, "strong")
		if enclosing == nil {
			enclosing = closest(a, "p")
		}
		if enclosing == nil {
			continue
		}
		m := qtyRe.FindStringSubmatch(strings.TrimSpace(textContent(enclosing)))
		if m == nil {
			continue
		}
		qty, _ := strconv.Atoi(m[2])
		if qty < 1 {
			continue
		}
		ing := recipe.Ingredient{
			Name:             strings.TrimSpace(m[1]),
			Slug:             href[strings.LastIndex(href, "/")+1:],
			QuantityPerCraft: qty,
			Link:             c.absoluteURL(href),
		}
		if i, ok := pos[ing.Name]; ok {
			out[i] = ing
		} else {
			pos[ing.Name] = len(out)
			out = append(out, ing)
		}
	}
	return out
}

func (c *Client) absoluteURL(href string) string {
	if strings.HasPrefix(href, "/") {
		return c.baseURL + href
	}
	return href
}

// MaxStack reads an item's stack size from its page. Any failure falls
// back to the site-wide default of 50.
func (c *Client) MaxStack(ctx context.Context, slug string) int {
	body, err := c.get(ctx, c.baseURL+"/items/"+slug)
	if err != nil {
		c.log.Debug("stack size fetch failed",
			slog.String("slug", slug), slog.Any("error", err))
		return recipe.DefaultMaxStack
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return recipe.DefaultMaxStack
	}
	if m := stackRe.FindStringSubmatch(textContent(doc)); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n
		}
	}
	return recipe.DefaultMaxStack
}
