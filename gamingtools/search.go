package gamingtools

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"

	"golang.org/x/net/html"
)

// FindRecipeURL locates the recipe page for an item with a site-scoped
// title search against the DuckDuckGo HTML endpoint. The first result on
// the recipe host wins. No usable result, or any search failure, reports
// absence.
func (c *Client) FindRecipeURL(ctx context.Context, itemName string) (string, bool) {
	query := "site:" + c.host + " intitle:\"Pax Dei Recipe: " + itemName + "\""
	searchURL := c.searchURL + "?q=" + url.QueryEscape(query)

	body, err := c.get(ctx, searchURL)
	if err != nil {
		c.log.Warn("recipe search failed",
			slog.String("item", itemName), slog.Any("error", err))
		return "", false
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		c.log.Warn("recipe search page unparseable",
			slog.String("item", itemName), slog.Any("error", err))
		return "", false
	}

	for _, a := range findAnchors(doc) {
		target := c.resolveResult(attr(a, "href"))
		if target == "" {
			continue
		}
		c.log.Debug("recipe page found",
			slog.String("item", itemName), slog.String("url", target))
		return target, true
	}
	c.log.Debug("no recipe page found", slog.String("item", itemName))
	return "", false
}

// resolveResult turns a raw search result href into a recipe page URL, or
// "" when the href does not point at the recipe host. DuckDuckGo wraps
// most results in redirect links carrying the target in the uddg
// parameter.
func (c *Client) resolveResult(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		if u, err = url.Parse(target); err != nil {
			return ""
		}
	}
	if u.Host != c.host {
		return ""
	}
	return u.String()
}
