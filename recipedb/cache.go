// Package recipedb persists resolved recipe lookups in MySQL so repeat
// queries survive process restarts.
package recipedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	_ "github.com/go-sql-driver/mysql"

	"github.com/joeminicucci/paxdei-crafting-bot/recipe"
)

// Cache implements recipe.Directory and recipe.Store over an inner
// implementation, persisting every answer, misses included. Database
// failures degrade to the inner implementation.
type Cache struct {
	db    *sql.DB
	dir   recipe.Directory
	store recipe.Store
	log   *slog.Logger
}

var (
	_ recipe.Directory = (*Cache)(nil)
	_ recipe.Store     = (*Cache)(nil)
)

// Open connects to MySQL, creates the schema when missing, and returns a
// Cache wrapping the given directory and store.
func Open(dsn string, dir recipe.Directory, store recipe.Store, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening mysql: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot ping mysql: %w", err)
	}
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Cache{db: db, dir: dir, store: store, log: logger}, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS recipe_urls (
			item_name VARCHAR(191) NOT NULL PRIMARY KEY,
			url TEXT NOT NULL,
			found TINYINT(1) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS recipes (
			url VARCHAR(191) NOT NULL PRIMARY KEY,
			payload JSON NOT NULL,
			fetched_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

// Close releases the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

// FindRecipeURL consults the recipe_urls table before asking the inner
// directory, and records whatever the directory answers.
func (c *Cache) FindRecipeURL(ctx context.Context, itemName string) (string, bool) {
	var (
		url   string
		found bool
	)
	row := c.db.QueryRowContext(ctx,
		`SELECT url, found FROM recipe_urls WHERE item_name = ?`, itemName)
	switch err := row.Scan(&url, &found); err {
	case nil:
		return url, found
	case sql.ErrNoRows:
	default:
		c.log.Warn("recipe_urls read failed",
			slog.String("item", itemName), slog.Any("error", err))
	}

	url, found = c.dir.FindRecipeURL(ctx, itemName)
	if _, err := c.db.ExecContext(ctx,
		`REPLACE INTO recipe_urls (item_name, url, found) VALUES (?, ?, ?)`,
		itemName, url, found); err != nil {
		c.log.Warn("recipe_urls write failed",
			slog.String("item", itemName), slog.Any("error", err))
	}
	return url, found
}

// FetchRecipe consults the recipes table before asking the inner store.
// Parsed recipes are stored as JSON; a null payload records a page that
// had no recipe.
func (c *Cache) FetchRecipe(ctx context.Context, url string) (*recipe.Recipe, bool) {
	var payload []byte
	row := c.db.QueryRowContext(ctx,
		`SELECT payload FROM recipes WHERE url = ?`, url)
	switch err := row.Scan(&payload); err {
	case nil:
		var rec *recipe.Recipe
		uerr := json.Unmarshal(payload, &rec)
		if uerr == nil {
			return rec, rec != nil
		}
		c.log.Warn("recipes payload corrupt",
			slog.String("url", url), slog.Any("error", uerr))
	case sql.ErrNoRows:
	default:
		c.log.Warn("recipes read failed",
			slog.String("url", url), slog.Any("error", err))
	}

	rec, ok := c.store.FetchRecipe(ctx, url)
	buf, err := json.Marshal(rec)
	if err != nil {
		c.log.Warn("recipes payload encode failed",
			slog.String("url", url), slog.Any("error", err))
		return rec, ok
	}
	if _, err := c.db.ExecContext(ctx,
		`REPLACE INTO recipes (url, payload) VALUES (?, ?)`, url, buf); err != nil {
		c.log.Warn("recipes write failed",
			slog.String("url", url), slog.Any("error", err))
	}
	return rec, ok
}
