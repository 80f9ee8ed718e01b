// Command paxcalc prints a full recursive crafting breakdown for one item.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/joeminicucci/paxdei-crafting-bot/calculator"
	"github.com/joeminicucci/paxdei-crafting-bot/config"
	"github.com/joeminicucci/paxdei-crafting-bot/gamingtools"
	"github.com/joeminicucci/paxdei-crafting-bot/recipe"
	"github.com/joeminicucci/paxdei-crafting-bot/recipedb"
	"github.com/joeminicucci/paxdei-crafting-bot/report"
)

const maxRenderWidth = 100

func main() {
	var (
		item     = flag.String("item", "", "item to craft, e.g. \"Staff of Divine II\"")
		quantity = flag.Int("quantity", 1, "how many to craft")
		level    = flag.Int("level", 0, "your skill level (blessing adds +1)")
		out      = flag.String("out", "", "write the full document to this file instead of stdout")
		plain    = flag.Bool("plain", false, "emit raw markdown, no terminal rendering")
		cfgPath  = flag.String("config", "", "config file (default "+config.DefaultPath+")")
	)
	flag.Parse()

	if *item == "" {
		fmt.Fprintln(os.Stderr, "paxcalc: -item is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "paxcalc: %v\n", err)
		os.Exit(1)
	}
	logLevel, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	asm, closeFn := buildAssembler(cfg, logger)
	defer closeFn()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := asm.Generate(ctx, *item, *quantity, *level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "paxcalc: %v\n", err)
		os.Exit(1)
	}

	if *out != "" {
		if err := os.WriteFile(*out, []byte(rep.Document), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "paxcalc: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(rep.Summary)
		return
	}
	printDocument(rep.Document, *plain)
}

// buildAssembler wires the scraper, the optional MySQL tier, the caching
// resolvers, and the calculator into a report assembler. The returned
// closer releases the database connection, if any.
func buildAssembler(cfg config.Config, logger *slog.Logger) (*report.Assembler, func()) {
	client := gamingtools.NewClient(gamingtools.Config{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.HTTPTimeout(),
		Logger:  logger,
	})

	var (
		dir     recipe.Directory = client
		store   recipe.Store     = client
		closeFn                  = func() {}
	)
	if cfg.MySQLDSN != "" {
		db, err := recipedb.Open(cfg.MySQLDSN, client, client, logger)
		if err != nil {
			logger.Warn("persistent recipe cache unavailable", slog.Any("error", err))
		} else {
			dir, store = db, db
			closeFn = func() { _ = db.Close() }
		}
	}

	resolver := recipe.NewResolver(dir, store, cfg.CacheSize, logger)
	stacks := recipe.NewStackResolver(client, cfg.CacheSize)
	calc := calculator.New(resolver, cfg.MaxDepth, logger)
	return report.NewAssembler(resolver, stacks, calc, cfg.BaseURL, logger), closeFn
}

// printDocument renders markdown for a terminal, or prints it raw when
// asked to or when stdout is a pipe.
func printDocument(doc string, plain bool) {
	fd := int(os.Stdout.Fd())
	if plain || !term.IsTerminal(fd) {
		fmt.Print(doc)
		return
	}

	width, _, err := term.GetSize(fd)
	if err != nil || width < 1 || width > maxRenderWidth {
		width = maxRenderWidth
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		fmt.Print(doc)
		return
	}
	rendered, err := r.Render(doc)
	if err != nil {
		fmt.Print(doc)
		return
	}
	fmt.Print(rendered)
}
