// Command paxbot runs the Slack /craft bot over Socket Mode.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joeminicucci/paxdei-crafting-bot/bot"
	"github.com/joeminicucci/paxdei-crafting-bot/calculator"
	"github.com/joeminicucci/paxdei-crafting-bot/config"
	"github.com/joeminicucci/paxdei-crafting-bot/gamingtools"
	"github.com/joeminicucci/paxdei-crafting-bot/recipe"
	"github.com/joeminicucci/paxdei-crafting-bot/recipedb"
	"github.com/joeminicucci/paxdei-crafting-bot/report"
)

func main() {
	var (
		cfgPath = flag.String("config", "", "config file (default "+config.DefaultPath+")")
		debug   = flag.Bool("debug", false, "verbose Slack client logging")
	)
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "paxbot: %v\n", err)
		os.Exit(1)
	}
	logLevel, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	if cfg.SlackBotToken == "" || cfg.SlackAppToken == "" {
		fmt.Fprintln(os.Stderr, "paxbot: SLACK_BOT_TOKEN and SLACK_APP_TOKEN must be set")
		os.Exit(1)
	}

	asm, closeFn := buildAssembler(cfg, logger)
	defer closeFn()

	b, err := bot.New(bot.Config{
		BotToken: cfg.SlackBotToken,
		AppToken: cfg.SlackAppToken,
		Debug:    *debug,
	}, asm, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "paxbot: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "paxbot: %v\n", err)
		os.Exit(1)
	}
	logger.Info("bot stopped")
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
