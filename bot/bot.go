// Package bot exposes the crafting calculator as a Slack slash command.
// It uses the slack-go/slack library with Socket Mode, so no inbound
// endpoint is needed.
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
)

// reportTimeout bounds one report generation; a deep recipe tree can mean
// dozens of scrapes on a cold cache.
const reportTimeout = 3 * time.Minute

const usage = "Usage: `/craft <item> | <quantity> | <level>` " +
	"(or `/craft <item> x<quantity> @<level>`), e.g. `/craft Staff of Divine II | 10 | 25`"

// Config holds the bot's Slack credentials.
type Config struct {
	BotToken string // xoxb-... bot token
	AppToken string // xapp-... app-level token for Socket Mode
	Debug    bool
}

// Bot answers /craft slash commands with crafting reports.
type Bot struct {
	client  SlackAPI
	socket  *socketmode.Client
	reports Generator
	log     *slog.Logger
}

// New builds a Bot from cfg. The generator produces the reports; the bot
// only parses commands and delivers output.
func New(cfg Config, reports Generator, logger *slog.Logger) (*Bot, error) {
	if cfg.BotToken == "" {
		return nil, errors.New("bot token is required")
	}
	if cfg.AppToken == "" {
		return nil, errors.New("app token is required for Socket Mode")
	}
	if !strings.HasPrefix(cfg.AppToken, "xapp-") {
		return nil, errors.New("app token must start with xapp-")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	client := slack.New(
		cfg.BotToken,
		slack.OptionDebug(cfg.Debug),
		slack.OptionAppLevelToken(cfg.AppToken),
	)
	socket := socketmode.New(client, socketmode.OptionDebug(cfg.Debug))

	return &Bot{
		client:  client,
		socket:  socket,
		reports: reports,
		log:     logger,
	}, nil
}

// newBotForTest wires a Bot around fakes; no Slack connection is made.
func newBotForTest(client SlackAPI, reports Generator) *Bot {
	return &Bot{
		client:  client,
		reports: reports,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Run starts the Socket Mode event loop and blocks until ctx is canceled.
func (b *Bot) Run(ctx context.Context) error {
	go func() {
		for evt := range b.socket.Events {
			b.handleEvent(ctx, evt)
		}
	}()
	b.log.Info("bot starting")
	return b.socket.RunContext(ctx)
}

func (b *Bot) handleEvent(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		b.log.Info("connecting to Slack")
	case socketmode.EventTypeConnected:
		b.log.Info("connected to Slack")
	case socketmode.EventTypeConnectionError:
		b.log.Warn("Slack connection error", slog.Any("event", evt.Data))
	case socketmode.EventTypeSlashCommand:
		cmd, ok := evt.Data.(slack.SlashCommand)
		if !ok {
			return
		}
		b.socket.Ack(*evt.Request)
		b.handleSlashCommand(ctx, cmd)
	}
}

func (b *Bot) handleSlashCommand(ctx context.Context, cmd slack.SlashCommand) {
	switch cmd.Command {
	case "/craft":
		b.handleCraft(ctx, cmd)
	default:
		b.postEphemeral(cmd.ChannelID, cmd.UserID,
			fmt.Sprintf("Unknown command: %s\n%s", cmd.Command, usage))
	}
}

func (b *Bot) handleCraft(ctx context.Context, cmd slack.SlashCommand) {
	req, err := parseCraftArgs(cmd.Text)
	if err != nil {
		b.postEphemeral(cmd.ChannelID, cmd.UserID,
			fmt.Sprintf("%v\n%s", err, usage))
		return
	}

	b.postEphemeral(cmd.ChannelID, cmd.UserID,
		fmt.Sprintf("Working on *%s* x%d at level %d, give me a moment...",
			req.item, req.quantity, req.level))

	// Report generation scrapes the recipe site; it runs off the event
	// loop so other commands are not held up behind it.
	go b.deliver(ctx, cmd.ChannelID, req)
}

// deliver generates the report and posts it: the chat-sized summary as a
// message, the full document as an uploaded markdown file. Errors are
// reported verbatim in the channel.
func (b *Bot) deliver(ctx context.Context, channelID string, req craftRequest) {
	ctx, cancel := context.WithTimeout(ctx, reportTimeout)
	defer cancel()

	rep, err := b.reports.Generate(ctx, req.item, req.quantity, req.level)
	if err != nil {
		b.log.Warn("report failed",
			slog.String("item", req.item), slog.Any("error", err))
		b.postMessage(channelID, fmt.Sprintf("**Error:** `%v`", err))
		return
	}

	b.postMessage(channelID, rep.Summary)

	filename := fmt.Sprintf("%s_%dx_breakdown.md",
		strings.ReplaceAll(req.item, " ", "_"), req.quantity)
	_, err = b.client.UploadFileV2(slack.UploadFileV2Parameters{
		Channel:  channelID,
		Filename: filename,
		Title:    fmt.Sprintf("%s – %dx (Lvl %d)", req.item, req.quantity, req.level),
		Content:  rep.Document,
		FileSize: len(rep.Document),
	})
	if err != nil {
		b.log.Warn("file upload failed",
			slog.String("file", filename), slog.Any("error", err))
		b.postMessage(channelID, fmt.Sprintf("**Error:** `%v`", err))
	}
}

func (b *Bot) postMessage(channelID, text string) {
	if _, _, err := b.client.PostMessage(channelID, slack.MsgOptionText(text, false)); err != nil {
		b.log.Warn("post failed",
			slog.String("channel", channelID), slog.Any("error", err))
	}
}

func (b *Bot) postEphemeral(channelID, userID, text string) {
	if _, err := b.client.PostEphemeral(channelID, userID, slack.MsgOptionText(text, false)); err != nil {
		b.log.Warn("ephemeral post failed",
			slog.String("channel", channelID), slog.Any("error", err))
	}
}

// craftRequest is one parsed /craft invocation.
type craftRequest struct {
	item     string
	quantity int
	level    int
}

// shortForm matches "Iron Ingot x20 @15".
var shortForm = regexp.MustCompile(`^(.+?)\s+x\s*(\d+)\s+@\s*(\d+)$`)

// parseCraftArgs understands two argument shapes:
//
//	<item> | <quantity> | <level>
//	<item> x<quantity> @<level>
func parseCraftArgs(text string) (craftRequest, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return craftRequest{}, errors.New("missing arguments")
	}

	var item, qtyStr, lvlStr string
	if strings.Contains(text, "|") {
		parts := strings.Split(text, "|")
		if len(parts) != 3 {
			return craftRequest{}, fmt.Errorf("expected 3 fields, got %d", len(parts))
		}
		item = strings.TrimSpace(parts[0])
		qtyStr = strings.TrimSpace(parts[1])
		lvlStr = strings.TrimSpace(parts[2])
	} else {
		m := shortForm.FindStringSubmatch(text)
		if m == nil {
			return craftRequest{}, errors.New("could not parse arguments")
		}
		item = strings.TrimSpace(m[1])
		qtyStr = m[2]
		lvlStr = m[3]
	}

	if item == "" {
		return craftRequest{}, errors.New("item name must not be empty")
	}
	qty, err := strconv.Atoi(qtyStr)
	if err != nil {
		return craftRequest{}, fmt.Errorf("quantity %q is not a number", qtyStr)
	}
	if qty < 1 {
		return craftRequest{}, fmt.Errorf("quantity must be positive, got %d", qty)
	}
	lvl, err := strconv.Atoi(lvlStr)
	if err != nil {
		return craftRequest{}, fmt.Errorf("level %q is not a number", lvlStr)
	}
	if lvl < 0 {
		return craftRequest{}, fmt.Errorf("level must not be negative, got %d", lvl)
	}
	return craftRequest{item: item, quantity: qty, level: lvl}, nil
}
