package bot

import (
	"context"

	"github.com/slack-go/slack"

	"github.com/joeminicucci/paxdei-crafting-bot/report"
)

// SlackAPI abstracts the subset of slack.Client methods the bot uses.
// This allows tests to substitute a fake implementation without a live
// Slack connection.
type SlackAPI interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
	PostEphemeral(channelID, userID string, options ...slack.MsgOption) (string, error)
	UploadFileV2(params slack.UploadFileV2Parameters) (*slack.FileSummary, error)
}

// Generator produces crafting reports. Implemented by report.Assembler.
type Generator interface {
	Generate(ctx context.Context, itemName string, quantity, level int) (*report.Report, error)
}
