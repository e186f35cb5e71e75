package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"
)

const slackMaxMsgLen = 4000

// Slack posts digests with chat.postMessage.
type Slack struct {
	client *slack.Client
	logger *slog.Logger
}

type SlackConfig struct {
	Token  string
	APIURL string // must end with "/"
	Logger *slog.Logger
}

func NewSlack(cfg SlackConfig) *Slack {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	var opts []slack.Option
	if cfg.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(cfg.APIURL))
	}
	return &Slack{
		client: slack.New(cfg.Token, opts...),
		logger: cfg.Logger,
	}
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Deliver(ctx context.Context, channelID, text string) error {
	chunks := splitMessage(text, slackMaxMsgLen)
	for i, chunk := range chunks {
		_, _, err := s.client.PostMessageContext(ctx, channelID, slack.MsgOptionText(chunk, false))
		if err != nil {
			return fmt.Errorf("slack send chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return nil
}

func (s *Slack) Check(ctx context.Context) error {
	resp, err := s.client.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack: %w", err)
	}
	s.logger.Debug("slack token ok", "team", resp.Team, "user", resp.User)
	return nil
}
