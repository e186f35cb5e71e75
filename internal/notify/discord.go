package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

const discordMaxMsgLen = 2000

// Discord posts digests to a channel through the Discord REST API. No
// gateway connection is opened.
type Discord struct {
	session *discordgo.Session
	logger  *slog.Logger
}

type DiscordConfig struct {
	Token  string
	Logger *slog.Logger
}

func NewDiscord(cfg DiscordConfig) (*Discord, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	session.MaxRestRetries = 0
	return &Discord{session: session, logger: cfg.Logger}, nil
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Deliver(ctx context.Context, channelID, text string) error {
	if channelID == "" {
		return fmt.Errorf("discord: channel id is required")
	}
	chunks := splitMessage(text, discordMaxMsgLen)
	for i, chunk := range chunks {
		if _, err := d.session.ChannelMessageSend(channelID, chunk, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("discord send chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return nil
}

// Check verifies the bot token.
func (d *Discord) Check(ctx context.Context) error {
	u, err := d.session.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	d.logger.Debug("discord token ok", "user", u.Username)
	return nil
}
