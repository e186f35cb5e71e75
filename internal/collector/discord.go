// Package collector ingests chat messages into the message store so there
// is something to summarize.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"digestbot/internal/domain"
	"digestbot/internal/metrics"
)

const writeTimeout = 5 * time.Second

// Payload is the JSON document stored for each collected message.
type Payload struct {
	MessageID string    `json:"message_id"`
	ChannelID string    `json:"channel_id"`
	Author    string    `json:"author"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Discord listens on the gateway and appends messages from the configured
// channels.
type Discord struct {
	token    string
	channels map[string]bool
	sink     domain.MessageSink
	logger   *slog.Logger
}

type DiscordConfig struct {
	Token string
	// ChannelIDs limits collection; empty collects every visible channel.
	ChannelIDs []string
	Sink       domain.MessageSink
	Logger     *slog.Logger
}

func NewDiscord(cfg DiscordConfig) *Discord {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	channels := make(map[string]bool, len(cfg.ChannelIDs))
	for _, id := range cfg.ChannelIDs {
		channels[id] = true
	}
	return &Discord{
		token:    cfg.Token,
		channels: channels,
		sink:     cfg.Sink,
		logger:   cfg.Logger,
	}
}

func (d *Discord) Name() string { return "discord" }

// Start connects to the gateway and blocks until ctx is cancelled.
func (d *Discord) Start(ctx context.Context) error {
	if d.token == "" {
		return fmt.Errorf("discord collector: bot token is required")
	}
	session, err := discordgo.New("Bot " + d.token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		d.handleMessage(ctx, m.Message)
	})

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord connect: %w", err)
	}
	d.logger.Info("discord collector connected", "user", session.State.User.Username, "channels", len(d.channels))

	<-ctx.Done()
	d.logger.Info("discord collector disconnecting")
	return session.Close()
}

// handleMessage stores one message unless it is filtered out.
func (d *Discord) handleMessage(ctx context.Context, m *discordgo.Message) {
	if m == nil || m.Author == nil || m.Author.Bot {
		return
	}
	if len(d.channels) > 0 && !d.channels[m.ChannelID] {
		return
	}

	p := Payload{
		MessageID: m.ID,
		ChannelID: m.ChannelID,
		Author:    m.Author.Username,
		AuthorID:  m.Author.ID,
		Content:   m.Content,
		Timestamp: m.Timestamp.UTC(),
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(p)
	if err != nil {
		d.logger.Error("encode message payload", "message_id", m.ID, "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if _, err := d.sink.AppendMessage(ctx, data, p.Timestamp); err != nil {
		d.logger.Error("store message", "message_id", m.ID, "channel_id", m.ChannelID, "err", err)
		return
	}
	metrics.MessagesIngested.Inc()
	d.logger.Debug("message collected", "message_id", m.ID, "channel_id", m.ChannelID, "content_len", len(m.Content))
}
