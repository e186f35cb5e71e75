package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const telegramMaxMsgLen = 4000

// Telegram posts digests to a chat, group or @channel.
type Telegram struct {
	token     string
	endpoint  string
	parseMode string
	timeout   time.Duration
	logger    *slog.Logger

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

type TelegramConfig struct {
	Token     string
	ParseMode string // "Markdown", "MarkdownV2", "HTML" or empty for plain text
	// APIEndpoint is a format string taking the token and method,
	// defaulting to tgbotapi.APIEndpoint.
	APIEndpoint string
	// Timeout bounds every Bot API request, including getMe.
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = tgbotapi.APIEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Telegram{
		token:     cfg.Token,
		endpoint:  cfg.APIEndpoint,
		parseMode: cfg.ParseMode,
		timeout:   cfg.Timeout,
		logger:    cfg.Logger,
	}
}

func (t *Telegram) Name() string { return "telegram" }

// client connects on first use; tgbotapi validates the token with getMe.
func (t *Telegram) client() (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bot != nil {
		return t.bot, nil
	}
	if t.token == "" {
		return nil, fmt.Errorf("telegram: bot token is required")
	}
	bot, err := tgbotapi.NewBotAPIWithClient(t.token, t.endpoint, &http.Client{Timeout: t.timeout})
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	t.bot = bot
	return bot, nil
}

func (t *Telegram) Check(ctx context.Context) error {
	_, err := t.client()
	return err
}

func (t *Telegram) Deliver(ctx context.Context, chatID, text string) error {
	bot, err := t.client()
	if err != nil {
		return err
	}
	chunks := splitMessage(text, telegramMaxMsgLen)
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.sendChunk(ctx, bot, chatID, chunk); err != nil {
			return fmt.Errorf("telegram send chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return nil
}

// sendChunk tries the configured parse mode first and falls back to plain
// text when Telegram rejects the markup.
func (t *Telegram) sendChunk(ctx context.Context, bot *tgbotapi.BotAPI, chatID, text string) error {
	msg, err := newTelegramMessage(chatID, text)
	if err != nil {
		return err
	}
	msg.ParseMode = t.parseMode

	err = t.send(ctx, bot, msg)
	if err == nil {
		return nil
	}
	if msg.ParseMode == "" || !strings.Contains(err.Error(), "can't parse entities") {
		return err
	}

	t.logger.Warn("telegram markup rejected, resending as plain text", "err", err, "parseMode", t.parseMode)
	msg.ParseMode = ""
	return t.send(ctx, bot, msg)
}

// send returns when the request finishes or ctx is done, whichever is
// first. bot.Send takes no context; an abandoned request still ends at the
// client timeout.
func (t *Telegram) send(ctx context.Context, bot *tgbotapi.BotAPI, msg tgbotapi.MessageConfig) error {
	errc := make(chan error, 1)
	go func() {
		_, err := bot.Send(msg)
		errc <- err
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// newTelegramMessage accepts a numeric chat id or an @channel username.
func newTelegramMessage(chatID, text string) (tgbotapi.MessageConfig, error) {
	if strings.HasPrefix(chatID, "@") {
		return tgbotapi.NewMessageToChannel(chatID, text), nil
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return tgbotapi.MessageConfig{}, fmt.Errorf("telegram: invalid chat id %q", chatID)
	}
	return tgbotapi.NewMessage(id, text), nil
}
