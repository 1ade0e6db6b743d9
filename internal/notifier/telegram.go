package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"TrendSignal/internal/observability"
)

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	log     *zap.Logger
	backoff time.Duration
}

// TelegramOptions configures a TelegramNotifier. Endpoint overrides the API
// URL template (tgbotapi.APIEndpoint).
type TelegramOptions struct {
	Token    string
	ChatID   int64
	ProxyURL string
	Endpoint string
	Timeout  time.Duration
}

// NewTelegramNotifier connects to the Bot API with optional proxy support.
func NewTelegramNotifier(opts TelegramOptions, log *zap.Logger) (*TelegramNotifier, error) {
	if opts.Token == "" || opts.ChatID == 0 {
		return nil, errors.New("telegram token and chat id are required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Endpoint == "" {
		opts.Endpoint = tgbotapi.APIEndpoint
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 40 * time.Second
	}
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if opts.ProxyURL != "" {
		if u, err := url.Parse(opts.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}

	bot, err := tgbotapi.NewBotAPIWithClient(opts.Token, opts.Endpoint,
		&http.Client{Timeout: opts.Timeout, Transport: transport})
	if err != nil {
		return nil, fmt.Errorf("connect telegram: %w", err)
	}
	log.Info("telegram notifier ready", zap.String("bot", bot.Self.UserName))
	return &TelegramNotifier{bot: bot, chatID: opts.ChatID, log: log, backoff: time.Second}, nil
}

// Send sends an HTML message to the configured chat.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := t.bot.Send(msg)
	observability.RecordNotification(err)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	return sendWithRetry(ctx, t, text, maxRetries, t.backoff, t.log)
}

// StartPolling long-polls for commands from the configured chat. Blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)
	defer t.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			t.log.Info("telegram polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			if update.Message.Chat == nil || update.Message.Chat.ID != t.chatID {
				t.log.Warn("ignoring command from unknown chat")
				continue
			}
			t.log.Info("received command", zap.String("text", update.Message.Text))
			if reply := handler(update.Message.Text); reply != "" {
				if err := t.Send(ctx, reply); err != nil {
					t.log.Error("send reply", zap.Error(err))
				}
			}
		}
	}
}

// sendWithRetry retries n.Send, doubling the wait after each failure.
func sendWithRetry(ctx context.Context, n Notifier, text string, maxRetries int, base time.Duration, log *zap.Logger) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		err := n.Send(ctx, text)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == maxRetries {
			break
		}
		backoff := base * time.Duration(1<<uint(i))
		log.Warn("notification send failed, retrying",
			zap.Int("attempt", i+1), zap.Int("max", maxRetries+1),
			zap.Duration("backoff", backoff), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("all %d attempts failed: %w", maxRetries+1, lastErr)
}
