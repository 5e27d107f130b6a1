package presenter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"agrisense/internal/logging"
	"agrisense/internal/models"
	"agrisense/internal/utils"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"
)

// Telegram delivers notifications to a single chat through a bot.
// Permission is default until the bot token has been verified, granted afterwards, denied if verification failed.
type Telegram struct {
	token    string
	chatID   int64
	limiter  *rate.Limiter
	logger   *logging.Logger
	botOpts  []bot.Option
	attempts int
	delay    time.Duration

	mu         sync.Mutex
	client     *bot.Bot
	permission models.Permission
}

type TelegramOption func(*Telegram)

// WithBotOptions passes extra options to the underlying bot client.
func WithBotOptions(opts ...bot.Option) TelegramOption {
	return func(t *Telegram) {
		t.botOpts = append(t.botOpts, opts...)
	}
}

func WithRetry(attempts int, delay time.Duration) TelegramOption {
	return func(t *Telegram) {
		t.attempts = attempts
		t.delay = delay
	}
}

func NewTelegram(token string, chatID int64, ratePerSecond int, logger *logging.Logger, opts ...TelegramOption) *Telegram {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	if logger == nil {
		logger = logging.Discard()
	}
	t := &Telegram{
		token:      token,
		chatID:     chatID,
		limiter:    rate.NewLimiter(rate.Limit(float64(ratePerSecond)), ratePerSecond),
		logger:     logger,
		attempts:   3,
		delay:      time.Second,
		permission: models.PermissionDefault,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Telegram) Supported() bool {
	return t.token != "" && t.chatID != 0
}

func (t *Telegram) Permission(context.Context) models.Permission {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.permission
}

// RequestPermission verifies the bot token with getMe.
func (t *Telegram) RequestPermission(ctx context.Context) (models.Permission, error) {
	if !t.Supported() {
		return models.PermissionDenied, errors.New("telegram bot token or chat id missing")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.botLocked(ctx); err != nil {
		t.permission = models.PermissionDenied
		return t.permission, err
	}
	t.permission = models.PermissionGranted
	return t.permission, nil
}

func (t *Telegram) Display(ctx context.Context, n models.Notification) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit exceeded: %w", err)
	}

	text := fmt.Sprintf("*%s*\n%s", n.Title, n.Body)
	if action, ok := n.Data["action"].(string); ok && action != "" {
		text += fmt.Sprintf("\n\n*Action:* %s", action)
	}

	return utils.Retry(ctx, t.logger, t.attempts, t.delay, func() error {
		t.mu.Lock()
		b, err := t.botLocked(ctx)
		t.mu.Unlock()
		if err != nil {
			return err
		}

		params := &bot.SendMessageParams{
			ChatID:    t.chatID,
			Text:      text,
			ParseMode: "Markdown",
		}
		if _, err := b.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("failed to send Telegram message to chat_id %d: %w", t.chatID, err)
		}
		return nil
	})
}

// botLocked returns the cached client, creating it on first use. Callers hold mu.
func (t *Telegram) botLocked(ctx context.Context) (*bot.Bot, error) {
	if t.client != nil {
		return t.client, nil
	}
	b, err := bot.New(t.token, t.botOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	t.client = b
	return b, nil
}
