// Package telegrambot runs the subscriber-facing bot: long polling for
// commands and callbacks, interleaved with the daily digest schedule.
package telegrambot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/medbrief/pubmed-digest-bot/internal/scheduler"
	db "github.com/medbrief/pubmed-digest-bot/internal/storage"
)

const (
	pollTimeoutSec = 25
	tickInterval   = 30 * time.Second
)

// Config carries the user-visible schedule description and the timezone
// used for the week listing ranges.
type Config struct {
	Timezone string
	Location *time.Location
	Hour     int
	Minute   int
}

type Bot struct {
	api    *tgbotapi.BotAPI
	db     *db.DB
	sched  *scheduler.Scheduler
	cfg    Config
	logger *zerolog.Logger

	now func() time.Time
}

func New(token string, database *db.DB, cfg Config, logger *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	logger.Info().Str("username", api.Self.UserName).Msg("Telegram bot authorized")

	return &Bot{
		api:    api,
		db:     database,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}, nil
}

// SetScheduler attaches the digest scheduler evaluated between updates.
func (b *Bot) SetScheduler(s *scheduler.Scheduler) {
	b.sched = s
}

// SendHTML delivers one HTML message with link previews disabled. It is
// the send primitive the scheduler uses for digest delivery.
func (b *Bot) SendHTML(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	_, err := b.api.Send(msg)

	return err
}

// Run polls for updates until the context is canceled. The schedule is
// evaluated on startup and then on a fixed interval between updates, so a
// quiet chat still gets its digest on time.
func (b *Bot) Run(ctx context.Context) error {
	if b.sched != nil {
		if err := b.sched.Bootstrap(ctx); err != nil {
			b.logger.Error().Err(err).Msg("bootstrap failed, continuing with polling")
		}
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSec
	u.AllowedUpdates = []string{"message", "callback_query"}

	updates := b.api.GetUpdatesChan(u)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	b.tick(ctx)

	b.logger.Info().Msg("Telegram bot polling started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case <-ticker.C:
			b.tick(ctx)
		case update, ok := <-updates:
			if !ok {
				return nil
			}

			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) tick(ctx context.Context) {
	if b.sched == nil {
		return
	}

	if err := b.sched.Tick(ctx); err != nil {
		b.logger.Error().Err(err).Msg("scheduled jobs failed")
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}
