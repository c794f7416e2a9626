package telegrambot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	callbackSubscribe   = "sub:on"
	callbackUnsubscribe = "sub:off"
	callbackWeek        = "list:week"
)

const helpText = "Используйте /start для открытия меню.\nКоманды: /subscribe, /unsubscribe, /week, /status"

func keyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Подписаться", callbackSubscribe),
			tgbotapi.NewInlineKeyboardButtonData("Отписаться", callbackUnsubscribe),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Статьи за неделю", callbackWeek),
		),
	)
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch text {
	case "/start":
		b.handleStart(ctx, msg)
	case "/subscribe":
		b.setSubscription(ctx, chatID, true)
	case "/unsubscribe":
		b.setSubscription(ctx, chatID, false)
	case "/week", "/lastweek", "/неделя":
		b.sendLastWeek(ctx, chatID)
	case "/status":
		b.sendWithKeyboard(chatID, b.statusText(ctx))
	default:
		b.sendWithKeyboard(chatID, helpText)
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	var username, firstName string
	if msg.From != nil {
		username = msg.From.UserName
		firstName = msg.From.FirstName
	}

	if err := b.db.UpsertSubscriber(ctx, chatID, true, username, firstName); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("cannot register subscriber")
	}

	b.sendWithKeyboard(chatID, b.startText(ctx, chatID))
}

func (b *Bot) setSubscription(ctx context.Context, chatID int64, active bool) {
	if err := b.db.SetSubscription(ctx, chatID, active); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("cannot update subscription")
		return
	}

	text := "Подписка включена."
	if !active {
		text = "Подписка отключена."
	}

	b.sendWithKeyboard(chatID, text)
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.Message == nil {
		return
	}

	chatID := q.Message.Chat.ID

	switch q.Data {
	case callbackSubscribe:
		b.answerCallback(q.ID, "Подписка включена")
		b.setSubscription(ctx, chatID, true)
	case callbackUnsubscribe:
		b.answerCallback(q.ID, "Подписка отключена")
		b.setSubscription(ctx, chatID, false)
	case callbackWeek:
		b.answerCallback(q.ID, "Готовлю список за неделю...")
		b.sendLastWeek(ctx, chatID)
	default:
		b.answerCallback(q.ID, "Неизвестное действие")
	}
}

func (b *Bot) answerCallback(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.logger.Warn().Err(err).Msg("cannot answer callback query")
	}
}

func (b *Bot) sendWithKeyboard(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = keyboard()

	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("cannot send message")
	}
}

func (b *Bot) startText(ctx context.Context, chatID int64) string {
	state := "не подписан"

	subscribed, err := b.db.IsSubscribed(ctx, chatID)
	if err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("cannot read subscription state")
	} else if subscribed {
		state = "подписан"
	}

	return fmt.Sprintf(
		"Бот активен.\nСтатус: <b>%s</b>\n"+
			"Вы будете получать статьи за предыдущий день один раз в сутки.\n"+
			"Время отправки (%s): %02d:%02d.",
		state, b.cfg.Timezone, b.cfg.Hour, b.cfg.Minute,
	)
}

func (b *Bot) statusText(ctx context.Context) string {
	counts, err := b.db.GetArticleCounts(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("cannot read article counts")
		return "Статистика временно недоступна."
	}

	subscribers, err := b.db.ActiveSubscribers(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("cannot read subscribers")
		return "Статистика временно недоступна."
	}

	return fmt.Sprintf(
		"Всего статей: %d\nОбработано: %d\nВ очереди: %d\nАктивных подписчиков: %d",
		counts.Total, counts.Summarized, counts.Pending, len(subscribers),
	)
}
