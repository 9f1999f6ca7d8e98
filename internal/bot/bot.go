package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spigell/hh-notifier/internal/ai"
	"github.com/spigell/hh-notifier/internal/headhunter"
	"go.uber.org/zap"
)

const (
	callbackFavorite   = "fav"
	callbackUnfavorite = "unfav"
	callbackHide       = "hide"
)

// Bot wraps the Telegram API and implements the pipeline's Sender.
type Bot struct {
	api    *tgbotapi.BotAPI
	logger *zap.Logger
}

func New(token string, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}

	logger.Info("telegram bot authorized", zap.String("username", api.Self.UserName))

	return &Bot{api: api, logger: logger}, nil
}

// SendVacancy renders and delivers a single posting with its interactive
// controls. The favorite flag selects the initial toggle state.
func (b *Bot) SendVacancy(_ context.Context, chatID int64, v *headhunter.Vacancy, assessment *ai.Assessment, favorite bool) error {
	msg := tgbotapi.NewMessage(chatID, RenderVacancy(v, assessment))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = vacancyKeyboard(v.ID, favorite)

	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("sending vacancy %s: %w", v.ID, err)
	}

	return nil
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("sending reply", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) answerCallback(id, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		b.logger.Error("answering callback", zap.Error(err))
	}
}

func (b *Bot) send(c tgbotapi.Chattable) error {
	_, err := b.api.Send(c)
	return err
}

func (b *Bot) updates(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return b.api.GetUpdatesChan(cfg)
}

func (b *Bot) stopUpdates() {
	b.api.StopReceivingUpdates()
}

// vacancyKeyboard builds the two-control row attached to every delivered
// posting: a favorite toggle and a permanent hide.
func vacancyKeyboard(vacancyID string, favorite bool) tgbotapi.InlineKeyboardMarkup {
	favButton := tgbotapi.NewInlineKeyboardButtonData("☆ Favorite", callbackFavorite+":"+vacancyID)
	if favorite {
		favButton = tgbotapi.NewInlineKeyboardButtonData("★ Unfavorite", callbackUnfavorite+":"+vacancyID)
	}

	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			favButton,
			tgbotapi.NewInlineKeyboardButtonData("🙈 Hide", callbackHide+":"+vacancyID),
		),
	)
}
