package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spigell/hh-notifier/internal/headhunter"
	"github.com/spigell/hh-notifier/internal/pipeline"
	"github.com/spigell/hh-notifier/internal/store"
	"go.uber.org/zap"
)

const (
	favoritesLimit = 20
	statsWindow    = 7 * 24 * time.Hour

	settingQuery      = "query"
	settingSalary     = "salary"
	settingExperience = "experience"
	settingArea       = "area"
	settingRemote     = "remote"
	settingDepth      = "depth"
)

var now = time.Now

// validExperience mirrors the experience ids accepted by the search API.
// An empty value means any experience.
var validExperience = map[string]bool{
	"":             true,
	"noExperience": true,
	"between1And3": true,
	"between3And6": true,
	"moreThan6":    true,
}

// Cycler is the slice of the pipeline the handler drives.
type Cycler interface {
	RunCycle(ctx context.Context, chat pipeline.Chat) (int, error)
	CatchUp(ctx context.Context, chat pipeline.Chat) (int, error)
	Cached(id string) (*headhunter.Vacancy, bool)
}

// messenger is the slice of the bot the handler talks through; satisfied by
// *Bot and split out so tests can fake the Telegram side.
type messenger interface {
	reply(chatID int64, text string)
	answerCallback(id, text string)
	send(c tgbotapi.Chattable) error
	updates(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	stopUpdates()
}

// Handler processes incoming Telegram updates: commands, settings edits
// and the inline favorite/hide controls.
type Handler struct {
	bot      messenger
	store    store.Store
	pipeline Cycler
	logger   *zap.Logger

	// pending tracks which setting a chat is currently replying to.
	pending map[int64]string
}

func NewHandler(bot messenger, st store.Store, cycler Cycler, logger *zap.Logger) *Handler {
	return &Handler{
		bot:      bot,
		store:    st,
		pipeline: cycler,
		logger:   logger,
		pending:  make(map[int64]string),
	}
}

// Run consumes updates until the context is cancelled.
func (h *Handler) Run(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30

	updates := h.bot.updates(cfg)

	for {
		select {
		case <-ctx.Done():
			h.bot.stopUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			h.handleUpdate(ctx, update)
		}
	}
}

func (h *Handler) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		h.handleCallback(ctx, update.CallbackQuery)
		return
	}

	if update.Message == nil {
		return
	}

	msg := update.Message
	if !msg.IsCommand() {
		h.handleSettingReply(msg)
		return
	}

	switch msg.Command() {
	case "start":
		h.handleStart(ctx, msg)
	case "jobs":
		h.handleJobs(ctx, msg)
	case "favorites":
		h.handleFavorites(msg)
	case "settings":
		h.handleSettingsMenu(msg)
	case "stats":
		h.handleStats(msg)
	case "help":
		h.handleHelp(msg)
	default:
		h.bot.reply(msg.Chat.ID, "Unknown command. Use /help to see what I can do.")
	}
}

func (h *Handler) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	registered, err := h.store.RegisterChat(chatID)
	if err != nil {
		h.logger.Error("registering chat", zap.Int64("chat_id", chatID), zap.Error(err))
		h.bot.reply(chatID, "Something went wrong, please try again.")
		return
	}

	if registered {
		h.logger.Info("new chat registered", zap.Int64("chat_id", chatID))
	}

	settings, err := h.store.Settings(chatID)
	if err != nil {
		h.logger.Error("reading settings", zap.Int64("chat_id", chatID), zap.Error(err))
	}

	h.bot.reply(chatID, "Hi! I watch hh.ru for new vacancies and send them here.\n\n"+RenderSettings(settings))

	h.runCycle(ctx, chatID, settings, false)
}

func (h *Handler) handleJobs(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	settings, err := h.store.Settings(chatID)
	if err != nil {
		h.logger.Error("reading settings", zap.Int64("chat_id", chatID), zap.Error(err))
		h.bot.reply(chatID, "Something went wrong, please try again.")
		return
	}

	h.runCycle(ctx, chatID, settings, true)
}

// runCycle runs an incremental cycle inline and, when requested, falls
// back to a deeper catch-up on zero results.
func (h *Handler) runCycle(ctx context.Context, chatID int64, settings store.Settings, catchUp bool) {
	chat := pipeline.Chat{ID: chatID, Settings: settings}

	count, err := h.pipeline.RunCycle(ctx, chat)
	if err != nil {
		h.logger.Error("cycle failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}

	if count > 0 {
		return
	}

	if !catchUp {
		h.bot.reply(chatID, "Nothing new right now. I will keep watching.")
		return
	}

	count, err = h.pipeline.CatchUp(ctx, chat)
	if err != nil {
		h.logger.Error("catch-up failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}

	if count == 0 {
		h.bot.reply(chatID, "Nothing new, even in older postings. Try broadening the query in /settings.")
	}
}

func (h *Handler) handleFavorites(msg *tgbotapi.Message) {
	favorites, err := h.store.ListFavorites(favoritesLimit)
	if err != nil {
		h.logger.Error("listing favorites", zap.Error(err))
		h.bot.reply(msg.Chat.ID, "Something went wrong, please try again.")
		return
	}

	h.bot.reply(msg.Chat.ID, RenderFavorites(favorites))
}

func (h *Handler) handleStats(msg *tgbotapi.Message) {
	cutoff := now().Add(-statsWindow).Format("2006-01-02")

	stats, err := h.store.StatsSince(cutoff)
	if err != nil {
		h.logger.Error("reading stats", zap.Error(err))
		h.bot.reply(msg.Chat.ID, "Something went wrong, please try again.")
		return
	}

	h.bot.reply(msg.Chat.ID, RenderStats(stats))
}

func (h *Handler) handleHelp(msg *tgbotapi.Message) {
	h.bot.reply(msg.Chat.ID, `/start — register this chat and check for vacancies
/jobs — check now, digging deeper when nothing is fresh
/favorites — saved vacancies
/settings — edit the search
/stats — 7-day search report`)
}

func (h *Handler) handleSettingsMenu(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	settings, err := h.store.Settings(chatID)
	if err != nil {
		h.logger.Error("reading settings", zap.Int64("chat_id", chatID), zap.Error(err))
		h.bot.reply(chatID, "Something went wrong, please try again.")
		return
	}

	reply := tgbotapi.NewMessage(chatID, RenderSettings(settings))
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyMarkup = settingsKeyboard(settings)

	if err := h.bot.send(reply); err != nil {
		h.logger.Error("sending settings menu", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func settingsKeyboard(settings store.Settings) tgbotapi.InlineKeyboardMarkup {
	remote := "🏠 Remote only: off"
	if settings.RemoteOnly {
		remote = "🏠 Remote only: on"
	}

	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔎 Query", "set:"+settingQuery),
			tgbotapi.NewInlineKeyboardButtonData("💰 Min salary", "set:"+settingSalary),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🧳 Experience", "set:"+settingExperience),
			tgbotapi.NewInlineKeyboardButtonData("🌍 Area", "set:"+settingArea),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(remote, "set:"+settingRemote),
			tgbotapi.NewInlineKeyboardButtonData("📖 Search depth", "set:"+settingDepth),
		),
	)
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	action, arg, found := strings.Cut(cb.Data, ":")
	if !found || cb.Message == nil {
		h.bot.answerCallback(cb.ID, "")
		return
	}

	chatID := cb.Message.Chat.ID

	switch action {
	case callbackFavorite:
		h.addFavorite(cb, arg)
	case callbackUnfavorite:
		h.removeFavorite(cb, arg)
	case callbackHide:
		h.hideVacancy(cb, arg)
	case "set":
		h.editSetting(ctx, cb, arg)
	default:
		h.logger.Warn("unknown callback", zap.String("data", cb.Data), zap.Int64("chat_id", chatID))
		h.bot.answerCallback(cb.ID, "")
	}
}

func (h *Handler) addFavorite(cb *tgbotapi.CallbackQuery, vacancyID string) {
	fav := store.Favorite{ID: vacancyID}

	// The cache holds the full payload only for postings delivered since
	// the last restart; otherwise an identifier-only stub is saved.
	if v, ok := h.pipeline.Cached(vacancyID); ok {
		fav.Title = v.Name
		fav.URL = v.AlternateURL
		fav.Employer = v.Employer.Name
		fav.Salary = v.Salary.Display()
	}

	added, err := h.store.AddFavorite(fav)
	if err != nil {
		h.logger.Error("adding favorite", zap.String("vacancy_id", vacancyID), zap.Error(err))
		h.bot.answerCallback(cb.ID, "Something went wrong.")
		return
	}

	if !added {
		h.bot.answerCallback(cb.ID, "Already in favorites.")
		return
	}

	h.bot.answerCallback(cb.ID, "Added to favorites ⭐")
	h.refreshKeyboard(cb, vacancyID, true)
}

func (h *Handler) removeFavorite(cb *tgbotapi.CallbackQuery, vacancyID string) {
	removed, err := h.store.RemoveFavorite(vacancyID)
	if err != nil {
		h.logger.Error("removing favorite", zap.String("vacancy_id", vacancyID), zap.Error(err))
		h.bot.answerCallback(cb.ID, "Something went wrong.")
		return
	}

	if !removed {
		h.bot.answerCallback(cb.ID, "Not in favorites.")
		return
	}

	h.bot.answerCallback(cb.ID, "Removed from favorites.")
	h.refreshKeyboard(cb, vacancyID, false)
}

func (h *Handler) hideVacancy(cb *tgbotapi.CallbackQuery, vacancyID string) {
	hidden, err := h.store.Hide(vacancyID)
	if err != nil {
		h.logger.Error("hiding vacancy", zap.String("vacancy_id", vacancyID), zap.Error(err))
		h.bot.answerCallback(cb.ID, "Something went wrong.")
		return
	}

	if !hidden {
		h.bot.answerCallback(cb.ID, "Already hidden.")
		return
	}

	// The message itself stays; only future cycles are affected.
	h.bot.answerCallback(cb.ID, "Hidden from future searches.")
}

func (h *Handler) refreshKeyboard(cb *tgbotapi.CallbackQuery, vacancyID string, favorite bool) {
	edit := tgbotapi.NewEditMessageReplyMarkup(
		cb.Message.Chat.ID,
		cb.Message.MessageID,
		vacancyKeyboard(vacancyID, favorite),
	)

	if err := h.bot.send(edit); err != nil {
		h.logger.Error("refreshing keyboard", zap.String("vacancy_id", vacancyID), zap.Error(err))
	}
}

func (h *Handler) editSetting(_ context.Context, cb *tgbotapi.CallbackQuery, field string) {
	chatID := cb.Message.Chat.ID

	// Remote-only is a toggle; everything else expects a reply.
	if field == settingRemote {
		settings, err := h.store.Settings(chatID)
		if err != nil {
			h.logger.Error("reading settings", zap.Int64("chat_id", chatID), zap.Error(err))
			h.bot.answerCallback(cb.ID, "Something went wrong.")
			return
		}

		if err := h.store.SetRemoteOnly(chatID, !settings.RemoteOnly); err != nil {
			h.logger.Error("toggling remote only", zap.Int64("chat_id", chatID), zap.Error(err))
			h.bot.answerCallback(cb.ID, "Something went wrong.")
			return
		}

		h.bot.answerCallback(cb.ID, "Remote only toggled.")
		return
	}

	prompts := map[string]string{
		settingQuery:      "Send the new search query. Separate multiple queries with commas.",
		settingSalary:     "Send the minimum salary as a number (0 disables the filter).",
		settingExperience: "Send the experience bracket: noExperience, between1And3, between3And6, moreThan6, or - for any.",
		settingArea:       "Send the area code (113 for Russia, 1 for Moscow, - for worldwide).",
		settingDepth:      "Send the search depth: how many result pages to examine when catching up (1-10).",
	}

	prompt, ok := prompts[field]
	if !ok {
		h.bot.answerCallback(cb.ID, "")
		return
	}

	h.pending[chatID] = field
	h.bot.answerCallback(cb.ID, "")
	h.bot.reply(chatID, prompt)
}

// handleSettingReply consumes a plain-text message as the value for the
// setting the chat was asked about. Invalid input leaves the setting
// unchanged and tells the user why.
func (h *Handler) handleSettingReply(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	field, ok := h.pending[chatID]
	if !ok {
		return
	}

	value := strings.TrimSpace(msg.Text)
	if value == "-" {
		value = ""
	}

	var err error
	switch field {
	case settingQuery:
		if value == "" {
			h.bot.reply(chatID, "The query cannot be empty. Setting unchanged.")
			return
		}
		err = h.store.SetQuery(chatID, value)
	case settingSalary:
		salary, parseErr := strconv.ParseUint(value, 10, 32)
		if parseErr != nil {
			h.bot.reply(chatID, "That is not a number. Setting unchanged.")
			return
		}
		err = h.store.SetMinSalary(chatID, uint(salary))
	case settingExperience:
		if !validExperience[value] {
			h.bot.reply(chatID, "Unknown experience bracket. Setting unchanged.")
			return
		}
		err = h.store.SetExperience(chatID, value)
	case settingArea:
		if value != "" {
			if _, parseErr := strconv.Atoi(value); parseErr != nil {
				h.bot.reply(chatID, "The area must be a numeric code. Setting unchanged.")
				return
			}
		}
		err = h.store.SetArea(chatID, value)
	case settingDepth:
		depth, parseErr := strconv.Atoi(value)
		if parseErr != nil || depth < 1 || depth > 10 {
			h.bot.reply(chatID, "The depth must be a number between 1 and 10. Setting unchanged.")
			return
		}
		err = h.store.SetSearchDepth(chatID, depth)
	default:
		delete(h.pending, chatID)
		return
	}

	if err != nil {
		h.logger.Error("updating setting",
			zap.Int64("chat_id", chatID),
			zap.String("field", field),
			zap.Error(err),
		)
		h.bot.reply(chatID, "Something went wrong, please try again.")
		return
	}

	delete(h.pending, chatID)

	settings, err := h.store.Settings(chatID)
	if err != nil {
		h.logger.Error("reading settings", zap.Int64("chat_id", chatID), zap.Error(err))
		h.bot.reply(chatID, "Saved.")
		return
	}

	h.bot.reply(chatID, fmt.Sprintf("Saved.\n\n%s", RenderSettings(settings)))
}
