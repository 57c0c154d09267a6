// Package bot is a Telegram bot for controlling the digest: status, run
// history, connectivity test, manual runs and keyword filters.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"xdigest/internal/config"
	"xdigest/internal/digest"
	"xdigest/internal/model"
	"xdigest/internal/settings"
	"xdigest/internal/trigger"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// LastSent reports the date of the last delivered digest.
type LastSent interface {
	LastSent() (string, bool)
}

// RunLister lists recent runs, newest first.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)
}

// Deps are the digest operations the bot exposes. History and Registrar may be nil.
type Deps struct {
	SettingsPath string
	Marker       LastSent
	History      RunLister
	Run          func(ctx context.Context) digest.Result
	Diagnose     func(ctx context.Context, s *settings.Settings) digest.Report
	Registrar    trigger.Registrar
	Entrypoint   string
}

// Bot handles commands from the digest owner.
type Bot struct {
	api  telegramAPI
	cfg  *config.Config
	deps Deps
	log  *slog.Logger
}

// New creates a Bot with the given Telegram token.
func New(token string, cfg *config.Config, deps Deps, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:  api,
		cfg:  cfg,
		deps: deps,
		log:  log,
	}, nil
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if cb := update.CallbackQuery; cb != nil {
				if cb.Message != nil && cb.From != nil && b.isAllowed(cb.From.ID, cb.Message.Chat.ID) {
					b.handleCallback(ctx, cb)
				}
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if !b.isAllowed(update.Message.From.ID, update.Message.Chat.ID) {
				b.reply(update.Message.Chat.ID, "Access denied.")
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

// isAllowed admits users from ALLOWED_USERS and the chat the digest copy is
// delivered to.
func (b *Bot) isAllowed(userID, chatID int64) bool {
	if b.cfg.IsUserAllowed(userID) {
		return true
	}
	s, err := settings.LoadOrDefault(b.deps.SettingsPath)
	if err != nil {
		b.log.Error("load settings", "error", err)
		return false
	}
	return s.TelegramChatID != 0 && s.TelegramChatID == chatID
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case cmdStatus:
		b.handleStatus(ctx, chatID)
	case "runs":
		b.handleRuns(ctx, chatID, args)
	case cmdTest:
		b.handleTest(ctx, chatID)
	case cmdRun:
		b.handleRun(ctx, chatID)
	case "schedule":
		b.handleSchedule(ctx, chatID, args)
	case "filters":
		b.handleFilters(chatID)
	case "include":
		b.handleAddFilter(chatID, args, filterInclude)
	case "exclude":
		b.handleAddFilter(chatID, args, filterExclude)
	case cmdRmFilter:
		b.handleRmFilter(chatID, args)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
