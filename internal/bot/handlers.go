package bot

import (
	"context"
	"fmt"
	"slices"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"xdigest/internal/filter"
	"xdigest/internal/settings"
)

const (
	filterInclude = "include"
	filterExclude = "exclude"

	defaultRuns = 5
	maxRuns     = 20
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to the X list digest bot!

The digest is summarized and mailed once a day. From here you can:
1. /status — see what is configured and when it last ran
2. /test — check the list, LLM and mail connections
3. /run — send today's digest now

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Digest:
/status — configuration and last run
/runs [n] — recent runs (default 5, max 20)
/test — connectivity test, nothing is sent
/run — run today's digest now (skipped if already sent)
/schedule <HH:MM> — change the daily run time

Keyword filters:
/filters — show filters
/include <word> — keep only posts containing a word
/exclude <word> — drop posts containing a word
/rmfilter <n> — remove filter n

Prefix a word with re: to use a regular expression.`)
}

func (b *Bot) handleStatus(ctx context.Context, chatID int64) {
	s, ok := b.loadSettings(chatID)
	if !ok {
		return
	}

	var lastSent string
	if b.deps.Marker != nil {
		lastSent, _ = b.deps.Marker.LastSent()
	}

	text := FormatStatus(s, lastSent)
	if b.deps.History != nil {
		runs, err := b.deps.History.ListRuns(ctx, 1)
		if err != nil {
			b.log.Error("list runs", "error", err)
		} else if len(runs) > 0 {
			text += "\n" + FormatLastRun(runs[0])
		}
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Run now", cmdRun+":0"),
			tgbotapi.NewInlineKeyboardButtonData("Test", cmdTest+":0"),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send status", "error", err)
	}
}

func (b *Bot) handleRuns(ctx context.Context, chatID int64, args string) {
	if b.deps.History == nil {
		b.reply(chatID, "Run history is not enabled.")
		return
	}

	limit, err := ParseLimitArg(args, defaultRuns, maxRuns)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	runs, err := b.deps.History.ListRuns(ctx, limit)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatRuns(runs))
}

func (b *Bot) handleTest(ctx context.Context, chatID int64) {
	s, ok := b.loadSettings(chatID)
	if !ok {
		return
	}

	b.reply(chatID, "Testing connections...")
	rep := b.deps.Diagnose(ctx, s)
	b.reply(chatID, FormatReport(rep))
}

func (b *Bot) handleRun(ctx context.Context, chatID int64) {
	b.reply(chatID, "Running digest...")
	res := b.deps.Run(ctx)
	b.log.Info("manual run", "chat_id", chatID, "outcome", res.Outcome)
	b.reply(chatID, FormatResult(res))
}

func (b *Bot) handleSchedule(ctx context.Context, chatID int64, args string) {
	hour, minute, err := settings.ParseScheduleTime(args)
	if err != nil {
		b.reply(chatID, "Usage: /schedule <HH:MM>")
		return
	}
	at := fmt.Sprintf("%02d:%02d", hour, minute)

	s, ok := b.loadSettings(chatID)
	if !ok {
		return
	}
	s.ScheduleTime = at
	if !b.saveSettings(chatID, s) {
		return
	}

	if b.deps.Registrar != nil {
		if err := b.deps.Registrar.Ensure(ctx, at, b.deps.Entrypoint); err != nil {
			b.log.Error("register trigger", "schedule_time", at, "error", err)
			b.reply(chatID, fmt.Sprintf("Schedule set to %s, but registering the OS trigger failed: %v", at, err))
			return
		}
	}
	b.reply(chatID, fmt.Sprintf("The digest now runs daily at %s.", at))
}

func (b *Bot) handleFilters(chatID int64) {
	s, ok := b.loadSettings(chatID)
	if !ok {
		return
	}

	msg := tgbotapi.NewMessage(chatID, FormatFilterList(s))
	n := len(s.IncludeKeywords) + len(s.ExcludeKeywords)
	if n > 0 {
		var rows [][]tgbotapi.InlineKeyboardButton
		for i := 1; i <= n; i++ {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("Remove %d", i), fmt.Sprintf("%s:%d", cmdRmFilter, i)),
			))
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send filters", "error", err)
	}
}

func (b *Bot) handleAddFilter(chatID int64, args, kind string) {
	word, err := ParseKeywordArg(args)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Usage: /%s <word>", kind))
		return
	}

	s, ok := b.loadSettings(chatID)
	if !ok {
		return
	}

	include, exclude := s.IncludeKeywords, s.ExcludeKeywords
	if kind == filterInclude {
		include = append(slices.Clone(include), word)
	} else {
		exclude = append(slices.Clone(exclude), word)
	}
	if _, err := filter.FromKeywords(include, exclude); err != nil {
		b.reply(chatID, fmt.Sprintf("Invalid filter: %v", err))
		return
	}
	s.IncludeKeywords, s.ExcludeKeywords = include, exclude

	if !b.saveSettings(chatID, s) {
		return
	}
	b.reply(chatID, fmt.Sprintf("Filter added: %s %s", kind, word))
}

func (b *Bot) handleRmFilter(chatID int64, args string) {
	n, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /rmfilter <n>")
		return
	}

	s, ok := b.loadSettings(chatID)
	if !ok {
		return
	}

	i := int(n) - 1
	var removed string
	switch {
	case i >= 0 && i < len(s.IncludeKeywords):
		removed = filterInclude + " " + s.IncludeKeywords[i]
		s.IncludeKeywords = slices.Delete(slices.Clone(s.IncludeKeywords), i, i+1)
	case i >= len(s.IncludeKeywords) && i < len(s.IncludeKeywords)+len(s.ExcludeKeywords):
		j := i - len(s.IncludeKeywords)
		removed = filterExclude + " " + s.ExcludeKeywords[j]
		s.ExcludeKeywords = slices.Delete(slices.Clone(s.ExcludeKeywords), j, j+1)
	default:
		b.reply(chatID, fmt.Sprintf("Filter %d not found.", n))
		return
	}

	if !b.saveSettings(chatID, s) {
		return
	}
	b.reply(chatID, fmt.Sprintf("Filter %d removed: %s", n, removed))
}

func (b *Bot) loadSettings(chatID int64) (*settings.Settings, bool) {
	s, err := settings.LoadOrDefault(b.deps.SettingsPath)
	if err != nil {
		b.log.Error("load settings", "path", b.deps.SettingsPath, "error", err)
		b.reply(chatID, fmt.Sprintf("Error reading settings: %v", err))
		return nil, false
	}
	return s, true
}

func (b *Bot) saveSettings(chatID int64, s *settings.Settings) bool {
	if err := settings.Save(b.deps.SettingsPath, s); err != nil {
		b.log.Error("save settings", "path", b.deps.SettingsPath, "error", err)
		b.reply(chatID, fmt.Sprintf("Error saving settings: %v", err))
		return false
	}
	return true
}
