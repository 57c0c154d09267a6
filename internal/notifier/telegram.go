package notifier

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const telegramMaxRunes = 4096

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends a copy of the digest to one chat.
type Telegram struct {
	token  string
	chatID int64
	api    telegramAPI
}

// NewTelegram creates a Telegram notifier. The bot API is connected on first use.
func NewTelegram(token string, chatID int64) *Telegram {
	return &Telegram{token: token, chatID: chatID}
}

// Notify sends the subject and body, split to fit Telegram's message limit.
func (t *Telegram) Notify(ctx context.Context, subject, body string) error {
	if err := t.connect(); err != nil {
		return err
	}
	for _, part := range SplitMessage(subject+"\n\n"+body, telegramMaxRunes) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(t.chatID, part)
		msg.DisableWebPagePreview = true
		if _, err := t.api.Send(msg); err != nil {
			return fmt.Errorf("send telegram message: %w", err)
		}
	}
	return nil
}

// Check connects to the bot API, which validates the token.
func (t *Telegram) Check(_ context.Context) error {
	return t.connect()
}

func (t *Telegram) connect() error {
	if t.api != nil {
		return nil
	}
	api, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return fmt.Errorf("create bot api: %w", err)
	}
	t.api = api
	return nil
}

// SplitMessage breaks text into chunks of at most limit runes, preferring
// to cut at line breaks.
func SplitMessage(text string, limit int) []string {
	runes := []rune(text)
	var parts []string
	for len(runes) > limit {
		cut := limit
		if i := lastIndexRune(runes[:limit], '\n'); i > 0 {
			cut = i
		}
		parts = append(parts, strings.TrimRight(string(runes[:cut]), "\n"))
		runes = runes[cut:]
		for len(runes) > 0 && runes[0] == '\n' {
			runes = runes[1:]
		}
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

func lastIndexRune(rs []rune, r rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i] == r {
			return i
		}
	}
	return -1
}
