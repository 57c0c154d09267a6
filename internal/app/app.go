// Package app wires configuration and saved settings into the digest
// components shared by the command-line job and the settings page.
package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"xdigest/internal/config"
	"xdigest/internal/digest"
	"xdigest/internal/fetcher"
	"xdigest/internal/filter"
	"xdigest/internal/llm"
	"xdigest/internal/notifier"
	"xdigest/internal/runmark"
	"xdigest/internal/settings"
	"xdigest/internal/summarizer"
)

const httpTimeout = 60 * time.Second

// Capabilities builds the fetch, summarize and send integrations for s.
// An integration with missing credentials is replaced by digest.Unavailable.
func Capabilities(cfg *config.Config, s *settings.Settings, log *slog.Logger) digest.Capabilities {
	missing := s.Missing()
	lacks := func(field string) bool { return slices.Contains(missing, field) }

	var caps digest.Capabilities

	switch {
	case lacks("list_url"):
		caps.Fetcher = digest.Unavailable{Reason: "list_url is empty"}
	case lacks("x_cookies.auth_token"), lacks("x_cookies.ct0"):
		caps.Fetcher = digest.Unavailable{Reason: "x_cookies.auth_token and x_cookies.ct0 are required"}
	default:
		src, err := fetcher.New(&http.Client{Timeout: httpTimeout}, s)
		if err != nil {
			caps.Fetcher = digest.Unavailable{Reason: err.Error()}
		} else {
			caps.Fetcher = src
		}
	}

	if lacks("gemini_api_key") {
		caps.Summarizer = digest.Unavailable{Reason: "gemini_api_key is empty"}
	} else {
		client := llm.NewClient(s.GeminiAPIKey, cfg.LLMBaseURL, cfg.LLMModel)
		caps.Summarizer = summarizer.New(client, cfg.RetryAttempts, cfg.RetryBaseDelay, log)
	}

	switch {
	case lacks("gmail_user"):
		caps.Notifier = digest.Unavailable{Reason: "gmail_user is empty"}
	case lacks("gmail_app_password"):
		caps.Notifier = digest.Unavailable{Reason: "gmail_app_password is empty"}
	default:
		email := notifier.NewEmail(cfg.SMTPHost, cfg.SMTPPort, s.GmailUser, s.GmailAppPassword)
		if s.HasTelegram() {
			caps.Notifier = notifier.NewMulti(log, email, notifier.NewTelegram(s.TelegramBotToken, s.TelegramChatID))
		} else {
			caps.Notifier = email
		}
	}

	return caps
}

// NewRunner builds the daily runner for s, gated by the marker file from cfg.
func NewRunner(cfg *config.Config, s *settings.Settings, log *slog.Logger) (*digest.Runner, error) {
	filters, err := filter.FromKeywords(s.IncludeKeywords, s.ExcludeKeywords)
	if err != nil {
		return nil, fmt.Errorf("build filters: %w", err)
	}
	gate := runmark.New(cfg.LastRunPath)
	return digest.NewRunner(gate, Capabilities(cfg, s, log), filters, log), nil
}
