package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"xdigest/internal/config"
	"xdigest/internal/digest"
	"xdigest/internal/fetcher"
	"xdigest/internal/model"
	"xdigest/internal/notifier"
	"xdigest/internal/settings"
	"xdigest/internal/summarizer"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		LastRunPath:    filepath.Join(t.TempDir(), ".last_run"),
		LLMBaseURL:     config.DefaultLLMBaseURL,
		LLMModel:       config.DefaultLLMModel,
		SMTPHost:       config.DefaultSMTPHost,
		SMTPPort:       config.DefaultSMTPPort,
		RetryAttempts:  3,
		RetryBaseDelay: time.Millisecond,
	}
}

func fullSettings() *settings.Settings {
	s := settings.Default()
	s.ListURL = "https://x.com/i/lists/1234567890"
	s.GeminiAPIKey = "AIza-test"
	s.GmailUser = "me@gmail.com"
	s.GmailAppPassword = "abcd efgh ijkl mnop"
	s.XCookies = settings.Cookies{AuthToken: "token", CT0: "csrf", TwID: "u%3D1"}
	return s
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestCapabilitiesConfigured(t *testing.T) {
	caps := Capabilities(testConfig(t), fullSettings(), discard)

	if _, ok := caps.Fetcher.(*fetcher.XList); !ok {
		t.Errorf("Fetcher = %T, want *fetcher.XList", caps.Fetcher)
	}
	if _, ok := caps.Summarizer.(*summarizer.Summarizer); !ok {
		t.Errorf("Summarizer = %T, want *summarizer.Summarizer", caps.Summarizer)
	}
	if _, ok := caps.Notifier.(*notifier.Email); !ok {
		t.Errorf("Notifier = %T, want *notifier.Email", caps.Notifier)
	}
}

func TestCapabilitiesFeedAndTelegram(t *testing.T) {
	s := fullSettings()
	s.ListURL = "https://rss.example.com/list.xml"
	s.XCookies = settings.Cookies{}
	s.TelegramBotToken = "123:abc"
	s.TelegramChatID = 42

	caps := Capabilities(testConfig(t), s, discard)

	if _, ok := caps.Fetcher.(*fetcher.Feed); !ok {
		t.Errorf("Fetcher = %T, want *fetcher.Feed", caps.Fetcher)
	}
	multi, ok := caps.Notifier.(*notifier.Multi)
	if !ok {
		t.Fatalf("Notifier = %T, want *notifier.Multi", caps.Notifier)
	}
	if multi.Len() != 2 {
		t.Errorf("expected email and telegram notifiers, got %d", multi.Len())
	}
}

func TestCapabilitiesMissingCredentials(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*settings.Settings)
		check  func(digest.Capabilities) any
		reason string
	}{
		{
			name:   "no list",
			mutate: func(s *settings.Settings) { s.ListURL = "" },
			check:  func(c digest.Capabilities) any { return c.Fetcher },
			reason: "list_url",
		},
		{
			name:   "no cookies",
			mutate: func(s *settings.Settings) { s.XCookies.AuthToken = "" },
			check:  func(c digest.Capabilities) any { return c.Fetcher },
			reason: "x_cookies",
		},
		{
			name:   "no api key",
			mutate: func(s *settings.Settings) { s.GeminiAPIKey = "" },
			check:  func(c digest.Capabilities) any { return c.Summarizer },
			reason: "gemini_api_key",
		},
		{
			name:   "no app password",
			mutate: func(s *settings.Settings) { s.GmailAppPassword = "" },
			check:  func(c digest.Capabilities) any { return c.Notifier },
			reason: "gmail_app_password",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := fullSettings()
			tt.mutate(s)
			got := tt.check(Capabilities(testConfig(t), s, discard))
			u, ok := got.(digest.Unavailable)
			if !ok {
				t.Fatalf("got %T, want digest.Unavailable", got)
			}
			if !strings.Contains(u.Reason, tt.reason) {
				t.Errorf("reason %q does not mention %q", u.Reason, tt.reason)
			}
		})
	}
}

func TestNewRunner(t *testing.T) {
	cfg := testConfig(t)

	s := fullSettings()
	s.ExcludeKeywords = []string{"re:[unclosed"}
	if _, err := NewRunner(cfg, s, discard); err == nil {
		t.Error("expected error for invalid exclude regex")
	}

	// With nothing configured the run fails at fetch without network access.
	r, err := NewRunner(cfg, settings.Default(), discard)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	res := r.Run(context.Background())
	if res.Outcome != model.OutcomeFailed {
		t.Fatalf("outcome = %s, want failed", res.Outcome)
	}
	if !errors.Is(res.Err, digest.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", res.Err)
	}
}
