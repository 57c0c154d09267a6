// Package settings loads and saves the user-editable settings file.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotFound is returned by Load when the settings file does not exist.
var ErrNotFound = errors.New("settings file not found")

// DefaultScheduleTime is the daily run time used when none is set.
const DefaultScheduleTime = "07:00"

// Cookies are the session cookies that authenticate list requests.
type Cookies struct {
	AuthToken string `json:"auth_token"`
	CT0       string `json:"ct0"`
	TwID      string `json:"twid"`
}

// Settings is the persisted settings record.
type Settings struct {
	ListURL          string   `json:"list_url"`
	GeminiAPIKey     string   `json:"gemini_api_key"`
	GmailUser        string   `json:"gmail_user"`
	GmailAppPassword string   `json:"gmail_app_password"`
	ScheduleTime     string   `json:"schedule_time"`
	XCookies         Cookies  `json:"x_cookies"`
	IncludeKeywords  []string `json:"include_keywords,omitempty"`
	ExcludeKeywords  []string `json:"exclude_keywords,omitempty"`
	TelegramBotToken string   `json:"telegram_bot_token,omitempty"`
	TelegramChatID   int64    `json:"telegram_chat_id,omitempty"`
}

// Default returns settings with every default applied.
func Default() *Settings {
	return &Settings{ScheduleTime: DefaultScheduleTime}
}

// Load reads the settings file at path. Fields absent from the file keep
// their defaults. A missing file yields ErrNotFound.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}

	s := Default()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	if s.ScheduleTime == "" {
		s.ScheduleTime = DefaultScheduleTime
	}
	return s, nil
}

// LoadOrDefault is like Load but returns defaults when the file is missing.
func LoadOrDefault(path string) (*Settings, error) {
	s, err := Load(path)
	if errors.Is(err, ErrNotFound) {
		return Default(), nil
	}
	return s, err
}

// Save writes s to path, replacing the whole file.
func Save(path string, s *Settings) error {
	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return WriteFileAtomic(path, append(data, '\n'), 0o600)
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it over path, so readers never observe a partial write.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace file: %w", err)
	}
	return nil
}

// ListID returns the list identifier, the last path segment of ListURL.
// A bare identifier is returned unchanged.
func (s *Settings) ListID() string {
	raw := strings.TrimSpace(s.ListURL)
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		raw = u.Path
	}
	raw = strings.TrimRight(raw, "/")
	if i := strings.LastIndex(raw, "/"); i >= 0 {
		raw = raw[i+1:]
	}
	return raw
}

// IsPlatformList reports whether ListURL points at an X list (or is a bare
// numeric list ID) rather than a feed.
func (s *Settings) IsPlatformList() bool {
	raw := strings.TrimSpace(s.ListURL)
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return isDigits(raw)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host != "x.com" && host != "twitter.com" && host != "mobile.x.com" && host != "mobile.twitter.com" {
		return false
	}
	return strings.Contains(u.Path, "/lists/")
}

// HasTelegram reports whether a Telegram copy should be sent.
func (s *Settings) HasTelegram() bool {
	return s.TelegramBotToken != "" && s.TelegramChatID != 0
}

// Missing lists the names of required fields that are empty.
func (s *Settings) Missing() []string {
	var missing []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	check("list_url", s.ListURL)
	if s.IsPlatformList() {
		check("x_cookies.auth_token", s.XCookies.AuthToken)
		check("x_cookies.ct0", s.XCookies.CT0)
	}
	check("gemini_api_key", s.GeminiAPIKey)
	check("gmail_user", s.GmailUser)
	check("gmail_app_password", s.GmailAppPassword)
	return missing
}

// ParseScheduleTime validates an HH:MM string and returns its parts.
func ParseScheduleTime(v string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(v))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid schedule time %q: want HH:MM", v)
	}
	return t.Hour(), t.Minute(), nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
