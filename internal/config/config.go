// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Defaults for the settings of the LLM and SMTP endpoints.
const (
	DefaultLLMBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	DefaultLLMModel   = "gemini-2.5-flash"
	DefaultSMTPHost   = "smtp.gmail.com"
	DefaultSMTPPort   = 465
	DefaultTaskName   = "X-AutoSummary"
)

// Config holds the application configuration.
type Config struct {
	SettingsPath string
	LastRunPath  string
	DatabasePath string
	LogLevel     string
	LogFile      string
	ListenAddr   string

	LLMBaseURL string
	LLMModel   string

	SMTPHost string
	SMTPPort int

	RetryAttempts  int
	RetryBaseDelay time.Duration

	TaskName      string
	DigestCommand string

	AllowedUsers []int64
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	smtpPort, err := intEnv("SMTP_PORT", DefaultSMTPPort)
	if err != nil {
		return nil, err
	}
	attempts, err := intEnv("RETRY_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	if attempts < 1 {
		return nil, fmt.Errorf("RETRY_ATTEMPTS must be at least 1, got %d", attempts)
	}

	baseDelay := 30 * time.Second
	if raw := os.Getenv("RETRY_BASE_DELAY"); raw != "" {
		baseDelay, err = time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid RETRY_BASE_DELAY %q: %w", raw, err)
		}
	}

	var allowedUsers []int64
	if raw := os.Getenv("ALLOWED_USERS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
			}
			allowedUsers = append(allowedUsers, uid)
		}
	}

	return &Config{
		SettingsPath:   envOrDefault("SETTINGS_PATH", "./settings.json"),
		LastRunPath:    envOrDefault("LAST_RUN_PATH", "./.last_run"),
		DatabasePath:   envOrDefault("DATABASE_PATH", "./data/digest.db"),
		LogLevel:       envOrDefault("LOG_LEVEL", "info"),
		LogFile:        os.Getenv("LOG_FILE"),
		ListenAddr:     envOrDefault("LISTEN_ADDR", "127.0.0.1:5000"),
		LLMBaseURL:     envOrDefault("LLM_BASE_URL", DefaultLLMBaseURL),
		LLMModel:       envOrDefault("LLM_MODEL", DefaultLLMModel),
		SMTPHost:       envOrDefault("SMTP_HOST", DefaultSMTPHost),
		SMTPPort:       smtpPort,
		RetryAttempts:  attempts,
		RetryBaseDelay: baseDelay,
		TaskName:       envOrDefault("TASK_NAME", DefaultTaskName),
		DigestCommand:  os.Getenv("DIGEST_COMMAND"),
		AllowedUsers:   allowedUsers,
	}, nil
}

// IsUserAllowed reports whether userID is in the allow list.
func (c *Config) IsUserAllowed(userID int64) bool {
	return slices.Contains(c.AllowedUsers, userID)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}
