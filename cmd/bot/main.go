package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"xdigest/internal/app"
	"xdigest/internal/bot"
	"xdigest/internal/config"
	"xdigest/internal/digest"
	"xdigest/internal/model"
	"xdigest/internal/runmark"
	"xdigest/internal/scheduler"
	"xdigest/internal/settings"
	"xdigest/internal/storage"
	"xdigest/internal/trigger"
)

type jobFunc func(ctx context.Context) digest.Result

func (f jobFunc) Run(ctx context.Context) digest.Result { return f(ctx) }

func main() {
	schedule := flag.Bool("schedule", false, "also send the digest daily at schedule_time from this process")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	s, err := settings.Load(cfg.SettingsPath)
	if err != nil {
		log.Error("load settings", "path", cfg.SettingsPath, "error", err)
		os.Exit(1)
	}
	if s.TelegramBotToken == "" {
		log.Error("telegram_bot_token is empty, set it on the settings page")
		os.Exit(1)
	}

	var history *storage.SQLite
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Warn("create data directory", "path", dir, "error", err)
		}
	}
	if store, err := storage.NewSQLite(cfg.DatabasePath); err != nil {
		log.Warn("open run history, continuing without it", "path", cfg.DatabasePath, "error", err)
	} else {
		defer func() { _ = store.Close() }()
		history = store
	}

	run := func(ctx context.Context) digest.Result {
		current, err := settings.Load(cfg.SettingsPath)
		if err != nil {
			return digest.Result{Outcome: model.OutcomeFailed, Err: err}
		}
		runner, err := app.NewRunner(cfg, current, log)
		if err != nil {
			return digest.Result{Outcome: model.OutcomeFailed, Err: err}
		}
		if history != nil {
			runner.SetHistory(history)
		}
		return runner.Run(ctx)
	}

	deps := bot.Deps{
		SettingsPath: cfg.SettingsPath,
		Marker:       runmark.New(cfg.LastRunPath),
		Run:          run,
		Diagnose: func(ctx context.Context, s *settings.Settings) digest.Report {
			return digest.Diagnose(ctx, app.Capabilities(cfg, s, log))
		},
		Registrar: trigger.New(cfg.TaskName),
	}
	if history != nil {
		deps.History = history
	}
	if deps.Entrypoint, err = digestEntrypoint(cfg); err != nil {
		log.Warn("resolve digest command, /schedule will not register a trigger", "error", err)
		deps.Registrar = nil
	}

	b, err := bot.New(s.TelegramBotToken, cfg, deps, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting bot", "schedule", *schedule)

	if *schedule {
		sched := scheduler.New(jobFunc(run), func() (string, error) {
			current, err := settings.Load(cfg.SettingsPath)
			if err != nil {
				return "", err
			}
			return current.ScheduleTime, nil
		}, log)
		go sched.Run(ctx)
	}

	b.Run(ctx)

	log.Info("bot stopped")
}

// digestEntrypoint returns the command registered by /schedule, resolved the
// same way as on the settings page.
func digestEntrypoint(cfg *config.Config) (string, error) {
	if cfg.DigestCommand != "" {
		return cfg.DigestCommand, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	name := "digest"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	bin := filepath.Join(filepath.Dir(exe), name)
	if _, err := os.Stat(bin); errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	return trigger.Entrypoint(wd, bin), nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
