package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"xdigest/internal/app"
	"xdigest/internal/config"
	"xdigest/internal/digest"
	"xdigest/internal/model"
	"xdigest/internal/scheduler"
	"xdigest/internal/settings"
	"xdigest/internal/storage"
)

// jobFunc adapts a function to scheduler.Job.
type jobFunc func(ctx context.Context) digest.Result

func (f jobFunc) Run(ctx context.Context) digest.Result { return f(ctx) }

func main() {
	daemon := flag.Bool("daemon", false, "stay running and send the digest daily at schedule_time")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log, closeLog := newLogger(cfg.LogLevel, cfg.LogFile)
	defer closeLog()

	s, err := settings.Load(cfg.SettingsPath)
	if err != nil {
		log.Error("load settings", "path", cfg.SettingsPath, "error", err)
		if errors.Is(err, settings.ErrNotFound) {
			log.Error("open the settings page and save your settings first")
		}
		closeLog()
		os.Exit(1)
	}

	var history digest.History
	if store := openHistory(cfg.DatabasePath, log); store != nil {
		defer func() { _ = store.Close() }()
		history = store
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !*daemon {
		runOnce(ctx, cfg, s, history, log)
		return
	}

	job := jobFunc(func(ctx context.Context) digest.Result {
		// Settings may have been edited since the last tick.
		current, err := settings.Load(cfg.SettingsPath)
		if err != nil {
			log.Error("reload settings", "path", cfg.SettingsPath, "error", err)
			return digest.Result{Outcome: model.OutcomeFailed, Err: err}
		}
		return runOnce(ctx, cfg, current, history, log)
	})
	schedule := func() (string, error) {
		current, err := settings.Load(cfg.SettingsPath)
		if err != nil {
			return "", err
		}
		return current.ScheduleTime, nil
	}

	log.Info("starting digest daemon", "schedule_time", s.ScheduleTime)
	scheduler.New(job, schedule, log).Run(ctx)
	log.Info("digest daemon stopped")
}

func runOnce(ctx context.Context, cfg *config.Config, s *settings.Settings, history digest.History, log *slog.Logger) digest.Result {
	runner, err := app.NewRunner(cfg, s, log)
	if err != nil {
		log.Error("build runner", "error", err)
		return digest.Result{Outcome: model.OutcomeFailed, Err: err}
	}
	if history != nil {
		runner.SetHistory(history)
	}
	return runner.Run(ctx)
}

// openHistory opens the run history database. History is optional: on
// failure a warning is logged and nil returned.
func openHistory(path string, log *slog.Logger) *storage.SQLite {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Warn("create data directory", "path", dir, "error", err)
			return nil
		}
	}
	store, err := storage.NewSQLite(path)
	if err != nil {
		log.Warn("open run history, continuing without it", "path", path, "error", err)
		return nil
	}
	return store
}

func newLogger(level, file string) (*slog.Logger, func()) {
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

	var w io.Writer = os.Stderr
	closeFn := func() {}
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec // path comes from configuration
		if err != nil {
			slog.Warn("open log file, logging to stderr only", "path", file, "error", err)
		} else {
			w = io.MultiWriter(os.Stderr, f)
			closeFn = func() { _ = f.Close() }
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), closeFn
}
