package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"xdigest/internal/app"
	"xdigest/internal/config"
	"xdigest/internal/digest"
	"xdigest/internal/runmark"
	"xdigest/internal/settings"
	"xdigest/internal/storage"
	"xdigest/internal/trigger"
	"xdigest/internal/web"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	addr := flag.String("addr", cfg.ListenAddr, "listen address of the settings page")
	flag.Parse()

	log := newLogger(cfg.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	entrypoint, err := digestEntrypoint(cfg)
	if err != nil {
		log.Error("resolve digest command", "error", err)
		os.Exit(1)
	}

	opts := web.Options{
		SettingsPath: cfg.SettingsPath,
		Marker:       runmark.New(cfg.LastRunPath),
		Registrar:    trigger.New(cfg.TaskName),
		Entrypoint:   entrypoint,
		Diagnose: func(ctx context.Context, s *settings.Settings) digest.Report {
			return digest.Diagnose(ctx, app.Capabilities(cfg, s, log))
		},
		Log: log,
	}

	if _, err := os.Stat(cfg.DatabasePath); err == nil {
		store, err := storage.NewSQLite(cfg.DatabasePath)
		if err != nil {
			log.Warn("open run history", "path", cfg.DatabasePath, "error", err)
		} else {
			defer func() { _ = store.Close() }()
			opts.History = store
		}
	}

	srv, err := web.New(opts)
	if err != nil {
		log.Error("create settings page", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("settings page listening", "url", "http://"+*addr, "trigger", entrypoint)
	if err := srv.Run(ctx, *addr); err != nil {
		log.Error("serve settings page", "error", err)
		os.Exit(1)
	}
	log.Info("settings page stopped")
}

// digestEntrypoint returns the command the OS trigger runs: DIGEST_COMMAND
// when set, otherwise the digest binary next to this one, started from the
// current directory.
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
	return trigger.Entrypoint(wd, filepath.Join(filepath.Dir(exe), name)), nil
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
