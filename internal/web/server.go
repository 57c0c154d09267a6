// Package web serves the local settings page.
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"xdigest/internal/digest"
	"xdigest/internal/model"
	"xdigest/internal/settings"
	"xdigest/internal/trigger"
)

//go:embed templates/*.html
var templates embed.FS

// LastSent reports the date of the last delivered digest.
type LastSent interface {
	LastSent() (string, bool)
}

// RunLister lists recent runs, newest first.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)
}

// DiagnoseFunc runs the connectivity test against s.
type DiagnoseFunc func(ctx context.Context, s *settings.Settings) digest.Report

// Options configures a Server. History may be nil.
type Options struct {
	SettingsPath string
	Marker       LastSent
	History      RunLister
	Registrar    trigger.Registrar
	Entrypoint   string
	Diagnose     DiagnoseFunc
	Log          *slog.Logger
}

// Server is the settings page.
type Server struct {
	opts   Options
	log    *slog.Logger
	router *gin.Engine
}

const (
	recentRuns      = 7
	shutdownTimeout = 5 * time.Second
)

// New creates a Server with its routes registered.
func New(opts Options) (*Server, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"stamp": func(r model.Run) string { return r.StartedAt.Local().Format("2006-01-02 15:04") },
	}).ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{opts: opts, log: opts.Log}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())
	r.SetHTMLTemplate(tmpl)

	r.GET("/", s.index)
	r.POST("/save", s.save)
	r.GET("/help", s.help)
	r.POST("/test", s.test)

	s.router = r
	return s, nil
}

// Handler returns the HTTP handler of the settings page.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.log.Debug("http request", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status())
	}
}
