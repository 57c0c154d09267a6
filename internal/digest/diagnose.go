package digest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"xdigest/internal/model"
)

// ErrNotConfigured is returned by Unavailable capabilities.
var ErrNotConfigured = errors.New("not configured")

// Pinger is implemented by summarizers that can run a cheap test prompt.
type Pinger interface {
	Ping(ctx context.Context) (string, error)
}

// Checker is implemented by notifiers that can verify credentials without sending.
type Checker interface {
	Check(ctx context.Context) error
}

// Unavailable stands in for a capability whose settings are incomplete.
// Every call fails with ErrNotConfigured without touching the network.
type Unavailable struct {
	Reason string
}

func (u Unavailable) err() error {
	return fmt.Errorf("%w: %s", ErrNotConfigured, u.Reason)
}

// Fetch implements Fetcher.
func (u Unavailable) Fetch(context.Context) ([]model.Post, error) { return nil, u.err() }

// Summarize implements Summarizer.
func (u Unavailable) Summarize(context.Context, string) (string, error) { return "", u.err() }

// Ping implements Pinger.
func (u Unavailable) Ping(context.Context) (string, error) { return "", u.err() }

// Notify implements Notifier.
func (u Unavailable) Notify(context.Context, string, string) error { return u.err() }

// Check implements Checker.
func (u Unavailable) Check(context.Context) error { return u.err() }

// Check is the result of one connectivity probe.
type Check struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

// Report collects the probes of a connectivity test.
type Report struct {
	Checks []Check `json:"checks"`
}

// Success reports whether every probe passed.
func (r Report) Success() bool {
	for _, c := range r.Checks {
		if !c.OK {
			return false
		}
	}
	return len(r.Checks) > 0
}

// Message renders the report one line per probe.
func (r Report) Message() string {
	lines := make([]string, 0, len(r.Checks))
	for _, c := range r.Checks {
		mark := "OK"
		if !c.OK {
			mark = "FAIL"
		}
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", mark, c.Name, c.Detail))
	}
	return strings.Join(lines, "\n")
}

const pingPreviewRunes = 30

// Diagnose exercises each capability once, in run order, and reports the
// outcome of each. Nothing is delivered: notifiers are only checked.
func Diagnose(ctx context.Context, caps Capabilities) Report {
	var rep Report

	posts, err := caps.Fetcher.Fetch(ctx)
	if err != nil {
		rep.Checks = append(rep.Checks, Check{Name: "list", Detail: err.Error()})
	} else {
		rep.Checks = append(rep.Checks, Check{Name: "list", OK: true, Detail: fmt.Sprintf("%d posts fetched", len(posts))})
	}

	if p, ok := caps.Summarizer.(Pinger); ok {
		reply, err := p.Ping(ctx)
		if err != nil {
			rep.Checks = append(rep.Checks, Check{Name: "llm", Detail: err.Error()})
		} else {
			rep.Checks = append(rep.Checks, Check{Name: "llm", OK: true, Detail: "reply: " + preview(reply, pingPreviewRunes)})
		}
	} else {
		rep.Checks = append(rep.Checks, Check{Name: "llm", OK: true, Detail: "no test call available"})
	}

	if c, ok := caps.Notifier.(Checker); ok {
		if err := c.Check(ctx); err != nil {
			rep.Checks = append(rep.Checks, Check{Name: "mail", Detail: err.Error()})
		} else {
			rep.Checks = append(rep.Checks, Check{Name: "mail", OK: true, Detail: "login succeeded"})
		}
	} else {
		rep.Checks = append(rep.Checks, Check{Name: "mail", OK: true, Detail: "no test call available"})
	}

	return rep
}

func preview(s string, n int) string {
	rs := []rune(strings.TrimSpace(s))
	if len(rs) <= n {
		return string(rs)
	}
	return string(rs[:n]) + "..."
}
