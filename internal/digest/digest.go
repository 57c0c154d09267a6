// Package digest runs the daily fetch, summarize and send sequence, gated so
// that at most one digest is delivered per calendar day.
package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"xdigest/internal/fetcher"
	"xdigest/internal/filter"
	"xdigest/internal/llm"
	"xdigest/internal/model"
	"xdigest/internal/notifier"
)

// Fetcher returns the current posts of the list.
type Fetcher interface {
	Fetch(ctx context.Context) ([]model.Post, error)
}

// Summarizer turns raw list text into a digest.
type Summarizer interface {
	Summarize(ctx context.Context, raw string) (string, error)
}

// Notifier delivers a digest.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// Capabilities are the three outbound integrations, shared by the daily run
// and the connectivity test.
type Capabilities struct {
	Fetcher    Fetcher
	Summarizer Summarizer
	Notifier   Notifier
}

// Gate is the once-per-day send marker.
type Gate interface {
	AlreadySentToday() bool
	MarkSentToday() error
}

// History records run outcomes.
type History interface {
	RecordRun(ctx context.Context, run *model.Run) error
}

// Stage names a step of the run.
type Stage string

// Run stages.
const (
	StageGate      Stage = "gate"
	StageFetch     Stage = "fetch"
	StageSummarize Stage = "summarize"
	StageSend      Stage = "send"
	StageCommit    Stage = "commit"
)

// StageError is a failure of one stage of the run.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Result is the outcome of one run.
type Result struct {
	Outcome   model.Outcome
	PostCount int
	Err       error
}

// Runner executes the daily sequence.
type Runner struct {
	gate    Gate
	caps    Capabilities
	filters []model.Filter
	history History
	log     *slog.Logger
	now     func() time.Time
}

// NewRunner creates a Runner. filters may be nil.
func NewRunner(gate Gate, caps Capabilities, filters []model.Filter, log *slog.Logger) *Runner {
	return &Runner{
		gate:    gate,
		caps:    caps,
		filters: filters,
		log:     log,
		now:     time.Now,
	}
}

// SetHistory enables recording of every run outcome.
func (r *Runner) SetHistory(h History) {
	r.history = h
}

// Run performs one gated digest run. It never panics: every failure is
// logged and reported in the Result, and the day is marked as sent only
// after a successful send.
func (r *Runner) Run(ctx context.Context) (res Result) {
	started := r.now()
	stage := StageGate

	defer func() {
		if p := recover(); p != nil {
			res = Result{Outcome: model.OutcomeFailed, PostCount: res.PostCount,
				Err: &StageError{Stage: stage, Err: fmt.Errorf("panic: %v", p)}}
		}
		r.report(res)
		r.record(ctx, started, res)
	}()

	if r.gate.AlreadySentToday() {
		return Result{Outcome: model.OutcomeAlreadySent}
	}

	stage = StageFetch
	posts, err := r.caps.Fetcher.Fetch(ctx)
	if err != nil {
		return failed(stage, err, 0)
	}
	fetched := len(posts)
	posts = filter.Apply(posts, r.filters)
	r.log.Info("fetched posts", "count", fetched, "kept", len(posts))
	if len(posts) == 0 {
		return Result{Outcome: model.OutcomeNoPosts}
	}

	stage = StageSummarize
	summary, err := r.caps.Summarizer.Summarize(ctx, fetcher.Format(posts))
	switch {
	case errors.Is(err, llm.ErrRateLimited), errors.Is(err, llm.ErrEmptyResponse):
		return Result{Outcome: model.OutcomeNoSummary, PostCount: len(posts), Err: &StageError{Stage: stage, Err: err}}
	case err != nil:
		return failed(stage, err, len(posts))
	case strings.TrimSpace(summary) == "":
		return Result{Outcome: model.OutcomeNoSummary, PostCount: len(posts)}
	}

	stage = StageSend
	if err := r.caps.Notifier.Notify(ctx, notifier.Subject(r.now()), summary); err != nil {
		return failed(stage, err, len(posts))
	}

	stage = StageCommit
	if err := r.gate.MarkSentToday(); err != nil {
		// The digest went out; only the marker is stale.
		r.log.Error("mark sent today", "error", err)
	}
	return Result{Outcome: model.OutcomeSent, PostCount: len(posts)}
}

func failed(stage Stage, err error, posts int) Result {
	return Result{Outcome: model.OutcomeFailed, PostCount: posts, Err: &StageError{Stage: stage, Err: err}}
}

func (r *Runner) report(res Result) {
	switch res.Outcome {
	case model.OutcomeAlreadySent:
		r.log.Info("digest already sent today, skipping")
	case model.OutcomeNoPosts:
		r.log.Info("no posts fetched, nothing to send")
	case model.OutcomeNoSummary:
		if res.Err != nil {
			r.log.Warn("no summary produced, nothing to send", "error", res.Err)
			return
		}
		r.log.Warn("no summary produced, nothing to send")
	case model.OutcomeSent:
		r.log.Info("digest sent", "posts", res.PostCount)
	case model.OutcomeFailed:
		var se *StageError
		stage := Stage("")
		if errors.As(res.Err, &se) {
			stage = se.Stage
		}
		r.log.Error("digest run failed", "stage", stage, "kind", ErrorKind(res.Err), "error", res.Err)
	}
}

func (r *Runner) record(ctx context.Context, started time.Time, res Result) {
	if r.history == nil {
		return
	}
	run := &model.Run{
		StartedAt:  started,
		FinishedAt: r.now(),
		Outcome:    res.Outcome,
		PostCount:  res.PostCount,
	}
	if res.Err != nil {
		run.Error = res.Err.Error()
	}
	if err := r.history.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		r.log.Error("record run", "error", err)
	}
}

// ErrorKind names the innermost error type of err, for logs. Errors that
// wrap several others are followed through their last one.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for {
		var next error
		switch e := err.(type) {
		case interface{ Unwrap() error }:
			next = e.Unwrap()
		case interface{ Unwrap() []error }:
			if errs := e.Unwrap(); len(errs) > 0 {
				next = errs[len(errs)-1]
			}
		}
		if next == nil {
			return fmt.Sprintf("%T", err)
		}
		err = next
	}
}
