// Package summarizer turns fetched list text into a digest through an LLM,
// retrying when the endpoint is rate limited.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"xdigest/internal/llm"
)

// Completer is the interface for a prompt-in, text-out LLM call.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Summarizer builds the digest prompt and calls the completer.
type Summarizer struct {
	llm       Completer
	log       *slog.Logger
	attempts  int
	baseDelay time.Duration
	now       func() time.Time

	// onBackoff is called before each wait with the retry number and delay.
	onBackoff func(retry int, d time.Duration)
}

// New creates a Summarizer with an attempt budget and linear backoff base.
func New(c Completer, attempts int, baseDelay time.Duration, log *slog.Logger) *Summarizer {
	if attempts < 1 {
		attempts = 1
	}
	return &Summarizer{
		llm:       c,
		log:       log,
		attempts:  attempts,
		baseDelay: baseDelay,
		now:       time.Now,
	}
}

// Summarize returns the digest of raw. Rate-limited calls are retried after
// retry×base; any other error is returned at once. When all attempts are
// rate limited the returned error matches llm.ErrRateLimited.
func (s *Summarizer) Summarize(ctx context.Context, raw string) (string, error) {
	prompt := BuildPrompt(s.now(), raw)

	var summary string
	attempt := 0
	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		attempt++
		text, err := s.llm.Complete(ctx, prompt)
		if err != nil {
			if errors.Is(err, llm.ErrRateLimited) {
				return retry.RetryableError(err)
			}
			return err
		}
		summary = text
		return nil
	})
	if err != nil {
		if errors.Is(err, llm.ErrRateLimited) {
			return "", fmt.Errorf("summarize: gave up after %d attempts: %w", attempt, err)
		}
		return "", fmt.Errorf("summarize: %w", err)
	}
	return summary, nil
}

// Ping sends a trivial prompt once, without retries.
func (s *Summarizer) Ping(ctx context.Context) (string, error) {
	text, err := s.llm.Complete(ctx, pingPrompt)
	if err != nil {
		return "", fmt.Errorf("ping: %w", err)
	}
	return text, nil
}

func (s *Summarizer) backoff() retry.Backoff {
	n := 0
	linear := retry.BackoffFunc(func() (time.Duration, bool) {
		n++
		d := time.Duration(n) * s.baseDelay
		s.log.Warn("llm rate limited, retrying", "wait", d, "retry", n, "max_attempts", s.attempts)
		if s.onBackoff != nil {
			s.onBackoff(n, d)
		}
		return d, false
	})
	return retry.WithMaxRetries(uint64(s.attempts-1), linear) //nolint:gosec // attempts >= 1
}
