// Package notifier delivers the daily digest by email and, optionally, as a
// Telegram message.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Notifier delivers one digest.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// Checker verifies connectivity without delivering anything.
type Checker interface {
	Check(ctx context.Context) error
}

// Subject returns the digest subject line for day.
func Subject(day time.Time) string {
	return fmt.Sprintf("X list AI digest (%s)", day.Format("2006/01/02"))
}

// Multi delivers the digest to a primary notifier and then copies it to the
// others. Only a primary failure fails the delivery: once the primary has
// sent, copy errors are logged so the day still counts as delivered.
type Multi struct {
	primary Notifier
	copies  []Notifier
	log     *slog.Logger
}

// NewMulti creates a Multi sending to primary first, then to each copy.
func NewMulti(log *slog.Logger, primary Notifier, copies ...Notifier) *Multi {
	return &Multi{primary: primary, copies: copies, log: log}
}

// Notify implements Notifier.
func (m *Multi) Notify(ctx context.Context, subject, body string) error {
	if err := m.primary.Notify(ctx, subject, body); err != nil {
		return err
	}
	for _, n := range m.copies {
		if err := n.Notify(ctx, subject, body); err != nil {
			m.log.Warn("digest copy not delivered", "notifier", fmt.Sprintf("%T", n), "error", err)
		}
	}
	return nil
}

// Check runs Check on every member that supports it, so a broken copy still
// shows up in the connectivity test.
func (m *Multi) Check(ctx context.Context) error {
	for _, n := range append([]Notifier{m.primary}, m.copies...) {
		c, ok := n.(Checker)
		if !ok {
			continue
		}
		if err := c.Check(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of notifiers, primary included.
func (m *Multi) Len() int {
	return 1 + len(m.copies)
}
