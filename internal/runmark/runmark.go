// Package runmark persists the date of the last successful send and gates
// the daily job to one send per calendar day.
package runmark

import (
	"os"
	"strings"
	"time"

	"xdigest/internal/settings"
)

// DateLayout is the on-disk format of the run marker.
const DateLayout = "2006-01-02"

// Tracker reads and writes the run marker file.
type Tracker struct {
	path string
	now  func() time.Time
}

// New creates a Tracker for the marker file at path using the local clock.
func New(path string) *Tracker {
	return &Tracker{path: path, now: time.Now}
}

// NewWithClock creates a Tracker with a custom clock (useful for testing).
func NewWithClock(path string, now func() time.Time) *Tracker {
	return &Tracker{path: path, now: now}
}

// AlreadySentToday reports whether the marker holds today's date.
// A missing or unreadable marker counts as not sent.
func (t *Tracker) AlreadySentToday() bool {
	last, ok := t.LastSent()
	if !ok {
		return false
	}
	return last == t.today()
}

// MarkSentToday overwrites the marker with today's date.
func (t *Tracker) MarkSentToday() error {
	return settings.WriteFileAtomic(t.path, []byte(t.today()), 0o600)
}

// LastSent returns the stored date, if any.
func (t *Tracker) LastSent() (string, bool) {
	data, err := os.ReadFile(t.path)
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(string(data))
	return v, v != ""
}

func (t *Tracker) today() string {
	return t.now().Format(DateLayout)
}
