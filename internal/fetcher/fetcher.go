// Package fetcher retrieves the current posts of a list, either from the X
// GraphQL API with session cookies or from an RSS/Atom feed of the list.
package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"xdigest/internal/model"
	"xdigest/internal/settings"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Source returns the posts of one list.
type Source interface {
	Fetch(ctx context.Context) ([]model.Post, error)
}

const maxBodySize = 10 * 1024 * 1024

// New picks the source matching the list URL in s.
func New(client HTTPClient, s *settings.Settings) (Source, error) {
	if s.ListURL == "" {
		return nil, fmt.Errorf("list url is not set")
	}
	if s.IsPlatformList() {
		return NewXList(client, s.ListID(), s.XCookies), nil
	}
	return NewFeed(client, s.ListURL), nil
}

// Format renders posts as the raw text handed to the summarizer.
func Format(posts []model.Post) string {
	parts := make([]string, 0, len(posts))
	for _, p := range posts {
		ts := ""
		if !p.CreatedAt.IsZero() {
			ts = p.CreatedAt.Local().Format(time.DateTime)
		}
		parts = append(parts, fmt.Sprintf("[@%s] (%s)\n%s", p.Author, ts, p.Text))
	}
	return strings.Join(parts, "\n\n---\n\n")
}
