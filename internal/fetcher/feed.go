package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"

	"xdigest/internal/model"
)

// Feed reads list posts from an RSS or Atom feed.
type Feed struct {
	client HTTPClient
	url    string
}

// NewFeed creates a Feed source for url.
func NewFeed(client HTTPClient, url string) *Feed {
	return &Feed{client: client, url: url}
}

// Fetch downloads and parses the feed and converts its items to posts.
func (f *Feed) Fetch(ctx context.Context) ([]model.Post, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "xdigest/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	parser := gofeed.NewParser()
	feed, err := parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	posts := make([]model.Post, 0, len(feed.Items))
	for _, item := range feed.Items {
		posts = append(posts, itemPost(feed, item))
	}
	return posts, nil
}

func itemPost(feed *gofeed.Feed, item *gofeed.Item) model.Post {
	p := model.Post{Author: itemAuthor(feed, item)}

	text := strings.TrimSpace(item.Title)
	if desc := strings.TrimSpace(item.Description); desc != "" && desc != text {
		if text != "" {
			text += "\n"
		}
		text += desc
	}
	p.Text = text

	switch {
	case item.PublishedParsed != nil:
		p.CreatedAt = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		p.CreatedAt = *item.UpdatedParsed
	}
	return p
}

func itemAuthor(feed *gofeed.Feed, item *gofeed.Item) string {
	var name string
	switch {
	case len(item.Authors) > 0 && item.Authors[0] != nil:
		name = item.Authors[0].Name
	case item.Author != nil:
		name = item.Author.Name
	case feed.Title != "":
		name = feed.Title
	}
	return strings.TrimPrefix(strings.TrimSpace(name), "@")
}
