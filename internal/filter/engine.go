// Package filter implements the post matching engine.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"xdigest/internal/model"
)

const regexPrefix = "re:"

// Match checks whether a post passes the given set of filters.
// If no filters are provided, the post always passes.
// Include filters use OR logic (at least one must match).
// Exclude filters use AND logic (none must match).
func Match(post model.Post, filters []model.Filter) bool {
	if len(filters) == 0 {
		return true
	}

	hasIncludes := false
	anyIncludeMatched := false

	for _, f := range filters {
		switch f.Kind {
		case model.FilterInclude, model.FilterIncludeRe:
			hasIncludes = true
			if matchesFilter(post, f) {
				anyIncludeMatched = true
			}
		case model.FilterExclude, model.FilterExcludeRe:
			if matchesFilter(post, f) {
				return false
			}
		}
	}

	if hasIncludes && !anyIncludeMatched {
		return false
	}
	return true
}

// Apply returns the posts that pass filters, preserving order.
func Apply(posts []model.Post, filters []model.Filter) []model.Post {
	if len(filters) == 0 {
		return posts
	}
	var out []model.Post
	for _, p := range posts {
		if Match(p, filters) {
			out = append(out, p)
		}
	}
	return out
}

// FromKeywords builds filters from the keyword lists stored in settings.
// Entries prefixed with "re:" become regex filters; blank entries are skipped.
func FromKeywords(include, exclude []string) ([]model.Filter, error) {
	var filters []model.Filter
	add := func(words []string, plain, re model.FilterKind) error {
		for _, w := range words {
			w = strings.TrimSpace(w)
			if w == "" {
				continue
			}
			if pattern, ok := strings.CutPrefix(w, regexPrefix); ok {
				if err := ValidateRegex(pattern); err != nil {
					return fmt.Errorf("keyword %q: %w", w, err)
				}
				filters = append(filters, model.Filter{Kind: re, Scope: model.ScopeAll, Value: pattern})
				continue
			}
			filters = append(filters, model.Filter{Kind: plain, Scope: model.ScopeAll, Value: w})
		}
		return nil
	}
	if err := add(include, model.FilterInclude, model.FilterIncludeRe); err != nil {
		return nil, err
	}
	if err := add(exclude, model.FilterExclude, model.FilterExcludeRe); err != nil {
		return nil, err
	}
	return filters, nil
}

func matchesFilter(post model.Post, f model.Filter) bool {
	var match func(string) bool
	switch f.Kind {
	case model.FilterInclude, model.FilterExclude:
		value := strings.ToLower(f.Value)
		match = func(s string) bool { return strings.Contains(strings.ToLower(s), value) }
	case model.FilterIncludeRe, model.FilterExcludeRe:
		re, err := regexp.Compile("(?i)" + f.Value)
		if err != nil {
			return false
		}
		match = re.MatchString
	default:
		return false
	}

	for _, field := range fieldsForScope(post, f.Scope) {
		if match(field) {
			return true
		}
	}
	return false
}

// fieldsForScope returns the parts of post a filter is tested against. Each
// part is matched on its own so anchored patterns apply to the text itself.
func fieldsForScope(post model.Post, scope model.FilterScope) []string {
	switch scope {
	case model.ScopeAuthor:
		return []string{post.Author}
	case model.ScopeText:
		return []string{post.Text}
	default:
		return []string{post.Author, post.Text}
	}
}

// ValidateRegex checks whether a pattern is a valid regular expression.
func ValidateRegex(pattern string) error {
	_, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return fmt.Errorf("invalid regex: %w", err)
	}
	return nil
}
