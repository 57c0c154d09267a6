// Package model defines the domain types used across the application.
package model

import "time"

// Post is a single post fetched from a list.
type Post struct {
	Author    string
	Text      string
	CreatedAt time.Time
}

// Outcome describes how a digest run ended.
type Outcome string

// Possible run outcomes.
const (
	OutcomeAlreadySent Outcome = "already_sent"
	OutcomeNoPosts     Outcome = "no_posts"
	OutcomeNoSummary   Outcome = "no_summary"
	OutcomeSent        Outcome = "sent"
	OutcomeFailed      Outcome = "failed"
)

// Run is a recorded digest run.
type Run struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    Outcome
	PostCount  int
	Error      string
}

// FilterKind defines the type of filter rule.
type FilterKind string

// Supported filter kinds.
const (
	FilterInclude   FilterKind = "include"
	FilterExclude   FilterKind = "exclude"
	FilterIncludeRe FilterKind = "include_re"
	FilterExcludeRe FilterKind = "exclude_re"
)

// FilterScope defines which part of a post a filter matches against.
type FilterScope string

// Supported filter scopes.
const (
	ScopeAuthor FilterScope = "author"
	ScopeText   FilterScope = "text"
	ScopeAll    FilterScope = "all"
)

// Filter is a single rule applied to fetched posts.
type Filter struct {
	Kind  FilterKind
	Scope FilterScope
	Value string
}
