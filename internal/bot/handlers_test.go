package bot

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"xdigest/internal/digest"
	"xdigest/internal/model"
	"xdigest/internal/settings"
)

func TestParseIDArg(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "valid", input: "3", want: 3},
		{name: "with spaces", input: "  12  ", want: 12},
		{name: "extra args ignored", input: "5 extra", want: 5},
		{name: "empty", input: "", wantErr: true},
		{name: "not a number", input: "abc", wantErr: true},
		{name: "zero", input: "0", wantErr: true},
		{name: "negative", input: "-2", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIDArg(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ID mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseLimitArg(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{name: "default", input: "", want: 5},
		{name: "explicit", input: "10", want: 10},
		{name: "max", input: "20", want: 20},
		{name: "too many", input: "21", wantErr: true},
		{name: "zero", input: "0", wantErr: true},
		{name: "not a number", input: "all", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLimitArg(tt.input, 5, 20)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("limit mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseKeywordArg(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "word", input: "llm", want: "llm"},
		{name: "phrase collapsed", input: "  open   weights ", want: "open weights"},
		{name: "regex", input: "re:gpt-?5", want: "re:gpt-?5"},
		{name: "empty", input: "  ", wantErr: true},
		{name: "bare regex prefix", input: "re:", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKeywordArg(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("keyword mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatStatus(t *testing.T) {
	s := settings.Default()
	s.ListURL = "https://x.com/i/lists/42"
	s.XCookies = settings.Cookies{AuthToken: "tok"}
	s.GeminiAPIKey = "key"
	s.IncludeKeywords = []string{"llm"}

	want := `Digest status

List: https://x.com/i/lists/42
X cookies: missing
Gemini API key: set
Mail: missing
Filters: 1 include, 0 exclude
Schedule: daily at 07:00
Last sent: 2026-10-13
`
	if diff := cmp.Diff(want, FormatStatus(s, "2026-10-13")); diff != "" {
		t.Errorf("FormatStatus mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatStatusFeedNeverSent(t *testing.T) {
	s := settings.Default()
	s.ListURL = "https://rss.example.com/list.xml"

	got := FormatStatus(s, "")
	if strings.Contains(got, "X cookies") {
		t.Errorf("cookies line shown for a feed list:\n%s", got)
	}
	if !strings.Contains(got, "Last sent: never") {
		t.Errorf("expected never sent:\n%s", got)
	}
}

func TestFormatRuns(t *testing.T) {
	started := time.Date(2026, 10, 13, 7, 0, 0, 0, time.Local)
	runs := []model.Run{
		{StartedAt: started, Outcome: model.OutcomeSent, PostCount: 12},
		{StartedAt: started.Add(-24 * time.Hour), Outcome: model.OutcomeFailed, Error: "send: 535 auth failed"},
	}

	want := `Recent runs:

2026-10-13 07:00 sent (12 posts)
2026-10-12 07:00 failed
   send: 535 auth failed`
	if diff := cmp.Diff(want, FormatRuns(runs)); diff != "" {
		t.Errorf("FormatRuns mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("No runs recorded yet.", FormatRuns(nil)); diff != "" {
		t.Errorf("FormatRuns(nil) mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatResult(t *testing.T) {
	tests := []struct {
		name string
		res  digest.Result
		want string
	}{
		{name: "sent", res: digest.Result{Outcome: model.OutcomeSent, PostCount: 4}, want: "Digest sent (4 posts)."},
		{name: "already sent", res: digest.Result{Outcome: model.OutcomeAlreadySent}, want: "Today's digest was already sent."},
		{name: "no posts", res: digest.Result{Outcome: model.OutcomeNoPosts}, want: "No posts to summarize, nothing sent."},
		{
			name: "failed at stage",
			res: digest.Result{Outcome: model.OutcomeFailed,
				Err: &digest.StageError{Stage: digest.StageSend, Err: errors.New("535 auth failed")}},
			want: "Digest run failed at send: 535 auth failed.",
		},
		{
			name: "failed without stage",
			res:  digest.Result{Outcome: model.OutcomeFailed, Err: errors.New("settings file not found")},
			want: "Digest run failed: settings file not found.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, FormatResult(tt.res)); diff != "" {
				t.Errorf("FormatResult mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatFilterList(t *testing.T) {
	s := settings.Default()
	s.IncludeKeywords = []string{"llm", "re:gpt-?5"}
	s.ExcludeKeywords = []string{"giveaway"}

	want := `Filters:

Include:
  1: llm
  2: gpt-?5 (regex)

Exclude:
  3: giveaway
`
	if diff := cmp.Diff(want, FormatFilterList(s)); diff != "" {
		t.Errorf("FormatFilterList mismatch (-want +got):\n%s", diff)
	}

	if got := FormatFilterList(settings.Default()); !strings.HasPrefix(got, "No filters.") {
		t.Errorf("expected no filters message, got %q", got)
	}
}

func TestFormatReport(t *testing.T) {
	rep := digest.Report{Checks: []digest.Check{{Name: "list", OK: true, Detail: "3 posts fetched"}}}
	want := "All checks passed.\n\n[OK] list: 3 posts fetched"
	if diff := cmp.Diff(want, FormatReport(rep)); diff != "" {
		t.Errorf("FormatReport mismatch (-want +got):\n%s", diff)
	}
}
