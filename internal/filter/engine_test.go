package filter

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"xdigest/internal/model"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name    string
		post    model.Post
		filters []model.Filter
		want    bool
	}{
		{
			name:    "no filters passes everything",
			post:    model.Post{Author: "anyone", Text: "whatever"},
			filters: nil,
			want:    true,
		},
		{
			name: "include word matches",
			post: model.Post{Author: "openai", Text: "New GPT model released today"},
			filters: []model.Filter{
				{Kind: model.FilterInclude, Scope: model.ScopeAll, Value: "gpt"},
			},
			want: true,
		},
		{
			name: "include word no match",
			post: model.Post{Author: "chef", Text: "Pasta recipe"},
			filters: []model.Filter{
				{Kind: model.FilterInclude, Scope: model.ScopeAll, Value: "gpt"},
			},
			want: false,
		},
		{
			name: "exclude word blocks match",
			post: model.Post{Author: "promo", Text: "Giveaway! Retweet to win"},
			filters: []model.Filter{
				{Kind: model.FilterExclude, Scope: model.ScopeAll, Value: "giveaway"},
			},
			want: false,
		},
		{
			name: "include + exclude: both match, exclude wins",
			post: model.Post{Author: "promo", Text: "LLM giveaway"},
			filters: []model.Filter{
				{Kind: model.FilterInclude, Scope: model.ScopeAll, Value: "llm"},
				{Kind: model.FilterExclude, Scope: model.ScopeAll, Value: "giveaway"},
			},
			want: false,
		},
		{
			name: "multiple includes use OR",
			post: model.Post{Author: "dev", Text: "Gemini benchmark results"},
			filters: []model.Filter{
				{Kind: model.FilterInclude, Scope: model.ScopeAll, Value: "claude"},
				{Kind: model.FilterInclude, Scope: model.ScopeAll, Value: "gemini"},
			},
			want: true,
		},
		{
			name: "author scope ignores text",
			post: model.Post{Author: "someone", Text: "karpathy said hi"},
			filters: []model.Filter{
				{Kind: model.FilterInclude, Scope: model.ScopeAuthor, Value: "karpathy"},
			},
			want: false,
		},
		{
			name: "text scope ignores author",
			post: model.Post{Author: "spam_bot", Text: "Real news"},
			filters: []model.Filter{
				{Kind: model.FilterExclude, Scope: model.ScopeText, Value: "spam"},
			},
			want: true,
		},
		{
			name: "include regex",
			post: model.Post{Author: "x", Text: "Llama 4 weights are out"},
			filters: []model.Filter{
				{Kind: model.FilterIncludeRe, Scope: model.ScopeAll, Value: `llama\s*\d`},
			},
			want: true,
		},
		{
			name: "exclude regex",
			post: model.Post{Author: "x", Text: "Hiring: senior ML engineer"},
			filters: []model.Filter{
				{Kind: model.FilterExcludeRe, Scope: model.ScopeAll, Value: `^hiring`},
			},
			want: false,
		},
		{
			name: "anchored regex matches author on its own",
			post: model.Post{Author: "openai", Text: "We are hiring"},
			filters: []model.Filter{
				{Kind: model.FilterIncludeRe, Scope: model.ScopeAll, Value: `^openai$`},
			},
			want: true,
		},
		{
			name: "plain word does not span author and text",
			post: model.Post{Author: "open", Text: "ai news"},
			filters: []model.Filter{
				{Kind: model.FilterInclude, Scope: model.ScopeAll, Value: "open ai"},
			},
			want: false,
		},
		{
			name: "invalid regex never matches",
			post: model.Post{Author: "x", Text: "anything"},
			filters: []model.Filter{
				{Kind: model.FilterIncludeRe, Scope: model.ScopeAll, Value: `(`},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Match(tt.post, tt.filters)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Match() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApply(t *testing.T) {
	posts := []model.Post{
		{Author: "a", Text: "new model launch"},
		{Author: "b", Text: "lunch photo"},
		{Author: "c", Text: "model benchmark"},
	}

	t.Run("no filters returns input", func(t *testing.T) {
		if diff := cmp.Diff(posts, Apply(posts, nil)); diff != "" {
			t.Errorf("Apply() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("keeps order of matches", func(t *testing.T) {
		got := Apply(posts, []model.Filter{{Kind: model.FilterInclude, Scope: model.ScopeText, Value: "model"}})
		want := []model.Post{posts[0], posts[2]}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Apply() mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestFromKeywords(t *testing.T) {
	tests := []struct {
		name    string
		include []string
		exclude []string
		want    []model.Filter
		wantErr bool
	}{
		{
			name: "empty lists",
			want: nil,
		},
		{
			name:    "plain and regex keywords",
			include: []string{"gpt", " re:llama\\d ", ""},
			exclude: []string{"giveaway"},
			want: []model.Filter{
				{Kind: model.FilterInclude, Scope: model.ScopeAll, Value: "gpt"},
				{Kind: model.FilterIncludeRe, Scope: model.ScopeAll, Value: `llama\d`},
				{Kind: model.FilterExclude, Scope: model.ScopeAll, Value: "giveaway"},
			},
		},
		{
			name:    "invalid regex",
			exclude: []string{"re:[unclosed"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromKeywords(tt.include, tt.exclude)
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
				t.Errorf("FromKeywords() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidateRegex(t *testing.T) {
	if err := ValidateRegex(`gpt-\d+`); err != nil {
		t.Errorf("valid regex: unexpected error: %v", err)
	}
	if err := ValidateRegex(`[unclosed`); err == nil {
		t.Error("invalid regex: expected error, got nil")
	}
}

func TestAnchoredKeywordFromSettings(t *testing.T) {
	filters, err := FromKeywords(nil, []string{"re:^hiring"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	posts := []model.Post{
		{Author: "acme", Text: "Hiring: senior ML engineer"},
		{Author: "lab", Text: "New model weights released"},
	}

	got := Apply(posts, filters)

	want := []model.Post{{Author: "lab", Text: "New model weights released"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Apply() mismatch (-want +got):\n%s", diff)
	}
}
