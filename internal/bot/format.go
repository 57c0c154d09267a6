package bot

import (
	"errors"
	"fmt"
	"strings"

	"xdigest/internal/digest"
	"xdigest/internal/model"
	"xdigest/internal/settings"
)

const (
	statusSet     = "set"
	statusMissing = "missing"
)

// FormatStatus formats the configuration summary of s.
func FormatStatus(s *settings.Settings, lastSent string) string {
	var b strings.Builder
	b.WriteString("Digest status\n\n")

	list := s.ListURL
	if list == "" {
		list = statusMissing
	}
	fmt.Fprintf(&b, "List: %s\n", list)
	if s.IsPlatformList() {
		fmt.Fprintf(&b, "X cookies: %s\n", setLabel(s.XCookies.AuthToken != "" && s.XCookies.CT0 != ""))
	}
	fmt.Fprintf(&b, "Gemini API key: %s\n", setLabel(s.GeminiAPIKey != ""))
	fmt.Fprintf(&b, "Mail: %s\n", setLabel(s.GmailUser != "" && s.GmailAppPassword != ""))
	fmt.Fprintf(&b, "Filters: %d include, %d exclude\n", len(s.IncludeKeywords), len(s.ExcludeKeywords))
	fmt.Fprintf(&b, "Schedule: daily at %s\n", s.ScheduleTime)
	if lastSent == "" {
		lastSent = "never"
	}
	fmt.Fprintf(&b, "Last sent: %s\n", lastSent)
	return b.String()
}

// FormatLastRun formats the most recent run for the status message.
func FormatLastRun(r model.Run) string {
	return "Last run: " + formatRun(r)
}

// FormatRuns formats recent runs, newest first.
func FormatRuns(runs []model.Run) string {
	if len(runs) == 0 {
		return "No runs recorded yet."
	}
	var b strings.Builder
	b.WriteString("Recent runs:\n")
	for _, r := range runs {
		fmt.Fprintf(&b, "\n%s", formatRun(r))
		if r.Error != "" {
			fmt.Fprintf(&b, "\n   %s", r.Error)
		}
	}
	return b.String()
}

func formatRun(r model.Run) string {
	line := fmt.Sprintf("%s %s", r.StartedAt.Local().Format("2006-01-02 15:04"), r.Outcome)
	if r.PostCount > 0 {
		line += fmt.Sprintf(" (%d posts)", r.PostCount)
	}
	return line
}

// FormatResult describes the outcome of a manual run.
func FormatResult(res digest.Result) string {
	switch res.Outcome {
	case model.OutcomeAlreadySent:
		return "Today's digest was already sent."
	case model.OutcomeNoPosts:
		return "No posts to summarize, nothing sent."
	case model.OutcomeNoSummary:
		return "The LLM returned no summary, nothing sent. Try again later."
	case model.OutcomeSent:
		return fmt.Sprintf("Digest sent (%d posts).", res.PostCount)
	}

	msg := "Digest run failed"
	err := res.Err
	var se *digest.StageError
	if errors.As(err, &se) {
		msg += " at " + string(se.Stage)
		err = se.Err
	}
	if err != nil {
		msg += ": " + err.Error()
	}
	return msg + "."
}

// FormatReport formats a connectivity test report.
func FormatReport(rep digest.Report) string {
	head := "Some checks failed."
	if rep.Success() {
		head = "All checks passed."
	}
	return head + "\n\n" + rep.Message()
}

// FormatFilterList formats the keyword filters of s, numbered for /rmfilter.
func FormatFilterList(s *settings.Settings) string {
	if len(s.IncludeKeywords) == 0 && len(s.ExcludeKeywords) == 0 {
		return "No filters. Every post of the list is summarized.\nUse /include or /exclude to add filters."
	}

	var b strings.Builder
	b.WriteString("Filters:\n")
	n := 0
	for _, group := range []struct {
		name  string
		words []string
	}{
		{name: "Include", words: s.IncludeKeywords},
		{name: "Exclude", words: s.ExcludeKeywords},
	} {
		if len(group.words) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s:\n", group.name)
		for _, w := range group.words {
			n++
			fmt.Fprintf(&b, "  %d: %s\n", n, keywordLabel(w))
		}
	}
	return b.String()
}

func keywordLabel(w string) string {
	if pattern, ok := strings.CutPrefix(w, "re:"); ok {
		return pattern + " (regex)"
	}
	return w
}

func setLabel(ok bool) string {
	if ok {
		return statusSet
	}
	return statusMissing
}
