package trigger

import (
	"context"
	"fmt"
	"strings"

	"xdigest/internal/settings"
)

// Cron registers the trigger as a line of the user crontab.
type Cron struct {
	name string
	run  CommandRunner
}

// NewCron creates a crontab registrar. The line it manages is tagged with
// taskName so that later calls replace it.
func NewCron(taskName string, run CommandRunner) *Cron {
	return &Cron{name: taskName, run: run}
}

// Ensure implements Registrar.
func (c *Cron) Ensure(ctx context.Context, at, entrypoint string) error {
	hour, minute, err := settings.ParseScheduleTime(at)
	if err != nil {
		return err
	}
	if strings.TrimSpace(entrypoint) == "" {
		return ErrEmptyEntrypoint
	}

	current, err := c.run(ctx, nil, "crontab", "-l")
	if err != nil {
		// crontab -l fails when the user has no crontab yet.
		if !strings.Contains(strings.ToLower(err.Error()), "no crontab") {
			return fmt.Errorf("read crontab: %w", err)
		}
		current = nil
	}

	line := fmt.Sprintf("%d %d * * * %s", minute, hour, cronEscape(entrypoint))
	merged := mergeCrontab(string(current), c.name, line)

	if _, err := c.run(ctx, []byte(merged), "crontab", "-"); err != nil {
		return fmt.Errorf("write crontab: %w", err)
	}
	return nil
}

// cronEscape escapes %, which cron turns into a newline in the command field.
func cronEscape(cmd string) string {
	return strings.ReplaceAll(cmd, "%", `\%`)
}

func cronTag(name string) string {
	return "# " + name
}

// mergeCrontab drops any line tagged for name and appends line with the tag.
func mergeCrontab(current, name, line string) string {
	tag := cronTag(name)
	var b strings.Builder
	for _, l := range strings.Split(current, "\n") {
		if strings.TrimSpace(l) == "" || strings.HasSuffix(strings.TrimSpace(l), tag) {
			continue
		}
		b.WriteString(l)
		b.WriteByte('\n')
	}
	b.WriteString(line)
	b.WriteString(" ")
	b.WriteString(tag)
	b.WriteByte('\n')
	return b.String()
}
