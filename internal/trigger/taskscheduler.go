package trigger

import (
	"context"
	"fmt"
	"strings"

	"xdigest/internal/settings"
)

// TaskScheduler registers the trigger with Windows Task Scheduler through
// PowerShell.
type TaskScheduler struct {
	name string
	run  CommandRunner
}

// NewTaskScheduler creates a Task Scheduler registrar for taskName.
func NewTaskScheduler(taskName string, run CommandRunner) *TaskScheduler {
	return &TaskScheduler{name: taskName, run: run}
}

// Ensure implements Registrar. Missed runs start at the next opportunity.
func (t *TaskScheduler) Ensure(ctx context.Context, at, entrypoint string) error {
	hour, minute, err := settings.ParseScheduleTime(at)
	if err != nil {
		return err
	}
	if strings.TrimSpace(entrypoint) == "" {
		return ErrEmptyEntrypoint
	}

	script := taskScript(t.name, fmt.Sprintf("%02d:%02d", hour, minute), entrypoint)
	out, err := t.run(ctx, nil, "powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	if err != nil {
		return fmt.Errorf("register scheduled task: %w", err)
	}
	if !strings.Contains(string(out), "OK") {
		return fmt.Errorf("register scheduled task: unexpected output %q", strings.TrimSpace(string(out)))
	}
	return nil
}

func taskScript(name, at, entrypoint string) string {
	lines := []string{
		fmt.Sprintf("$action = New-ScheduledTaskAction -Execute 'cmd.exe' -Argument %s", psQuote("/c "+entrypoint)),
		fmt.Sprintf("$trigger = New-ScheduledTaskTrigger -Daily -At %s", psQuote(at)),
		"$settings = New-ScheduledTaskSettingsSet -StartWhenAvailable -DontStopIfGoingOnBatteries -AllowStartIfOnBatteries",
		fmt.Sprintf("Unregister-ScheduledTask -TaskName %s -Confirm:$false -ErrorAction SilentlyContinue", psQuote(name)),
		fmt.Sprintf("Register-ScheduledTask -TaskName %s -Action $action -Trigger $trigger -Settings $settings -Description 'X list digest (daily)' | Out-Null", psQuote(name)),
		"Write-Output 'OK'",
	}
	return strings.Join(lines, "\n")
}

func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
