// Package trigger registers the daily digest run with the host OS scheduler.
package trigger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Registrar ensures a daily trigger at time at (HH:MM) invokes entrypoint.
type Registrar interface {
	Ensure(ctx context.Context, at, entrypoint string) error
}

// CommandRunner executes name with args, feeding stdin when non-nil, and
// returns its standard output.
type CommandRunner func(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)

// New returns the registrar for the current OS.
func New(taskName string) Registrar {
	if runtime.GOOS == "windows" {
		return NewTaskScheduler(taskName, Exec)
	}
	return NewCron(taskName, Exec)
}

// Entrypoint builds the command a trigger runs: binary, started from workDir
// so that relative settings and marker paths resolve.
func Entrypoint(workDir, binary string) string {
	if runtime.GOOS == "windows" {
		return fmt.Sprintf(`cd /d "%s" && "%s"`, workDir, binary)
	}
	return fmt.Sprintf("cd %s && %s", shellQuote(workDir), shellQuote(binary))
}

// Exec runs a real process.
func Exec(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// ErrEmptyEntrypoint is returned when there is nothing to schedule.
var ErrEmptyEntrypoint = errors.New("empty entrypoint")

func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n'\"\\$`&|;<>()*?[]#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
