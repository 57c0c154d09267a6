package trigger

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type call struct {
	Name  string
	Args  []string
	Stdin string
}

type fakeRunner struct {
	calls   []call
	outputs map[string][]byte
	errs    map[string]error
}

func (f *fakeRunner) run(_ context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{Name: name, Args: args, Stdin: string(stdin)})
	key := name + " " + strings.Join(args, " ")
	if len(key) > 40 {
		key = name
	}
	return f.outputs[key], f.errs[key]
}

func TestMergeCrontab(t *testing.T) {
	tests := []struct {
		name    string
		current string
		want    string
	}{
		{
			name:    "empty crontab",
			current: "",
			want:    "0 7 * * * /opt/digest # X-AutoSummary\n",
		},
		{
			name:    "keeps unrelated lines",
			current: "MAILTO=me@example.com\n*/5 * * * * /usr/bin/backup\n",
			want:    "MAILTO=me@example.com\n*/5 * * * * /usr/bin/backup\n0 7 * * * /opt/digest # X-AutoSummary\n",
		},
		{
			name:    "replaces tagged line",
			current: "30 6 * * * /old/digest # X-AutoSummary\n15 3 * * * /usr/bin/rotate\n",
			want:    "15 3 * * * /usr/bin/rotate\n0 7 * * * /opt/digest # X-AutoSummary\n",
		},
		{
			name:    "does not touch other tasks",
			current: "0 8 * * * /opt/other # X-AutoSummary-2\n",
			want:    "0 8 * * * /opt/other # X-AutoSummary-2\n0 7 * * * /opt/digest # X-AutoSummary\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeCrontab(tt.current, "X-AutoSummary", "0 7 * * * /opt/digest")
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mergeCrontab mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCronEnsure(t *testing.T) {
	f := &fakeRunner{outputs: map[string][]byte{
		"crontab -l": []byte("30 6 * * * /old/digest # X-AutoSummary\n"),
	}}
	c := NewCron("X-AutoSummary", f.run)

	if err := c.Ensure(context.Background(), "07:05", "/opt/digest"); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	want := []call{
		{Name: "crontab", Args: []string{"-l"}},
		{Name: "crontab", Args: []string{"-"}, Stdin: "5 7 * * * /opt/digest # X-AutoSummary\n"},
	}
	if diff := cmp.Diff(want, f.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestCronEnsureNoCrontabYet(t *testing.T) {
	f := &fakeRunner{errs: map[string]error{
		"crontab -l": errors.New("crontab: exit status 1: no crontab for alice"),
	}}
	c := NewCron("X-AutoSummary", f.run)

	if err := c.Ensure(context.Background(), "23:59", "/opt/digest"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if diff := cmp.Diff("59 23 * * * /opt/digest # X-AutoSummary\n", f.calls[1].Stdin); diff != "" {
		t.Errorf("crontab mismatch (-want +got):\n%s", diff)
	}
}

func TestCronEnsureEscapesPercent(t *testing.T) {
	f := &fakeRunner{outputs: map[string][]byte{"crontab -l": nil}}
	c := NewCron("X-AutoSummary", f.run)

	if err := c.Ensure(context.Background(), "07:00", `cd '/home/me/100%' && '/home/me/100%/digest'`); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	want := `0 7 * * * cd '/home/me/100\%' && '/home/me/100\%/digest' # X-AutoSummary` + "\n"
	if diff := cmp.Diff(want, f.calls[1].Stdin); diff != "" {
		t.Errorf("crontab mismatch (-want +got):\n%s", diff)
	}
}

func TestCronEnsureErrors(t *testing.T) {
	tests := []struct {
		name       string
		at         string
		entrypoint string
		errs       map[string]error
		wantCalls  int
	}{
		{name: "bad time", at: "25:00", entrypoint: "/opt/digest"},
		{name: "not a time", at: "seven", entrypoint: "/opt/digest"},
		{name: "empty entrypoint", at: "07:00", entrypoint: " "},
		{
			name: "crontab unavailable", at: "07:00", entrypoint: "/opt/digest",
			errs:      map[string]error{"crontab -l": errors.New(`exec: "crontab": executable file not found in $PATH`)},
			wantCalls: 1,
		},
		{
			name: "write rejected", at: "07:00", entrypoint: "/opt/digest",
			errs:      map[string]error{"crontab -": errors.New("crontab: errors in crontab file")},
			wantCalls: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeRunner{errs: tt.errs}
			err := NewCron("X-AutoSummary", f.run).Ensure(context.Background(), tt.at, tt.entrypoint)
			if err == nil {
				t.Fatal("expected error")
			}
			if diff := cmp.Diff(tt.wantCalls, len(f.calls)); diff != "" {
				t.Errorf("calls mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTaskScript(t *testing.T) {
	got := taskScript("X-AutoSummary", "07:00", `cd /d "C:\Users\o'neil\digest" && "digest.exe"`)

	for _, want := range []string{
		`-Argument '/c cd /d "C:\Users\o''neil\digest" && "digest.exe"'`,
		"New-ScheduledTaskTrigger -Daily -At '07:00'",
		"-StartWhenAvailable",
		"Unregister-ScheduledTask -TaskName 'X-AutoSummary' -Confirm:$false",
		"Register-ScheduledTask -TaskName 'X-AutoSummary' -Action $action -Trigger $trigger -Settings $settings",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("script missing %q:\n%s", want, got)
		}
	}
}

func TestTaskSchedulerEnsure(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		err     error
		wantErr bool
	}{
		{name: "registered", out: "OK\r\n"},
		{name: "no confirmation", out: "", wantErr: true},
		{name: "powershell failed", err: errors.New("access denied"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeRunner{
				outputs: map[string][]byte{"powershell": []byte(tt.out)},
				errs:    map[string]error{"powershell": tt.err},
			}
			err := NewTaskScheduler("X-AutoSummary", f.run).Ensure(context.Background(), "7:30", `"C:\digest.exe"`)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Ensure() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(f.calls) != 1 {
				t.Fatalf("expected one powershell call, got %d", len(f.calls))
			}
			if !strings.Contains(f.calls[0].Args[len(f.calls[0].Args)-1], "-At '07:30'") {
				t.Errorf("time not normalized in script: %s", f.calls[0].Args[len(f.calls[0].Args)-1])
			}
		})
	}
}

func TestShellQuote(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{in: "/opt/digest", want: "/opt/digest"},
		{in: "/home/me/my digest", want: "'/home/me/my digest'"},
		{in: "/tmp/it's", want: `'/tmp/it'\''s'`},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, shellQuote(tt.in)); diff != "" {
			t.Errorf("shellQuote(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}
