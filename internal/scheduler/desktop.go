package scheduler

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// DesktopSink shows alarms through the platform notifier.
type DesktopSink struct {
	Title string
	// command builds the process to run; nil means the platform default.
	command func(ctx context.Context, title, body string) *exec.Cmd
}

func (s DesktopSink) Notify(a Alarm) error {
	title := s.Title
	if title == "" {
		title = "agenda"
	}
	body := fmt.Sprintf("%s %s", a.Start.Format("15:04"), a.Mesg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	build := s.command
	if build == nil {
		build = platformCommand
	}
	cmd := build(ctx, title, body)
	if cmd == nil {
		return nil
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("desktop notify: %w", err)
	}
	return nil
}

func platformCommand(ctx context.Context, title, body string) *exec.Cmd {
	switch runtime.GOOS {
	case "linux":
		return exec.CommandContext(ctx, "notify-send", title, body)
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(body), escapeAppleScript(title))
		return exec.CommandContext(ctx, "osascript", "-e", script)
	default:
		return nil
	}
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
