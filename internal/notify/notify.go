// Package notify provides desktop notification support.
package notify

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/lalilo-dev/lalilo/internal/logger"
)

// ErrUnsupported is returned on platforms without a notification command.
var ErrUnsupported = stderrors.New("desktop notifications are not supported on " + runtime.GOOS)

// Notifier shows a message to the developer. Implementations are best
// effort.
type Notifier interface {
	Notify(message, title string)
}

// Nop discards notifications.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(string, string) {}

// Desktop sends notifications through the platform command and logs
// failures at debug level.
type Desktop struct {
	log     *slog.Logger
	timeout time.Duration
	command func(title, message string) (string, []string, error)
}

// NewDesktop creates a Desktop notifier for the current platform.
func NewDesktop(log *slog.Logger) *Desktop {
	if log == nil {
		log = logger.Discard()
	}
	return &Desktop{log: log, timeout: 5 * time.Second, command: platformCommand}
}

// Notify implements Notifier.
func (d *Desktop) Notify(message, title string) {
	if err := d.send(title, message); err != nil {
		d.log.Debug("desktop notification failed", "error", err)
	}
}

func (d *Desktop) send(title, message string) error {
	name, args, err := d.command(title, message)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func platformCommand(title, message string) (string, []string, error) {
	switch runtime.GOOS {
	case "darwin":
		script := `display notification "` + escapeAppleScript(message) +
			`" with title "` + escapeAppleScript(title) + `" sound name "default"`
		return "osascript", []string{"-e", script}, nil
	case "linux", "freebsd", "openbsd":
		return "notify-send", []string{"--app-name=lalilo", title, message}, nil
	default:
		return "", nil, ErrUnsupported
	}
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
