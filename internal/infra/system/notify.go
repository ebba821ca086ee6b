package system

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/tutu-network/battguard/internal/domain"
)

// NotifyTimeout bounds a single Alert or Toast call. The Windows balloon
// script must finish inside it.
const NotifyTimeout = 5 * time.Second

// winToastLinger is how long the Windows tray icon stays alive.
const winToastLinger = 4 * time.Second

const (
	macAlertSound = "/System/Library/Sounds/Glass.aiff"

	winAlertScript = `[System.Media.SystemSounds]::Exclamation.Play(); Start-Sleep -Milliseconds 500`

	// winToastScript shows a tray balloon; {title} and {body} are replaced
	// with single-quoted PowerShell literals, {ms} with the linger time.
	winToastScript = `Add-Type -AssemblyName System.Windows.Forms; ` +
		`$n = New-Object System.Windows.Forms.NotifyIcon; ` +
		`$n.Icon = [System.Drawing.SystemIcons]::Warning; $n.Visible = $true; ` +
		`$n.ShowBalloonTip({ms}, {title}, {body}, 'Warning'); ` +
		`Start-Sleep -Milliseconds {ms}; $n.Dispose()`
)

// Desktop is a domain.Notifier backed by the platform's notification and
// sound tools.
type Desktop struct {
	goos     string
	run      runFunc
	lookPath func(string) (string, error)
	bell     io.Writer
}

// NewNotifier returns a notifier for the running platform.
func NewNotifier() *Desktop {
	return &Desktop{
		goos:     runtime.GOOS,
		run:      execCombined,
		lookPath: exec.LookPath,
		bell:     os.Stderr,
	}
}

// Alert implements domain.Notifier.
func (d *Desktop) Alert(ctx context.Context) error {
	switch d.goos {
	case "windows":
		return run(ctx, d.run, powershell(winAlertScript))
	case "darwin":
		return run(ctx, d.run, Command{Name: "afplay", Args: []string{macAlertSound}})
	default:
		if _, err := d.lookPath("beep"); err == nil {
			return run(ctx, d.run, Command{Name: "beep"})
		}
		_, err := io.WriteString(d.bell, "\a")
		return err
	}
}

// Toast implements domain.Notifier.
func (d *Desktop) Toast(ctx context.Context, title, body string) error {
	cmd, err := d.toastCommand(title, body)
	if err != nil {
		return err
	}
	return run(ctx, d.run, cmd)
}

func (d *Desktop) toastCommand(title, body string) (Command, error) {
	switch d.goos {
	case "windows":
		script := strings.NewReplacer(
			"{title}", psQuote(title),
			"{body}", psQuote(body),
			"{ms}", strconv.FormatInt(winToastLinger.Milliseconds(), 10),
		).Replace(winToastScript)
		return powershell(script), nil
	case "darwin":
		script := fmt.Sprintf("display notification %s with title %s", asQuote(body), asQuote(title))
		return Command{Name: "osascript", Args: []string{"-e", script}}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		if _, err := d.lookPath("notify-send"); err != nil {
			return Command{}, fmt.Errorf("notify-send not found: %w", domain.ErrUnsupported)
		}
		return Command{Name: "notify-send", Args: []string{"--urgency=critical", "--app-name=battguard", title, body}}, nil
	default:
		return Command{}, fmt.Errorf("toast on %s: %w", d.goos, domain.ErrUnsupported)
	}
}

func powershell(script string) Command {
	return Command{Name: "powershell", Args: []string{"-NoProfile", "-NonInteractive", "-Command", script}}
}

// psQuote returns s as a single-quoted PowerShell string.
func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// asQuote returns s as an AppleScript string literal.
func asQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
