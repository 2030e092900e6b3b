package player

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// pathPlaceholder in an argument is replaced by the file to play
const pathPlaceholder = "{}"

// quotedPlaceholder is a placeholder inside a PowerShell single-quoted
// string. The path is escaped so it cannot end the string early.
const quotedPlaceholder = "'{}'"

// psQuoteReplacer doubles every character PowerShell accepts as a single
// quote
var psQuoteReplacer = strings.NewReplacer(
	"'", "''",
	"\u2018", "\u2018\u2018",
	"\u2019", "\u2019\u2019",
	"\u201A", "\u201A\u201A",
	"\u201B", "\u201B\u201B",
)

// stopTimeout bounds how long Stop waits for a killed process to exit
const stopTimeout = 2 * time.Second

// ExecPlayer plays files by running an external command-line player
type ExecPlayer struct {
	command string
	args    []string
	logger  zerolog.Logger

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

// DefaultCommand returns a command-line player suited to the current OS
func DefaultCommand() (string, []string) {
	switch runtime.GOOS {
	case "darwin":
		return "afplay", nil
	case "windows":
		return "powershell", []string{
			"-NoProfile", "-Command",
			"(New-Object Media.SoundPlayer '{}').PlaySync()",
		}
	default:
		return "paplay", nil
	}
}

// NewExecPlayer creates an ExecPlayer. If args contains "{}" each
// occurrence is replaced by the file path; otherwise the path is appended.
// Inside '{}' the path has its single quotes doubled.
func NewExecPlayer(command string, args []string, logger zerolog.Logger) *ExecPlayer {
	return &ExecPlayer{
		command: command,
		args:    args,
		logger:  logger.With().Str("component", "player").Logger(),
	}
}

// buildArgs expands the argument template for path
func buildArgs(template []string, path string) []string {
	// One pass, so a "{}" inside path is left alone
	expand := strings.NewReplacer(
		quotedPlaceholder, "'"+psQuoteReplacer.Replace(path)+"'",
		pathPlaceholder, path,
	)
	args := make([]string, 0, len(template)+1)
	substituted := false
	for _, a := range template {
		if strings.Contains(a, pathPlaceholder) {
			a = expand.Replace(a)
			substituted = true
		}
		args = append(args, a)
	}
	if !substituted {
		args = append(args, path)
	}
	return args
}

// Play stops any current playback and starts the player on path. The
// player process is not tied to ctx; it keeps running until it finishes or
// Stop is called.
func (p *ExecPlayer) Play(ctx context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.stopLocked(ctx); err != nil {
		p.logger.Debug().Err(err).Msg("Failed to stop previous playback")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	cmd := exec.Command(p.command, buildArgs(p.args, path)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", p.command, err)
	}

	done := make(chan struct{})
	go func() {
		err := cmd.Wait()
		if err != nil {
			p.logger.Debug().Err(err).Str("path", path).Msg("Player exited")
		}
		close(done)
	}()

	p.cmd = cmd
	p.done = done

	p.logger.Debug().
		Str("path", path).
		Int("pid", cmd.Process.Pid).
		Msg("Playback started")

	return nil
}

// Stop kills the running player and waits briefly for it to exit
func (p *ExecPlayer) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.stopLocked(ctx)
}

// stopLocked must be called with p.mu held
func (p *ExecPlayer) stopLocked(ctx context.Context) error {
	if p.cmd == nil {
		return nil
	}

	cmd, done := p.cmd, p.done
	p.cmd, p.done = nil, nil

	select {
	case <-done:
		return nil
	default:
	}

	if err := cmd.Process.Kill(); err != nil {
		return fmt.Errorf("failed to stop player: %w", err)
	}

	timer := time.NewTimer(stopTimeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		return fmt.Errorf("player did not exit within %s", stopTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

// Playing reports whether the player process is still running
func (p *ExecPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// PID returns the process id of the running player, or 0
func (p *ExecPlayer) PID() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// StopPID kills a player started by another tracklist process
func StopPID(pid int) error {
	if pid <= 0 {
		return nil
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find player process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return fmt.Errorf("failed to stop player process %d: %w", pid, err)
	}
	return nil
}

// PIDAlive reports whether a process with the given pid is running. It
// always returns false where signal 0 is unsupported.
func PIDAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
