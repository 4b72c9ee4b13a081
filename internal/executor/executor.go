// Package executor prints or runs the final shell command line for a route.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/proxoffensive/prox-mesh/internal/route"
)

// ExitInterrupted is the conventional status for a process terminated by SIGINT.
const ExitInterrupted = 130

// ErrInterrupted is returned when the user interrupts a running tool.
var ErrInterrupted = errors.New("interrupted by user")

// LaunchError reports that the shell could not be started.
type LaunchError struct {
	CommandLine string
	Err         error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("error executing command: %v", e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// Invocation is a single command line to hand to the shell.
type Invocation struct {
	Route       route.Route
	CommandLine string
	Env         map[string]string // added to the child's environment
}

// Runner spawns an invocation and returns the child's exit code.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (int, error)
}

// ShellRunner runs invocations through the system shell with inherited
// standard streams. Cancelling ctx sends the child an interrupt, or SIGTERM
// when the cause is ErrTerminated.
type ShellRunner struct {
	Shell     []string // shell and flag preceding the command line; defaults per OS
	BaseEnv   []string // defaults to os.Environ()
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
	WaitDelay time.Duration
}

// DefaultShell returns the shell used to run command lines on this platform.
func DefaultShell() []string {
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/C"}
	}
	return []string{"/bin/sh", "-c"}
}

// NewShellRunner returns a ShellRunner wired to the process's standard streams.
func NewShellRunner() *ShellRunner {
	return &ShellRunner{
		Shell:     DefaultShell(),
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		WaitDelay: 5 * time.Second,
	}
}

// BuildCommand constructs the exec.Cmd for inv.
func (s *ShellRunner) BuildCommand(ctx context.Context, inv Invocation) *exec.Cmd {
	shell := s.Shell
	if len(shell) == 0 {
		shell = DefaultShell()
	}
	args := append(append([]string{}, shell[1:]...), inv.CommandLine)

	cmd := exec.CommandContext(ctx, shell[0], args...)
	cmd.Cancel = func() error {
		if err := cmd.Process.Signal(stopSignal(ctx)); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
	cmd.WaitDelay = s.WaitDelay

	env := s.BaseEnv
	if env == nil {
		env = os.Environ()
	}
	cmd.Env = append([]string{}, env...)
	for key, value := range inv.Env {
		cmd.Env = setEnv(cmd.Env, key, value)
	}

	cmd.Stdin = s.Stdin
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr
	return cmd
}

// Run executes inv and returns the child's exit code. Non-zero exit codes are
// not errors; launch failures and interrupts are.
func (s *ShellRunner) Run(ctx context.Context, inv Invocation) (int, error) {
	cmd := s.BuildCommand(ctx, inv)

	err := cmd.Run()
	if ctx.Err() != nil {
		return stopStatus(ctx)
	}
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
		if code, ok := signalStatus(exitErr.Sys()); ok {
			return code, nil
		}
		return 1, nil
	}
	return 1, &LaunchError{CommandLine: inv.CommandLine, Err: err}
}

// Executor prints (dry-run) or runs the final command line.
type Executor struct {
	Runner Runner
	Stdout io.Writer // dry-run output
	Stderr io.Writer // status lines
	Logger *slog.Logger
}

// Execute returns the exit code the process should finish with. A non-nil
// error accompanies every code that did not come from the child.
func (e *Executor) Execute(ctx context.Context, inv Invocation, dryRun bool) (int, error) {
	if dryRun {
		fmt.Fprintf(e.Stdout, "[prox-mesh] (dry-run) Would run:\n  %s\n", inv.CommandLine)
		return 0, nil
	}

	fmt.Fprintf(e.Stderr, "[prox-mesh] Running route '%s' with:\n  %s\n", inv.Route, inv.CommandLine)

	logger := e.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	start := time.Now()

	code, err := e.Runner.Run(ctx, inv)
	switch {
	case errors.Is(err, ErrInterrupted), errors.Is(err, ErrTerminated):
		logger.Warn("tool stopped", "route", inv.Route, "reason", err, "elapsed", time.Since(start))
		return code, err
	case err != nil:
		logger.Error("tool failed to launch", "route", inv.Route, "error", err)
		return 1, err
	}

	logger.Info("tool exited", "route", inv.Route, "exit_code", code, "elapsed", time.Since(start))
	return code, nil
}

func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}
