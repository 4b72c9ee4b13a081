package executor

import (
	"context"
	"errors"
	"os"
	"syscall"
)

// ExitTerminated is the conventional status for a process terminated by SIGTERM.
const ExitTerminated = 143

// ErrTerminated is returned when prox-mesh is asked to terminate while a tool runs.
var ErrTerminated = errors.New("terminated")

// CancelCause maps a signal received by prox-mesh to the cause its context
// should be cancelled with.
func CancelCause(sig os.Signal) error {
	if sig == syscall.SIGTERM {
		return ErrTerminated
	}
	return ErrInterrupted
}

// stopStatus is the outcome of a run whose context was cancelled. Plain
// cancellation counts as an interrupt.
func stopStatus(ctx context.Context) (int, error) {
	if errors.Is(context.Cause(ctx), ErrTerminated) {
		return ExitTerminated, ErrTerminated
	}
	return ExitInterrupted, ErrInterrupted
}

// stopSignal is forwarded to the child when ctx is cancelled.
func stopSignal(ctx context.Context) os.Signal {
	if errors.Is(context.Cause(ctx), ErrTerminated) {
		return syscall.SIGTERM
	}
	return os.Interrupt
}

// signalStatus reports 128+n for a child killed by signal n. sys is the
// platform status from exec.ExitError.Sys.
func signalStatus(sys any) (int, bool) {
	ws, ok := sys.(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return 0, false
	}
	return 128 + int(ws.Signal()), true
}
