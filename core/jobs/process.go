package jobs

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// State is a decoded change in a child process's state.
type State struct {
	// PID is the process that changed, 0 if nothing changed.
	PID int

	Exited   bool
	ExitCode int

	Signaled bool
	Signal   syscall.Signal

	Stopped bool
}

// Changed reports whether the wait observed anything.
func (s State) Changed() bool {
	return s.PID != 0
}

// Processes is the OS interface the job table uses.
type Processes interface {
	// Wait waits for pid to exit, die or stop. If nohang is set it returns a
	// zero State instead of blocking.
	Wait(pid int, nohang bool) (State, error)
	// Signal sends sig to pid, negative pids address a process group.
	Signal(pid int, sig syscall.Signal) error
}

// OS implements Processes with wait4(2) and kill(2).
type OS struct{}

var _ Processes = OS{}

// Wait implements Processes.Wait.
func (OS) Wait(pid int, nohang bool) (State, error) {
	options := unix.WUNTRACED
	if nohang {
		options |= unix.WNOHANG
	}

	for {
		var ws unix.WaitStatus
		wpid, err := unix.Wait4(pid, &ws, options, nil)
		switch {
		case err == unix.EINTR:
			continue
		case err != nil:
			return State{}, err
		case wpid == 0:
			return State{}, nil
		default:
			return decodeWaitStatus(wpid, ws), nil
		}
	}
}

// Signal implements Processes.Signal.
func (OS) Signal(pid int, sig syscall.Signal) error {
	return unix.Kill(pid, sig)
}

func decodeWaitStatus(pid int, ws unix.WaitStatus) State {
	state := State{PID: pid}
	switch {
	case ws.Stopped():
		state.Stopped = true
		state.Signal = ws.StopSignal()
	case ws.Signaled():
		state.Signaled = true
		state.Signal = ws.Signal()
	case ws.Exited():
		state.Exited = true
		state.ExitCode = ws.ExitStatus()
	}
	return state
}
