package core

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Foreground tracks the process the shell is waiting on so terminal signals
// delivered to the shell can be forwarded to it.
//
// The signal handler only ever touches this slot. Moving a stopped process
// into the job table is left to the read loop once its wait returns.
type Foreground struct {
	// Signal delivers forwarded signals.
	Signal func(pid int, sig syscall.Signal) error

	mu            sync.Mutex
	pid           int
	stopRequested bool
}

// NewForeground creates an empty slot that forwards signals with kill(2).
func NewForeground() *Foreground {
	return &Foreground{
		Signal: syscall.Kill,
	}
}

// Set marks pid as the foreground process.
func (f *Foreground) Set(pid int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pid = pid
	f.stopRequested = false
}

// Clear empties the slot and reports whether a stop was requested while pid
// was in the foreground.
func (f *Foreground) Clear() (stopRequested bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stopRequested = f.stopRequested
	f.pid = 0
	f.stopRequested = false
	return
}

// PID returns the foreground process, 0 if there is none.
func (f *Foreground) PID() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.pid
}

// Handle reacts to a signal delivered to the shell. SIGTSTP is forwarded to
// the foreground process. Everything else is dropped, the shell itself is
// never stopped or interrupted from the terminal.
func (f *Foreground) Handle(sig os.Signal) {
	if sig != syscall.SIGTSTP {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pid == 0 {
		return
	}
	if err := f.Signal(f.pid, syscall.SIGTSTP); err == nil {
		f.stopRequested = true
	}
}

// Notify starts handling terminal signals until the returned function is
// called.
func (f *Foreground) Notify() (stop func()) {
	sigs := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigs, syscall.SIGTSTP, syscall.SIGINT, syscall.SIGTTOU)

	go func() {
		for {
			select {
			case sig := <-sigs:
				f.Handle(sig)
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}
