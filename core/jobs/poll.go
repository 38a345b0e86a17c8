package jobs

import (
	"fmt"
	"io"
	"syscall"

	"github.com/fatih/color"
	"github.com/josephlewis42/jobsh/core/cmdtree"
	"github.com/josephlewis42/jobsh/core/tty"
	"github.com/juju/ratelimit"
)

// drainChunk is the largest single write of drained output.
const drainChunk = 4096

// ExitPolicy is what happens to live jobs when the shell exits.
type ExitPolicy string

const (
	// ExitHangup sends SIGHUP to every job, continuing stopped ones so they
	// can handle it.
	ExitHangup ExitPolicy = "hangup"
	// ExitKill sends SIGKILL to every job.
	ExitKill ExitPolicy = "kill"
	// ExitOrphan leaves jobs running.
	ExitOrphan ExitPolicy = "orphan"
)

// Launched announces a new background job.
func (t *Table) Launched(rec *Record) {
	fmt.Fprintf(t.Out, "[%d] %d\n", rec.ID, rec.PID)
}

// Promote records a foreground job that was stopped from the terminal. Its
// output was never captured so nothing is drained when it finishes.
func (t *Table) Promote(cmd *cmdtree.Node, pid int) *Record {
	rec := t.Append(cmd, nil, pid, Stopped, false)
	t.printStatus(rec)
	return rec
}

// Poll checks every running job without blocking, reports jobs that
// stopped or finished, and removes the finished ones. Successful jobs have
// their captured output drained.
func (t *Table) Poll() {
	for _, rec := range t.records {
		if rec.Status != Running {
			continue
		}

		state, err := t.Procs.Wait(rec.PID, true)
		if err != nil {
			// The process can't be waited on anymore, e.g. it was reaped
			// elsewhere.
			rec.Status = ExitedError
			rec.ExitCode = -1
			fmt.Fprintf(t.Out, "%s %s: %v\n", t.label(rec), rec.Line(), err)
			t.changed(rec)
			continue
		}

		if !t.apply(rec, state) {
			continue
		}
		t.changed(rec)
		t.printStatus(rec)

		if rec.Status == ExitedSuccess {
			if err := t.Drain(rec); err != nil {
				fmt.Fprintf(t.Out, "jobsh: [%d]: reading output: %v\n", rec.ID, err)
			}
		}
	}

	t.sweep()
}

// apply updates rec from state and reports whether anything changed.
func (t *Table) apply(rec *Record, state State) bool {
	switch {
	case !state.Changed():
		return false
	case state.Stopped:
		rec.Status = Stopped
		rec.Signal = state.Signal
	case state.Signaled:
		rec.Status = Signaled
		rec.Signal = state.Signal
	case state.Exited && state.ExitCode != 0:
		rec.Status = ExitedError
		rec.ExitCode = state.ExitCode
	case state.Exited && state.PID == rec.PID:
		rec.Status = ExitedSuccess
		rec.ExitCode = 0
	default:
		return false
	}
	return true
}

// sweep removes finished jobs, keeping the order of the rest.
func (t *Table) sweep() {
	kept := t.records[:0]
	for _, rec := range t.records {
		if rec.Status.Terminal() {
			rec.closeCapture()
			continue
		}
		kept = append(kept, rec)
	}
	for i := len(kept); i < len(t.records); i++ {
		t.records[i] = nil
	}
	t.records = kept
}

// Resume sends SIGCONT to the job with the given id and marks it running.
// It returns false if there's no such job or it couldn't be signaled.
func (t *Table) Resume(id int) bool {
	rec := t.Find(id)
	if rec == nil {
		return false
	}

	if err := t.Procs.Signal(rec.target(), syscall.SIGCONT); err != nil {
		return false
	}

	rec.Status = Running
	t.changed(rec)
	return true
}

// Drain copies a job's captured output to Out and closes the capture.
// Jobs without a capture are left alone.
func (t *Table) Drain(rec *Record) error {
	if rec.Capture == nil {
		return nil
	}
	defer rec.closeCapture()

	if _, err := rec.Capture.Seek(0, io.SeekStart); err != nil {
		return err
	}

	var src io.Reader = rec.Capture
	if rate := t.DrainBytesPerSecond; rate > 0 {
		src = ratelimit.Reader(src, ratelimit.NewBucketWithRate(float64(rate), rate))
	}

	buf := make([]byte, drainChunk)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := t.Out.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		switch {
		case err == io.EOF:
			return nil
		case err != nil:
			return err
		}
	}
}

// RemoveAll empties the table, applying policy to jobs that are still alive.
func (t *Table) RemoveAll(policy ExitPolicy) {
	for _, rec := range t.records {
		if !rec.Status.Terminal() {
			switch policy {
			case ExitHangup:
				_ = t.Procs.Signal(rec.target(), syscall.SIGHUP)
				if rec.Status == Stopped {
					_ = t.Procs.Signal(rec.target(), syscall.SIGCONT)
				}
			case ExitKill:
				_ = t.Procs.Signal(rec.target(), syscall.SIGKILL)
			}
		}
		rec.closeCapture()
	}
	t.records = nil
}

// ListOptions changes the output of List.
type ListOptions struct {
	// Long includes process ids.
	Long bool
	// PIDsOnly prints only process ids.
	PIDsOnly bool
}

// List writes the jobs table to w.
func (t *Table) List(w io.Writer, opts ListOptions) {
	if opts.PIDsOnly {
		for _, rec := range t.records {
			fmt.Fprintf(w, "%d\n", rec.PID)
		}
		return
	}

	if len(t.records) == 0 {
		fmt.Fprintln(w, "No processes to list.")
		return
	}

	for _, rec := range t.records {
		status := t.Colors.Sprintf(statusColor(rec.Status), "%s", rec.Status)
		if opts.Long {
			fmt.Fprintf(w, "[%d] %d %s\t%s\n", rec.ID, rec.PID, status, rec.Command.RawLine)
		} else {
			fmt.Fprintf(w, "[%d] %s\t%s\n", rec.ID, status, rec.Command.RawLine)
		}
	}
}

func (t *Table) label(rec *Record) string {
	return t.Colors.Sprintf(statusColor(rec.Status), "[%d] %s", rec.ID, rec.Status)
}

func (t *Table) printStatus(rec *Record) {
	switch rec.Status {
	case ExitedSuccess:
		fmt.Fprintf(t.Out, "%s %s:\n", t.label(rec), rec.Line())
	case ExitedError:
		fmt.Fprintf(t.Out, "%s %d %s\n", t.label(rec), rec.ExitCode, rec.Line())
	default:
		fmt.Fprintf(t.Out, "%s %s\n", t.label(rec), rec.Line())
	}
}

func statusColor(s Status) *color.Color {
	switch s {
	case ExitedSuccess:
		return tty.ColorBoldGreen
	case ExitedError, Signaled:
		return tty.ColorBoldRed
	case Stopped:
		return tty.ColorBoldCyan
	default:
		return tty.ColorBoldBlue
	}
}
