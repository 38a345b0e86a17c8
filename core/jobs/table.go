// Package jobs tracks background and stopped processes between prompts.
package jobs

import (
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/josephlewis42/jobsh/core/cmdtree"
	"github.com/josephlewis42/jobsh/core/tty"
)

// Status is the state of a job.
type Status int

const (
	Running Status = iota
	Stopped
	ExitedSuccess
	ExitedError
	Signaled
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case Running:
		return "Running"
	case Stopped:
		return "Stopped"
	case ExitedSuccess:
		return "Done"
	case ExitedError:
		return "Exit"
	case Signaled:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// Terminal reports whether a job in this state is finished.
func (s Status) Terminal() bool {
	return s == ExitedSuccess || s == ExitedError || s == Signaled
}

// Record is a single background or stopped job.
type Record struct {
	// ID is the display id, unique for the lifetime of the table.
	ID int
	// Command is the line the job is running.
	Command *cmdtree.Node
	// Capture holds the job's stdout, nil if it writes to the terminal.
	Capture *os.File
	// PID of the job's top-level process.
	PID int
	// Group is set if PID leads its own process group.
	Group bool

	Status   Status
	ExitCode int
	Signal   syscall.Signal
}

// Line is the job's command as typed, without the background operator.
func (r *Record) Line() string {
	if r.Command == nil {
		return ""
	}
	line, _, _ := cut(r.Command.RawLine, "&")
	return strings.TrimSpace(line)
}

// target is the pid signals should go to.
func (r *Record) target() int {
	if r.Group {
		return -r.PID
	}
	return r.PID
}

func (r *Record) closeCapture() {
	if r.Capture != nil {
		r.Capture.Close()
		r.Capture = nil
	}
}

// Table is an insertion ordered set of jobs. It isn't safe for concurrent
// use; the shell's read loop owns it.
type Table struct {
	// Out receives status messages and drained job output.
	Out io.Writer
	// Procs is used to wait on and signal jobs.
	Procs Processes
	// Colors decorates status messages, nil disables colors.
	Colors *tty.ColorPrinter
	// DrainBytesPerSecond throttles drained output, 0 is unlimited.
	DrainBytesPerSecond int64
	// OnChange, if set, is called every time a job changes status.
	OnChange func(rec *Record)

	records []*Record
	lastID  int
}

// NewTable creates an empty table.
func NewTable(out io.Writer, procs Processes) *Table {
	return &Table{
		Out:   out,
		Procs: procs,
	}
}

// Append adds a job with the next display id.
func (t *Table) Append(cmd *cmdtree.Node, capture *os.File, pid int, status Status, group bool) *Record {
	t.lastID++
	rec := &Record{
		ID:      t.lastID,
		Command: cmd,
		Capture: capture,
		PID:     pid,
		Group:   group,
		Status:  status,
	}
	t.records = append(t.records, rec)
	t.changed(rec)
	return rec
}

// Find returns the job with the given display id or nil.
func (t *Table) Find(id int) *Record {
	for _, rec := range t.records {
		if rec.ID == id {
			return rec
		}
	}
	return nil
}

// Remove deletes rec from the table, closing its capture. It returns false
// if rec isn't in the table.
func (t *Table) Remove(rec *Record) bool {
	for i, candidate := range t.records {
		if candidate == rec {
			t.records = append(t.records[:i:i], t.records[i+1:]...)
			rec.closeCapture()
			return true
		}
	}
	return false
}

// Records returns a snapshot of the jobs in insertion order.
func (t *Table) Records() []*Record {
	out := make([]*Record, len(t.records))
	copy(out, t.records)
	return out
}

// Len returns the number of jobs.
func (t *Table) Len() int {
	return len(t.records)
}

func (t *Table) changed(rec *Record) {
	if t.OnChange != nil {
		t.OnChange(rec)
	}
}

// cut is strings.Cut, which isn't available in go1.17.
func cut(s, sep string) (before, after string, found bool) {
	if i := strings.Index(s, sep); i >= 0 {
		return s[:i], s[i+len(sep):], true
	}
	return s, "", false
}
