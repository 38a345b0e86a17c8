package logger

// EventType identifies what an Event records.
type EventType string

const (
	EventSessionStart  EventType = "session_start"
	EventSessionEnd    EventType = "session_end"
	EventRunCommand    EventType = "run_command"
	EventBuiltin       EventType = "builtin"
	EventLaunchFailure EventType = "launch_failure"
	EventJobStatus     EventType = "job_status"
)

// Event is a single entry in the event log. Fields not relevant to the Type
// are left empty.
type Event struct {
	TimestampMicros int64     `json:"timestamp_micros"`
	SessionID       string    `json:"session_id,omitempty"`
	Type            EventType `json:"type"`

	// Command is the tokenized line or builtin invocation.
	Command []string `json:"command,omitempty"`
	// Background is set if the command was launched as a job.
	Background bool `json:"background,omitempty"`
	ExitCode   int  `json:"exit_code,omitempty"`

	JobID  int    `json:"job_id,omitempty"`
	PID    int    `json:"pid,omitempty"`
	Status string `json:"status,omitempty"`

	Error string `json:"error,omitempty"`
}

// CommandName is the program the event is about, blank if unknown.
func (e *Event) CommandName() string {
	if len(e.Command) == 0 {
		return ""
	}
	return e.Command[0]
}
