package logger

import (
	"encoding/json"
	"io"
	"sort"
	"strconv"
)

// ReadJSONLinesLog parses a newline delimited JSON log.
func ReadJSONLinesLog(r io.Reader, handler func(e *Event)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var event Event
		if err := decoder.Decode(&event); err != nil {
			return err
		}

		handler(&event)
	}
	return nil
}

// Report holds statistics about the logged events.
type Report struct {
	LogEntries     int        `json:"log_entries"`
	Sessions       int        `json:"sessions"`
	InvalidEntries StrCounter `json:"unknown_log_entries,omitempty"`

	RunCommand    RunCommandReport    `json:"run_command_report"`
	Builtin       BuiltinReport       `json:"builtin_report"`
	LaunchFailure LaunchFailureReport `json:"launch_failure_report"`
	Jobs          JobReport           `json:"job_report"`
}

func (r *Report) Update(e *Event) {
	r.LogEntries++

	switch e.Type {
	case EventSessionStart:
		r.Sessions++
	case EventRunCommand:
		r.RunCommand.update(e)
	case EventBuiltin:
		r.Builtin.update(e)
	case EventLaunchFailure:
		r.LaunchFailure.update(e)
	case EventJobStatus:
		r.Jobs.update(e)
	case EventSessionEnd:
		// Ignore
	default:
		r.InvalidEntries.Increment(string(e.Type))
	}
}

type RunCommandReport struct {
	// Name of the command
	CommandNames StrCounter `json:"command_names"`
	// Number of foreground and background launches.
	Modes StrCounter `json:"modes"`
	// Exit codes of foreground commands.
	ExitCodes StrCounter `json:"exit_codes"`
}

func (r *RunCommandReport) update(e *Event) {
	r.CommandNames.Increment(e.CommandName())
	if e.Background {
		r.Modes.Increment("background")
		return
	}
	r.Modes.Increment("foreground")
	r.ExitCodes.Increment(strconv.Itoa(e.ExitCode))
}

type BuiltinReport struct {
	CommandNames StrCounter `json:"command_names"`
}

func (r *BuiltinReport) update(e *Event) {
	r.CommandNames.Increment(e.CommandName())
}

type LaunchFailureReport struct {
	Count        int        `json:"count"`
	CommandNames StrCounter `json:"command_names"`
}

func (r *LaunchFailureReport) update(e *Event) {
	r.Count++
	r.CommandNames.Increment(e.CommandName())
}

type JobReport struct {
	Statuses *PathCounter `json:"statuses"`
}

func (r *JobReport) update(e *Event) {
	if r.Statuses == nil {
		r.Statuses = NewPathCounter("command", "status")
	}
	r.Statuses.Increment(e.CommandName(), e.Status)
}

// StrCounter counts the number of strings seen.
type StrCounter struct {
	internal map[string]int
}

// Increment adds one to the given key.
func (s *StrCounter) Increment(toAdd string) {
	if s.internal == nil {
		s.internal = make(map[string]int)
	}

	s.internal[toAdd]++
}

// Get returns the count for key.
func (s *StrCounter) Get(key string) int {
	return s.internal[key]
}

// MarshalJSON implemnts custom JSON marshaler.
func (s StrCounter) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.internal)
}

func NewPathCounter(cols ...string) *PathCounter {
	return &PathCounter{
		cols:     cols,
		internal: make(map[string]int),
	}
}

// PathCounter counts the number of times each combination of column values
// was seen.
type PathCounter struct {
	cols     []string
	internal map[string]int
}

// Increment adds one to the given key.
func (ctr *PathCounter) Increment(toAdd ...string) {
	if len(toAdd) != len(ctr.cols) {
		panic("wrong number of columns to add")
	}

	ctr.internal[toKey(toAdd...)]++
}

// Get returns the count for the given column values.
func (ctr *PathCounter) Get(vals ...string) int {
	if ctr == nil {
		return 0
	}
	return ctr.internal[toKey(vals...)]
}

// MarshalJSON implemnts custom JSON marshaler.
func (ctr *PathCounter) MarshalJSON() ([]byte, error) {
	type Count struct {
		Count  int               `json:"count"`
		Fields map[string]string `json:"event"`
		Path   string            `json:"-"`
	}

	out := []Count{}
	for k, v := range ctr.internal {
		count := Count{
			Count:  v,
			Path:   k,
			Fields: make(map[string]string),
		}

		splitPath := fromKey(k)
		for colNum, colVal := range ctr.cols {
			count.Fields[colVal] = splitPath[colNum]
		}

		out = append(out, count)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Path < out[j].Path
		}
		return out[i].Count > out[j].Count
	})

	return json.Marshal(out)
}

func toKey(vals ...string) string {
	key, _ := json.Marshal(vals)
	return string(key)
}

func fromKey(key string) (out []string) {
	json.Unmarshal([]byte(key), &out)
	return
}
