package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJsonLinesRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := NewJsonLinesLogRecorder(&buf)
	l.now = func() time.Time { return time.Unix(1, 5000) }
	session := l.NewSession()

	require.NoError(t, session.Record(&Event{Type: EventSessionStart}))
	require.NoError(t, session.Record(&Event{
		Type:       EventRunCommand,
		Command:    []string{"sleep", "5", "&"},
		Background: true,
	}))
	require.NoError(t, session.Record(&Event{
		Type:    EventJobStatus,
		Command: []string{"sleep", "5", "&"},
		JobID:   1,
		PID:     1234,
		Status:  "Done",
	}))

	assert.Equal(t, 3, strings.Count(buf.String(), "\n"))

	var events []*Event
	require.NoError(t, ReadJSONLinesLog(&buf, func(e *Event) {
		events = append(events, e)
	}))
	require.Len(t, events, 3)

	for _, e := range events {
		assert.Equal(t, session.SessionID(), e.SessionID)
		assert.Equal(t, int64(1000005), e.TimestampMicros)
	}
	assert.Equal(t, "sleep", events[1].CommandName())
	assert.True(t, events[1].Background)
	assert.Equal(t, 1234, events[2].PID)
}

func TestNewSession(t *testing.T) {
	l := Discard()
	a, b := l.NewSession(), l.NewSession()

	assert.NotEmpty(t, a.SessionID())
	assert.NotEqual(t, a.SessionID(), b.SessionID())
	assert.Empty(t, l.Sessionless().SessionID())
	assert.NoError(t, a.Record(&Event{Type: EventSessionEnd}))
}

func TestReadJSONLinesLog_invalid(t *testing.T) {
	err := ReadJSONLinesLog(strings.NewReader(`{"type": "builtin"}{`), func(*Event) {})
	assert.Error(t, err)
}

func TestReport(t *testing.T) {
	events := []*Event{
		{Type: EventSessionStart},
		{Type: EventRunCommand, Command: []string{"ls"}},
		{Type: EventRunCommand, Command: []string{"ls", "-l"}, ExitCode: 2},
		{Type: EventRunCommand, Command: []string{"sleep", "5", "&"}, Background: true},
		{Type: EventBuiltin, Command: []string{"jobs"}},
		{Type: EventLaunchFailure, Command: []string{"nosuch"}, ExitCode: 10},
		{Type: EventJobStatus, Command: []string{"sleep", "5", "&"}, Status: "Running"},
		{Type: EventJobStatus, Command: []string{"sleep", "5", "&"}, Status: "Done"},
		{Type: EventSessionEnd},
		{Type: "from_the_future"},
	}

	var report Report
	for _, e := range events {
		report.Update(e)
	}

	assert.Equal(t, 10, report.LogEntries)
	assert.Equal(t, 1, report.Sessions)
	assert.Equal(t, 1, report.InvalidEntries.Get("from_the_future"))
	assert.Equal(t, 2, report.RunCommand.CommandNames.Get("ls"))
	assert.Equal(t, 1, report.RunCommand.Modes.Get("background"))
	assert.Equal(t, 1, report.RunCommand.ExitCodes.Get("2"))
	assert.Equal(t, 1, report.Builtin.CommandNames.Get("jobs"))
	assert.Equal(t, 1, report.LaunchFailure.Count)
	assert.Equal(t, 1, report.Jobs.Statuses.Get("sleep", "Done"))

	_, err := json.Marshal(report)
	assert.NoError(t, err)
}

func TestPathCounter(t *testing.T) {
	ctr := NewPathCounter("command", "status")
	ctr.Increment("b", "Done")
	ctr.Increment("a", "Exit")
	ctr.Increment("a", "Exit")

	out, err := json.Marshal(ctr)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"count": 2, "event": {"command": "a", "status": "Exit"}},
		{"count": 1, "event": {"command": "b", "status": "Done"}}
	]`, string(out))

	assert.Panics(t, func() { ctr.Increment("too few") })
}
