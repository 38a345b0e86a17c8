package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// LogRecorder is a callback that stores events in an external datastore.
type LogRecorder func(e *Event) error

// Logger captures interaction event logs for the shell.
type Logger struct {
	Record LogRecorder
	now    func() time.Time
}

// NewJsonLinesLogRecorder creates a Logger that exports logs in newline
// delimited JSON object format.
func NewJsonLinesLogRecorder(w io.Writer) *Logger {
	return &Logger{
		Record: func(e *Event) error {
			entry, err := json.Marshal(e)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, string(entry))
			return err
		},
	}
}

// Discard creates a Logger that drops every event.
func Discard() *Logger {
	return &Logger{
		Record: func(*Event) error { return nil },
	}
}

func (l *Logger) record(sessionID string, event *Event) error {
	now := time.Now
	if l.now != nil {
		now = l.now
	}

	event.TimestampMicros = now().UnixNano() / int64(time.Microsecond)
	event.SessionID = sessionID
	return l.Record(event)
}

// NewSession creates a logger with a new random session ID.
func (l *Logger) NewSession() *SessionLogger {
	return &SessionLogger{Logger: l, sessionID: uuid.NewString()}
}

// Sessionless creates a logger without a session ID.
func (l *Logger) Sessionless() *SessionLogger {
	return &SessionLogger{Logger: l, sessionID: ""}
}

// SessionLogger logs messages with a shared session ID.
type SessionLogger struct {
	*Logger
	sessionID string
}

// SessionID is the ID attached to every event.
func (l *SessionLogger) SessionID() string {
	return l.sessionID
}

// Record stamps the event with the time and session then records it.
func (l *SessionLogger) Record(event *Event) error {
	return l.record(l.sessionID, event)
}
