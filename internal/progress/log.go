// Package progress implements the append-only milestone log written by the
// pipelines. Each line has the form
//
//	<Year-Mon-Day-Hour:Minute:Second> : <message>
//
// Writes are best-effort: a failed write is reported to the operational
// logger and never returned to the caller.
package progress

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// TimestampLayout is the strftime "%Y-%h-%d-%H:%M:%S" equivalent.
const TimestampLayout = "2006-Jan-02-15:04:05"

// Logger is the operational logger failures are reported to.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// Log appends timestamped milestone lines to a file.
type Log struct {
	path   string
	now    func() time.Time
	errLog Logger
}

// Option configures a Log.
type Option func(*Log)

// WithClock overrides time.Now, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// WithErrorLogger sets where failed writes are reported.
func WithErrorLogger(lg Logger) Option {
	return func(l *Log) { l.errLog = lg }
}

// New returns a Log appending to path. An empty path yields a Log that
// drops every message.
func New(path string, opts ...Option) *Log {
	l := &Log{
		path:   path,
		now:    time.Now,
		errLog: log.New(io.Discard, "", 0),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Path returns the file the log appends to.
func (l *Log) Path() string { return l.path }

// Log appends one line. The file is opened per call so that every
// milestone is on disk before the next stage begins.
func (l *Log) Log(msg string) {
	if l == nil || l.path == "" {
		return
	}
	line := fmt.Sprintf("%s : %s\n", l.now().Format(TimestampLayout), msg)

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		l.errLog.Printf("progress: open %s: %v", l.path, err)
		return
	}
	if _, err := io.WriteString(f, line); err != nil {
		l.errLog.Printf("progress: write %s: %v", l.path, err)
	}
	if err := f.Close(); err != nil {
		l.errLog.Printf("progress: close %s: %v", l.path, err)
	}
}
