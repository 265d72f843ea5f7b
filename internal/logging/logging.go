// Package logging sets up the logrus logger shared by the fabriclink
// commands.
package logging

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// New returns a text logger writing to w. Verbose enables debug messages,
// including step timings.
func New(w io.Writer, verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		DisableQuote:     true,
	})
	log.SetLevel(logrus.InfoLevel)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// Timer logs the start of a task and, on Stop, its duration.
type Timer struct {
	log   logrus.FieldLogger
	task  string
	start time.Time
}

// StartTimer logs the start of task at debug level.
func StartTimer(log logrus.FieldLogger, task string) *Timer {
	log.Debugf("%s...", task)
	return &Timer{log: log, task: task, start: time.Now()}
}

// Stop logs the elapsed time and returns it.
func (t *Timer) Stop() time.Duration {
	d := time.Since(t.start)
	t.log.WithField("elapsed", d.Round(time.Microsecond)).Debugf("%s done", t.task)
	return d
}
