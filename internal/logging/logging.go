// Package logging provides the leveled log sink used across sws.
//
// DEBUG and INFO go to stdout, WARNING and ERROR go to stderr. Both
// streams share one threshold: DEBUG is only emitted when verbose
// mode is enabled.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Level is the DEBUG/INFO/WARNING/ERROR verbosity taxonomy.
type Level int

const (
	Debug Level = iota
	Info
	Warning
	Error
)

// Logger is the process-wide leveled sink. It wraps two logrus entries
// so DEBUG/INFO and WARNING/ERROR can be routed to different streams
// while sharing a single verbosity threshold.
type Logger struct {
	out   *logrus.Entry
	err   *logrus.Entry
	level Level
}

// New builds a Logger. When verbose is false, DEBUG records are dropped.
func New(verbose bool) *Logger {
	level := Info
	if verbose {
		level = Debug
	}

	out := logrus.New()
	out.SetOutput(os.Stdout)
	out.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	errOut := logrus.New()
	errOut.SetOutput(os.Stderr)
	errOut.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if verbose {
		out.SetLevel(logrus.DebugLevel)
		errOut.SetLevel(logrus.DebugLevel)
	}

	return &Logger{out: logrus.NewEntry(out), err: logrus.NewEntry(errOut), level: level}
}

// WithField tags subsequent records with a component name, grounded on
// leo-pony-model-runner's log.WithFields(logrus.Fields{"component": ...}) idiom.
func (l *Logger) WithField(key, value string) *Logger {
	return &Logger{
		out:   l.out.WithField(key, value),
		err:   l.err.WithField(key, value),
		level: l.level,
	}
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.level > Debug {
		return
	}
	l.out.Debugf(format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	if l.level > Info {
		return
	}
	l.out.Infof(format, args...)
}

func (l *Logger) Warningf(format string, args ...interface{}) {
	if l.level > Warning {
		return
	}
	l.err.Warnf(format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.err.Errorf(format, args...)
}
