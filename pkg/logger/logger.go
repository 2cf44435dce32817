package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Level is the verbosity an event is emitted at. An event is written when
// its level is at or below the configured one.
type Level int

const (
	Minimal Level = iota
	Normal
	Verbose
)

func (l Level) String() string {
	switch l {
	case Minimal:
		return "minimal"
	case Normal:
		return "normal"
	case Verbose:
		return "verbose"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseLevel maps minimal|normal|verbose onto a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal":
		return Minimal, nil
	case "normal":
		return Normal, nil
	case "verbose":
		return Verbose, nil
	}
	return Minimal, errors.Errorf("unknown log level %q (want minimal, normal or verbose)", s)
}

// Kind classifies an event.
type Kind int

const (
	KindInfo Kind = iota
	KindSuccess
	KindWarning
	KindError
)

// Fields carries structured context such as phase, postId or entity.
type Fields = logrus.Fields

// Logger filters events by verbosity before handing them to logrus.
type Logger struct {
	entry *logrus.Entry
	level Level
}

// New creates a Logger writing text lines to out.
func New(out io.Writer, level Level) *Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &Logger{entry: logrus.NewEntry(l), level: level}
}

// Discard returns a Logger that writes nothing.
func Discard() *Logger {
	return New(io.Discard, Minimal)
}

// Enabled reports whether events at level would be written.
func (l *Logger) Enabled(level Level) bool { return level <= l.level }

// With returns a Logger that adds fields to every event.
func (l *Logger) With(fields Fields) *Logger {
	return &Logger{entry: l.entry.WithFields(fields), level: l.level}
}

// Log emits msg if level is enabled.
func (l *Logger) Log(level Level, kind Kind, msg string, fields Fields) {
	if !l.Enabled(level) {
		return
	}
	e := l.entry
	if len(fields) > 0 {
		e = e.WithFields(fields)
	}
	switch kind {
	case KindError:
		e.Error(msg)
	case KindWarning:
		e.Warn(msg)
	case KindSuccess:
		e.WithField("status", "ok").Info(msg)
	default:
		e.Info(msg)
	}
}

func (l *Logger) Info(level Level, msg string, fields Fields) {
	l.Log(level, KindInfo, msg, fields)
}

func (l *Logger) Success(level Level, msg string, fields Fields) {
	l.Log(level, KindSuccess, msg, fields)
}

// Warning and Error are always emitted: they mirror entries in the run report.
func (l *Logger) Warning(msg string, fields Fields) {
	l.Log(Minimal, KindWarning, msg, fields)
}

func (l *Logger) Error(msg string, fields Fields) {
	l.Log(Minimal, KindError, msg, fields)
}

var (
	std     = New(os.Stdout, Verbose)
	logFile *os.File
)

// InitLogger sends process-level output to stdout and, when filename is not
// empty, appends it to that file as well.
func InitLogger(filename string, level Level) (*Logger, error) {
	var out io.Writer = os.Stdout
	if filename != "" {
		f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, err
		}
		logFile = f
		out = io.MultiWriter(os.Stdout, f)
	}
	std = New(out, level)
	return std, nil
}

func Close() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// Infof writes a process-level message, such as connection status, outside
// any run.
func Infof(format string, v ...interface{}) {
	std.entry.Infof(format, v...)
}
