package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

// Logger defines a minimal, printf-style logging contract so packages can
// depend on logging without knowing about the concrete writer.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a logger that discards all output.
func Nop() Logger {
	return nopLogger{}
}

// OrNop returns logger when non-nil, otherwise a no-op logger.
func OrNop(logger Logger) Logger {
	if logger == nil {
		return Nop()
	}
	return logger
}

var (
	rootInstance *root
	rootOnce     sync.Once
)

// root owns the shared output destinations for all component loggers.
type root struct {
	mu    sync.Mutex
	out   io.Writer
	file  *os.File
	level Level
}

func getRoot() *root {
	rootOnce.Do(func() {
		rootInstance = &root{out: os.Stdout, level: DEBUG}

		home, err := os.UserHomeDir()
		if err != nil {
			return
		}
		logPath := filepath.Join(home, "quizd-debug.log")
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return
		}
		rootInstance.file = file
	})
	return rootInstance
}

// SetLevel sets the minimum level emitted by all component loggers.
func SetLevel(level Level) {
	r := getRoot()
	r.mu.Lock()
	r.level = level
	r.mu.Unlock()
}

// componentLogger tags every line with a component name and writes through
// the shared root.
type componentLogger struct {
	root      *root
	component string
}

// NewComponentLogger creates a logger scoped to a specific component.
func NewComponentLogger(component string) Logger {
	return &componentLogger{root: getRoot(), component: component}
}

func (l *componentLogger) log(level Level, format string, args ...any) {
	r := l.root
	r.mu.Lock()
	defer r.mu.Unlock()

	if level < r.level {
		return
	}

	_, file, line, ok := runtime.Caller(2)
	if ok {
		file = filepath.Base(file)
	} else {
		file = "???"
		line = 0
	}

	component := l.component
	if component == "" {
		component = "QUIZD"
	}

	// Format: 2025-09-30 12:34:56 [INFO] [Component] file.go:123 - Message
	message := fmt.Sprintf(format, args...)
	logLine := fmt.Sprintf("%s [%s] [%s] %s:%d - %s\n",
		time.Now().Format("2006-01-02 15:04:05"),
		levelToString(level), component, file, line, message)

	sanitized := SanitizeLogLine(logLine)

	if r.out != nil {
		fmt.Fprint(r.out, sanitized)
	}
	if r.file != nil {
		fmt.Fprint(r.file, sanitized)
	}
}

func (l *componentLogger) Debug(format string, args ...any) { l.log(DEBUG, format, args...) }
func (l *componentLogger) Info(format string, args ...any)  { l.log(INFO, format, args...) }
func (l *componentLogger) Warn(format string, args ...any)  { l.log(WARN, format, args...) }
func (l *componentLogger) Error(format string, args ...any) { l.log(ERROR, format, args...) }

func levelToString(level Level) string {
	switch level {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
