package logging

import (
	"fmt"
	"log"
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

func (l Level) String() string {
	switch l {
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

// Logger defines a minimal, printf-style logging contract. Components depend
// on this interface so tests can swap in Nop().
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

// fileLogger writes structured lines to synapse-debug.log in the user's home
// directory. All component loggers share one file handle.
type fileLogger struct {
	mu        sync.Mutex
	out       *log.Logger
	file      *os.File
	level     Level
	component string
}

var (
	rootOnce sync.Once
	root     *fileLogger
)

func rootLogger() *fileLogger {
	rootOnce.Do(func() {
		root = &fileLogger{level: DEBUG}
		home, err := os.UserHomeDir()
		if err != nil {
			log.Printf("logging: cannot resolve home directory: %v", err)
			return
		}
		path := filepath.Join(home, "synapse-debug.log")
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Printf("logging: cannot open %s: %v", path, err)
			return
		}
		root.file = file
		root.out = log.New(file, "", 0)
	})
	return root
}

// NewComponentLogger returns the shared application logger scoped to a
// component name.
func NewComponentLogger(component string) Logger {
	base := rootLogger()
	return &fileLogger{
		out:       base.out,
		file:      base.file,
		level:     base.level,
		component: component,
	}
}

// SetLevel adjusts the minimum level for loggers created afterwards.
func SetLevel(level Level) {
	base := rootLogger()
	base.mu.Lock()
	base.level = level
	base.mu.Unlock()
}

func (l *fileLogger) log(level Level, format string, args ...any) {
	if l.out == nil || level < l.level {
		return
	}

	_, file, line, ok := runtime.Caller(2)
	if ok {
		file = filepath.Base(file)
	} else {
		file, line = "???", 0
	}

	msg := fmt.Sprintf(format, args...)
	component := l.component
	if component == "" {
		component = "App"
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.Printf("%s [%s] [%s] %s:%d %s",
		time.Now().Format("2006-01-02 15:04:05.000"), level, component, file, line, msg)
}

func (l *fileLogger) Debug(format string, args ...any) { l.log(DEBUG, format, args...) }
func (l *fileLogger) Info(format string, args ...any)  { l.log(INFO, format, args...) }
func (l *fileLogger) Warn(format string, args ...any)  { l.log(WARN, format, args...) }
func (l *fileLogger) Error(format string, args ...any) { l.log(ERROR, format, args...) }
